package domain

import (
	"errors"
	"fmt"
)

// UploadFile is a file picked by the admin, held in memory until upload.
type UploadFile struct {
	Name    string
	Size    int64
	Content []byte
}

// ImportResult summarises one bulk import run.
type ImportResult struct {
	TotalRows    int      `json:"totalRows"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	ErrorDetails []string `json:"errorDetails"`
	Message      string   `json:"message,omitempty"`
}

// Succeeded is true only when no row failed.
func (r ImportResult) Succeeded() bool {
	return r.ErrorCount == 0
}

// Itemized returns the per-row report, which is only shown for partial failures.
func (r ImportResult) Itemized() []string {
	if r.ErrorCount == 0 {
		return nil
	}
	return r.ErrorDetails
}

// Consistent checks the counters against each other.
func (r ImportResult) Consistent() error {
	if r.TotalRows < 0 || r.SuccessCount < 0 || r.ErrorCount < 0 {
		return errors.New("import result: negative counter")
	}
	if r.SuccessCount+r.ErrorCount > r.TotalRows {
		return fmt.Errorf("import result: success %d + errors %d exceed total %d",
			r.SuccessCount, r.ErrorCount, r.TotalRows)
	}
	if r.ErrorCount > 0 && len(r.ErrorDetails) == 0 {
		return errors.New("import result: errors reported without details")
	}
	return nil
}
