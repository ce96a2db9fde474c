package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

// ImportStage is the position of the import dialog in its lifecycle.
type ImportStage int

const (
	StageIdle ImportStage = iota
	StageFileSelected
	StageUploading
	StageCompleted
)

var stageNames = map[ImportStage]string{
	StageIdle:         "idle",
	StageFileSelected: "file-selected",
	StageUploading:    "uploading",
	StageCompleted:    "completed",
}

func (s ImportStage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s ImportStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DefaultImportExtension is the only file suffix the directory accepts.
const DefaultImportExtension = ".xlsx"

const uploadFailedMessage = "Upload failed"

// FilePolicy decides which file names may be staged. The check is on the
// name only; content is never inspected.
type FilePolicy struct {
	Extension string
}

// Reject returns why name is not acceptable, or "" when it is. A name that
// only matches when case is ignored gets its own message because the
// directory compares suffixes exactly.
func (p FilePolicy) Reject(name string) string {
	ext := p.Extension
	if ext == "" {
		ext = DefaultImportExtension
	}
	if strings.HasSuffix(name, ext) {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return "The file extension must be lowercase " + ext
	}
	return "Please select a " + ext + " file"
}

// StagedFile describes the file waiting for upload.
type StagedFile struct {
	Name string
	Size int64
}

// ImportState is a point-in-time copy of the import dialog.
type ImportState struct {
	Stage  ImportStage
	File   *StagedFile
	Result *domain.ImportResult
	Error  string
}

// ImportPipeline stages one workbook, uploads it and keeps the result.
// Reset invalidates any upload still in flight.
type ImportPipeline struct {
	importer ports.UserImporter
	policy   FilePolicy
	log      zerolog.Logger

	onStale func(slot string)

	mu     sync.Mutex
	stage  ImportStage
	file   *domain.UploadFile
	result *domain.ImportResult
	errMsg string
	seq    uint64
}

// PipelineOption customises an ImportPipeline.
type PipelineOption func(*ImportPipeline)

// WithDiscardHook is called with slot "import" when an upload result
// arrives after a Reset.
func WithDiscardHook(fn func(slot string)) PipelineOption {
	return func(p *ImportPipeline) { p.onStale = fn }
}

func NewImportPipeline(importer ports.UserImporter, policy FilePolicy, log zerolog.Logger, opts ...PipelineOption) *ImportPipeline {
	p := &ImportPipeline{importer: importer, policy: policy, log: log, onStale: func(string) {}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a copy of the current state.
func (p *ImportPipeline) Snapshot() ImportState {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := ImportState{Stage: p.stage, Error: p.errMsg}
	if p.file != nil {
		s.File = &StagedFile{Name: p.file.Name, Size: p.file.Size}
	}
	if p.result != nil {
		r := *p.result
		r.ErrorDetails = append([]string(nil), p.result.ErrorDetails...)
		s.Result = &r
	}
	return s
}

// SelectFile stages f if its name passes the policy. A rejected file leaves
// nothing staged.
func (p *ImportPipeline) SelectFile(f domain.UploadFile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage == StageUploading {
		return fmt.Errorf("select file: %w", domain.ErrBusy)
	}
	p.result = nil
	p.errMsg = ""

	if reason := p.policy.Reject(f.Name); reason != "" {
		p.file = nil
		p.stage = StageIdle
		p.errMsg = reason
		p.log.Debug().Str("file", f.Name).Msg("import file rejected")
		return fmt.Errorf("select file %q: %w", f.Name, domain.ErrUnsupportedFile)
	}

	staged := f
	if staged.Size == 0 {
		staged.Size = int64(len(f.Content))
	}
	p.file = &staged
	p.stage = StageFileSelected
	return nil
}

// Drop stages the first of files and ignores the rest.
func (p *ImportPipeline) Drop(files []domain.UploadFile) error {
	if len(files) == 0 {
		return nil
	}
	if len(files) > 1 {
		p.log.Debug().Int("count", len(files)).Msg("multiple files dropped, using the first")
	}
	return p.SelectFile(files[0])
}

// Upload sends the staged file. Without a staged file it does nothing.
// On failure the file stays staged so the admin can retry.
func (p *ImportPipeline) Upload(ctx context.Context) error {
	p.mu.Lock()
	if p.stage == StageUploading {
		p.mu.Unlock()
		return fmt.Errorf("upload: %w", domain.ErrBusy)
	}
	if p.file == nil {
		p.mu.Unlock()
		return nil
	}
	file := *p.file
	p.seq++
	seq := p.seq
	p.stage = StageUploading
	p.result = nil
	p.errMsg = ""
	p.mu.Unlock()

	result, err := p.importer.Upload(ctx, file)
	if err == nil && result == nil {
		err = fmt.Errorf("import returned no result: %w", domain.ErrRemote)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		p.log.Debug().Str("file", file.Name).Msg("upload finished after reset, result discarded")
		p.onStale("import")
		return nil
	}
	if err != nil {
		p.stage = StageFileSelected
		p.errMsg = domain.UserMessage(err, uploadFailedMessage)
		p.log.Error().Err(err).Str("file", file.Name).Msg("import upload failed")
		return fmt.Errorf("upload %s: %w", file.Name, err)
	}

	if cerr := result.Consistent(); cerr != nil {
		p.log.Warn().Err(cerr).Str("file", file.Name).Msg("import result counters disagree")
	}
	p.result = result
	p.stage = StageCompleted
	p.log.Info().
		Str("file", file.Name).
		Int("total_rows", result.TotalRows).
		Int("success", result.SuccessCount).
		Int("errors", result.ErrorCount).
		Msg("import completed")
	return nil
}

// Completed reports whether the last upload produced a result.
func (p *ImportPipeline) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage == StageCompleted
}

// Reset returns to idle and forgets the staged file, result and error.
func (p *ImportPipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.stage = StageIdle
	p.file = nil
	p.result = nil
	p.errMsg = ""
}
