package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrValidation      = errors.New("validation failed")
	ErrRemote          = errors.New("remote request failed")
	ErrBusy            = errors.New("operation already in progress")
	ErrModeConflict    = errors.New("another dialog is open")
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNoSelection     = errors.New("no user selected")
	ErrFormClosed      = errors.New("no user form is open")
	ErrInvalidWorkbook = errors.New("invalid workbook")
)

// ValidationError maps form fields to messages.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RemoteError is a non-success answer from the directory.
// Status is 0 when the request never got an answer; Err then holds the
// transport failure.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrUserNotFound:
		return e.Status == http.StatusNotFound
	case ErrUserExists:
		return e.Status == http.StatusConflict
	}
	return false
}

// UserMessage returns the text to show the admin for err. Remote errors carry
// their server message; everything else falls back to fallback.
func UserMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return fallback
}
