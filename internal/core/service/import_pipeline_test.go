package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

type stubImporter struct {
	uploadFn func(ctx context.Context, f domain.UploadFile) (*domain.ImportResult, error)
	uploads  []string
}

func (s *stubImporter) Upload(ctx context.Context, f domain.UploadFile) (*domain.ImportResult, error) {
	s.uploads = append(s.uploads, f.Name)
	if s.uploadFn == nil {
		return &domain.ImportResult{TotalRows: 3, SuccessCount: 3}, nil
	}
	return s.uploadFn(ctx, f)
}

func newPipeline(imp *stubImporter) *ImportPipeline {
	return NewImportPipeline(imp, FilePolicy{}, zerolog.Nop())
}

func xlsx(name string) domain.UploadFile {
	return domain.UploadFile{Name: name, Content: []byte("PK\x03\x04")}
}

func TestImportPipeline_SelectFile_RejectsWrongExtension(t *testing.T) {
	imp := &stubImporter{}
	p := newPipeline(imp)

	err := p.SelectFile(xlsx("users.csv"))
	if !errors.Is(err, domain.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if err := p.Upload(context.Background()); err != nil {
		t.Fatalf("upload without a staged file must be a no-op, got %v", err)
	}

	s := p.Snapshot()
	if s.Stage != StageIdle || s.File != nil || s.Error == "" {
		t.Fatalf("unexpected state: %+v", s)
	}
	if len(imp.uploads) != 0 {
		t.Fatal("a rejected file must never be uploaded")
	}
}

func TestImportPipeline_SelectFile_UppercaseExtensionHasOwnMessage(t *testing.T) {
	p := newPipeline(&stubImporter{})

	_ = p.SelectFile(xlsx("USERS.XLSX"))
	upper := p.Snapshot().Error
	_ = p.SelectFile(xlsx("users.pdf"))
	other := p.Snapshot().Error

	if upper == "" || upper == other {
		t.Fatalf("expected a distinct message for case variants, got %q and %q", upper, other)
	}
}

func TestImportPipeline_SelectFile_AcceptsXlsx(t *testing.T) {
	p := newPipeline(&stubImporter{})
	_ = p.SelectFile(xlsx("bad.csv"))

	if err := p.SelectFile(xlsx("users.xlsx")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := p.Snapshot()
	if s.Stage != StageFileSelected || s.File == nil || s.File.Name != "users.xlsx" {
		t.Fatalf("unexpected state: %+v", s)
	}
	if s.Error != "" {
		t.Fatalf("a valid selection must clear the previous error, got %q", s.Error)
	}
	if s.File.Size != 4 {
		t.Fatalf("size must default to the content length, got %d", s.File.Size)
	}
}

func TestImportPipeline_Drop_UsesFirstFileOnly(t *testing.T) {
	p := newPipeline(&stubImporter{})

	if err := p.Drop([]domain.UploadFile{xlsx("a.xlsx"), xlsx("b.csv")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := p.Snapshot(); s.File == nil || s.File.Name != "a.xlsx" {
		t.Fatalf("expected a.xlsx staged, got %+v", s.File)
	}

	if err := p.Drop(nil); err != nil {
		t.Fatalf("empty drop must be ignored, got %v", err)
	}
}

func TestImportPipeline_Upload_Success(t *testing.T) {
	imp := &stubImporter{
		uploadFn: func(context.Context, domain.UploadFile) (*domain.ImportResult, error) {
			return &domain.ImportResult{
				TotalRows:    3,
				SuccessCount: 2,
				ErrorCount:   1,
				ErrorDetails: []string{"Sheet User - Row 6: email is empty"},
			}, nil
		},
	}
	p := newPipeline(imp)
	_ = p.SelectFile(xlsx("users.xlsx"))

	if err := p.Upload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := p.Snapshot()
	if s.Stage != StageCompleted || s.Result == nil {
		t.Fatalf("unexpected state: %+v", s)
	}
	if s.Result.Succeeded() || len(s.Result.Itemized()) != 1 {
		t.Fatalf("expected a partial failure report, got %+v", s.Result)
	}
	if !p.Completed() {
		t.Fatal("Completed must report true")
	}
}

func TestImportPipeline_Upload_FailureKeepsFile(t *testing.T) {
	imp := &stubImporter{
		uploadFn: func(context.Context, domain.UploadFile) (*domain.ImportResult, error) {
			return nil, &domain.RemoteError{Op: "upload", Status: 400, Message: "Invalid file format (.xlsx)"}
		},
	}
	p := newPipeline(imp)
	_ = p.SelectFile(xlsx("users.xlsx"))

	if err := p.Upload(context.Background()); !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}

	s := p.Snapshot()
	if s.Stage != StageFileSelected || s.File == nil {
		t.Fatalf("file must stay staged for retry: %+v", s)
	}
	if s.Error != "Invalid file format (.xlsx)" {
		t.Fatalf("unexpected error message: %q", s.Error)
	}
}

func TestImportPipeline_Upload_TransportFailureUsesFallback(t *testing.T) {
	imp := &stubImporter{
		uploadFn: func(context.Context, domain.UploadFile) (*domain.ImportResult, error) {
			return nil, errors.New("connection reset")
		},
	}
	p := newPipeline(imp)
	_ = p.SelectFile(xlsx("users.xlsx"))
	_ = p.Upload(context.Background())

	if got := p.Snapshot().Error; got != uploadFailedMessage {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestImportPipeline_Reset_DiscardsInFlightUpload(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	imp := &stubImporter{
		uploadFn: func(context.Context, domain.UploadFile) (*domain.ImportResult, error) {
			close(started)
			<-release
			return &domain.ImportResult{TotalRows: 1, SuccessCount: 1}, nil
		},
	}
	p := newPipeline(imp)
	_ = p.SelectFile(xlsx("users.xlsx"))

	done := make(chan error, 1)
	go func() { done <- p.Upload(context.Background()) }()
	<-started

	if s := p.Snapshot(); s.Stage != StageUploading {
		t.Fatalf("expected uploading, got %v", s.Stage)
	}
	if err := p.SelectFile(xlsx("other.xlsx")); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("selection must be locked while uploading, got %v", err)
	}

	p.Reset()
	close(release)
	<-done

	s := p.Snapshot()
	if s.Stage != StageIdle || s.Result != nil || s.File != nil {
		t.Fatalf("late result must be ignored after reset: %+v", s)
	}
}

func TestImportPipeline_Reset_AllowsSameFileAgain(t *testing.T) {
	p := newPipeline(&stubImporter{})
	_ = p.SelectFile(xlsx("users.xlsx"))
	_ = p.Upload(context.Background())
	p.Reset()

	if err := p.SelectFile(xlsx("users.xlsx")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := p.Snapshot(); s.Stage != StageFileSelected {
		t.Fatalf("expected file-selected, got %v", s.Stage)
	}
}
