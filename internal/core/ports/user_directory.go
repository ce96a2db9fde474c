package ports

import (
	"context"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

// ListQuery is one page request against the remote collection.
type ListQuery struct {
	Page    int // 0-based on the wire
	Size    int
	Keyword string // empty means no filter
}

// UserDirectory is the remote user collection as seen by the console.
type UserDirectory interface {
	List(ctx context.Context, q ListQuery) (*domain.Page[domain.User], error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, draft domain.Draft) (*domain.User, error)
	Update(ctx context.Context, id int64, draft domain.Draft) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserImporter submits a workbook to the remote bulk import.
type UserImporter interface {
	Upload(ctx context.Context, file domain.UploadFile) (*domain.ImportResult, error)
}
