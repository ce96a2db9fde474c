package ports

import (
	"context"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

// ListUsersInput carries the parameters of the list endpoint.
type ListUsersInput struct {
	Keyword string
	Page    int // 0-based
	Size    int
}

// UserService defines the directory use cases behind /api/users.
type UserService interface {
	ListUsers(ctx context.Context, input ListUsersInput) (*domain.Page[domain.User], error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, draft domain.Draft) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, draft domain.Draft) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// ImportService runs a bulk user import from an uploaded workbook.
type ImportService interface {
	ImportUsers(ctx context.Context, file domain.UploadFile) (*domain.ImportResult, error)
}
