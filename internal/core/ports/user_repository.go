package ports

import (
	"context"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

// UserFilter carries the query parameters for listing users.
type UserFilter struct {
	Keyword string // optional: partial, case-insensitive match on userName, fullName or email
	Page    int    // 0-based
	Size    int    // rows per page (capped by the service)
}

// UserRepository defines persistence operations for directory users.
type UserRepository interface {
	// List returns a page of users, newest first, and the total match count.
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUserNames(ctx context.Context, userNames []string) ([]domain.User, error)
	// Create inserts u. Returns domain.ErrUserExists when the userName is taken.
	Create(ctx context.Context, u *domain.User) error
	// Update replaces the stored document with u. Returns domain.ErrUserNotFound when absent.
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
	// SaveAll upserts every user by id.
	SaveAll(ctx context.Context, users []domain.User) error
}

// RoleCatalog lists the role names a permission may reference.
type RoleCatalog interface {
	RoleNames(ctx context.Context) ([]string, error)
}

// IDSequence hands out numeric ids.
type IDSequence interface {
	// Next reserves n consecutive ids in the named sequence and returns the first.
	Next(ctx context.Context, name string, n int) (int64, error)
}
