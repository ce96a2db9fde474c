package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

const (
	defaultListSize = 10
	maxListSize     = 100

	// Sequence names in the id store.
	seqUsers     = "users"
	seqUserRoles = "user_roles"
)

// DefaultActor is recorded as createdBy/updatedBy for admin changes.
const DefaultActor = "ADMIN"

type UserService struct {
	repo   ports.UserRepository
	ids    ports.IDSequence
	actor  string
	clock  func() time.Time
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, ids ports.IDSequence, actor string, logger zerolog.Logger) *UserService {
	if actor == "" {
		actor = DefaultActor
	}
	return &UserService{repo: repo, ids: ids, actor: actor, clock: time.Now, logger: logger}
}

// ListUsers returns one page of users, newest first. Size defaults to 10 and
// is capped at 100.
func (s *UserService) ListUsers(ctx context.Context, input ports.ListUsersInput) (*domain.Page[domain.User], error) {
	size := input.Size
	if size <= 0 {
		size = defaultListSize
	}
	if size > maxListSize {
		size = maxListSize
	}
	page := input.Page
	if page < 0 {
		page = 0
	}

	users, total, err := s.repo.List(ctx, ports.UserFilter{
		Keyword: strings.TrimSpace(input.Keyword),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := domain.NewPage(users, total, page, size)
	return &result, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// CreateUser stores a new user. The status defaults to ACTIVE and the
// creation audit fields are set here, never taken from the payload.
func (s *UserService) CreateUser(ctx context.Context, draft domain.Draft) (*domain.User, error) {
	draft.Normalize()
	if draft.UserName == "" {
		verr := domain.NewValidationError()
		verr.Add("userName", "userName is required")
		return nil, verr
	}

	existing, err := s.repo.FindByUserNames(ctx, []string{draft.UserName})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("create user %q: %w", draft.UserName, domain.ErrUserExists)
	}

	id, err := s.ids.Next(ctx, seqUsers, 1)
	if err != nil {
		return nil, fmt.Errorf("create user: allocate id: %w", err)
	}
	roles, err := s.assignRoleIDs(ctx, draft.UserRoles, nil)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	status := draft.Status
	if !status.Valid() {
		status = domain.StatusActive
	}

	u := &domain.User{
		ID:          id,
		UserName:    draft.UserName,
		FullName:    draft.FullName,
		Email:       draft.Email,
		Phone:       draft.Phone,
		BirthDay:    draft.BirthDay,
		Gender:      draft.Gender,
		Status:      status,
		CreatedBy:   s.actor,
		CreatedTime: domain.NewTimestamp(s.clock().UTC()),
		UserRoles:   roles,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error().Err(err).Str("user_name", u.UserName).Msg("failed to create user")
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", u.ID).Str("user_name", u.UserName).Msg("user created")
	return u, nil
}

// UpdateUser copies the editable fields of draft onto the stored user. The
// userName and creation audit fields are never changed. Roles are replaced
// when the payload carries them; assignments that already belong to the user
// keep their id.
func (s *UserService) UpdateUser(ctx context.Context, id int64, draft domain.Draft) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	rolesProvided := draft.UserRoles != nil
	draft.Normalize()

	u.FullName = draft.FullName
	u.Email = draft.Email
	u.Phone = draft.Phone
	u.BirthDay = draft.BirthDay
	u.Gender = draft.Gender
	if draft.Status.Valid() {
		u.Status = draft.Status
	}
	u.UpdatedBy = s.actor
	u.UpdatedTime = domain.NewTimestamp(s.clock().UTC())

	if rolesProvided {
		owned := make(map[int64]bool, len(u.UserRoles))
		for _, r := range u.UserRoles {
			if rid, ok := r.PersistedID(); ok {
				owned[rid] = true
			}
		}
		roles, err := s.assignRoleIDs(ctx, draft.UserRoles, owned)
		if err != nil {
			return nil, fmt.Errorf("update user %d: %w", id, err)
		}
		u.UserRoles = roles
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to update user")
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	s.logger.Info().Int64("user_id", id).Str("user_name", u.UserName).Msg("user updated")
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// assignRoleIDs returns a copy of roles where every assignment not in keep
// gets a fresh id from the role sequence.
func (s *UserService) assignRoleIDs(ctx context.Context, roles []domain.UserRole, keep map[int64]bool) ([]domain.UserRole, error) {
	out := make([]domain.UserRole, len(roles))
	copy(out, roles)

	var fresh []int
	for i, r := range out {
		if rid, ok := r.PersistedID(); ok && keep[rid] {
			continue
		}
		fresh = append(fresh, i)
	}
	if len(fresh) == 0 {
		return out, nil
	}

	first, err := s.ids.Next(ctx, seqUserRoles, len(fresh))
	if err != nil {
		return nil, fmt.Errorf("allocate role ids: %w", err)
	}
	for n, i := range fresh {
		out[i].Ref = domain.PersistedRole{ID: first + int64(n)}
	}
	return out, nil
}
