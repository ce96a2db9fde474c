package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

// DefaultPageSize is the number of users shown per list page.
const DefaultPageSize = 10

const (
	slotList   = "list"
	slotDetail = "detail"
)

// ListState is a point-in-time copy of the list page. Page is 1-based.
type ListState struct {
	Page          int
	PageSize      int
	Keyword       string
	Users         []domain.User
	TotalPages    int
	TotalElements int64
	Loading       bool
	Saving        bool
	Loaded        bool
	Mode          domain.Mode
	Draft         *domain.Draft
	FieldErrors   map[string]string
	Alert         string
}

// ListOption customises a UserListController.
type ListOption func(*UserListController)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) ListOption {
	return func(c *UserListController) {
		if n > 0 {
			c.state.PageSize = n
		}
	}
}

// WithClock replaces time.Now, used for placeholder role keys.
func WithClock(now func() time.Time) ListOption {
	return func(c *UserListController) { c.now = now }
}

// WithStaleHook is called with the slot name whenever a superseded response
// is dropped.
func WithStaleHook(fn func(slot string)) ListOption {
	return func(c *UserListController) { c.onStale = fn }
}

// UserListController drives the paginated user list and its create, edit,
// view and delete dialogs against a remote UserDirectory.
//
// The list and the detail view each carry a request sequence. A response is
// applied only if no newer request was issued for the same slot. The mutex
// is never held across a directory call.
type UserListController struct {
	dir       ports.UserDirectory
	validator *DraftValidator
	log       zerolog.Logger
	now       func() time.Time
	onStale   func(slot string)

	mu        sync.Mutex
	state     ListState
	listSeq   uint64
	detailSeq uint64
}

func NewUserListController(dir ports.UserDirectory, v *DraftValidator, log zerolog.Logger, opts ...ListOption) *UserListController {
	c := &UserListController{
		dir:       dir,
		validator: v,
		log:       log,
		now:       time.Now,
		state:     ListState{Page: 1, PageSize: DefaultPageSize},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state that is safe to read
// without further locking.
func (c *UserListController) Snapshot() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Users = append([]domain.User(nil), c.state.Users...)
	s.FieldErrors = maps.Clone(c.state.FieldErrors)
	if c.state.Draft != nil {
		d := *c.state.Draft
		d.UserRoles = append([]domain.UserRole(nil), c.state.Draft.UserRoles...)
		s.Draft = &d
	}
	if c.state.Mode.Subject != nil {
		subj := *c.state.Mode.Subject
		s.Mode.Subject = &subj
	}
	return s
}

// Load fetches the current page under the current keyword.
func (c *UserListController) Load(ctx context.Context) error {
	return c.fetch(ctx, nil)
}

// Search filters by keyword and returns to the first page. A blank keyword
// clears the filter.
func (c *UserListController) Search(ctx context.Context, keyword string) error {
	return c.fetch(ctx, func(s *ListState) error {
		s.Keyword = strings.TrimSpace(keyword)
		s.Page = 1
		return nil
	})
}

// ChangePage moves to page n (1-based). Pages outside [1, TotalPages] are
// rejected without a request.
func (c *UserListController) ChangePage(ctx context.Context, n int) error {
	return c.fetch(ctx, func(s *ListState) error {
		if n < 1 || n > s.TotalPages {
			return fmt.Errorf("change page to %d of %d: %w", n, s.TotalPages, domain.ErrPageOutOfRange)
		}
		s.Page = n
		return nil
	})
}

func (c *UserListController) fetch(ctx context.Context, prepare func(s *ListState) error) error {
	c.mu.Lock()
	if prepare != nil {
		if err := prepare(&c.state); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.listSeq++
	seq := c.listSeq
	q := ports.ListQuery{
		Page:    c.state.Page - 1,
		Size:    c.state.PageSize,
		Keyword: c.state.Keyword,
	}
	c.state.Loading = true
	c.mu.Unlock()

	page, err := c.dir.List(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.listSeq {
		c.dropStale(slotList, seq)
		return nil
	}

	c.state.Loading = false
	c.state.Loaded = true
	if err != nil {
		c.state.Users = nil
		c.state.TotalPages = 0
		c.state.TotalElements = 0
		c.state.Alert = domain.UserMessage(err, "Failed to load users")
		c.log.Error().Err(err).Int("page", q.Page).Str("keyword", q.Keyword).Msg("list users failed")
		return fmt.Errorf("list users: %w", err)
	}

	c.state.Users = page.Content
	c.state.TotalPages = page.TotalPages
	c.state.TotalElements = page.TotalElements
	c.state.Alert = ""
	return nil
}

// fetchDetail loads the full record of id and hands it to apply under the
// lock, unless a newer detail request has been issued meanwhile.
func (c *UserListController) fetchDetail(ctx context.Context, id int64, apply func(u *domain.User) error) error {
	c.mu.Lock()
	c.detailSeq++
	seq := c.detailSeq
	c.mu.Unlock()

	u, err := c.dir.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.detailSeq {
		c.dropStale(slotDetail, seq)
		return nil
	}
	if err != nil {
		c.state.Alert = domain.UserMessage(err, "Failed to load user details")
		c.log.Error().Err(err).Int64("user_id", id).Msg("get user failed")
		return fmt.Errorf("get user %d: %w", id, err)
	}
	return apply(u)
}

func (c *UserListController) dropStale(slot string, seq uint64) {
	c.log.Debug().Str("slot", slot).Uint64("seq", seq).Msg("stale response discarded")
	if c.onStale != nil {
		c.onStale(slot)
	}
}

// BeginCreate opens an empty user form.
func (c *UserListController) BeginCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode.Open() {
		return fmt.Errorf("begin create: %w", domain.ErrModeConflict)
	}
	d := domain.NewDraft()
	c.state.Mode = domain.Mode{Kind: domain.ModeCreating}
	c.state.Draft = &d
	c.state.FieldErrors = nil
	return nil
}

// BeginEdit opens the form pre-filled with the full record of id. When the
// same user is being viewed, the viewed record is reused.
func (c *UserListController) BeginEdit(ctx context.Context, id int64) error {
	c.mu.Lock()
	if m := c.state.Mode; m.Is(domain.ModeViewing) && m.Subject != nil && m.Subject.ID == id {
		c.openEditLocked(*m.Subject)
		c.mu.Unlock()
		return nil
	}
	if c.state.Mode.Open() {
		c.mu.Unlock()
		return fmt.Errorf("begin edit: %w", domain.ErrModeConflict)
	}
	c.mu.Unlock()

	return c.fetchDetail(ctx, id, func(u *domain.User) error {
		if c.state.Mode.Open() {
			return fmt.Errorf("begin edit: %w", domain.ErrModeConflict)
		}
		c.openEditLocked(*u)
		return nil
	})
}

func (c *UserListController) openEditLocked(u domain.User) {
	d := domain.DraftFromUser(u)
	c.state.Mode = domain.Mode{Kind: domain.ModeEditing, Subject: &u}
	c.state.Draft = &d
	c.state.FieldErrors = nil
}

// View opens the read-only detail of id after fetching its full record.
func (c *UserListController) View(ctx context.Context, id int64) error {
	c.mu.Lock()
	if c.state.Mode.Open() {
		c.mu.Unlock()
		return fmt.Errorf("view user: %w", domain.ErrModeConflict)
	}
	c.mu.Unlock()

	return c.fetchDetail(ctx, id, func(u *domain.User) error {
		if c.state.Mode.Open() {
			return fmt.Errorf("view user: %w", domain.ErrModeConflict)
		}
		c.state.Mode = domain.Mode{Kind: domain.ModeViewing, Subject: u}
		return nil
	})
}

// UpdateDraft stores the form as currently typed, without validating it.
func (c *UserListController) UpdateDraft(d domain.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.formOpenLocked() {
		return fmt.Errorf("update draft: %w", domain.ErrFormClosed)
	}
	if c.state.Mode.Is(domain.ModeEditing) {
		d.UserName = c.state.Mode.Subject.UserName
	}
	c.state.Draft = &d
	return nil
}

// AddRole appends a blank, unsaved role assignment to the form.
func (c *UserListController) AddRole() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.formOpenLocked() {
		return fmt.Errorf("add role: %w", domain.ErrFormClosed)
	}
	c.state.Draft.UserRoles = append(c.state.Draft.UserRoles, domain.NewUnsavedRole(c.now()))
	return nil
}

// RemoveRole drops the assignment with the given key from the form.
func (c *UserListController) RemoveRole(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.formOpenLocked() {
		return fmt.Errorf("remove role: %w", domain.ErrFormClosed)
	}
	d := c.state.Draft
	if i := d.RoleIndex(key); i >= 0 {
		d.UserRoles = append(d.UserRoles[:i:i], d.UserRoles[i+1:]...)
	}
	return nil
}

func (c *UserListController) formOpenLocked() bool {
	m := c.state.Mode
	return (m.Is(domain.ModeCreating) || m.Is(domain.ModeEditing)) && c.state.Draft != nil
}

// Save validates the draft and creates or updates the user depending on the
// open form. On success the form closes and the current page is reloaded.
// Validation failures never reach the directory.
func (c *UserListController) Save(ctx context.Context, draft domain.Draft) error {
	c.mu.Lock()
	mode := c.state.Mode
	if !mode.Is(domain.ModeCreating) && !mode.Is(domain.ModeEditing) {
		c.mu.Unlock()
		return fmt.Errorf("save user: %w", domain.ErrFormClosed)
	}
	if c.state.Saving {
		c.mu.Unlock()
		return fmt.Errorf("save user: %w", domain.ErrBusy)
	}

	draft.Normalize()
	if mode.Is(domain.ModeEditing) {
		draft.UserName = mode.Subject.UserName
	}
	c.state.Draft = &draft

	if err := c.validator.Validate(draft); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			c.state.FieldErrors = ve.Fields
		}
		c.mu.Unlock()
		return err
	}
	c.state.FieldErrors = nil
	c.state.Saving = true
	c.mu.Unlock()

	var (
		saved *domain.User
		err   error
	)
	if mode.Is(domain.ModeCreating) {
		saved, err = c.dir.Create(ctx, draft)
	} else {
		saved, err = c.dir.Update(ctx, mode.Subject.ID, draft)
	}

	c.mu.Lock()
	c.state.Saving = false
	if err != nil {
		c.state.Alert = domain.UserMessage(err, "Failed to save user")
		c.mu.Unlock()
		c.log.Error().Err(err).Str("user_name", draft.UserName).Str("mode", mode.Kind.String()).Msg("save user failed")
		return fmt.Errorf("save user: %w", err)
	}
	if c.sameDialogLocked(mode) {
		c.state.Mode = domain.Mode{}
		c.state.Draft = nil
	}
	c.mu.Unlock()

	ev := c.log.Info().Str("user_name", draft.UserName).Str("mode", mode.Kind.String())
	if saved != nil {
		ev = ev.Int64("user_id", saved.ID)
	}
	ev.Msg("user saved")

	if err := c.fetch(ctx, nil); err != nil {
		c.log.Warn().Err(err).Msg("reload after save failed")
	}
	return nil
}

// SelectForDelete asks for confirmation before deleting a user of the
// current page.
func (c *UserListController) SelectForDelete(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode.Open() {
		return fmt.Errorf("select for delete: %w", domain.ErrModeConflict)
	}
	for _, u := range c.state.Users {
		if u.ID == id {
			subj := u
			c.state.Mode = domain.Mode{Kind: domain.ModeDeleting, Subject: &subj}
			return nil
		}
	}
	return fmt.Errorf("select for delete %d: %w", id, domain.ErrUserNotFound)
}

// ConfirmDelete deletes the selected user and reloads the current page as is.
func (c *UserListController) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.Mode.Is(domain.ModeDeleting) || c.state.Mode.Subject == nil {
		c.mu.Unlock()
		return fmt.Errorf("confirm delete: %w", domain.ErrNoSelection)
	}
	if c.state.Saving {
		c.mu.Unlock()
		return fmt.Errorf("confirm delete: %w", domain.ErrBusy)
	}
	mode := c.state.Mode
	subject := *mode.Subject
	c.state.Saving = true
	c.mu.Unlock()

	err := c.dir.Delete(ctx, subject.ID)

	c.mu.Lock()
	c.state.Saving = false
	if err != nil {
		c.state.Alert = domain.UserMessage(err, "Failed to delete user")
		c.mu.Unlock()
		c.log.Error().Err(err).Int64("user_id", subject.ID).Msg("delete user failed")
		return fmt.Errorf("delete user %d: %w", subject.ID, err)
	}
	if c.sameDialogLocked(mode) {
		c.state.Mode = domain.Mode{}
	}
	c.mu.Unlock()

	c.log.Info().Int64("user_id", subject.ID).Str("user_name", subject.UserName).Msg("user deleted")

	if err := c.fetch(ctx, nil); err != nil {
		c.log.Warn().Err(err).Msg("reload after delete failed")
	}
	return nil
}

// OpenImport shows the bulk import dialog.
func (c *UserListController) OpenImport() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode.Open() {
		return fmt.Errorf("open import: %w", domain.ErrModeConflict)
	}
	c.state.Mode = domain.Mode{Kind: domain.ModeImporting}
	return nil
}

// ImportFinished closes the import dialog after a completed import and
// reloads from the first page. Outside the import dialog it does nothing.
func (c *UserListController) ImportFinished(ctx context.Context) error {
	return c.fetch(ctx, func(s *ListState) error {
		if !s.Mode.Is(domain.ModeImporting) {
			return fmt.Errorf("import finished: %w", domain.ErrModeConflict)
		}
		s.Mode = domain.Mode{}
		s.Page = 1
		return nil
	})
}

// Close dismisses any open dialog without touching the directory. It is
// refused while a save or delete is in flight.
func (c *UserListController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Saving {
		return fmt.Errorf("close dialog: %w", domain.ErrBusy)
	}
	c.state.Mode = domain.Mode{}
	c.state.Draft = nil
	c.state.FieldErrors = nil
	return nil
}

// sameDialogLocked reports whether the dialog a mutation started from is
// still the one shown.
func (c *UserListController) sameDialogLocked(m domain.Mode) bool {
	cur := c.state.Mode
	return cur.Kind == m.Kind && cur.Subject == m.Subject
}

// DismissAlert clears the failure banner.
func (c *UserListController) DismissAlert() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Alert = ""
}
