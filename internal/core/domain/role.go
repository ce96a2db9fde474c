package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RoleRef identifies a role assignment. It is either a PersistedRole carrying
// the server id, or an UnsavedRole that only exists in a form being edited.
type RoleRef interface {
	// Key is stable for the lifetime of the assignment and unique within a user.
	Key() string
	isRoleRef()
}

// PersistedRole is an assignment the directory already stores.
type PersistedRole struct {
	ID int64
}

func (r PersistedRole) Key() string { return "p" + strconv.FormatInt(r.ID, 10) }
func (PersistedRole) isRoleRef()    {}

// UnsavedRole is a client-side placeholder. LocalKey never reaches the wire.
type UnsavedRole struct {
	LocalKey int64
}

func (r UnsavedRole) Key() string { return "u" + strconv.FormatInt(r.LocalKey, 10) }
func (UnsavedRole) isRoleRef()    {}

// ParseRoleKey is the inverse of RoleRef.Key.
func ParseRoleKey(key string) (RoleRef, error) {
	if len(key) < 2 {
		return nil, fmt.Errorf("role key %q: too short", key)
	}
	n, err := strconv.ParseInt(key[1:], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("role key %q: %w", key, err)
	}
	switch key[0] {
	case 'p':
		return PersistedRole{ID: n}, nil
	case 'u':
		return UnsavedRole{LocalKey: n}, nil
	default:
		return nil, fmt.Errorf("role key %q: unknown prefix", key)
	}
}

var (
	localKeyMu   sync.Mutex
	lastLocalKey int64
)

// nextLocalKey derives a placeholder key from now, bumped when two roles
// are created within the same tick.
func nextLocalKey(now time.Time) int64 {
	localKeyMu.Lock()
	defer localKeyMu.Unlock()
	k := now.UnixNano()
	if k <= lastLocalKey {
		k = lastLocalKey + 1
	}
	lastLocalKey = k
	return k
}

// UserRole is a permission assignment: a role within a bank/branch scope,
// optionally bounded by a validity window.
type UserRole struct {
	Ref      RoleRef
	Type     string
	Bank     string
	Branch   string
	RoleName string
	FromDate *Date
	ToDate   *Date
}

// NewUnsavedRole returns a blank assignment keyed from now.
func NewUnsavedRole(now time.Time) UserRole {
	return UserRole{Ref: UnsavedRole{LocalKey: nextLocalKey(now)}}
}

// Key returns the stable list key of the assignment.
func (r UserRole) Key() string {
	if r.Ref == nil {
		return ""
	}
	return r.Ref.Key()
}

// PersistedID returns the server id and true when the role is persisted.
func (r UserRole) PersistedID() (int64, bool) {
	p, ok := r.Ref.(PersistedRole)
	return p.ID, ok
}

// SameScope reports whether both assignments grant the same role on the same
// bank, branch and type.
func (r UserRole) SameScope(o UserRole) bool {
	return strings.EqualFold(r.RoleName, o.RoleName) &&
		r.Bank == o.Bank &&
		r.Branch == o.Branch &&
		r.Type == o.Type
}

var (
	openStart = NewDate(1900, time.January, 1)
	openEnd   = NewDate(9999, time.December, 31)
)

// Overlaps reports whether the validity windows of r and o intersect. A
// missing bound is open.
func (r UserRole) Overlaps(o UserRole) bool {
	rFrom, rTo := bounds(r)
	oFrom, oTo := bounds(o)
	return !rTo.Before(oFrom.Time) && !rFrom.After(oTo.Time)
}

func bounds(r UserRole) (Date, Date) {
	from, to := openStart, openEnd
	if r.FromDate != nil && !r.FromDate.IsZero() {
		from = *r.FromDate
	}
	if r.ToDate != nil && !r.ToDate.IsZero() {
		to = *r.ToDate
	}
	return from, to
}

type userRoleJSON struct {
	ID       *int64 `json:"id,omitempty"`
	Type     string `json:"type"`
	Bank     string `json:"bank"`
	Branch   string `json:"branch"`
	RoleName string `json:"roleName,omitempty"`
	FromDate *Date  `json:"fromDate"`
	ToDate   *Date  `json:"toDate"`
}

// MarshalJSON writes the id only for persisted assignments.
func (r UserRole) MarshalJSON() ([]byte, error) {
	out := userRoleJSON{
		Type:     r.Type,
		Bank:     r.Bank,
		Branch:   r.Branch,
		RoleName: r.RoleName,
		FromDate: r.FromDate,
		ToDate:   r.ToDate,
	}
	if id, ok := r.PersistedID(); ok {
		out.ID = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON treats a positive id as persisted; anything else becomes an
// unsaved assignment with a fresh local key.
func (r *UserRole) UnmarshalJSON(b []byte) error {
	var in userRoleJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = UserRole{
		Type:     in.Type,
		Bank:     in.Bank,
		Branch:   in.Branch,
		RoleName: in.RoleName,
		FromDate: in.FromDate,
		ToDate:   in.ToDate,
	}
	if in.ID != nil && *in.ID > 0 {
		r.Ref = PersistedRole{ID: *in.ID}
	} else {
		r.Ref = UnsavedRole{LocalKey: nextLocalKey(time.Now())}
	}
	return nil
}
