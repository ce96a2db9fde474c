package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// ---------------------------------------------------------------------------
// Page
// ---------------------------------------------------------------------------

func TestNewPage_TotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, tc := range tests {
		p := NewPage[int](nil, tc.total, 0, tc.size)
		if p.TotalPages != tc.want {
			t.Fatalf("total %d size %d: got %d pages, want %d", tc.total, tc.size, p.TotalPages, tc.want)
		}
		if p.Content == nil {
			t.Fatal("content must never be nil")
		}
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestRemoteError_Is(t *testing.T) {
	notFound := fmt.Errorf("get: %w", &RemoteError{Op: "get user", Status: http.StatusNotFound, Message: "User not found"})
	if !errors.Is(notFound, ErrRemote) || !errors.Is(notFound, ErrUserNotFound) {
		t.Fatalf("404 must match ErrRemote and ErrUserNotFound")
	}
	conflict := &RemoteError{Status: http.StatusConflict}
	if !errors.Is(conflict, ErrUserExists) || errors.Is(conflict, ErrUserNotFound) {
		t.Fatal("409 must only match ErrUserExists")
	}
}

func TestRemoteError_MessageFallsBackToCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &RemoteError{Op: "list users", Err: cause}

	if err.Error() != "list users: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause must be reachable through Unwrap")
	}
}

func TestUserMessage(t *testing.T) {
	ve := NewValidationError()
	ve.Add("email", "Email is required")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"remote message", &RemoteError{Status: 409, Message: "Username already exists"}, "Username already exists"},
		{"remote without message", &RemoteError{Err: errors.New("timeout")}, "fallback"},
		{"validation", fmt.Errorf("save: %w", ve), "Email is required"},
		{"other", errors.New("boom"), "fallback"},
	}
	for _, tc := range tests {
		if got := UserMessage(tc.err, "fallback"); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestValidationError_IsErrValidation(t *testing.T) {
	ve := NewValidationError()
	if !ve.Empty() {
		t.Fatal("new error must be empty")
	}
	ve.Add("userName", "Username is required")
	if ve.Empty() || !errors.Is(ve, ErrValidation) {
		t.Fatal("expected a non-empty validation error")
	}
}

// ---------------------------------------------------------------------------
// Import result and drafts
// ---------------------------------------------------------------------------

func TestImportResult_Consistent(t *testing.T) {
	ok := ImportResult{TotalRows: 3, SuccessCount: 2, ErrorCount: 1, ErrorDetails: []string{"row 4"}}
	if err := ok.Consistent(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Succeeded() || len(ok.Itemized()) != 1 {
		t.Fatal("partial failure must be itemized")
	}

	bad := []ImportResult{
		{TotalRows: 1, SuccessCount: 1, ErrorCount: 1, ErrorDetails: []string{"x"}},
		{TotalRows: 1, ErrorCount: 1},
		{TotalRows: -1},
	}
	for i, r := range bad {
		if err := r.Consistent(); err == nil {
			t.Fatalf("case %d: expected inconsistency", i)
		}
	}

	clean := ImportResult{TotalRows: 2, SuccessCount: 2}
	if !clean.Succeeded() || clean.Itemized() != nil {
		t.Fatal("full success has no itemized report")
	}
}

func TestDraft_NormalizeAndCopy(t *testing.T) {
	bd := NewDate(1990, 1, 2)
	u := User{
		UserName: "alice", FullName: "Alice", Email: "alice@msb.com.vn", BirthDay: &bd,
		Status: StatusInactive, UserRoles: []UserRole{{Ref: PersistedRole{ID: 1}, RoleName: "MAKER"}},
	}
	d := DraftFromUser(u)
	d.UserRoles[0].RoleName = "CHECKER"
	d.BirthDay.Time = d.BirthDay.AddDate(1, 0, 0)
	if u.UserRoles[0].RoleName != "MAKER" || u.BirthDay.Year() != 1990 {
		t.Fatal("draft must not alias the user")
	}

	d = Draft{UserName: " bob ", Gender: "male", UserRoles: nil}
	d.Normalize()
	if d.UserName != "bob" || d.Gender != GenderMale || d.UserRoles == nil {
		t.Fatalf("unexpected normalisation: %+v", d)
	}
	if NewDraft().Status != StatusActive {
		t.Fatal("new drafts default to ACTIVE")
	}
}
