package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"

	"github.com/msb-virtuoso/user-admin/internal/core/service"
)

// SessionCookie carries the id of the admin's console workspace.
const SessionCookie = "console_session"

const workspaceKey = "workspace"

// Workspace is the server-side state of one browser session.
type Workspace struct {
	ID     string
	Users  *service.UserListController
	Import *service.ImportPipeline
}

// SessionOptions configures Sessions.
type SessionOptions struct {
	TTL         time.Duration
	MaxSessions int
	Secure      bool
	// OnChange receives the number of live workspaces after every change.
	OnChange func(n int)
}

// Sessions keeps workspaces in an expiring LRU keyed by the session cookie.
// An evicted or expired session simply starts over with a fresh workspace.
type Sessions struct {
	cache    *expirable.LRU[string, *Workspace]
	build    func(id string) *Workspace
	ttl      time.Duration
	secure   bool
	onChange func(n int)
	live     atomic.Int64
}

func NewSessions(build func(id string) *Workspace, opts SessionOptions) *Sessions {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1024
	}
	s := &Sessions{build: build, ttl: opts.TTL, secure: opts.Secure, onChange: opts.OnChange}
	if s.onChange == nil {
		s.onChange = func(int) {}
	}
	// The eviction callback runs under the cache lock, so it must not call
	// back into the cache.
	s.cache = expirable.NewLRU[string, *Workspace](opts.MaxSessions, func(string, *Workspace) {
		s.onChange(int(s.live.Add(-1)))
	}, opts.TTL)
	return s
}

// Middleware resolves the workspace of the request, creating one (and a new
// cookie) when the session is unknown.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws := s.resolve(c)
			c.Set(workspaceKey, ws)
			return next(c)
		}
	}
}

func (s *Sessions) resolve(c echo.Context) *Workspace {
	if ck, err := c.Cookie(SessionCookie); err == nil {
		if _, perr := uuid.Parse(ck.Value); perr == nil {
			if ws, ok := s.cache.Get(ck.Value); ok {
				// Re-adding renews the expiry.
				s.cache.Add(ck.Value, ws)
				s.setCookie(c, ck.Value)
				return ws
			}
		}
	}

	id := uuid.NewString()
	ws := s.build(id)
	ws.ID = id
	s.onChange(int(s.live.Add(1)))
	s.cache.Add(id, ws)
	s.setCookie(c, id)
	return ws
}

func (s *Sessions) setCookie(c echo.Context, id string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Len reports the number of live workspaces.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// WorkspaceFrom returns the workspace attached by Sessions.Middleware.
func WorkspaceFrom(c echo.Context) *Workspace {
	ws, _ := c.Get(workspaceKey).(*Workspace)
	return ws
}
