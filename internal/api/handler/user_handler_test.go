package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

type stubUserService struct {
	listFn   func(ctx context.Context, in ports.ListUsersInput) (*domain.Page[domain.User], error)
	getFn    func(ctx context.Context, id int64) (*domain.User, error)
	createFn func(ctx context.Context, d domain.Draft) (*domain.User, error)
	updateFn func(ctx context.Context, id int64, d domain.Draft) (*domain.User, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (s *stubUserService) ListUsers(ctx context.Context, in ports.ListUsersInput) (*domain.Page[domain.User], error) {
	return s.listFn(ctx, in)
}

func (s *stubUserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) CreateUser(ctx context.Context, d domain.Draft) (*domain.User, error) {
	return s.createFn(ctx, d)
}

func (s *stubUserService) UpdateUser(ctx context.Context, id int64, d domain.Draft) (*domain.User, error) {
	return s.updateFn(ctx, id, d)
}

func (s *stubUserService) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

type stubImportService struct {
	importFn func(ctx context.Context, f domain.UploadFile) (*domain.ImportResult, error)
}

func (s *stubImportService) ImportUsers(ctx context.Context, f domain.UploadFile) (*domain.ImportResult, error) {
	return s.importFn(ctx, f)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func newUserHandler(users *stubUserService, imp *stubImportService) *UserHandler {
	if imp == nil {
		imp = &stubImportService{}
	}
	return NewUserHandler(users, imp, 1<<20, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestUserHandler_List_PassesQuery(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		listFn: func(_ context.Context, in ports.ListUsersInput) (*domain.Page[domain.User], error) {
			if in.Page != 2 || in.Size != 5 || in.Keyword != "ali" {
				t.Fatalf("unexpected input: %+v", in)
			}
			p := domain.NewPage([]domain.User{{ID: 1, UserName: "alice"}}, 11, 2, 5)
			return &p, nil
		},
	}
	h := newUserHandler(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users?page=2&size=5&keyword=ali", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["totalPages"] != float64(3) || resp["number"] != float64(2) {
		t.Fatalf("unexpected page payload: %+v", resp)
	}
}

func TestUserHandler_List_RejectsNegativePage(t *testing.T) {
	e := newEcho()
	h := newUserHandler(&stubUserService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users?page=-1", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUserHandler_Get_NotFoundPropagates(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		getFn: func(_ context.Context, id int64) (*domain.User, error) {
			if id != 42 {
				t.Fatalf("unexpected id %d", id)
			}
			return nil, domain.ErrUserNotFound
		},
	}
	h := newUserHandler(stub, nil)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/42", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := h.Get(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Get_InvalidID(t *testing.T) {
	e := newEcho()
	h := newUserHandler(&stubUserService{}, nil)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/abc", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")

	var he *echo.HTTPError
	if err := h.Get(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Create / Update / Delete
// ---------------------------------------------------------------------------

func TestUserHandler_Create_Success(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		createFn: func(_ context.Context, d domain.Draft) (*domain.User, error) {
			if d.UserName != "alice" || len(d.UserRoles) != 1 {
				t.Fatalf("unexpected draft: %+v", d)
			}
			return &domain.User{ID: 1, UserName: d.UserName, Status: domain.StatusActive}, nil
		},
	}
	h := newUserHandler(stub, nil)

	body := `{"userName":"alice","fullName":"Alice","email":"alice@msb.com.vn","userRoles":[{"bank":"MSB","branch":"001","roleName":"MAKER"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestUserHandler_Create_Duplicate(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		createFn: func(context.Context, domain.Draft) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := newUserHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"userName":"bob"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	if err := h.Create(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserHandler_Create_InvalidPayload(t *testing.T) {
	e := newEcho()
	h := newUserHandler(&stubUserService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"userName":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	var he *echo.HTTPError
	if err := h.Create(e.NewContext(req, httptest.NewRecorder())); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUserHandler_Update_UsesPathID(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		updateFn: func(_ context.Context, id int64, d domain.Draft) (*domain.User, error) {
			if id != 7 || d.FullName != "Carol" {
				t.Fatalf("unexpected args: %d %+v", id, d)
			}
			return &domain.User{ID: id, FullName: d.FullName}, nil
		},
	}
	h := newUserHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/users/7", strings.NewReader(`{"fullName":"Carol"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_Delete_NoContent(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{deleteFn: func(context.Context, int64) error { return nil }}
	h := newUserHandler(stub, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/users/3", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func multipartRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/users/upload", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestUserHandler_Upload_ReturnsResult(t *testing.T) {
	e := newEcho()
	imp := &stubImportService{
		importFn: func(_ context.Context, f domain.UploadFile) (*domain.ImportResult, error) {
			if f.Name != "users.xlsx" || string(f.Content) != "PK" {
				t.Fatalf("unexpected file: %s %q", f.Name, f.Content)
			}
			return &domain.ImportResult{TotalRows: 3, SuccessCount: 2, ErrorCount: 1, ErrorDetails: []string{"Sheet User - Row 5: email is empty"}}, nil
		},
	}
	h := newUserHandler(&stubUserService{}, imp)

	rec := httptest.NewRecorder()
	if err := h.Upload(e.NewContext(multipartRequest(t, "file", "users.xlsx", []byte("PK")), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var res domain.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if res.ErrorCount != 1 || len(res.ErrorDetails) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUserHandler_Upload_MissingFile(t *testing.T) {
	e := newEcho()
	h := newUserHandler(&stubUserService{}, nil)

	var he *echo.HTTPError
	err := h.Upload(e.NewContext(multipartRequest(t, "other", "users.xlsx", []byte("PK")), httptest.NewRecorder()))
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUserHandler_Upload_WrongExtensionPropagates(t *testing.T) {
	e := newEcho()
	imp := &stubImportService{
		importFn: func(context.Context, domain.UploadFile) (*domain.ImportResult, error) {
			return nil, domain.ErrUnsupportedFile
		},
	}
	h := newUserHandler(&stubUserService{}, imp)

	err := h.Upload(e.NewContext(multipartRequest(t, "file", "users.csv", []byte("a,b")), httptest.NewRecorder()))
	if !errors.Is(err, domain.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}
