package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_List_SendsZeroBasedPageAndOmitsEmptyKeyword(t *testing.T) {
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users", r.URL.Path)
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, domain.NewPage([]domain.User{{ID: 1, UserName: "alice"}}, 11, 0, 10))
	})

	page, err := c.List(context.Background(), ports.ListQuery{Page: 0, Size: 10, Keyword: "  "})
	require.NoError(t, err)

	assert.Equal(t, []string{"0"}, gotQuery["page"])
	assert.Equal(t, []string{"10"}, gotQuery["size"])
	_, hasKeyword := gotQuery["keyword"]
	assert.False(t, hasKeyword)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "alice", page.Content[0].UserName)
}

func TestClient_List_SendsKeyword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nguyen van", r.URL.Query().Get("keyword"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, map[string]any{"totalElements": 0})
	})

	page, err := c.List(context.Background(), ports.ListQuery{Page: 2, Size: 10, Keyword: "nguyen van"})
	require.NoError(t, err)
	assert.NotNil(t, page.Content)
}

func TestClient_Get_NotFoundCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/42", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
	})

	_, err := c.Get(context.Background(), 42)

	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
	assert.True(t, errors.Is(err, domain.ErrRemote))
	assert.Equal(t, "User not found", domain.UserMessage(err, "fallback"))
}

func TestClient_Create_PostsDraft(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var d domain.Draft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		writeJSON(w, http.StatusCreated, domain.User{ID: 9, UserName: d.UserName, Status: domain.StatusActive})
	})

	u, err := c.Create(context.Background(), domain.Draft{UserName: "bob", FullName: "Bob", Email: "bob@msb.com.vn"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
	assert.Equal(t, "bob", u.UserName)
}

func TestClient_Create_ConflictWithoutBodyUsesFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := c.Create(context.Background(), domain.Draft{UserName: "bob"})

	assert.True(t, errors.Is(err, domain.ErrUserExists))
	assert.Equal(t, "Failed to save user", domain.UserMessage(err, "Failed to save user"))
}

func TestClient_Update_UsesPut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/3", r.URL.Path)
		writeJSON(w, http.StatusOK, domain.User{ID: 3})
	})

	u, err := c.Update(context.Background(), 3, domain.Draft{UserName: "carol"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
}

func TestClient_Delete_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, c.Delete(context.Background(), 3))
}

func TestClient_Upload_SendsMultipartFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "users.xlsx", hdr.Filename)
		assert.Equal(t, "PK", string(content))
		writeJSON(w, http.StatusOK, domain.ImportResult{TotalRows: 2, SuccessCount: 1, ErrorCount: 1, ErrorDetails: []string{"row"}})
	})

	res, err := c.Upload(context.Background(), domain.UploadFile{Name: "users.xlsx", Content: []byte("PK")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, []string{"row"}, res.ErrorDetails)
}

func TestClient_Upload_BadRequestMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid file format (.xlsx)"})
	})

	_, err := c.Upload(context.Background(), domain.UploadFile{Name: "users.xlsx"})
	assert.Equal(t, "Invalid file format (.xlsx)", domain.UserMessage(err, "Upload failed"))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	var observed []int
	c := New(srv.URL, time.Second, zerolog.Nop(), WithObserver(func(_ string, status int, _ time.Duration) {
		observed = append(observed, status)
	}))

	_, err := c.List(context.Background(), ports.ListQuery{Size: 10})

	var re *domain.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.Status)
	assert.NotNil(t, re.Err)
	assert.Equal(t, "Failed to load users", domain.UserMessage(err, "Failed to load users"))
	assert.Equal(t, []int{0}, observed)
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := c.Get(context.Background(), 1)
	assert.True(t, errors.Is(err, domain.ErrRemote))
}
