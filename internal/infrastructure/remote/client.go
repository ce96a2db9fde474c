// Package remote is the HTTP client of the directory's /api/users resource.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

const (
	defaultTimeout = 15 * time.Second
	usersPath      = "/api/users"
	uploadField    = "file"
	maxErrorBody   = 64 << 10
)

// Observer is told about every finished request. Status is 0 on transport
// failure.
type Observer func(op string, status int, elapsed time.Duration)

// Client implements ports.UserDirectory and ports.UserImporter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observe    Observer
	log        zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (timeout only).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

func New(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		observe:    func(string, int, time.Duration) {},
		log:        log.With().Str("component", "directory_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context, q ports.ListQuery) (*domain.Page[domain.User], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		params.Set("keyword", kw)
	}

	var page domain.Page[domain.User]
	if err := c.doJSON(ctx, "list users", http.MethodGet, usersPath+"?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []domain.User{}
	}
	return &page, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := c.doJSON(ctx, "get user", http.MethodGet, userPath(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Create(ctx context.Context, draft domain.Draft) (*domain.User, error) {
	var u domain.User
	if err := c.doJSON(ctx, "create user", http.MethodPost, usersPath, draft, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Update(ctx context.Context, id int64, draft domain.Draft) (*domain.User, error) {
	var u domain.User
	if err := c.doJSON(ctx, "update user", http.MethodPut, userPath(id), draft, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete user", http.MethodDelete, userPath(id), nil, nil)
}

// Upload posts the workbook as the multipart field "file".
func (c *Client) Upload(ctx context.Context, file domain.UploadFile) (*domain.ImportResult, error) {
	const op = "upload users"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, file.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+usersPath+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var res domain.ImportResult
	if err := c.do(op, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ping checks that the directory answers its liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	return c.do("ping directory", req, nil)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(op, req, out)
}

// do sends req and decodes a 2xx body into out. Any other outcome becomes a
// *domain.RemoteError carrying the server's {"error"} message when present.
func (c *Client) do(op string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, 0, time.Since(start))
		c.log.Warn().Err(err).Str("op", op).Msg("directory request failed")
		return &domain.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := &domain.RemoteError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("message", re.Message).Msg("directory answered with an error")
		return re
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.RemoteError{Op: op, Status: resp.StatusCode, Err: errors.New("empty response body")}
		}
		return &domain.RemoteError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorMessage(body io.Reader) string {
	var envelope struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	if json.Unmarshal(raw, &envelope) != nil {
		return ""
	}
	return envelope.Error
}

func userPath(id int64) string {
	return usersPath + "/" + strconv.FormatInt(id, 10)
}
