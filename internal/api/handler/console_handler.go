package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/api/middleware"
	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

const (
	listPath           = "/users"
	importTemplateMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	importTemplateName = "user_import_template.xlsx"
)

// ConsoleHandler serves the admin console. Every mutating endpoint drives the
// workspace of the session and answers with a redirect to the list page, or
// with the JSON state when the client asks for JSON.
type ConsoleHandler struct {
	template  []byte
	maxUpload int64
	now       func() time.Time
	log       zerolog.Logger
}

func NewConsoleHandler(importTemplate []byte, maxUpload int64, log zerolog.Logger) *ConsoleHandler {
	return &ConsoleHandler{template: importTemplate, maxUpload: maxUpload, now: time.Now, log: log}
}

// Index handles GET /.
func (h *ConsoleHandler) Index(c echo.Context) error {
	return c.Redirect(http.StatusFound, listPath)
}

// Users handles GET /users. The first visit of a session loads page 1.
func (h *ConsoleHandler) Users(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	if s := ws.Users.Snapshot(); !s.Loaded && !s.Loading {
		if err := ws.Users.Load(c.Request().Context()); err != nil {
			h.log.Warn().Err(err).Msg("initial user list load failed")
		}
	}
	return c.Render(http.StatusOK, "users", usersPage{
		Title:  "User administration",
		List:   ws.Users.Snapshot(),
		Import: ws.Import.Snapshot(),
	})
}

// State handles GET /users/state.
func (h *ConsoleHandler) State(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	return c.JSON(http.StatusOK, toStateResponse(ws.Users.Snapshot(), ws.Import.Snapshot()))
}

// Search handles POST /users/search.
func (h *ConsoleHandler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	ws := middleware.WorkspaceFrom(c)
	return h.respond(c, ws.Users.Search(c.Request().Context(), req.Keyword))
}

// ChangePage handles POST /users/page.
func (h *ConsoleHandler) ChangePage(c echo.Context) error {
	var req pageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return h.respond(c, fmt.Errorf("%w: %v", domain.ErrPageOutOfRange, err))
	}
	ws := middleware.WorkspaceFrom(c)
	return h.respond(c, ws.Users.ChangePage(c.Request().Context(), req.Page))
}

// Refresh handles POST /users/refresh.
func (h *ConsoleHandler) Refresh(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	return h.respond(c, ws.Users.Load(c.Request().Context()))
}

// New handles POST /users/new.
func (h *ConsoleHandler) New(c echo.Context) error {
	return h.respond(c, middleware.WorkspaceFrom(c).Users.BeginCreate())
}

// View handles POST /users/:id/view.
func (h *ConsoleHandler) View(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	return h.respond(c, middleware.WorkspaceFrom(c).Users.View(c.Request().Context(), id))
}

// Edit handles POST /users/:id/edit.
func (h *ConsoleHandler) Edit(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	return h.respond(c, middleware.WorkspaceFrom(c).Users.BeginEdit(c.Request().Context(), id))
}

// SelectForDelete handles POST /users/:id/delete.
func (h *ConsoleHandler) SelectForDelete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	return h.respond(c, middleware.WorkspaceFrom(c).Users.SelectForDelete(id))
}

// ConfirmDelete handles POST /users/delete/confirm.
func (h *ConsoleHandler) ConfirmDelete(c echo.Context) error {
	return h.respond(c, middleware.WorkspaceFrom(c).Users.ConfirmDelete(c.Request().Context()))
}

// Form handles POST /users/form: action is save, add-role or
// remove-role:<key>. The typed values are kept in every case.
func (h *ConsoleHandler) Form(c echo.Context) error {
	action, draft, err := h.readForm(c)
	if err != nil {
		return err
	}
	users := middleware.WorkspaceFrom(c).Users

	switch {
	case action == "save":
		return h.respond(c, users.Save(c.Request().Context(), draft))
	case action == "add-role":
		if err := users.UpdateDraft(draft); err != nil {
			return h.respond(c, err)
		}
		return h.respond(c, users.AddRole())
	case strings.HasPrefix(action, "remove-role:"):
		if err := users.UpdateDraft(draft); err != nil {
			return h.respond(c, err)
		}
		return h.respond(c, users.RemoveRole(strings.TrimPrefix(action, "remove-role:")))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown form action")
	}
}

// Close handles POST /users/close.
func (h *ConsoleHandler) Close(c echo.Context) error {
	return h.respond(c, middleware.WorkspaceFrom(c).Users.Close())
}

// DismissAlert handles POST /users/alert/dismiss.
func (h *ConsoleHandler) DismissAlert(c echo.Context) error {
	middleware.WorkspaceFrom(c).Users.DismissAlert()
	return h.respond(c, nil)
}

// OpenImport handles POST /import/open.
func (h *ConsoleHandler) OpenImport(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	if err := ws.Users.OpenImport(); err != nil {
		return h.respond(c, err)
	}
	ws.Import.Reset()
	return h.respond(c, nil)
}

// ImportFiles handles POST /import/files. Only the first file is staged.
func (h *ConsoleHandler) ImportFiles(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	if err := importing(ws); err != nil {
		return h.respond(c, err)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upload")
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return h.respond(c, nil)
	}
	if len(headers) > 1 {
		h.log.Debug().Int("count", len(headers)).Msg("several files posted, staging the first")
	}

	file, err := readUpload(headers[0], h.maxUpload)
	if err != nil {
		return err
	}
	return h.respond(c, ws.Import.Drop([]domain.UploadFile{file}))
}

// ImportUpload handles POST /import/upload.
func (h *ConsoleHandler) ImportUpload(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	if err := importing(ws); err != nil {
		return h.respond(c, err)
	}
	return h.respond(c, ws.Import.Upload(c.Request().Context()))
}

// importing rejects pipeline actions outside the import dialog.
func importing(ws *middleware.Workspace) error {
	if !ws.Users.Snapshot().Mode.Is(domain.ModeImporting) {
		return fmt.Errorf("import: %w", domain.ErrModeConflict)
	}
	return nil
}

// ImportReset handles POST /import/reset.
func (h *ConsoleHandler) ImportReset(c echo.Context) error {
	middleware.WorkspaceFrom(c).Import.Reset()
	return h.respond(c, nil)
}

// ImportClose handles POST /import/close. Closing after a completed import
// reloads the list from page 1.
func (h *ConsoleHandler) ImportClose(c echo.Context) error {
	ws := middleware.WorkspaceFrom(c)
	var err error
	if ws.Import.Completed() {
		err = ws.Users.ImportFinished(c.Request().Context())
	} else {
		err = ws.Users.Close()
	}
	ws.Import.Reset()
	return h.respond(c, err)
}

// ImportTemplate handles GET /templates/user_import_template.xlsx.
func (h *ConsoleHandler) ImportTemplate(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+importTemplateName+`"`)
	return c.Blob(http.StatusOK, importTemplateMIME, h.template)
}

// respond finishes a mutating request. Failures already live in the
// workspace state (alert, field errors, import error), so HTML clients are
// always sent back to the list.
func (h *ConsoleHandler) respond(c echo.Context, opErr error) error {
	if opErr != nil {
		h.logOutcome(c, opErr)
	}
	if !wantsJSON(c) {
		return c.Redirect(http.StatusSeeOther, listPath)
	}
	ws := middleware.WorkspaceFrom(c)
	return c.JSON(statusFor(opErr), toStateResponse(ws.Users.Snapshot(), ws.Import.Snapshot()))
}

func (h *ConsoleHandler) logOutcome(c echo.Context, err error) {
	ev := h.log.Debug()
	if statusFor(err) >= http.StatusInternalServerError && !errors.Is(err, domain.ErrRemote) {
		ev = h.log.Warn()
	}
	ev.Err(err).Str("path", c.Path()).Msg("console action did not complete")
}

func statusFor(err error) int {
	var ve *domain.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrModeConflict),
		errors.Is(err, domain.ErrFormClosed),
		errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPageOutOfRange),
		errors.Is(err, domain.ErrNoSelection),
		errors.Is(err, domain.ErrUnsupportedFile):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func isJSONBody(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// readForm decodes the user form from a JSON body or from form fields.
func (h *ConsoleHandler) readForm(c echo.Context) (string, domain.Draft, error) {
	if isJSONBody(c) {
		var req formRequest
		if err := c.Bind(&req); err != nil {
			return "", domain.Draft{}, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		return req.Action, req.Draft, nil
	}

	params, err := c.FormParams()
	if err != nil {
		return "", domain.Draft{}, echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	d := domain.Draft{
		UserName:  params.Get("userName"),
		FullName:  params.Get("fullName"),
		Email:     params.Get("email"),
		Phone:     params.Get("phone"),
		BirthDay:  h.formDate(params.Get("birthDay")),
		Gender:    params.Get("gender"),
		Status:    domain.UserStatus(params.Get("status")),
		UserRoles: []domain.UserRole{},
	}

	keys := params["roleKey"]
	column := func(name string, i int) string {
		if vals := params[name]; i < len(vals) {
			return vals[i]
		}
		return ""
	}
	for i, key := range keys {
		role := domain.UserRole{
			Type:     column("roleType", i),
			Bank:     column("roleBank", i),
			Branch:   column("roleBranch", i),
			RoleName: column("roleName", i),
			FromDate: h.formDate(column("roleFromDate", i)),
			ToDate:   h.formDate(column("roleToDate", i)),
		}
		if ref, err := domain.ParseRoleKey(key); err == nil {
			role.Ref = ref
		} else {
			role.Ref = domain.NewUnsavedRole(h.now()).Ref
		}
		d.UserRoles = append(d.UserRoles, role)
	}
	return params.Get("action"), d, nil
}

// formDate reads an <input type="date"> value. Anything unparsable is
// treated as empty.
func (h *ConsoleHandler) formDate(v string) *domain.Date {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		h.log.Debug().Str("value", v).Msg("ignoring malformed date field")
		return nil
	}
	return &d
}
