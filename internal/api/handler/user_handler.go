package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/api/metrics"
	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

const uploadField = "file"

// UserHandler serves the directory's /api/users resource.
type UserHandler struct {
	users     ports.UserService
	importer  ports.ImportService
	maxUpload int64
	log       zerolog.Logger
}

func NewUserHandler(users ports.UserService, importer ports.ImportService, maxUpload int64, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, importer: importer, maxUpload: maxUpload, log: log}
}

// List handles GET /api/users.
//
// @Summary      List users, newest first
// @Tags         users
// @Produce      json
// @Param        page     query     int     false  "0-based page"
// @Param        size     query     int     false  "page size (max 100)"
// @Param        keyword  query     string  false  "matches username, full name or email"
// @Success      200      {object}  domain.Page[domain.User]
// @Failure      400      {object}  map[string]string
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	page, err := h.users.ListUsers(c.Request().Context(), ports.ListUsersInput{
		Page:    q.Page,
		Size:    q.Size,
		Keyword: q.Keyword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/users/:id.
//
// @Summary      Get one user with its role assignments
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "user id"
// @Success      200  {object}  domain.User
// @Failure      404  {object}  map[string]string
// @Router       /api/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	u, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Create handles POST /api/users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      domain.Draft  true  "user"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var d domain.Draft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	u, err := h.users.CreateUser(c.Request().Context(), d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// Update handles PUT /api/users/:id.
//
// @Summary      Update a user's editable fields and roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int           true  "user id"
// @Param        body  body      domain.Draft  true  "user"
// @Success      200   {object}  domain.User
// @Failure      404   {object}  map[string]string
// @Router       /api/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	var d domain.Draft
	if err := (&echo.DefaultBinder{}).BindBody(c, &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	u, err := h.users.UpdateUser(c.Request().Context(), id, d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /api/users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Param        id   path  int  true  "user id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Upload handles POST /api/users/upload: bulk import of an .xlsx workbook.
//
// @Summary      Import users and permissions from a workbook
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "import workbook (.xlsx)"
// @Success      200   {object}  domain.ImportResult
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/users/upload [post]
func (h *UserHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		metrics.ImportsTotal.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}

	file, err := readUpload(fh, h.maxUpload)
	if err != nil {
		return err
	}

	res, err := h.importer.ImportUsers(c.Request().Context(), file)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, domain.ErrUnsupportedFile) || errors.Is(err, domain.ErrInvalidWorkbook) {
			outcome = "rejected"
		}
		metrics.ImportsTotal.WithLabelValues(outcome).Inc()
		h.log.Warn().Err(err).Str("file", fh.Filename).Msg("import rejected")
		return err
	}

	metrics.ImportsTotal.WithLabelValues("completed").Inc()
	metrics.ImportRowsTotal.WithLabelValues("success").Add(float64(res.SuccessCount))
	metrics.ImportRowsTotal.WithLabelValues("error").Add(float64(res.ErrorCount))
	return c.JSON(http.StatusOK, res)
}

func bindID(c echo.Context) (int64, error) {
	var p userIDParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := c.Validate(&p); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return p.ID, nil
}
