package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

// readUpload loads a posted file into memory. Files above maxBytes are
// refused with 413; maxBytes <= 0 disables the check.
func readUpload(fh *multipart.FileHeader, maxBytes int64) (domain.UploadFile, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return domain.UploadFile{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}
	src, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return domain.UploadFile{Name: fh.Filename, Size: fh.Size, Content: content}, nil
}
