package ports

import (
	"io"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

// UserRow is one data row of the user sheet. Line is the 1-based sheet row.
type UserRow struct {
	Line       int
	UserName   string
	Email      string
	FullName   string
	BirthDay   *domain.Date
	Gender     string
	Phone      string
	Department string
	// DateErr is set when the birthday cell could not be read as a date.
	DateErr error
}

// PermissionRow is one data row of the permission sheet.
type PermissionRow struct {
	Line     int
	UserName string
	Bank     string
	Branch   string
	RoleName string
	Type     string
	FromDate *domain.Date
	ToDate   *domain.Date
	DateErr  error
}

// Workbook is the parsed content of an import file, blank rows removed.
type Workbook struct {
	Users       []UserRow
	Permissions []PermissionRow
}

// WorkbookParser reads an import workbook. Structural problems (not a
// workbook, missing sheets) wrap domain.ErrInvalidWorkbook.
type WorkbookParser interface {
	Parse(r io.Reader) (*Workbook, error)
}
