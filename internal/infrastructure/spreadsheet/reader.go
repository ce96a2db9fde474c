// Package spreadsheet reads and generates the .xlsx workbooks used by the
// bulk user import.
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

const (
	UserSheet       = "User"
	PermissionSheet = "Thong_tin_phan_quyen"

	// FirstDataRow is the 1-based row of the first record; rows above hold
	// the title, the notes and the column headers.
	FirstDataRow = 4

	dateLayout = "02/01/2006"
)

// Reader parses import workbooks with excelize.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// Parse reads both sheets. A file that is not a workbook, or that lacks one
// of the sheets, yields domain.ErrInvalidWorkbook.
func (Reader) Parse(r io.Reader) (*ports.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidWorkbook, err)
	}
	defer f.Close()

	for _, sheet := range []string{UserSheet, PermissionSheet} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: missing sheet '%s' or '%s'", domain.ErrInvalidWorkbook, UserSheet, PermissionSheet)
		}
	}

	userRows, err := dataRows(f, UserSheet)
	if err != nil {
		return nil, err
	}
	permRows, err := dataRows(f, PermissionSheet)
	if err != nil {
		return nil, err
	}

	wb := &ports.Workbook{}
	for _, row := range userRows {
		u := ports.UserRow{
			Line:       row.line,
			UserName:   row.text(0),
			Email:      row.text(1),
			FullName:   row.text(2),
			Gender:     row.text(4),
			Phone:      row.text(5),
			Department: row.text(6),
		}
		u.BirthDay, u.DateErr = row.date(3)
		wb.Users = append(wb.Users, u)
	}
	for _, row := range permRows {
		p := ports.PermissionRow{
			Line:     row.line,
			UserName: row.text(0),
			Bank:     row.text(1),
			Branch:   row.text(2),
			RoleName: row.text(3),
			Type:     row.text(4),
		}
		var fromErr, toErr error
		p.FromDate, fromErr = row.date(5)
		p.ToDate, toErr = row.date(6)
		if fromErr != nil {
			p.DateErr = fromErr
		} else {
			p.DateErr = toErr
		}
		wb.Permissions = append(wb.Permissions, p)
	}
	return wb, nil
}

type sheetRow struct {
	line  int
	cells []string
}

// dataRows returns the non-blank rows from FirstDataRow on, with raw cell
// values so date cells arrive as serial numbers.
func dataRows(f *excelize.File, sheet string) ([]sheetRow, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", domain.ErrInvalidWorkbook, sheet, err)
	}
	var out []sheetRow
	for i := FirstDataRow - 1; i < len(rows); i++ {
		r := sheetRow{line: i + 1, cells: rows[i]}
		if r.blank() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (r sheetRow) text(idx int) string {
	if idx >= len(r.cells) {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(r.cells[idx]))
}

func (r sheetRow) blank() bool {
	for i := range r.cells {
		if r.text(i) != "" {
			return false
		}
	}
	return true
}

// date accepts a dd/MM/yyyy text cell or a native date cell. An empty cell
// is no date and no error.
func (r sheetRow) date(idx int) (*domain.Date, error) {
	v := r.text(idx)
	if v == "" {
		return nil, nil
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, fmt.Errorf("date serial %q: %w", v, err)
		}
		d := domain.DateOf(t)
		return &d, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", v, err)
	}
	d := domain.DateOf(t)
	return &d, nil
}
