package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var (
	userHeaders       = []any{"Username", "Email", "Full name", "Birthday (dd/MM/yyyy)", "Gender (MALE/FEMALE)", "Phone", "Department"}
	permissionHeaders = []any{"Username", "Bank", "Branch", "Role", "Type", "From date (dd/MM/yyyy)", "To date (dd/MM/yyyy)"}
)

// Template builds an empty import workbook with both sheets, their notes and
// column headers. Records go from FirstDataRow on.
func Template() (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", UserSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(PermissionSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	sheets := []struct {
		name, title, note string
		headers           []any
	}{
		{UserSheet, "Users", "Email must be <username>@<corporate domain>. Existing usernames only receive permissions.", userHeaders},
		{PermissionSheet, "Permissions", "Username must appear in the User sheet or already exist. Role must exist in the catalog.", permissionHeaders},
	}
	for _, s := range sheets {
		if err := f.SetCellValue(s.name, "A1", s.title); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(s.name, "A2", s.note); err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(s.name, fmt.Sprintf("A%d", FirstDataRow-1), &s.headers); err != nil {
			return nil, err
		}
		last, _ := excelize.CoordinatesToCellName(len(s.headers), FirstDataRow-1)
		if err := f.SetCellStyle(s.name, "A1", last, bold); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(s.name, "A", "G", 22); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// TemplateBytes renders Template as .xlsx content.
func TemplateBytes() ([]byte, error) {
	f, err := Template()
	if err != nil {
		return nil, fmt.Errorf("build import template: %w", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write import template: %w", err)
	}
	return buf.Bytes(), nil
}
