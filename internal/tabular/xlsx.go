package tabular

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gochang/agri-notify/internal/project"
)

// ReadXLSX reads the named sheet (the first sheet when name is empty) of an
// Office Open XML workbook into typed cells. Only the first ColumnCount
// columns are read.
func ReadXLSX(r io.Reader, name string) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Sheet{}, nil
		}
		name = sheets[0]
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return Sheet{}, fmt.Errorf("read sheet %q: %w", name, err)
	}

	wb := &workbookReader{f: f, sheet: name, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}

	sheet := Sheet{Name: name, Rows: make([]Row, len(rows))}
	for r := range rows {
		row := make(Row, ColumnCount)
		for c := range ColumnCount {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return Sheet{}, err
			}
			row[c] = wb.cell(axis)
		}
		sheet.Rows[r] = row
	}
	return sheet, nil
}

type workbookReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (w *workbookReader) cell(axis string) Cell {
	raw, err := w.f.GetCellValue(w.sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return Invalid(fmt.Errorf("%s: %w", axis, err))
	}
	typ, err := w.f.GetCellType(w.sheet, axis)
	if err != nil {
		return Invalid(fmt.Errorf("%s: %w", axis, err))
	}

	formula, err := w.f.GetCellFormula(w.sheet, axis)
	if err != nil {
		return Invalid(fmt.Errorf("%s: %w", axis, err))
	}
	if formula != "" {
		var cached *Cell
		if raw != "" {
			c := w.value(axis, typ, raw, false)
			cached = &c
		}
		return Formula(formula, cached)
	}

	if raw == "" {
		return Blank()
	}
	return w.value(axis, typ, raw, true)
}

// value decodes a non-empty raw value. Number formats are only consulted for
// literal cells; cached formula results stay numeric.
func (w *workbookReader) value(axis string, typ excelize.CellType, raw string, literal bool) Cell {
	switch typ {
	case excelize.CellTypeBool:
		return Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeError:
		return ErrorValue(raw)
	case excelize.CellTypeDate:
		t, err := parseISODate(raw)
		if err != nil {
			return Invalid(fmt.Errorf("%s: %w", axis, err))
		}
		return Date(t)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			// Unset cells written by some tools carry plain text.
			if typ == excelize.CellTypeUnset {
				return Text(raw)
			}
			return Invalid(fmt.Errorf("%s: %w", axis, err))
		}
		if literal && w.isDateFormatted(axis) {
			t, err := excelize.ExcelDateToTime(v, w.date1904)
			if err != nil {
				return Invalid(fmt.Errorf("%s: %w", axis, err))
			}
			return Date(t)
		}
		return Number(v)
	default:
		return Text(raw)
	}
}

func (w *workbookReader) isDateFormatted(axis string) bool {
	idx, err := w.f.GetCellStyle(w.sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	if known, ok := w.dateStyles[idx]; ok {
		return known
	}
	isDate := false
	if style, err := w.f.GetStyle(idx); err == nil {
		isDate = isDateNumFmt(style.NumFmt)
		if !isDate && style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	w.dateStyles[idx] = isDate
	return isDate
}

func parseISODate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised ISO date %q", raw)
}

// isDateNumFmt reports whether a built-in number format id renders a date.
// 14-22 and 45-47 are the international date/time formats; 27-36 and 50-58
// are the East Asian locale date formats Korean Excel writes.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

var (
	bracketSection = regexp.MustCompile(`\[[^\]]*\]`)
	quotedLiteral  = regexp.MustCompile(`"[^"]*"`)
	escapedChar    = regexp.MustCompile(`\\.`)
	dateCodeChars  = regexp.MustCompile(`^[yYmMdDhHsSeE0\-/.,: _年月日]+$`)
)

// isDateFormatCode reports whether a custom format code renders a calendar
// date, e.g. yyyy.mm.dd or yyyy"년" m"월" d"일".
func isDateFormatCode(code string) bool {
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	code = bracketSection.ReplaceAllString(code, "")
	code = quotedLiteral.ReplaceAllString(code, "")
	code = escapedChar.ReplaceAllString(code, "")
	for _, marker := range []string{"AM/PM", "am/pm", "A/P", "a/p"} {
		code = strings.ReplaceAll(code, marker, "")
	}
	code = strings.TrimSpace(code)
	if code == "" || !dateCodeChars.MatchString(code) {
		return false
	}
	return strings.ContainsAny(code, "yYdDeE年日")
}

// WriteXLSX renders the catalog as a workbook with the import layout. The
// notification date is written as a real date cell and isActive as a boolean
// so the file round-trips through ReadXLSX.
func WriteXLSX(w io.Writer, projects []project.Project) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "사업목록"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	dateFormat := "yyyy.mm.dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return fmt.Errorf("date style: %w", err)
	}

	for c, title := range Header {
		axis, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellStr(sheet, axis, title); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(ColumnCount, 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, p := range projects {
		rowNum := i + 2
		record := ProjectToRecord(p)
		for c, value := range record {
			axis, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			if err := writeCell(f, sheet, axis, c, value, p, dateStyle); err != nil {
				return fmt.Errorf("row %d (%s): %w", rowNum, p.ID, err)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(ColumnCount)
	if err := f.SetColWidth(sheet, "A", lastCol, 14); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeCell(f *excelize.File, sheet, axis string, col int, value string, p project.Project, dateStyle int) error {
	switch col {
	case ColIsActive:
		return f.SetCellBool(sheet, axis, p.IsActive)
	case ColNotificationDate:
		if value == "" {
			return nil
		}
		if d, err := project.ParseDate(value); err == nil && project.FormatDate(d) == value {
			if err := f.SetCellValue(sheet, axis, d); err != nil {
				return err
			}
			return f.SetCellStyle(sheet, axis, axis, dateStyle)
		}
	}
	if value == "" {
		return nil
	}
	return f.SetCellStr(sheet, axis, value)
}
