package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
)

// XLSXOpener opens local .xlsx files; the spreadsheet ID is the file path.
type XLSXOpener struct{}

func (XLSXOpener) Open(ctx context.Context, path string) (service.Workbook, error) {
	return OpenXLSX(path)
}

// XLSXWorkbook is a local workbook. Every mutating call saves the file, so
// each call is durable on its own like a remote request.
type XLSXWorkbook struct {
	path string
	f    *excelize.File
}

// OpenXLSX opens the workbook at path.
func OpenXLSX(path string) (*XLSXWorkbook, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, localError("open", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, localError("open", err)
	}
	return &XLSXWorkbook{path: path, f: f}, nil
}

// Close releases the workbook.
func (w *XLSXWorkbook) Close() error {
	return w.f.Close()
}

// Describe reports the file name and worksheets.
func (w *XLSXWorkbook) Describe(ctx context.Context) (models.SpreadsheetInfo, error) {
	list, err := w.ListWorksheets(ctx)
	if err != nil {
		return models.SpreadsheetInfo{}, err
	}
	return models.SpreadsheetInfo{
		ID:         w.path,
		Title:      filepath.Base(w.path),
		MimeType:   mimeExcel,
		Worksheets: list,
	}, nil
}

func (w *XLSXWorkbook) ListWorksheets(ctx context.Context) ([]models.WorksheetHandle, error) {
	names := w.f.GetSheetList()
	out := make([]models.WorksheetHandle, 0, len(names))
	for _, name := range names {
		idx, err := w.f.GetSheetIndex(name)
		if err != nil {
			return nil, localError("list", err)
		}
		out = append(out, models.WorksheetHandle{Title: name, ID: int64(idx)})
	}
	return out, nil
}

// ReadGrid returns the displayed cell text, except that cells styled as
// dates come back as ISO dates read from their serial value, whatever
// number format the workbook renders them with.
func (w *XLSXWorkbook) ReadGrid(ctx context.Context, title string) ([]models.Row, error) {
	rows, err := w.f.GetRows(title)
	if err != nil {
		return nil, localError("read", err)
	}
	raw, err := w.f.GetRows(title, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, localError("read", err)
	}
	dateStyles := make(map[int]bool)
	out := make([]models.Row, len(rows))
	for r, row := range rows {
		out[r] = models.Row(row)
		if r >= len(raw) {
			continue
		}
		for c, shown := range row {
			if c >= len(raw[r]) || raw[r][c] == shown {
				continue
			}
			if iso, ok := w.dateCell(title, r, c, raw[r][c], dateStyles); ok {
				out[r][c] = iso
			}
		}
	}
	return out, nil
}

// dateCell converts the serial value of a date-styled cell.
func (w *XLSXWorkbook) dateCell(title string, r, c int, raw string, dateStyles map[int]bool) (string, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", false
	}
	cell, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return "", false
	}
	styleID, err := w.f.GetCellStyle(title, cell)
	if err != nil {
		return "", false
	}
	isDate, seen := dateStyles[styleID]
	if !seen {
		isDate = w.isDateStyle(styleID)
		dateStyles[styleID] = isDate
	}
	if !isDate {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, w.date1904())
	if err != nil {
		return "", false
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02"), true
	}
	return t.Format("2006-01-02 15:04:05"), true
}

func (w *XLSXWorkbook) isDateStyle(styleID int) bool {
	st, err := w.f.GetStyle(styleID)
	if err != nil || st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return isDateFormat(*st.CustomNumFmt)
	}
	switch n := st.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

func (w *XLSXWorkbook) date1904() bool {
	props, err := w.f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

// isDateFormat reports whether a custom number format shows a day or a
// year. Quoted literals and bracketed sections such as colors are ignored.
func isDateFormat(code string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for _, ch := range code {
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		default:
			b.WriteRune(ch)
		}
	}
	f := strings.ToLower(b.String())
	return strings.ContainsAny(f, "dy")
}

func (w *XLSXWorkbook) AppendRow(ctx context.Context, title string, at int, row models.Row) (int, error) {
	cell, err := excelize.CoordinatesToCellName(1, at+1)
	if err != nil {
		return 0, localError("append", err)
	}
	values := make([]interface{}, len(row))
	for i, c := range row {
		values[i] = cellValue(c)
	}
	if err := w.f.SetSheetRow(title, cell, &values); err != nil {
		return 0, localError("append", err)
	}
	if err := w.f.Save(); err != nil {
		return 0, localError("append", err)
	}
	return at, nil
}

func (w *XLSXWorkbook) BatchMutate(ctx context.Context, mutations []models.Mutation) error {
	if len(mutations) > MaxBatchRequests {
		return fmt.Errorf("batch of %d requests exceeds the limit of %d", len(mutations), MaxBatchRequests)
	}
	for _, m := range mutations {
		if err := w.apply(m); err != nil {
			return localError("batch", err)
		}
	}
	if len(mutations) == 0 {
		return nil
	}
	return localError("batch", w.f.Save())
}

func (w *XLSXWorkbook) BatchLimit() int { return MaxBatchRequests }

func (w *XLSXWorkbook) apply(m models.Mutation) error {
	switch {
	case m.DeleteRows != nil:
		d := m.DeleteRows
		title, err := w.titleOf(d.WorksheetID)
		if err != nil {
			return err
		}
		rows := make([]int, 0, d.EndIndex-d.StartIndex)
		for r := d.StartIndex; r < d.EndIndex; r++ {
			rows = append(rows, r)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(rows)))
		for _, r := range rows {
			if err := w.f.RemoveRow(title, r+1); err != nil {
				return err
			}
		}
		return nil
	case m.UpdateCell != nil:
		u := m.UpdateCell
		title, err := w.titleOf(u.WorksheetID)
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(u.ColumnIndex+1, u.RowIndex+1)
		if err != nil {
			return err
		}
		return w.f.SetCellValue(title, cell, cellValue(u.Value))
	default:
		return errors.New("empty mutation")
	}
}

func (w *XLSXWorkbook) titleOf(id int64) (string, error) {
	name := w.f.GetSheetName(int(id))
	if name == "" {
		return "", fmt.Errorf("no worksheet with id %d", id)
	}
	return name, nil
}
