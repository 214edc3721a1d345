package service

import (
	"context"
	"errors"
	"time"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// memSheet is one worksheet of a memWorkbook.
type memSheet struct {
	title string
	id    int64
	grid  []models.Row
}

// memWorkbook is an in-memory Workbook that records every batch it receives.
type memWorkbook struct {
	sheets    []*memSheet
	limit     int
	batches   [][]models.Mutation
	appends   []string
	failBatch int // 1-based BatchMutate call that fails; 0 never
	failRead  map[string]error
	failApp   map[string]error
	calls     int
}

func newMemWorkbook() *memWorkbook {
	return &memWorkbook{limit: 100, failRead: map[string]error{}, failApp: map[string]error{}}
}

func (w *memWorkbook) add(title string, rows ...models.Row) *memWorkbook {
	w.sheets = append(w.sheets, &memSheet{title: title, id: int64(len(w.sheets) * 10), grid: rows})
	return w
}

func (w *memWorkbook) sheet(title string) *memSheet {
	for _, s := range w.sheets {
		if s.title == title {
			return s
		}
	}
	return nil
}

func (w *memWorkbook) byID(id int64) *memSheet {
	for _, s := range w.sheets {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (w *memWorkbook) ListWorksheets(ctx context.Context) ([]models.WorksheetHandle, error) {
	out := make([]models.WorksheetHandle, len(w.sheets))
	for i, s := range w.sheets {
		out[i] = models.WorksheetHandle{Title: s.title, ID: s.id}
	}
	return out, nil
}

func (w *memWorkbook) ReadGrid(ctx context.Context, title string) ([]models.Row, error) {
	if err := w.failRead[title]; err != nil {
		return nil, err
	}
	s := w.sheet(title)
	if s == nil {
		return nil, errors.New("no such sheet")
	}
	out := make([]models.Row, len(s.grid))
	for i, r := range s.grid {
		out[i] = r.Clone()
	}
	return out, nil
}

func (w *memWorkbook) AppendRow(ctx context.Context, title string, at int, row models.Row) (int, error) {
	if err := w.failApp[title]; err != nil {
		return 0, err
	}
	s := w.sheet(title)
	for len(s.grid) <= at {
		s.grid = append(s.grid, models.Row{})
	}
	s.grid[at] = row.Clone()
	w.appends = append(w.appends, title)
	return at, nil
}

func (w *memWorkbook) BatchMutate(ctx context.Context, mutations []models.Mutation) error {
	w.calls++
	if w.failBatch == w.calls {
		return errors.New("quota exceeded")
	}
	if len(mutations) > w.limit {
		return errors.New("batch too large")
	}
	w.batches = append(w.batches, mutations)
	for _, m := range mutations {
		switch {
		case m.DeleteRows != nil:
			s := w.byID(m.DeleteRows.WorksheetID)
			s.grid = append(s.grid[:m.DeleteRows.StartIndex], s.grid[m.DeleteRows.EndIndex:]...)
		case m.UpdateCell != nil:
			u := m.UpdateCell
			s := w.byID(u.WorksheetID)
			row := s.grid[u.RowIndex]
			for len(row) <= u.ColumnIndex {
				row = append(row, "")
			}
			row[u.ColumnIndex] = u.Value
			s.grid[u.RowIndex] = row
		}
	}
	return nil
}

func (w *memWorkbook) BatchLimit() int { return w.limit }

// deletes returns every DeleteRows mutation sent, in order.
func (w *memWorkbook) deletes() []models.DeleteRows {
	var out []models.DeleteRows
	for _, b := range w.batches {
		for _, m := range b {
			if m.DeleteRows != nil {
				out = append(out, *m.DeleteRows)
			}
		}
	}
	return out
}

type memOpener struct{ wb *memWorkbook }

func (o memOpener) Open(ctx context.Context, id string) (Workbook, error) {
	if o.wb == nil {
		return nil, errors.New("not found")
	}
	return o.wb, nil
}

var refDate = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return refDate }

// twoBands is Young 6-8 then Senior 9-11.
func twoBands() models.Progression {
	return models.Progression{
		Bands: []models.AgeBand{
			{Name: "Young", Pattern: models.MustMatcher(`^young`), MinAge: 6, MaxAge: 8},
			{Name: "Senior", Pattern: models.MustMatcher(`^senior`), MinAge: 9, MaxAge: 11},
		},
		Excluded: []string{"ALL STUDENTS"},
	}
}
