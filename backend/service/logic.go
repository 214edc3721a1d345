package service

import (
	"context"
	"io"
	"time"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// Workbook is read/write access to the worksheets of one spreadsheet.
// Each call is a single remote request; callers must not run two
// executions against the same spreadsheet at once.
type Workbook interface {
	ListWorksheets(ctx context.Context) ([]models.WorksheetHandle, error)
	ReadGrid(ctx context.Context, title string) ([]models.Row, error)
	// AppendRow writes row starting at row index at (0-based) and returns the
	// index the row actually landed on.
	AppendRow(ctx context.Context, title string, at int, row models.Row) (int, error)
	BatchMutate(ctx context.Context, mutations []models.Mutation) error
	// BatchLimit is the most mutations a single BatchMutate call accepts.
	BatchLimit() int
}

// Opener opens a Workbook by spreadsheet ID.
type Opener interface {
	Open(ctx context.Context, spreadsheetID string) (Workbook, error)
}

// Logic analyzes and executes student band moves.
type Logic struct {
	opener      Opener
	progression models.Progression
	now         func() time.Time
}

// Option configures a Logic.
type Option func(*Logic)

// WithClock sets the reference clock used to compute ages.
func WithClock(now func() time.Time) Option {
	return func(l *Logic) { l.now = now }
}

func NewLogic(opener Opener, progression models.Progression, opts ...Option) *Logic {
	l := &Logic{opener: opener, progression: progression, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Progression returns the band configuration in use.
func (l *Logic) Progression() models.Progression {
	return l.progression
}

// worksheets lists the spreadsheet's worksheets fresh, marking excluded ones.
func (l *Logic) worksheets(ctx context.Context, wb Workbook) ([]models.WorksheetHandle, error) {
	list, err := wb.ListWorksheets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Excluded = l.progression.IsExcluded(list[i].Title)
	}
	return list, nil
}

// CloseWorkbook releases workbooks that hold resources, such as open files.
// A failed close is logged; the work done through wb is already committed.
func CloseWorkbook(ctx context.Context, wb Workbook) {
	c, ok := wb.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logging.FromContext(ctx).Error("closing workbook failed", "error", err)
	}
}

func batchLimit(wb Workbook) int {
	if n := wb.BatchLimit(); n > 0 {
		return n
	}
	return 1
}

// mutateInChunks sends mutations in BatchLimit-sized calls. It stops at the
// first failing call and returns how many mutations were committed before it.
func mutateInChunks(ctx context.Context, wb Workbook, mutations []models.Mutation) (int, error) {
	size := batchLimit(wb)
	done := 0
	for start := 0; start < len(mutations); start += size {
		end := min(start+size, len(mutations))
		if err := wb.BatchMutate(ctx, mutations[start:end]); err != nil {
			return done, err
		}
		done = end
	}
	return done, nil
}
