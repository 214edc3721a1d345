package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// transfer moves one row out of move.SourceWorksheet and into
// move.DestinationWorksheet. expect is what must currently sit at the source
// row. A nil payload means move.RowData is remapped onto the destination
// header; otherwise payload is written as is.
type transfer struct {
	move    models.ProposedMove
	expect  models.Row
	payload models.Row
}

// transferRun is the bookkeeping for one Execute or Revert call.
type transferRun struct {
	wb      Workbook
	logger  *slog.Logger
	record  *models.ExecutionRecord
	byTitle map[string]models.WorksheetHandle
	grids   map[string][]models.Row
}

// Execute applies moves: source rows are deleted bottom-up first, then the
// remapped rows are appended to their destinations, then every worksheet's
// sequence column is renumbered. Per-move failures are collected in the
// returned record. A failed deletion batch also returns an error wrapping
// ErrPartialExecution, together with the record.
func (l *Logic) Execute(ctx context.Context, spreadsheetID string, moves []models.ProposedMove) (*models.ExecutionRecord, error) {
	wb, err := l.opener.Open(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer CloseWorkbook(ctx, wb)
	transfers := make([]transfer, len(moves))
	for i, m := range moves {
		transfers[i] = transfer{move: m, expect: m.RowData}
	}
	return l.run(ctx, wb, spreadsheetID, models.RecordExecute, transfers)
}

// AnalyzeAndExecute re-derives the proposal and executes it in one go.
func (l *Logic) AnalyzeAndExecute(ctx context.Context, spreadsheetID string) (*models.ExecutionRecord, error) {
	wb, err := l.opener.Open(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer CloseWorkbook(ctx, wb)
	moves, err := l.analyze(ctx, wb)
	if err != nil {
		return nil, err
	}
	transfers := make([]transfer, len(moves))
	for i, m := range moves {
		transfers[i] = transfer{move: m, expect: m.RowData}
	}
	return l.run(ctx, wb, spreadsheetID, models.RecordExecute, transfers)
}

func (l *Logic) run(ctx context.Context, wb Workbook, spreadsheetID string, kind models.RecordKind, transfers []transfer) (*models.ExecutionRecord, error) {
	record := &models.ExecutionRecord{
		ID:            uuid.NewString(),
		SpreadsheetID: spreadsheetID,
		Kind:          kind,
		ExecutedAt:    l.now(),
		FailedNames:   []string{},
		Failures:      []models.MoveFailure{},
		Entries:       []models.RecordEntry{},
	}
	if len(transfers) == 0 {
		return record, nil
	}

	worksheets, err := l.worksheets(ctx, wb)
	if err != nil {
		return nil, fmt.Errorf("list worksheets: %w", err)
	}
	r := &transferRun{
		wb:      wb,
		logger:  logging.WithFields(ctx, "record_id", record.ID, "kind", string(kind)),
		record:  record,
		byTitle: make(map[string]models.WorksheetHandle, len(worksheets)),
		grids:   make(map[string][]models.Row),
	}
	for _, ws := range worksheets {
		r.byTitle[ws.Title] = ws
	}

	ready, err := r.prepare(ctx, transfers)
	if err != nil {
		return nil, err
	}

	committed, deleteErr := r.deleteSources(ctx, ready)
	r.insertDestinations(ctx, committed)

	applied, err := l.renumberWorksheets(ctx, wb, worksheets)
	r.applyToEntries(applied)
	updated := len(applied)
	record.Renumbered = updated
	if err != nil {
		r.logger.Error("renumbering failed", "error", err)
		record.Failures = append(record.Failures, models.MoveFailure{Stage: models.StageRenumber, Error: err.Error()})
	}

	record.MovedCount = len(record.Entries)
	r.logger.Info("moves applied", "moved", record.MovedCount, "failed", len(record.FailedNames), "renumbered", updated)
	if deleteErr != nil {
		return record, fmt.Errorf("%w: delete rows: %w", ErrPartialExecution, deleteErr)
	}
	return record, nil
}

// prepared is a transfer whose source row is confirmed and whose outgoing
// row is already built.
type prepared struct {
	transfer
	source   models.WorksheetHandle
	dest     models.WorksheetHandle
	rowIndex int
	outgoing models.Row
}

func (r *transferRun) grid(ctx context.Context, title string) ([]models.Row, error) {
	if g, ok := r.grids[title]; ok {
		return g, nil
	}
	g, err := r.wb.ReadGrid(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	r.grids[title] = g
	return g, nil
}

func (r *transferRun) fail(name, stage string, row models.Row, err error) {
	r.logger.Error("move failed", "student", name, "stage", stage, "error", err)
	f := models.MoveFailure{StudentName: name, Stage: stage, Error: err.Error()}
	if stage == models.StageInsert {
		f.RowData = row
	}
	r.record.Failures = append(r.record.Failures, f)
	if name != "" {
		r.record.FailedNames = append(r.record.FailedNames, name)
	}
}

// prepare reads every source and destination header before anything is
// mutated, and drops transfers that cannot complete so their source rows are
// never deleted.
func (r *transferRun) prepare(ctx context.Context, transfers []transfer) ([]prepared, error) {
	claimed := make(map[string]map[int]bool)
	var out []prepared
	for _, t := range transfers {
		m := t.move
		src, ok := r.byTitle[m.SourceWorksheet]
		if !ok || src.Excluded {
			r.fail(m.StudentName, models.StageValidate, nil, fmt.Errorf("source worksheet %q not available", m.SourceWorksheet))
			continue
		}
		dst, ok := r.byTitle[m.DestinationWorksheet]
		if !ok || dst.Excluded {
			r.fail(m.StudentName, models.StageValidate, nil, fmt.Errorf("destination worksheet %q not available", m.DestinationWorksheet))
			continue
		}
		if src.Title == dst.Title {
			r.fail(m.StudentName, models.StageValidate, nil, fmt.Errorf("source and destination are both %q", src.Title))
			continue
		}

		srcGrid, err := r.grid(ctx, src.Title)
		if err != nil {
			return nil, err
		}
		dstGrid, err := r.grid(ctx, dst.Title)
		if err != nil {
			return nil, err
		}

		outgoing := t.payload
		if outgoing == nil {
			srcHeader, _, err := headerRow(srcGrid)
			if err != nil {
				r.fail(m.StudentName, models.StageValidate, nil, fmt.Errorf("source %q: %w", src.Title, err))
				continue
			}
			dstHeader, _, err := headerRow(dstGrid)
			if err != nil {
				r.fail(m.StudentName, models.StageValidate, nil, fmt.Errorf("destination %q: %w", dst.Title, err))
				continue
			}
			outgoing = RemapRow(srcHeader, dstHeader, m.RowData)
		}

		if claimed[src.Title] == nil {
			claimed[src.Title] = make(map[int]bool)
		}
		idx, ok := locateRow(srcGrid, m.SourceRowIndex, t.expect, claimed[src.Title])
		if !ok {
			r.fail(m.StudentName, models.StageValidate, nil, fmt.Errorf("row %d of %q no longer matches the proposal", m.SourceRowIndex+1, src.Title))
			continue
		}
		claimed[src.Title][idx] = true

		out = append(out, prepared{transfer: t, source: src, dest: dst, rowIndex: idx, outgoing: outgoing.Clone()})
	}
	return out, nil
}

// locateRow confirms expect still sits at index; when it does not, it looks
// for the one unclaimed row equal to expect.
func locateRow(grid []models.Row, index int, expect models.Row, claimed map[int]bool) (int, bool) {
	if index >= 0 && index < len(grid) && !claimed[index] && grid[index].Equal(expect) {
		return index, true
	}
	found := -1
	for i, row := range grid {
		if claimed[i] || !row.Equal(expect) {
			continue
		}
		if found >= 0 {
			return -1, false
		}
		found = i
	}
	return found, found >= 0
}

// deleteSources removes source rows, each worksheet's rows in descending
// index order. It returns the transfers whose rows were deleted.
func (r *transferRun) deleteSources(ctx context.Context, ready []prepared) ([]prepared, error) {
	if len(ready) == 0 {
		return nil, nil
	}
	order := deletionOrder(ready)
	mutations := make([]models.Mutation, len(order))
	for i, p := range order {
		mutations[i] = models.Mutation{DeleteRows: &models.DeleteRows{
			WorksheetID: p.source.ID,
			StartIndex:  p.rowIndex,
			EndIndex:    p.rowIndex + 1,
		}}
	}

	done, err := mutateInChunks(ctx, r.wb, mutations)
	if err != nil {
		r.logger.Error("deleting source rows failed", "committed", done, "requested", len(mutations), "error", err)
		for _, p := range order[done:] {
			r.fail(p.move.StudentName, models.StageDelete, nil, err)
		}
	}

	deleted := make(map[*prepared]bool, done)
	for _, p := range order[:done] {
		deleted[p] = true
		delete(r.grids, p.source.Title)
	}
	committed := make([]prepared, 0, done)
	for i := range ready {
		if deleted[&ready[i]] {
			committed = append(committed, ready[i])
		}
	}
	return committed, err
}

// deletionOrder groups transfers by source worksheet, in first-seen order,
// and sorts each group bottom-up.
func deletionOrder(ready []prepared) []*prepared {
	var sheets []string
	groups := make(map[string][]*prepared)
	for i := range ready {
		p := &ready[i]
		if _, ok := groups[p.source.Title]; !ok {
			sheets = append(sheets, p.source.Title)
		}
		groups[p.source.Title] = append(groups[p.source.Title], p)
	}
	var out []*prepared
	for _, title := range sheets {
		g := groups[title]
		sort.SliceStable(g, func(a, b int) bool { return g[a].rowIndex > g[b].rowIndex })
		out = append(out, g...)
	}
	return out
}

// insertDestinations writes each deleted row after the last populated row of
// its destination. Destination grids are re-read after deletion.
func (r *transferRun) insertDestinations(ctx context.Context, committed []prepared) {
	nextFree := make(map[string]int)
	for _, p := range committed {
		title := p.dest.Title
		at, ok := nextFree[title]
		if !ok {
			g, err := r.grid(ctx, title)
			if err != nil {
				for _, rest := range committed {
					if rest.dest.Title == title {
						r.fail(rest.move.StudentName, models.StageInsert, rest.outgoing, err)
					}
				}
				nextFree[title] = -1
				continue
			}
			at = lastPopulatedRow(g) + 1
		}
		if at < 0 {
			continue
		}

		landed, err := r.wb.AppendRow(ctx, title, at, p.outgoing)
		if err != nil {
			r.fail(p.move.StudentName, models.StageInsert, p.outgoing, fmt.Errorf("append to %q: %w", title, err))
			nextFree[title] = at
			continue
		}
		nextFree[title] = landed + 1
		delete(r.grids, title)

		m := p.move
		m.SourceWorksheetID = p.source.ID
		m.SourceRowIndex = p.rowIndex
		m.DestinationWorksheetID = p.dest.ID
		r.record.Entries = append(r.record.Entries, models.RecordEntry{
			Move:                m,
			DestinationRowIndex: landed,
			InsertedRow:         p.outgoing,
		})
		r.logger.Info("student moved",
			"student", m.StudentName, "age", m.Age,
			"from", m.SourceWorksheet, "to", title, "row", landed+1)
	}
}

// applyToEntries copies committed cell updates into the recorded inserted
// rows so a later revert finds them as they now read.
func (r *transferRun) applyToEntries(updates []models.Mutation) {
	type cell struct {
		sheet int64
		row   int
	}
	entries := make(map[cell]*models.RecordEntry, len(r.record.Entries))
	for i := range r.record.Entries {
		e := &r.record.Entries[i]
		entries[cell{e.Move.DestinationWorksheetID, e.DestinationRowIndex}] = e
	}
	for _, m := range updates {
		u := m.UpdateCell
		if u == nil {
			continue
		}
		e, ok := entries[cell{u.WorksheetID, u.RowIndex}]
		if !ok {
			continue
		}
		row := e.InsertedRow.Clone()
		for len(row) <= u.ColumnIndex {
			row = append(row, "")
		}
		row[u.ColumnIndex] = u.Value
		e.InsertedRow = row
	}
}

// lastPopulatedRow scans backward for the last row with any content.
func lastPopulatedRow(grid []models.Row) int {
	for i := len(grid) - 1; i >= 0; i-- {
		if !grid[i].IsBlank() {
			return i
		}
	}
	return -1
}
