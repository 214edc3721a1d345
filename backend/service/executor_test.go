package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

func youngSeniorWorkbook() *memWorkbook {
	return newMemWorkbook().
		add("Young",
			models.Row{"No", "Name", "DOB", "Notes"},
			models.Row{"1", "Ann", "2014-01-15", "chess"},
			models.Row{"2", "Ben", "2017-03-01"},
			models.Row{"3", "Cat", "2013-05-05"},
		).
		add("Senior",
			models.Row{"Senior register"},
			models.Row{"No", "DOB", "Name"},
			models.Row{"1", "2012-01-01", "Dan"},
		)
}

func TestExecute_MovesAndRenumbers(t *testing.T) {
	wb := youngSeniorWorkbook()
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))
	ctx := context.Background()

	moves, err := l.Analyze(ctx, "sheet")
	require.NoError(t, err)
	require.Len(t, moves, 2)

	rec, err := l.Execute(ctx, "sheet", moves)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.MovedCount)
	assert.Empty(t, rec.FailedNames)
	assert.False(t, rec.Partial())
	assert.Equal(t, models.RecordExecute, rec.Kind)
	assert.NotEmpty(t, rec.ID)

	assert.Equal(t, []models.Row{
		{"No", "Name", "DOB", "Notes"},
		{"1", "Ben", "2017-03-01"},
	}, wb.sheet("Young").grid)

	assert.Equal(t, []models.Row{
		{"Senior register"},
		{"No", "DOB", "Name"},
		{"1", "2012-01-01", "Dan"},
		{"2", "2014-01-15", "Ann"},
		{"3", "2013-05-05", "Cat"},
	}, wb.sheet("Senior").grid)

	require.Len(t, rec.Entries, 2)
	assert.Equal(t, 3, rec.Entries[0].DestinationRowIndex)
	assert.Equal(t, models.Row{"2", "2014-01-15", "Ann"}, rec.Entries[0].InsertedRow, "recorded as renumbered")
	assert.Equal(t, 4, rec.Entries[1].DestinationRowIndex)
	assert.Equal(t, 2, rec.Renumbered, "Ben becomes 1, Ann becomes 2")
}

func TestExecute_DeletesBottomUp(t *testing.T) {
	wb := newMemWorkbook().add("Young", models.Row{"Name", "DOB"}).add("Senior", models.Row{"Name", "DOB"})
	young := wb.sheet("Young")
	for i := 1; i <= 8; i++ {
		young.grid = append(young.grid, models.Row{fmt.Sprintf("S%d", i), "2014-01-15"})
	}
	var moves []models.ProposedMove
	for _, idx := range []int{3, 7, 2} {
		moves = append(moves, models.ProposedMove{
			StudentName:          young.grid[idx][0],
			SourceWorksheet:      "Young",
			SourceRowIndex:       idx,
			DestinationWorksheet: "Senior",
			RowData:              young.grid[idx].Clone(),
		})
	}
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", moves)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.MovedCount)

	var starts []int
	for _, d := range wb.deletes() {
		assert.Equal(t, d.StartIndex+1, d.EndIndex)
		starts = append(starts, d.StartIndex)
	}
	assert.Equal(t, []int{7, 3, 2}, starts)

	var names []string
	for _, r := range young.grid[1:] {
		names = append(names, r[0])
	}
	assert.Equal(t, []string{"S1", "S4", "S5", "S6", "S8"}, names)
	assert.Len(t, wb.sheet("Senior").grid, 4)
}

func TestExecute_DeletionsBeforeInsertions(t *testing.T) {
	wb := youngSeniorWorkbook()
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))
	ctx := context.Background()

	moves, err := l.Analyze(ctx, "sheet")
	require.NoError(t, err)

	_, err = l.Execute(ctx, "sheet", moves)
	require.NoError(t, err)

	require.NotEmpty(t, wb.batches)
	first := wb.batches[0]
	for _, m := range first {
		assert.NotNil(t, m.DeleteRows, "first batch only deletes")
	}
	assert.Len(t, wb.appends, 2)
}

func TestExecute_RespectsBatchLimit(t *testing.T) {
	wb := newMemWorkbook().add("Young", models.Row{"Name", "DOB"}).add("Senior", models.Row{"Name", "DOB"})
	wb.limit = 2
	young := wb.sheet("Young")
	var moves []models.ProposedMove
	for i := 1; i <= 5; i++ {
		row := models.Row{fmt.Sprintf("S%d", i), "2014-01-15"}
		young.grid = append(young.grid, row)
		moves = append(moves, models.ProposedMove{
			StudentName: row[0], SourceWorksheet: "Young", SourceRowIndex: i,
			DestinationWorksheet: "Senior", RowData: row.Clone(),
		})
	}
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", moves)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.MovedCount)
	for _, b := range wb.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
	assert.Len(t, wb.deletes(), 5)
}

func TestExecute_InsertFailureIsReportedNotFatal(t *testing.T) {
	wb := youngSeniorWorkbook().add("Archive", models.Row{"Name", "DOB"})
	wb.failApp["Archive"] = errors.New("protected range")
	young := wb.sheet("Young")
	moves := []models.ProposedMove{
		{StudentName: "Ann", SourceWorksheet: "Young", SourceRowIndex: 1, DestinationWorksheet: "Archive", RowData: young.grid[1].Clone()},
		{StudentName: "Cat", SourceWorksheet: "Young", SourceRowIndex: 3, DestinationWorksheet: "Senior", RowData: young.grid[3].Clone()},
	}
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", moves)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.MovedCount)
	assert.Equal(t, []string{"Ann"}, rec.FailedNames)
	require.Len(t, rec.Failures, 1)
	assert.Equal(t, models.StageInsert, rec.Failures[0].Stage)
	assert.Equal(t, models.Row{"Ann", "2014-01-15"}, rec.Failures[0].RowData)
	assert.True(t, rec.Partial())
}

func TestExecute_InvalidMovesNeverDeleteSource(t *testing.T) {
	wb := youngSeniorWorkbook().add("NoHeader", models.Row{"just", "notes"})
	young := wb.sheet("Young")
	moves := []models.ProposedMove{
		{StudentName: "Ann", SourceWorksheet: "Young", SourceRowIndex: 1, DestinationWorksheet: "NoHeader", RowData: young.grid[1].Clone()},
		{StudentName: "Ghost", SourceWorksheet: "Young", SourceRowIndex: 2, DestinationWorksheet: "Senior", RowData: models.Row{"9", "Ghost", "2012-01-01"}},
		{StudentName: "Lost", SourceWorksheet: "Gone", SourceRowIndex: 1, DestinationWorksheet: "Senior"},
	}
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", moves)
	require.NoError(t, err)

	assert.Zero(t, rec.MovedCount)
	assert.ElementsMatch(t, []string{"Ann", "Ghost", "Lost"}, rec.FailedNames)
	for _, f := range rec.Failures {
		assert.Equal(t, models.StageValidate, f.Stage)
	}
	assert.Empty(t, wb.deletes())
	assert.Len(t, young.grid, 4)
}

func TestExecute_FindsShiftedRow(t *testing.T) {
	wb := youngSeniorWorkbook()
	young := wb.sheet("Young")
	move := models.ProposedMove{StudentName: "Cat", SourceWorksheet: "Young", SourceRowIndex: 3, DestinationWorksheet: "Senior", RowData: young.grid[3].Clone()}
	young.grid = append(young.grid[:1], young.grid[2:]...)
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", []models.ProposedMove{move})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.MovedCount)
	assert.Equal(t, 2, rec.Entries[0].Move.SourceRowIndex)
	assert.Equal(t, 2, wb.deletes()[0].StartIndex)
}

func TestExecute_DeletionBatchFailure(t *testing.T) {
	wb := newMemWorkbook().add("Young", models.Row{"Name", "DOB"}).add("Senior", models.Row{"Name", "DOB"})
	wb.limit = 2
	wb.failBatch = 2
	young := wb.sheet("Young")
	var moves []models.ProposedMove
	for i := 1; i <= 4; i++ {
		row := models.Row{fmt.Sprintf("S%d", i), "2014-01-15"}
		young.grid = append(young.grid, row)
		moves = append(moves, models.ProposedMove{
			StudentName: row[0], SourceWorksheet: "Young", SourceRowIndex: i,
			DestinationWorksheet: "Senior", RowData: row.Clone(),
		})
	}
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", moves)
	require.ErrorIs(t, err, ErrPartialExecution)
	require.NotNil(t, rec)

	assert.Equal(t, 2, rec.MovedCount, "rows deleted in the committed batch are still inserted")
	assert.ElementsMatch(t, []string{"S1", "S2"}, rec.FailedNames)
	for _, f := range rec.Failures {
		assert.Equal(t, models.StageDelete, f.Stage)
	}
	assert.Len(t, young.grid, 3)
	assert.Len(t, wb.sheet("Senior").grid, 3)
}

func TestExecute_NoMoves(t *testing.T) {
	wb := youngSeniorWorkbook()
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.Execute(context.Background(), "sheet", nil)
	require.NoError(t, err)
	assert.Zero(t, rec.MovedCount)
	assert.Empty(t, wb.batches)
}

func TestAnalyzeAndExecute(t *testing.T) {
	wb := youngSeniorWorkbook()
	l := NewLogic(memOpener{wb}, twoBands(), WithClock(fixedClock))

	rec, err := l.AnalyzeAndExecute(context.Background(), "sheet")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.MovedCount)

	again, err := l.Analyze(context.Background(), "sheet")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestLastPopulatedRow(t *testing.T) {
	assert.Equal(t, -1, lastPopulatedRow(nil))
	assert.Equal(t, 1, lastPopulatedRow([]models.Row{{"h"}, {"a"}, {}, {" ", ""}}))
}
