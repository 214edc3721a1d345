package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

const sequenceColumn = 0

// RenumberMutations returns the cell updates that make column 0 of grid read
// 1..N down the data rows. Worksheets whose first column is the name or DOB
// column have no sequence column and get none. Rows with nothing outside
// column 0 are not counted, and cells already correct are left alone.
func RenumberMutations(ws models.WorksheetHandle, grid []models.Row) []models.Mutation {
	header, err := ResolveHeader(grid)
	if err != nil {
		return nil
	}
	if header.NameColumnIndex == sequenceColumn || header.DOBColumnIndex == sequenceColumn {
		return nil
	}

	var out []models.Mutation
	n := 0
	for r := header.RowIndex + 1; r < len(grid); r++ {
		row := grid[r]
		if len(row) <= sequenceColumn+1 || row[sequenceColumn+1:].IsBlank() {
			continue
		}
		n++
		want := strconv.Itoa(n)
		if strings.TrimSpace(row.Cell(sequenceColumn)) == want {
			continue
		}
		out = append(out, models.Mutation{UpdateCell: &models.UpdateCell{
			WorksheetID: ws.ID,
			RowIndex:    r,
			ColumnIndex: sequenceColumn,
			Value:       want,
		}})
	}
	return out
}

// Renumber rewrites the sequence column of every non-excluded worksheet and
// returns the number of cells changed.
func (l *Logic) Renumber(ctx context.Context, spreadsheetID string) (int, error) {
	wb, err := l.opener.Open(ctx, spreadsheetID)
	if err != nil {
		return 0, err
	}
	defer CloseWorkbook(ctx, wb)
	worksheets, err := l.worksheets(ctx, wb)
	if err != nil {
		return 0, fmt.Errorf("list worksheets: %w", err)
	}
	applied, err := l.renumberWorksheets(ctx, wb, worksheets)
	return len(applied), err
}

// renumberWorksheets returns the updates that were committed.
func (l *Logic) renumberWorksheets(ctx context.Context, wb Workbook, worksheets []models.WorksheetHandle) ([]models.Mutation, error) {
	logger := logging.FromContext(ctx)

	var mutations []models.Mutation
	for _, ws := range worksheets {
		if ws.Excluded {
			continue
		}
		grid, err := wb.ReadGrid(ctx, ws.Title)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", ws.Title, err)
		}
		updates := RenumberMutations(ws, grid)
		if len(updates) > 0 {
			logger.Debug("renumbering worksheet", "worksheet", ws.Title, "cells", len(updates))
		}
		mutations = append(mutations, updates...)
	}

	done, err := mutateInChunks(ctx, wb, mutations)
	if err != nil {
		return mutations[:done], fmt.Errorf("update sequence numbers: %w", err)
	}
	return mutations, nil
}
