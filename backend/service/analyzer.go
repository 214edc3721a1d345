package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// Analyze proposes moves for every student who has outgrown the band of the
// worksheet they sit in. It only reads.
func (l *Logic) Analyze(ctx context.Context, spreadsheetID string) ([]models.ProposedMove, error) {
	wb, err := l.opener.Open(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer CloseWorkbook(ctx, wb)
	return l.analyze(ctx, wb)
}

func (l *Logic) analyze(ctx context.Context, wb Workbook) ([]models.ProposedMove, error) {
	logger := logging.FromContext(ctx)

	worksheets, err := l.worksheets(ctx, wb)
	if err != nil {
		return nil, fmt.Errorf("list worksheets: %w", err)
	}

	today := l.now()
	moves := []models.ProposedMove{}
	bands := l.progression.Bands
	for i, band := range bands {
		matches := MatchWorksheets(band, worksheets)
		if len(matches) == 0 {
			logger.Debug("no worksheet for band", "band", band.Name, "pattern", band.Pattern.String())
			continue
		}
		if len(matches) > 1 {
			titles := make([]string, len(matches))
			for j, m := range matches {
				titles[j] = m.Title
			}
			logger.Warn("several worksheets match band, using the first",
				"band", band.Name, "worksheets", strings.Join(titles, ", "))
		}

		found, err := l.analyzeWorksheet(ctx, wb, matches[0], i, worksheets, today)
		if err != nil {
			return nil, err
		}
		moves = append(moves, found...)
	}
	return moves, nil
}

func (l *Logic) analyzeWorksheet(ctx context.Context, wb Workbook, ws models.WorksheetHandle, bandIndex int, worksheets []models.WorksheetHandle, today time.Time) ([]models.ProposedMove, error) {
	logger := logging.WithFields(ctx, "worksheet", ws.Title)
	band := l.progression.Bands[bandIndex]

	grid, err := wb.ReadGrid(ctx, ws.Title)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", ws.Title, err)
	}
	header, err := ResolveHeader(grid)
	if err != nil {
		logger.Info("skipping worksheet", "reason", err)
		return nil, nil
	}

	var moves []models.ProposedMove
	for r := header.RowIndex + 1; r < len(grid); r++ {
		row := grid[r]
		raw := strings.TrimSpace(row.Cell(header.DOBColumnIndex))
		if raw == "" {
			continue
		}
		age, err := AgeFromCell(raw, today)
		if err != nil {
			logger.Warn("could not parse date", "row", r+1, "value", raw)
			continue
		}
		if age <= band.MaxAge {
			continue
		}

		dest, _, ok := FindDestination(age, bandIndex, l.progression.Bands, worksheets)
		if !ok {
			logger.Debug("student has no destination band", "row", r+1, "age", age, "reason", ErrNoDestination)
			continue
		}
		if dest.ID == ws.ID && dest.Title == ws.Title {
			continue
		}

		moves = append(moves, models.ProposedMove{
			StudentName:            studentName(row, header, r),
			Age:                    age,
			SourceWorksheet:        ws.Title,
			SourceWorksheetID:      ws.ID,
			SourceRowIndex:         r,
			DestinationWorksheet:   dest.Title,
			DestinationWorksheetID: dest.ID,
			RowData:                row.Clone(),
		})
	}
	logger.Debug("worksheet analyzed", "band", band.Name, "rows", len(grid), "moves", len(moves))
	return moves, nil
}

func studentName(row models.Row, header models.HeaderInfo, r int) string {
	if name := strings.TrimSpace(row.Cell(header.NameColumnIndex)); name != "" {
		return name
	}
	return fmt.Sprintf("Student in row %d", r+1)
}
