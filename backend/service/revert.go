package service

import (
	"context"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// Revert undoes the moves listed in record: each inserted row is deleted
// from its destination and the original row is written back to the end of
// its source worksheet. The returned record is itself revertible.
func (l *Logic) Revert(ctx context.Context, record *models.ExecutionRecord) (*models.ExecutionRecord, error) {
	if record == nil || len(record.Entries) == 0 {
		return nil, ErrEmptyRecord
	}
	wb, err := l.opener.Open(ctx, record.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	defer CloseWorkbook(ctx, wb)
	return l.run(ctx, wb, record.SpreadsheetID, models.RecordRevert, inverse(record.Entries))
}

func inverse(entries []models.RecordEntry) []transfer {
	out := make([]transfer, len(entries))
	for i, e := range entries {
		m := e.Move
		payload := m.RowData.Clone()
		if payload == nil {
			payload = models.Row{}
		}
		out[i] = transfer{
			move: models.ProposedMove{
				StudentName:            m.StudentName,
				Age:                    m.Age,
				SourceWorksheet:        m.DestinationWorksheet,
				SourceWorksheetID:      m.DestinationWorksheetID,
				SourceRowIndex:         e.DestinationRowIndex,
				DestinationWorksheet:   m.SourceWorksheet,
				DestinationWorksheetID: m.SourceWorksheetID,
				RowData:                e.InsertedRow,
			},
			expect:  e.InsertedRow,
			payload: payload,
		}
	}
	return out
}
