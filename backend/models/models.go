package models

import (
	"strings"
	"time"
)

// Row is one worksheet row. A missing trailing cell reads as "".
type Row []string

// Cell returns the value at index i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// IsBlank reports whether every cell is empty after trimming.
func (r Row) IsBlank() bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Equal compares two rows cell by cell, treating missing cells as "" and
// ignoring surrounding whitespace.
func (r Row) Equal(o Row) bool {
	n := max(len(r), len(o))
	for i := 0; i < n; i++ {
		if strings.TrimSpace(r.Cell(i)) != strings.TrimSpace(o.Cell(i)) {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share storage with r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// WorksheetHandle identifies a worksheet (tab) inside a spreadsheet.
type WorksheetHandle struct {
	Title    string `json:"title"`
	ID       int64  `json:"id"`
	Excluded bool   `json:"excluded"`
}

// HeaderInfo locates the header row and the columns the mover relies on.
type HeaderInfo struct {
	RowIndex        int `json:"rowIndex"`
	DOBColumnIndex  int `json:"dobColumnIndex"`
	NameColumnIndex int `json:"nameColumnIndex"`
}

// ProposedMove is a student row that should move to an older band's worksheet.
// SourceRowIndex is 0-based into the full grid, header included.
type ProposedMove struct {
	StudentName            string `json:"studentName"`
	Age                    int    `json:"age"`
	SourceWorksheet        string `json:"sourceWorksheet"`
	SourceWorksheetID      int64  `json:"sourceWorksheetId"`
	SourceRowIndex         int    `json:"sourceRowIndex"`
	DestinationWorksheet   string `json:"destinationWorksheet"`
	DestinationWorksheetID int64  `json:"destinationWorksheetId"`
	RowData                Row    `json:"rowData"`
}

// SpreadsheetInfo describes a spreadsheet before any analysis runs.
type SpreadsheetInfo struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	MimeType   string            `json:"mimeType"`
	Worksheets []WorksheetHandle `json:"worksheets"`
}

// SpreadsheetReport is the payload returned when a spreadsheet is first opened.
type SpreadsheetReport struct {
	SpreadsheetInfo
	PotentialMoves []ProposedMove `json:"potentialMoves"`
}

// ExecuteRequest is the body for executing moves. An empty Moves list means
// the server re-analyzes and executes whatever it finds.
type ExecuteRequest struct {
	Moves []ProposedMove `json:"moves"`
}

// RecordKind tells an execution apart from the revert of one.
type RecordKind string

const (
	RecordExecute RecordKind = "execute"
	RecordRevert  RecordKind = "revert"
)

// Failure stages.
const (
	StageValidate = "validate"
	StageDelete   = "delete"
	StageInsert   = "insert"
	StageRenumber = "renumber"
)

// MoveFailure is one move that could not be completed.
type MoveFailure struct {
	StudentName string `json:"studentName"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
	// RowData is set when the source row was already deleted, so the data
	// can be restored by hand.
	RowData Row `json:"rowData,omitempty"`
}

// RecordEntry is one completed move, with where its row landed.
type RecordEntry struct {
	Move                ProposedMove `json:"move"`
	DestinationRowIndex int          `json:"destinationRowIndex"`
	InsertedRow         Row          `json:"insertedRow"`
}

// ExecutionRecord is returned by Execute and Revert. The caller owns it; passing
// an execute record back to Revert undoes the moves it lists.
type ExecutionRecord struct {
	ID            string        `json:"id"`
	SpreadsheetID string        `json:"spreadsheetId"`
	Kind          RecordKind    `json:"kind"`
	ExecutedAt    time.Time     `json:"executedAt"`
	MovedCount    int           `json:"movedCount"`
	FailedNames   []string      `json:"failedNames"`
	Failures      []MoveFailure `json:"failures"`
	Entries       []RecordEntry `json:"entries"`
	Renumbered    int           `json:"renumbered"`
}

// Partial reports whether any move failed.
func (r *ExecutionRecord) Partial() bool {
	return len(r.Failures) > 0
}
