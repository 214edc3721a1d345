package models

// Mutation is one entry of a batch update. Exactly one field is set.
type Mutation struct {
	DeleteRows *DeleteRows `json:"deleteRows,omitempty"`
	UpdateCell *UpdateCell `json:"updateCell,omitempty"`
}

// DeleteRows removes rows [StartIndex, EndIndex) from a worksheet.
type DeleteRows struct {
	WorksheetID int64 `json:"worksheetId"`
	StartIndex  int   `json:"startIndex"`
	EndIndex    int   `json:"endIndex"`
}

// UpdateCell overwrites a single cell. Integer-looking values are written as numbers.
type UpdateCell struct {
	WorksheetID int64  `json:"worksheetId"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Value       string `json:"value"`
}
