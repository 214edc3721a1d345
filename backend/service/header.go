package service

import (
	"strings"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

const dobLabel = "DOB"

func isDOBLabel(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), dobLabel)
}

// ResolveHeader finds the first row holding a DOB cell, scanning top-down.
// The name column is the first header containing "name" but not "user";
// column 0 when there is none.
func ResolveHeader(grid []models.Row) (models.HeaderInfo, error) {
	for i, row := range grid {
		dob := -1
		for c, cell := range row {
			if isDOBLabel(cell) {
				dob = c
				break
			}
		}
		if dob < 0 {
			continue
		}
		name := 0
		for c, cell := range row {
			lc := strings.ToLower(cell)
			if strings.Contains(lc, "name") && !strings.Contains(lc, "user") {
				name = c
				break
			}
		}
		return models.HeaderInfo{RowIndex: i, DOBColumnIndex: dob, NameColumnIndex: name}, nil
	}
	return models.HeaderInfo{}, ErrNoHeaderFound
}

// headerRow returns the header cells of grid, or ErrNoHeaderFound.
func headerRow(grid []models.Row) (models.Row, models.HeaderInfo, error) {
	info, err := ResolveHeader(grid)
	if err != nil {
		return nil, info, err
	}
	return grid[info.RowIndex], info, nil
}

// RemapRow lays row (shaped by src) out in dst's column order, matching
// headers by trimmed, case-insensitive name. Destination columns with no
// source counterpart come out empty; source-only columns are dropped.
func RemapRow(src, dst, row models.Row) models.Row {
	index := make(map[string]int, len(src))
	for i, h := range src {
		key := headerKey(h)
		if key == "" {
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	out := make(models.Row, len(dst))
	for i, h := range dst {
		if j, ok := index[headerKey(h)]; ok {
			out[i] = row.Cell(j)
		}
	}
	return out
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
