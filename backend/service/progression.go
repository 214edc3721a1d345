package service

import (
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// MatchWorksheets returns every non-excluded worksheet whose title matches
// band, in worksheet order.
func MatchWorksheets(band models.AgeBand, worksheets []models.WorksheetHandle) []models.WorksheetHandle {
	var out []models.WorksheetHandle
	for _, ws := range worksheets {
		if ws.Excluded {
			continue
		}
		if band.Pattern.Match(ws.Title) {
			out = append(out, ws)
		}
	}
	return out
}

// WorksheetForBand resolves band to a worksheet. When several match, the
// first in worksheet order wins.
func WorksheetForBand(band models.AgeBand, worksheets []models.WorksheetHandle) (models.WorksheetHandle, bool) {
	for _, ws := range worksheets {
		if !ws.Excluded && band.Pattern.Match(ws.Title) {
			return ws, true
		}
	}
	return models.WorksheetHandle{}, false
}

// FindDestination picks the band a student of age belongs in, looking only
// at bands after current. It skips bands the student has already outgrown,
// so a student two bands behind lands in the right band directly. It returns
// the worksheet and band index, or false when no later band fits the age or
// the chosen band has no worksheet.
func FindDestination(age, current int, bands []models.AgeBand, worksheets []models.WorksheetHandle) (models.WorksheetHandle, int, bool) {
	next := current + 1
	for next < len(bands) && age > bands[next].MaxAge {
		next++
	}
	if next >= len(bands) {
		return models.WorksheetHandle{}, -1, false
	}
	ws, ok := WorksheetForBand(bands[next], worksheets)
	if !ok {
		return models.WorksheetHandle{}, -1, false
	}
	return ws, next, true
}
