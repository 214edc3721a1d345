package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

// MaxBatchRequests is the most requests sent in a single batch update.
const MaxBatchRequests = 100

// quoteTitle quotes a worksheet title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// a1Row is the A1 anchor of the first cell of row index r (0-based).
func a1Row(title string, r int) string {
	return fmt.Sprintf("%s!A%d", quoteTitle(title), r+1)
}

var updatedRangeRow = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowFromRange extracts the 0-based row index from a range such as
// "'Senior'!A12:F12".
func rowFromRange(rng string) (int, error) {
	m := updatedRangeRow.FindStringSubmatch(rng)
	if m == nil {
		return 0, fmt.Errorf("no row in range %q", rng)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// toRows converts API values into string rows.
func toRows(values [][]interface{}) []models.Row {
	rows := make([]models.Row, len(values))
	for i, vs := range values {
		row := make(models.Row, len(vs))
		for j, v := range vs {
			if v != nil {
				row[j] = fmt.Sprintf("%v", v)
			}
		}
		rows[i] = row
	}
	return rows
}

// cellValue returns v as an int when it is a plain integer, so sequence
// numbers stay numeric; anything else is written as text.
func cellValue(v string) interface{} {
	s := strings.TrimSpace(v)
	if s == "0" || (s != "" && s[0] != '0') {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return v
}

func toInterfaces(row models.Row) []interface{} {
	out := make([]interface{}, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}
