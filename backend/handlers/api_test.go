package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/config"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/sheets"
)

var testAuth = config.AuthConfig{
	AdminUser: "admin",
	AdminPass: "secret",
	JWTSecret: "signing-key",
	TokenTTL:  time.Hour,
}

// stubOpener fails with err, or opens the local workbook at path.
type stubOpener struct {
	path string
	err  error
}

func (o stubOpener) Open(ctx context.Context, id string) (service.Workbook, error) {
	if o.err != nil {
		return nil, o.err
	}
	return sheets.OpenXLSX(o.path)
}

func studentsFile(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Young"))
	_, err := f.NewSheet("Senior")
	require.NoError(t, err)

	rows := map[string][][]interface{}{
		"Young":  {{"No", "Name", "DOB"}, {"1", "Ann", "2014-01-15"}, {"2", "Ben", "2017-03-01"}},
		"Senior": {{"No", "Name", "DOB"}},
	}
	for title, grid := range rows {
		for i, row := range grid {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			row := row
			require.NoError(t, f.SetSheetRow(title, cell, &row))
		}
	}
	path := filepath.Join(t.TempDir(), "students.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func testProgression() models.Progression {
	return models.Progression{
		Bands: []models.AgeBand{
			{Name: "Young", Pattern: models.MustMatcher(`^young`), MinAge: 6, MaxAge: 8},
			{Name: "Senior", Pattern: models.MustMatcher(`^senior`), MinAge: 9, MaxAge: 11},
		},
	}
}

func newTestRouter(opener service.Opener) http.Handler {
	clock := func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }
	svc := service.NewLogic(opener, testProgression(), service.WithClock(clock))
	return NewHandler(svc, opener, testAuth).Router()
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: "secret"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func do(t *testing.T, router http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetSpreadsheet(t *testing.T) {
	router := newTestRouter(stubOpener{path: studentsFile(t)})
	token := login(t, router)

	rec := do(t, router, token, http.MethodGet, "/api/spreadsheets/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.SpreadsheetReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Len(t, report.Worksheets, 2)
	require.Len(t, report.PotentialMoves, 1)
	assert.Equal(t, "Ann", report.PotentialMoves[0].StudentName)
	assert.Equal(t, "Senior", report.PotentialMoves[0].DestinationWorksheet)
}

func TestExecuteThenRevert(t *testing.T) {
	router := newTestRouter(stubOpener{path: studentsFile(t)})
	token := login(t, router)

	rec := do(t, router, token, http.MethodGet, "/api/spreadsheets/abc/moves", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var moves []models.ProposedMove
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&moves))
	require.Len(t, moves, 1)

	rec = do(t, router, token, http.MethodPost, "/api/spreadsheets/abc/moves/execute", models.ExecuteRequest{Moves: moves})
	require.Equal(t, http.StatusOK, rec.Code)
	var executed models.ExecutionRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&executed))
	assert.Equal(t, 1, executed.MovedCount)

	rec = do(t, router, token, http.MethodGet, "/api/spreadsheets/abc/moves", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, router, token, http.MethodPost, "/api/executions/revert", executed)
	require.Equal(t, http.StatusOK, rec.Code)
	var reverted models.ExecutionRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reverted))
	assert.Equal(t, models.RecordRevert, reverted.Kind)
	assert.Equal(t, 1, reverted.MovedCount)
}

func TestExecute_EmptyBodyReanalyzes(t *testing.T) {
	router := newTestRouter(stubOpener{path: studentsFile(t)})
	token := login(t, router)

	rec := do(t, router, token, http.MethodPost, "/api/spreadsheets/abc/moves/execute", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var executed models.ExecutionRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&executed))
	assert.Equal(t, 1, executed.MovedCount)
}

func TestRevert_EmptyRecord(t *testing.T) {
	router := newTestRouter(stubOpener{path: studentsFile(t)})
	token := login(t, router)

	rec := do(t, router, token, http.MethodPost, "/api/executions/revert", models.ExecutionRecord{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_record")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"excel", sheets.ErrNotNativeSpreadsheet, http.StatusUnprocessableEntity, "excel_file"},
		{"forbidden", &sheets.RemoteAccessError{Op: "open", Code: 403, Message: "permission denied", Err: errors.New("x")}, http.StatusForbidden, "permission_denied"},
		{"not found", &sheets.RemoteAccessError{Op: "open", Code: 404, Message: "file not found", Err: errors.New("x")}, http.StatusNotFound, "not_found"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(stubOpener{err: tt.err})
			token := login(t, router)

			rec := do(t, router, token, http.MethodGet, "/api/spreadsheets/abc", nil)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestRespondRecord_Partial(t *testing.T) {
	rec := &models.ExecutionRecord{MovedCount: 1, FailedNames: []string{"Ann"}}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/spreadsheets/x/moves/execute", nil)

	respondRecord(w, r, rec, errors.Join(service.ErrPartialExecution, errors.New("quota")))
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Contains(t, w.Body.String(), `"movedCount":1`)
}
