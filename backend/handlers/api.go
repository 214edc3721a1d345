package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/config"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
)

// describer is implemented by workbooks that can report their file metadata.
type describer interface {
	Describe(ctx context.Context) (models.SpreadsheetInfo, error)
}

type Handler struct {
	svc    *service.Logic
	opener service.Opener
	auth   config.AuthConfig
}

func NewHandler(svc *service.Logic, opener service.Opener, auth config.AuthConfig) *Handler {
	return &Handler{svc: svc, opener: opener, auth: auth}
}

// GetSpreadsheet reports the spreadsheet's worksheets and the moves it
// currently calls for.
func (h *Handler) GetSpreadsheet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.describe(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	moves, err := h.svc.Analyze(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.SpreadsheetReport{SpreadsheetInfo: info, PotentialMoves: moves})
}

func (h *Handler) describe(ctx context.Context, id string) (models.SpreadsheetInfo, error) {
	wb, err := h.opener.Open(ctx, id)
	if err != nil {
		return models.SpreadsheetInfo{}, err
	}
	defer service.CloseWorkbook(ctx, wb)
	if d, ok := wb.(describer); ok {
		return d.Describe(ctx)
	}
	list, err := wb.ListWorksheets(ctx)
	if err != nil {
		return models.SpreadsheetInfo{}, err
	}
	return models.SpreadsheetInfo{ID: id, Worksheets: list}, nil
}

func (h *Handler) GetMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := h.svc.Analyze(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, moves)
}

// ExecuteMoves applies the moves in the request body, or re-analyzes and
// applies everything when the body lists none.
func (h *Handler) ExecuteMoves(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ExecuteRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBadRequest(w, r, "Invalid request body", err)
			return
		}
	}

	var (
		rec *models.ExecutionRecord
		err error
	)
	if len(req.Moves) == 0 {
		rec, err = h.svc.AnalyzeAndExecute(r.Context(), id)
	} else {
		rec, err = h.svc.Execute(r.Context(), id, req.Moves)
	}
	respondRecord(w, r, rec, err)
}

func (h *Handler) RevertExecution(w http.ResponseWriter, r *http.Request) {
	var rec models.ExecutionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondBadRequest(w, r, "Invalid execution record", err)
		return
	}
	undo, err := h.svc.Revert(r.Context(), &rec)
	respondRecord(w, r, undo, err)
}

// respondRecord writes an execution record. A partial execution still
// returns its record, with 207 so callers notice.
func respondRecord(w http.ResponseWriter, r *http.Request, rec *models.ExecutionRecord, err error) {
	switch {
	case err == nil:
		status := http.StatusOK
		if rec.Partial() {
			status = http.StatusMultiStatus
		}
		respondJSON(w, status, rec)
	case errors.Is(err, service.ErrPartialExecution) && rec != nil:
		logError(r, http.StatusMultiStatus, err)
		respondJSON(w, http.StatusMultiStatus, rec)
	default:
		respondError(w, r, err)
	}
}
