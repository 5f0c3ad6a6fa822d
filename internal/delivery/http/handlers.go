package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/internal/middleware"
	"github.com/journal-portal/backend/internal/report"
	"github.com/journal-portal/backend/internal/usecase"
)

// Importer starts journal imports in the background.
type Importer interface {
	Journal(ctx context.Context, journalID uuid.UUID) (*domain.Journal, error)
	StartImport(ctx context.Context, journalID uuid.UUID, reporter usecase.ProgressReporter) <-chan singleflight.Result
}

type Exporter interface {
	PushSubmission(ctx context.Context, submissionID uuid.UUID) (*usecase.ExportResult, error)
	Mappings(ctx context.Context, journalID uuid.UUID) (*domain.Journal, []*domain.SyncMapping, error)
}

type Handler struct {
	authUsecase *usecase.AuthUsecase
	importer    Importer
	exporter    Exporter
	progress    *usecase.ProgressCache
	logger      *slog.Logger
}

func NewHandler(auth *usecase.AuthUsecase, importer Importer, exporter Exporter, progress *usecase.ProgressCache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		authUsecase: auth,
		importer:    importer,
		exporter:    exporter,
		progress:    progress,
		logger:      logger.With("component", "http"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeSyncError maps usecase sentinels to status codes. Anything else is
// logged and reported as a 502 since it almost always came from OJS.
func (h *Handler) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrJournalNotFound):
		writeError(w, http.StatusNotFound, "Journal not found")
	case errors.Is(err, usecase.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, "Submission not found")
	case errors.Is(err, usecase.ErrJournalNotConfigured):
		writeError(w, http.StatusBadRequest, "OJS is not configured for this journal")
	default:
		h.logger.Error("sync request failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authUsecase.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// OJS sync handlers

type importStartedResponse struct {
	JournalID uuid.UUID             `json:"journal_id"`
	Progress  usecase.ProgressState `json:"progress"`
}

// StartImport kicks off an import that outlives the request. A second call
// while one is running joins it instead of starting another.
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathUUID(r, "journalId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid journal ID")
		return
	}

	if _, err := h.importer.Journal(r.Context(), journalID); err != nil {
		h.writeSyncError(w, err)
		return
	}

	state, running := h.progress.Get(journalID)
	if !running || state.Done() {
		state = usecase.ProgressState{JournalID: journalID, Stage: usecase.StageFetching, Message: "Import queued"}
		h.progress.Report(state)
	}

	ch := h.importer.StartImport(context.WithoutCancel(r.Context()), journalID, h.progress)
	go func() {
		res := <-ch
		if res.Err != nil {
			h.logger.Error("import failed", "journal", journalID, "err", res.Err)
			return
		}
		if summary, ok := res.Val.(*usecase.ImportSummary); ok {
			h.logger.Info("import finished", "journal", journalID,
				"imported", summary.Imported, "updated", summary.Updated,
				"skipped", summary.Skipped, "errors", summary.Errors, "shared", res.Shared)
		}
	}()

	writeJSON(w, http.StatusAccepted, importStartedResponse{JournalID: journalID, Progress: state})
}

func (h *Handler) GetImportProgress(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathUUID(r, "journalId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid journal ID")
		return
	}

	state, found := h.progress.Get(journalID)
	if !found {
		writeError(w, http.StatusNotFound, "No import has run recently for this journal")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) PushSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := pathUUID(r, "submissionId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid submission ID")
		return
	}

	res, err := h.exporter.PushSubmission(r.Context(), submissionID)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type mappingsResponse struct {
	JournalID uuid.UUID             `json:"journal_id"`
	Mappings  []*domain.SyncMapping `json:"mappings"`
	Total     int                   `json:"total"`
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathUUID(r, "journalId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid journal ID")
		return
	}

	_, mappings, err := h.exporter.Mappings(r.Context(), journalID)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}
	if mappings == nil {
		mappings = []*domain.SyncMapping{}
	}
	writeJSON(w, http.StatusOK, mappingsResponse{JournalID: journalID, Mappings: mappings, Total: len(mappings)})
}

func (h *Handler) ExportMappings(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathUUID(r, "journalId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid journal ID")
		return
	}

	journal, mappings, err := h.exporter.Mappings(r.Context(), journalID)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ojs-mappings-%s.xlsx"`, journalID))
	if err := report.WriteMappings(w, journal, mappings); err != nil {
		h.logger.Error("write mappings report", "journal", journalID, "err", err)
	}
}
