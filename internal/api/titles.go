package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"launcherd/internal/fault"
	"launcherd/internal/model"
)

const (
	defaultListLimit  = 20
	maxListLimit      = 100
	defaultEventLimit = 50
)

// titleResponse merges a catalog record with the title's last-known state.
type titleResponse struct {
	model.TitleRecord
	State    string `json:"state"`
	Progress *int   `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`
}

// operationResponse acknowledges a started or cancelled operation.
type operationResponse struct {
	TaskID    model.TaskID `json:"task_id"`
	TitleID   string       `json:"title_id"`
	Operation string       `json:"operation"`
}

func (s *Server) titleResponse(rec model.TitleRecord) titleResponse {
	resp := titleResponse{TitleRecord: rec, State: model.StateUnknown}
	if u, ok := s.hub.State(rec.ID); ok {
		resp.State = u.State
		resp.Progress = u.Progress
		resp.Message = u.Message
	}
	return resp
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	records := s.catalog.Titles()
	titles := make([]titleResponse, len(records))
	for i, rec := range records {
		titles[i] = s.titleResponse(rec)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

func (s *Server) handleGetTitle(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "title not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.titleResponse(rec))
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, chi.URLParam(r, "id"), model.OpInstall, s.manager.InstallTitle)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, chi.URLParam(r, "id"), model.OpUpdate, s.manager.UpdateTitle)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, chi.URLParam(r, "id"), model.OpVerify, s.manager.VerifyTitle)
}

func (s *Server) startOperation(w http.ResponseWriter, titleID, operation string, start func(string) (model.TaskID, error)) {
	id, err := start(titleID)
	if err != nil {
		s.writeFault(w, err, "start "+operation)
		return
	}
	s.writeJSON(w, http.StatusAccepted, operationResponse{TaskID: id, TitleID: titleID, Operation: operation})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	titleID := chi.URLParam(r, "id")
	id, err := s.manager.CancelOperation(titleID)
	if err != nil {
		s.writeFault(w, err, "cancel operation")
		return
	}
	s.writeJSON(w, http.StatusOK, operationResponse{TaskID: id, TitleID: titleID, Operation: "cancel"})
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	titleID := chi.URLParam(r, "id")
	if err := s.manager.LaunchTitle(r.Context(), titleID); err != nil {
		s.writeFault(w, err, "launch title")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"title_id": titleID, "state": model.StateRunning})
}

func (s *Server) handleUninstall(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.UninstallTitle(chi.URLParam(r, "id")); err != nil {
		s.writeFault(w, err, "uninstall title")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTitleEvents(w http.ResponseWriter, r *http.Request) {
	titleID := chi.URLParam(r, "id")
	if _, ok := s.catalog.Get(titleID); !ok {
		s.writeError(w, http.StatusNotFound, "title not found")
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusNotImplemented, "event history is disabled")
		return
	}

	limit := parseIntQuery(r, "limit", defaultEventLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultEventLimit
	}

	events, err := s.store.ListStatusEvents(r.Context(), titleID, limit)
	if err != nil {
		s.logger.Error("list status events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.StatusUpdate{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"title_id": titleID, "events": events})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeFault maps a domain error onto its HTTP status. Internal errors are
// logged; client errors carry the error text through.
func (s *Server) writeFault(w http.ResponseWriter, err error, logMsg string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		s.logger.Error(logMsg, "error", err)
	}
	s.writeError(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fault.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, fault.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, fault.ErrFailedPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, fault.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, fault.ErrUnimplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
