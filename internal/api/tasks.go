package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"launcherd/internal/fault"
	"launcherd/internal/model"
)

// taskHistoryResponse wraps the paginated history response.
type taskHistoryResponse struct {
	Tasks  []*model.TaskRecord `json:"tasks"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	active := s.registry.GetActiveTasks()
	if active == nil {
		active = []model.TaskInfo{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": active})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if info, ok := s.registry.GetTaskInfo(model.TaskID(id)); ok {
		s.writeJSON(w, http.StatusOK, info)
		return
	}

	// Fall back to history for tasks from before a restart.
	if s.store != nil {
		rec, err := s.store.GetTask(r.Context(), model.TaskID(id))
		if err == nil {
			s.writeJSON(w, http.StatusOK, rec)
			return
		}
		if !errors.Is(err, fault.ErrNotFound) {
			s.logger.Error("get task record", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to get task")
			return
		}
	}

	s.writeError(w, http.StatusNotFound, "task not found")
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotImplemented, "task history is disabled")
		return
	}

	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.store.ListTasks(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list task history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list task history")
		return
	}
	if records == nil {
		records = []*model.TaskRecord{}
	}

	s.writeJSON(w, http.StatusOK, taskHistoryResponse{
		Tasks:  records,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
