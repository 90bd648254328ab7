package handlers

import (
	"encoding/json"
	"net/http"

	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/metadata"
	"onfleet-workers-go/internal/service/worker"
)

// WorkerHandler serves the workers collection.
type WorkerHandler struct {
	logger logx.Logger
	uc     workerUsecase
}

// NewWorkerHandler wires a workerUsecase into HTTP handlers.
func NewWorkerHandler(logger logx.Logger, uc workerUsecase) *WorkerHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &WorkerHandler{logger: logger, uc: uc}
}

type insertTaskRequest struct {
	Tasks []string `json:"tasks"`
}

type locationResponse struct {
	Workers []domain.Worker `json:"workers"`
}

type scheduleResponse struct {
	Entries []domain.WorkerSchedule `json:"entries"`
}

// Create handles POST /workers.
func (h *WorkerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWorker
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	created, err := h.uc.Create(r.Context(), req)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, created)
}

// List handles GET /workers with optional filter, phones, states and teams.
func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := domain.ParseWorkerQuery(r.URL.Query())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	list, err := h.uc.List(r.Context(), q)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if len(q.Filter) == 0 {
		writeJSON(h.logger, w, r, http.StatusOK, list)
		return
	}
	out := make([]map[string]json.RawMessage, 0, len(list))
	for _, wk := range list {
		p, err := worker.Project(wk, q.Filter)
		if err != nil {
			writeError(h.logger, w, r, err)
			return
		}
		out = append(out, p)
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}

// Get handles GET /workers/{id}. Only the filter parameter applies to a single worker.
func (h *WorkerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	q, err := domain.ParseWorkerQuery(r.URL.Query())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	wk, err := h.uc.Get(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if len(q.Filter) == 0 {
		writeJSON(h.logger, w, r, http.StatusOK, wk)
		return
	}
	p, err := worker.Project(*wk, q.Filter)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, p)
}

// GetByLocation handles GET /workers/location.
func (h *WorkerHandler) GetByLocation(w http.ResponseWriter, r *http.Request) {
	q, err := domain.ParseLocationQuery(r.URL.Query())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	list, err := h.uc.GetByLocation(r.Context(), q)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, locationResponse{Workers: list})
}

// Update handles PUT /workers/{id}.
func (h *WorkerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req domain.PartialWorkerUpdate
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	updated, err := h.uc.Update(r.Context(), id, req)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, updated)
}

// Delete handles DELETE /workers/{id}.
func (h *WorkerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if err := h.uc.Delete(r.Context(), id); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetSchedule handles GET /workers/{id}/schedule.
func (h *WorkerHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	entries, err := h.uc.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, scheduleResponse{Entries: entries})
}

// SetSchedule handles POST /workers/{id}/schedule.
func (h *WorkerHandler) SetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req domain.WorkerSchedule
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	entries, err := h.uc.SetSchedule(r.Context(), id, req)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, scheduleResponse{Entries: entries})
}

// InsertTask handles PUT /containers/workers/{id}.
func (h *WorkerHandler) InsertTask(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req insertTaskRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	updated, err := h.uc.InsertTask(r.Context(), id, req.Tasks)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, updated)
}

// MatchMetadata handles POST /workers/metadata.
func (h *WorkerHandler) MatchMetadata(w http.ResponseWriter, r *http.Request) {
	var f metadata.Filter
	if !decodeJSON(h.logger, w, r, &f) {
		return
	}
	list, err := h.uc.MatchMetadata(r.Context(), f)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, list)
}

// ReportTelemetry handles POST /sandbox/workers/{id}/telemetry.
func (h *WorkerHandler) ReportTelemetry(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req domain.Telemetry
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	updated, err := h.uc.ReportTelemetry(r.Context(), id, req)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, updated)
}
