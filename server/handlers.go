package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ChugThaJug/hellfast/core"
	"github.com/ChugThaJug/hellfast/processors"
	"github.com/ChugThaJug/hellfast/storage"
)

// Handlers exposes the processing pipeline over HTTP. Transcript acquisition,
// auth and quotas live in front of this service; requests arrive with the
// transcript already attached.
type Handlers struct {
	store  storage.JobStore
	runner *processors.Runner
}

func NewHandlers(store storage.JobStore, runner *processors.Runner) *Handlers {
	return &Handlers{store: store, runner: runner}
}

// Register wires all routes onto the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/process", h.ProcessHandler)
	mux.HandleFunc("/job-status", h.JobStatusHandler)
	mux.HandleFunc("/job-result", h.JobResultHandler)
	mux.HandleFunc("/cancel", h.CancelHandler)
	mux.HandleFunc("/health", h.HealthHandler)
}

type ProcessRequest struct {
	VideoID  string                   `json:"video_id"`
	Title    string                   `json:"title"`
	Segments []core.TranscriptSegment `json:"segments"`
	Style    string                   `json:"output_style"`
	Mode     string                   `json:"mode"`
}

type ProcessResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (h *Handlers) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Segments) == 0 {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "segments are required"})
		return
	}

	style := core.StyleStepByStep
	if req.Style != "" {
		parsed, ok := core.ParseOutputStyle(req.Style)
		if !ok {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown output_style: " + req.Style})
			return
		}
		style = parsed
	}

	mode := core.ModeDetailed
	if req.Mode != "" {
		parsed, ok := core.ParseProcessingMode(req.Mode)
		if !ok {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode: " + req.Mode})
			return
		}
		mode = parsed
	}

	ctx := r.Context()

	if req.VideoID != "" {
		video := &core.Video{ID: req.VideoID, Title: req.Title, Status: "pending"}
		if err := h.store.UpsertVideo(ctx, video); err != nil {
			core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	job := &core.Job{
		ID:        "job_" + uuid.NewString(),
		VideoID:   req.VideoID,
		Status:    core.JobPending,
		Mode:      mode,
		Style:     style,
		Segments:  req.Segments,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateJob(ctx, job); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.runner.Submit(job.ID)

	core.WriteJSON(w, http.StatusAccepted, ProcessResponse{JobID: job.ID, Status: string(core.JobPending)})
}

type JobStatusResponse struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

func (h *Handlers) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	core.WriteJSON(w, http.StatusOK, JobStatusResponse{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Error:    job.Error,
	})
}

type JobResultResponse struct {
	JobID  string                 `json:"job_id"`
	Result *core.ProcessingResult `json:"result"`
	Usage  core.UsageTally        `json:"usage"`
}

func (h *Handlers) JobResultHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	if job.Status != core.JobCompleted {
		core.WriteJSON(w, http.StatusConflict, map[string]string{
			"error":  "job has not completed",
			"status": string(job.Status),
		})
		return
	}
	core.WriteJSON(w, http.StatusOK, JobResultResponse{JobID: job.ID, Result: job.Result, Usage: job.Usage})
}

type CancelRequest struct {
	JobID string `json:"job_id"`
}

func (h *Handlers) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "job_id is required"})
		return
	}
	if err := h.store.RequestCancel(r.Context(), req.JobID); err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{"job_id": req.JobID, "status": "cancel_requested"})
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) lookupJob(w http.ResponseWriter, r *http.Request) (*core.Job, bool) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "job_id is required"})
		return nil, false
	}
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return nil, false
		}
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return job, true
}
