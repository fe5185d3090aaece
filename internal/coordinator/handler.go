package coordinator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dash-representation/internal/manifest"

	"github.com/go-chi/chi/v5"
)

// Handler exposes track session HTTP endpoints using go-chi.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler returns a Handler that uses the given Service and Logger.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the track endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/tracks/{track_id}", func(r chi.Router) {
		r.Post("/", h.OpenTrack)
		r.Get("/", h.GetTrack)
		r.Delete("/", h.CloseTrack)
		r.Post("/manifest", h.IngestManifest)
		r.Post("/quality", h.ChangeQuality)
		r.Post("/live-edge", h.CompleteLiveEdge)
		r.Post("/buffer-level", h.UpdateBufferLevel)
		r.Post("/throughput", h.AddThroughput)
		r.Get("/telemetry", h.GetTelemetry)
	})
}

func trackID(r *http.Request) TrackID {
	return TrackID(chi.URLParam(r, "track_id"))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("invalid request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// fail maps service errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTrackNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrTrackExists), errors.Is(err, ErrNoManifest):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrAdaptationNotFound),
		errors.Is(err, manifest.ErrInvalidManifest):
		writeError(w, http.StatusBadRequest, err)
	default:
		h.log.Error("request failed",
			slog.String("track_id", string(trackID(r))),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// OpenTrack handles POST /tracks/{track_id}.
// Body: { "mediaType": "video" }.
func (h *Handler) OpenTrack(w http.ResponseWriter, r *http.Request) {
	var req OpenTrackRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.OpenTrack(trackID(r), req.MediaType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("track opened", slog.String("track_id", string(t.ID)), slog.String("media_type", string(t.MediaType)))
	writeJSON(w, http.StatusCreated, map[string]any{"trackId": t.ID, "mediaType": t.MediaType, "openedAt": t.OpenedAt})
}

// CloseTrack handles DELETE /tracks/{track_id}.
func (h *Handler) CloseTrack(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseTrack(trackID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("track closed", slog.String("track_id", string(trackID(r))))
	w.WriteHeader(http.StatusNoContent)
}

// IngestManifest handles POST /tracks/{track_id}/manifest.
func (h *Handler) IngestManifest(w http.ResponseWriter, r *http.Request) {
	var req ManifestRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.IngestManifest(trackID(r), req); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ChangeQuality handles POST /tracks/{track_id}/quality.
// Body: { "newQuality": 2 }.
func (h *Handler) ChangeQuality(w http.ResponseWriter, r *http.Request) {
	var req QualityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangeQuality(r.Context(), trackID(r), req.NewQuality); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// CompleteLiveEdge handles POST /tracks/{track_id}/live-edge.
func (h *Handler) CompleteLiveEdge(w http.ResponseWriter, r *http.Request) {
	var req LiveEdgeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.CompleteLiveEdge(trackID(r), req); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// UpdateBufferLevel handles POST /tracks/{track_id}/buffer-level.
func (h *Handler) UpdateBufferLevel(w http.ResponseWriter, r *http.Request) {
	var req BufferLevelRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.UpdateBufferLevel(trackID(r), req); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// AddThroughput handles POST /tracks/{track_id}/throughput.
func (h *Handler) AddThroughput(w http.ResponseWriter, r *http.Request) {
	var req ThroughputRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.AddThroughput(trackID(r), req.Kbps); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTrack handles GET /tracks/{track_id}.
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.TrackState(r.Context(), trackID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetTelemetry handles GET /tracks/{track_id}/telemetry.
func (h *Handler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Telemetry(trackID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
