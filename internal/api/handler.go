package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/logbridge/internal/config"
	"github.com/gyaneshwarpardhi/logbridge/internal/engine"
	"github.com/gyaneshwarpardhi/logbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/logbridge/internal/transform"
	"github.com/gyaneshwarpardhi/logbridge/internal/wire"
)

// maxBodyBytes caps a transformation request. Firehose never sends more
// than 6 MiB of record data; base64 and framing add about a third.
const maxBodyBytes = 10 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng      *engine.Engine
	loader   *config.Loader
	registry *transform.Registry
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader, reg *transform.Registry) http.Handler {
	h := &Handler{eng: eng, loader: loader, registry: reg, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/transform", h.transform)
	h.mux.HandleFunc("GET /v1/config", h.getConfig)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/transform — synchronous Firehose data transformation.
func (h *Handler) transform(w http.ResponseWriter, r *http.Request) {
	var ev events.KinesisFirehoseEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(ev.Records) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one record")
		return
	}
	batch, err := wire.ToBatch(ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if batch.InvocationID == "" {
		batch.InvocationID = uuid.New().String()
	}

	resp, err := h.eng.ProcessSync(r.Context(), batch)
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire.FromResponse(resp))
}

// GET /v1/config — effective configuration and active pipeline.
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config":     h.loader.Config(),
		"pipeline":   h.eng.Pipeline().String(),
		"transforms": h.registry.Names(),
	})
}

// POST /v1/config/reload — hot-reload config from disk and the environment.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	// Rebuild and swap the pipeline.
	p, err := engine.NewPipeline(cfg, h.registry)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.eng.SwapPipeline(p)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"pipeline": p.String(),
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the invocation queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
