package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"loop_router/pkg/geo"
	"loop_router/pkg/graph"
	"loop_router/pkg/pipeline"
	"loop_router/pkg/routing"
)

// Accepted ranges for planning requests.
const (
	MinDistance = 500
	MaxDistance = 10000
	MinTours    = 1
	MaxTours    = 10
)

// Planner plans and renders tours for one request.
type Planner interface {
	Plan(ctx context.Context, req pipeline.Request) (pipeline.Routes, error)
}

// PipelinePlanner serves requests with a pipeline and the REST assembler.
type PipelinePlanner struct {
	Pipeline *pipeline.Pipeline
}

func (p PipelinePlanner) Plan(ctx context.Context, req pipeline.Request) (pipeline.Routes, error) {
	res, err := p.Pipeline.Run(ctx, req)
	if err != nil {
		return pipeline.Routes{}, err
	}
	return pipeline.RestAssembler{}.Assemble(res)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	planner Planner
	stats   StatsResponse
	about   AboutResponse
	logger  *slog.Logger
}

// NewHandlers creates handlers with the given planner.
func NewHandlers(planner Planner, stats StatsResponse, about AboutResponse, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		planner: planner,
		stats:   stats,
		about:   about,
		logger:  logger,
	}
}

// HandlePipeline handles GET /pipeline/?n=&lat=&lng=&distance=.
func (h *Handlers) HandlePipeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	n, err := strconv.Atoi(q.Get("n"))
	if err != nil || n < MinTours || n > MaxTours {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "n")
		return
	}
	distance, err := strconv.ParseFloat(q.Get("distance"), 64)
	if err != nil || distance < MinDistance || distance > MaxDistance {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "distance")
		return
	}
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	start := geo.LatLng{Lat: lat, Lng: lng}
	if errLat != nil || errLng != nil || !start.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lat,lng")
		return
	}

	routes, err := h.planner.Plan(r.Context(), pipeline.Request{N: n, Start: start, Distance: distance})
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrPointTooFar):
			writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
		case errors.Is(err, graph.ErrEmptyGraph):
			writeError(w, http.StatusNotFound, "no_streets_nearby", "")
		case errors.Is(err, routing.ErrNoRoute):
			writeError(w, http.StatusNotFound, "no_route_found", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			h.logger.Error("planning failed", "n", n, "distance", distance, "lat", lat, "lng", lng, "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	writeJSON(w, http.StatusOK, PipelineResponse(routes))
}

// HandleAbout handles GET /about.
func (h *Handlers) HandleAbout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.about)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
