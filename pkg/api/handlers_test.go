package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"loop_router/pkg/graph"
	"loop_router/pkg/pipeline"
	"loop_router/pkg/routing"
)

// mockPlanner implements Planner for testing.
type mockPlanner struct {
	routes pipeline.Routes
	err    error
	got    pipeline.Request
	calls  int
}

func (m *mockPlanner) Plan(ctx context.Context, req pipeline.Request) (pipeline.Routes, error) {
	m.got = req
	m.calls++
	return m.routes, m.err
}

const validQuery = "/pipeline/?n=2&lat=1.3&lng=103.8&distance=5000"

func TestHandlePipeline_Success(t *testing.T) {
	mock := &mockPlanner{
		routes: pipeline.Routes{Routes: []pipeline.Route{{
			Coordinates: []pipeline.Coordinate{{1.3, 103.8}, {1.31, 103.81}, {1.3, 103.8}},
			Distance:    4820.5,
			URL:         "https://google.com/maps/dir/1.3,103.8/1.31,103.81/1.3,103.8",
		}}},
	}
	h := NewHandlers(mock, StatsResponse{}, AboutResponse{}, nil)

	req := httptest.NewRequest("GET", validQuery, nil)
	w := httptest.NewRecorder()

	h.HandlePipeline(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	if mock.got.N != 2 || mock.got.Distance != 5000 || mock.got.Start.Lat != 1.3 || mock.got.Start.Lng != 103.8 {
		t.Errorf("planner got %+v", mock.got)
	}

	var resp PipelineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Routes) != 1 {
		t.Fatalf("Routes length = %d, want 1", len(resp.Routes))
	}
	if resp.Routes[0].Distance != 4820.5 {
		t.Errorf("Distance = %f, want 4820.5", resp.Routes[0].Distance)
	}
	if len(resp.Routes[0].Coordinates) != 3 {
		t.Errorf("Coordinates length = %d, want 3", len(resp.Routes[0].Coordinates))
	}
}

func TestHandlePipeline_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"missing n", "/pipeline/?lat=1.3&lng=103.8&distance=5000", "n"},
		{"zero n", "/pipeline/?n=0&lat=1.3&lng=103.8&distance=5000", "n"},
		{"too many tours", "/pipeline/?n=11&lat=1.3&lng=103.8&distance=5000", "n"},
		{"short distance", "/pipeline/?n=1&lat=1.3&lng=103.8&distance=499", "distance"},
		{"long distance", "/pipeline/?n=1&lat=1.3&lng=103.8&distance=10001", "distance"},
		{"non-numeric distance", "/pipeline/?n=1&lat=1.3&lng=103.8&distance=far", "distance"},
		{"latitude out of range", "/pipeline/?n=1&lat=91&lng=103.8&distance=5000", "lat,lng"},
		{"missing longitude", "/pipeline/?n=1&lat=1.3&distance=5000", "lat,lng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockPlanner{}
			h := NewHandlers(mock, StatsResponse{}, AboutResponse{}, nil)

			w := httptest.NewRecorder()
			h.HandlePipeline(w, httptest.NewRequest("GET", tt.query, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Field != tt.field {
				t.Errorf("Field = %q, want %q", resp.Field, tt.field)
			}
			if mock.calls != 0 {
				t.Errorf("planner called %d times for an invalid request", mock.calls)
			}
		})
	}
}

func TestHandlePipeline_PlannerErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{routing.ErrPointTooFar, http.StatusUnprocessableEntity, "point_too_far_from_road"},
		{fmt.Errorf("extract: %w", graph.ErrEmptyGraph), http.StatusNotFound, "no_streets_nearby"},
		{routing.ErrNoRoute, http.StatusNotFound, "no_route_found"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
		{fmt.Errorf("construct: %w", context.Canceled), http.StatusServiceUnavailable, "request_timeout"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewHandlers(&mockPlanner{err: tt.err}, StatsResponse{}, AboutResponse{}, nil)

			w := httptest.NewRecorder()
			h.HandlePipeline(w, httptest.NewRequest("GET", validQuery, nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error != tt.code {
				t.Errorf("Error = %q, want %q", resp.Error, tt.code)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewHandlers(&mockPlanner{}, StatsResponse{}, AboutResponse{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	stats := StatsResponse{NumNodes: 1000, NumEdges: 5000, Network: "walk", Strategy: "savings"}
	h := NewHandlers(&mockPlanner{}, stats, AboutResponse{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp != stats {
		t.Errorf("stats = %+v, want %+v", resp, stats)
	}
}

func TestHandleAbout(t *testing.T) {
	about := AboutResponse{Name: "loop_router", Description: "Closed running tours", Version: "1.0.0"}
	h := NewHandlers(&mockPlanner{}, StatsResponse{}, about, nil)

	w := httptest.NewRecorder()
	h.HandleAbout(w, httptest.NewRequest("GET", "/about", nil))

	var resp AboutResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp != about {
		t.Errorf("about = %+v, want %+v", resp, about)
	}
}

func TestServer_Routes(t *testing.T) {
	h := NewHandlers(&mockPlanner{}, StatsResponse{}, AboutResponse{}, nil)
	srv := NewServer(DefaultConfig(":0"), h, nil)

	for _, path := range []string{"/about", "/api/v1/health", "/api/v1/stats", validQuery} {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
		if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("GET %s X-Content-Type-Options = %q", path, got)
		}
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/about", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /about status = %d, want 405", w.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig(":0")
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	mock := &mockPlanner{}
	srv := NewServer(cfg, NewHandlers(mock, StatsResponse{}, AboutResponse{}, nil), nil)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", validQuery, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", validQuery, nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if mock.calls != 1 {
		t.Errorf("planner calls = %d, want 1", mock.calls)
	}

	// Cheap endpoints are not throttled.
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestServer_Concurrency(t *testing.T) {
	cfg := DefaultConfig(":0")
	cfg.MaxConcurrent = 1
	m := &middleware{
		cfg:    cfg,
		sem:    make(chan struct{}, 1),
		logger: slog.Default(),
	}
	m.sem <- struct{}{} // occupy the only slot

	w := httptest.NewRecorder()
	m.wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler ran while saturated")
	}, false)(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestServer_Recovery(t *testing.T) {
	m := &middleware{cfg: DefaultConfig(":0"), sem: make(chan struct{}, 1), logger: slog.Default()}
	w := httptest.NewRecorder()
	m.wrap(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, false)(w, httptest.NewRequest("GET", "/about", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := NewServer(DefaultConfig("127.0.0.1:0"), NewHandlers(&mockPlanner{}, StatsResponse{}, AboutResponse{}, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := ListenAndServe(ctx, srv, nil); err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}
}
