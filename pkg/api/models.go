package api

import "loop_router/pkg/pipeline"

// PipelineResponse is the JSON response for GET /pipeline/.
type PipelineResponse = pipeline.Routes

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes uint32 `json:"num_nodes"`
	NumEdges uint32 `json:"num_edges"`
	Network  string `json:"network"`
	Strategy string `json:"strategy"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AboutResponse is the JSON response for GET /about.
type AboutResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}
