package server

import (
	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// InputDocument is one user_base or scenario document sent inline. Name
// stands in for the file name when naming the combination.
type InputDocument struct {
	Name     string          `json:"name,omitempty"`
	Document json.RawMessage `json:"document"`
}

// RequestOptions override the server's default run settings. Zero values
// keep the defaults.
type RequestOptions struct {
	Mode          string    `json:"mode,omitempty"`
	Granularity   string    `json:"granularity,omitempty"`
	Trials        int       `json:"trials,omitempty"`
	Seed          uint64    `json:"seed,omitempty"`
	Percentiles   []float64 `json:"percentiles,omitempty"`
	RecordBuckets bool      `json:"record_buckets,omitempty"`
	Archive       bool      `json:"archive,omitempty"`
}

// SimulateRequest is the body of POST /api/simulate. Overlays are layered in
// order onto the profile.
type SimulateRequest struct {
	Profile  InputDocument   `json:"profile"`
	Overlays []InputDocument `json:"overlays,omitempty"`
	Options  RequestOptions  `json:"options"`
}

// SimulateResponse carries the run result and, when archived, its run ID.
type SimulateResponse struct {
	RunID  string            `json:"run_id,omitempty"`
	Result *domain.RunResult `json:"result"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status   int      `json:"status"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

// VersionResponse is the body of GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// RunListing is one row of GET /api/runs.
type RunListing struct {
	ID            string   `json:"id"`
	CreatedAt     string   `json:"created_at"`
	Name          string   `json:"name"`
	Person        string   `json:"person,omitempty"`
	Mode          string   `json:"mode"`
	Trials        int      `json:"trials,omitempty"`
	SuccessRate   *float64 `json:"success_rate,omitempty"`
	ExpectedFinal string   `json:"expected_final"`
}
