package server

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const profileDoc = `{
  "schema_type": "user_base", "schema_version": 1,
  "start_date": "2025-01",
  "person": {"name": "Pat", "current_age": 65, "stop_age": 70},
  "income": {"pension": 1500},
  "expenses": {"breakdown": {"housing": 2000, "travel": 500}, "classification": {"travel": "discretionary"}},
  "portfolio": {"breakdown": {"taxable": {"ira": 300000}}},
  "assumptions": {"expected_return": 0.05, "variance": 0.1, "inflation": 0.02},
  "life_events": [{"event": "Move", "t_month": 12, "updated_expenses": {"breakdown": {"housing": 1500}}}]
}`

const duplicateOverlay = `{
  "schema_type": "scenario", "schema_version": 1, "description": "dup",
  "life_events": [{"event": "Move", "t_month": 24, "updated_income": {"pension": 0}}]
}`

func testDefaults() config.Settings {
	return config.Settings{
		Mode:        "off",
		Granularity: "monthly",
		Jobs:        2,
		Trials:      10,
		Percentiles: []float64{10, 50, 90},
	}
}

type client struct {
	hc *fasthttp.Client
}

func startServer(t *testing.T, opts ...Option) *client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := New(calculation.NewCalculationEngine(), testDefaults(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	c := &client{hc: &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}}
	t.Cleanup(func() {
		c.hc.CloseIdleConnections()
		cancel()
		<-done
	})
	return c
}

func (c *client) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://finplan" + path)
	req.Header.SetMethod(method)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req.SetBody(data)
	}
	require.NoError(t, c.hc.Do(req, resp))
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er), string(body))
	return er
}

func TestSimulateDeterministic(t *testing.T) {
	c := startServer(t)
	status, body := c.do(t, "POST", "/api/simulate", SimulateRequest{
		Profile: InputDocument{Name: "pat.json", Document: json.RawMessage(profileDoc)},
	})
	require.Equal(t, fasthttp.StatusOK, status, string(body))

	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, "pat", resp.Result.Name)
	assert.Len(t, resp.Result.Deterministic, 3)
	assert.Nil(t, resp.Result.MonteCarlo)
	assert.Empty(t, resp.RunID)
	require.NotNil(t, resp.Result.Series(calculation.SeriesExpected))
	assert.Len(t, resp.Result.Series(calculation.SeriesExpected).Steps, 61)
}

func TestSimulateMonteCarloAndArchive(t *testing.T) {
	archive, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })
	c := startServer(t, WithArchive(archive), WithMaxTrials(100))

	req := SimulateRequest{
		Profile: InputDocument{Document: json.RawMessage(profileDoc)},
		Options: RequestOptions{Mode: "sim", Trials: 25, Seed: 7, Granularity: "yearly", Archive: true},
	}
	status, body := c.do(t, "POST", "/api/simulate", req)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Result.MonteCarlo)
	assert.Equal(t, 25, resp.Result.MonteCarlo.Trials)
	assert.Equal(t, uint64(7), resp.Result.MonteCarlo.SeedBase)
	assert.Equal(t, "profile", resp.Result.Name)
	require.NotEmpty(t, resp.RunID)

	status, body = c.do(t, "GET", "/api/runs?limit=5", nil)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	var runs []RunListing
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
	assert.Equal(t, "sim", runs[0].Mode)

	req.Options.Trials = 1000
	status, body = c.do(t, "POST", "/api/simulate", req)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "invalid_options", decodeError(t, body).Code)
}

func TestSimulateConfigErrors(t *testing.T) {
	c := startServer(t)

	status, body := c.do(t, "POST", "/api/simulate", SimulateRequest{
		Profile:  InputDocument{Name: "pat", Document: json.RawMessage(profileDoc)},
		Overlays: []InputDocument{{Name: "dup", Document: json.RawMessage(duplicateOverlay)}},
	})
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	er := decodeError(t, body)
	assert.Equal(t, "duplicate_event_name", er.Code)
	assert.Contains(t, er.Message, "Move")

	status, body = c.do(t, "POST", "/api/simulate", SimulateRequest{
		Profile: InputDocument{Document: json.RawMessage(duplicateOverlay)},
	})
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "schema_mismatch", decodeError(t, body).Code)

	status, body = c.do(t, "POST", "/api/simulate", SimulateRequest{
		Profile: InputDocument{Document: json.RawMessage(`{"schema_type": "user_base", "schema_version": 1, "person": {}}`)},
	})
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	er = decodeError(t, body)
	assert.Equal(t, "validation_failed", er.Code)
	assert.NotEmpty(t, er.Problems)

	status, body = c.do(t, "POST", "/api/simulate", SimulateRequest{
		Profile: InputDocument{Document: json.RawMessage(`{"schema_type": "budget", "schema_version": 1}`)},
	})
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	er = decodeError(t, body)
	assert.Equal(t, "unknown_schema_type", er.Code)
	assert.Equal(t, []string{`schema_type "budget" is not one of "user_base", "scenario"`}, er.Problems)

	status, body = c.do(t, "POST", "/api/simulate", SimulateRequest{
		Profile: InputDocument{Document: json.RawMessage(profileDoc)},
		Options: RequestOptions{Mode: "always"},
	})
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, "invalid_options", decodeError(t, body).Code)
}

func TestRequestErrors(t *testing.T) {
	c := startServer(t)
	tests := []struct {
		method, path string
		body         any
		status       int
		code         string
	}{
		{"POST", "/api/simulate", json.RawMessage(`{"profile": 5}`), fasthttp.StatusBadRequest, "invalid_request"},
		{"POST", "/api/simulate", SimulateRequest{}, fasthttp.StatusBadRequest, "invalid_request"},
		{"GET", "/api/simulate", nil, fasthttp.StatusMethodNotAllowed, "method_not_allowed"},
		{"POST", "/api/version", nil, fasthttp.StatusMethodNotAllowed, "method_not_allowed"},
		{"GET", "/api/runs", nil, fasthttp.StatusNotFound, "archive_disabled"},
		{"GET", "/nope", nil, fasthttp.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s %d", tt.method, tt.path, tt.status), func(t *testing.T) {
			status, body := c.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			er := decodeError(t, body)
			assert.Equal(t, tt.code, er.Code)
			assert.Equal(t, tt.status, er.Status)
		})
	}
}

func TestVersion(t *testing.T) {
	c := startServer(t, WithVersion("1.2.3"))
	status, body := c.do(t, "GET", "/api/version", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	var v VersionResponse
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, "1.2.3", v.Version)
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "pat.json", documentName("pat.yaml", "profile"))
	assert.Equal(t, "pat.json", documentName("../dir/pat", "profile"))
	assert.Equal(t, "profile.json", documentName("", "profile"))
	assert.Equal(t, "overlay-2.json", documentName("  ", "overlay-2"))
}
