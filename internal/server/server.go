// Package server exposes the simulation engine over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const maxBodySize = 8 << 20

// Server handles simulation requests against one engine.
type Server struct {
	engine    *calculation.CalculationEngine
	parser    *config.InputParser
	archive   *store.Store
	logger    *zap.Logger
	defaults  config.Settings
	version   string
	maxTrials int
}

// Option configures a Server.
type Option func(*Server)

// WithArchive stores every request that asks to be archived.
func WithArchive(s *store.Store) Option { return func(srv *Server) { srv.archive = s } }

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(srv *Server) { srv.logger = l } }

// WithVersion sets the version reported by /api/version.
func WithVersion(v string) Option { return func(srv *Server) { srv.version = v } }

// WithMaxTrials rejects requests asking for more trials than n.
func WithMaxTrials(n int) Option { return func(srv *Server) { srv.maxTrials = n } }

// New returns a server whose requests start from defaults.
func New(engine *calculation.CalculationEngine, defaults config.Settings, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		parser:   config.NewInputParser(),
		logger:   zap.NewNop(),
		defaults: defaults,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes requests.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		path := string(ctx.Path())
		switch path {
		case "/api/simulate":
			if !ctx.IsPost() {
				writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "use POST", nil)
				break
			}
			s.handleSimulate(ctx)
		case "/api/version":
			if !ctx.IsGet() {
				writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "use GET", nil)
				break
			}
			writeJSON(ctx, fasthttp.StatusOK, VersionResponse{Version: s.version})
		case "/api/runs":
			if !ctx.IsGet() {
				writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "use GET", nil)
				break
			}
			s.handleRuns(ctx)
		default:
			writeError(ctx, fasthttp.StatusNotFound, "not_found", "no route for "+path, nil)
		}
		s.logger.Debug("request",
			zap.String("method", string(ctx.Method())),
			zap.String("path", path),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Serve handles connections from ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "finplan",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       5 * time.Minute,
		MaxRequestBodySize: maxBodySize,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		if err := srv.Shutdown(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errc:
		return err
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.logger.Info("listening", zap.String("op", "serve"), zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

func (s *Server) handleSimulate(ctx *fasthttp.RequestCtx) {
	var req SimulateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error(), nil)
		return
	}
	if isEmptyDocument(req.Profile.Document) {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid_request", "profile document is required", nil)
		return
	}

	profile, overlays, err := s.decode(req)
	if err != nil {
		s.fail(ctx, err, fasthttp.StatusBadRequest, "invalid_document")
		return
	}
	opts, err := s.runOptions(req.Options)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid_options", err.Error(), nil)
		return
	}

	result, err := s.engine.RunScenario(ctx, profile, overlays, opts)
	if err != nil {
		s.fail(ctx, err, fasthttp.StatusInternalServerError, "internal")
		return
	}

	resp := SimulateResponse{Result: result}
	if req.Options.Archive && s.archive != nil {
		run, err := s.archive.SaveRun(ctx, result)
		if err != nil {
			s.logger.Error("archive failed", zap.String("op", "simulate"), zap.String("name", result.Name), zap.Error(err))
			writeError(ctx, fasthttp.StatusInternalServerError, "archive_failed", err.Error(), nil)
			return
		}
		resp.RunID = run.ID
	}
	s.logger.Info("simulated",
		zap.String("op", "simulate"),
		zap.String("name", result.Name),
		zap.String("run_id", resp.RunID),
	)
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleRuns(ctx *fasthttp.RequestCtx) {
	if s.archive == nil {
		writeError(ctx, fasthttp.StatusNotFound, "archive_disabled", "no run archive is configured", nil)
		return
	}
	args := ctx.QueryArgs()
	limit := 50
	if args.Has("limit") {
		n, err := args.GetUint("limit")
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	runs, err := s.archive.ListRuns(ctx, string(args.Peek("name")), limit)
	if err != nil {
		s.fail(ctx, err, fasthttp.StatusInternalServerError, "internal")
		return
	}
	out := make([]RunListing, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunListing{
			ID:            r.ID,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
			Name:          r.Name,
			Person:        r.Person,
			Mode:          string(r.Mode),
			Trials:        r.Trials,
			SuccessRate:   r.SuccessRate,
			ExpectedFinal: r.ExpectedFinal.String(),
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

// decode parses and validates the inline documents. Schema types are left
// to the resolver so mismatches surface with their own error code.
func (s *Server) decode(req SimulateRequest) (*domain.Profile, []*domain.Overlay, error) {
	doc, err := s.parser.Parse(documentName(req.Profile.Name, "profile"), req.Profile.Document)
	if err != nil {
		return nil, nil, err
	}
	if err := s.parser.Validate(doc, ""); err != nil {
		return nil, nil, err
	}
	profile, err := doc.Profile()
	if err != nil {
		return nil, nil, err
	}

	overlays := make([]*domain.Overlay, 0, len(req.Overlays))
	for i, in := range req.Overlays {
		doc, err := s.parser.Parse(documentName(in.Name, fmt.Sprintf("overlay-%d", i+1)), in.Document)
		if err != nil {
			return nil, nil, err
		}
		if err := s.parser.Validate(doc, ""); err != nil {
			return nil, nil, err
		}
		ov, err := doc.Overlay()
		if err != nil {
			return nil, nil, err
		}
		overlays = append(overlays, ov)
	}
	return profile, overlays, nil
}

func isEmptyDocument(doc json.RawMessage) bool {
	trimmed := bytes.TrimSpace(doc)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// documentName turns a client-supplied name into a JSON file name.
func documentName(name, fallback string) string {
	base := strings.TrimSpace(filepath.Base(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = fallback
	}
	return base + ".json"
}

func (s *Server) runOptions(o RequestOptions) (calculation.RunOptions, error) {
	set := s.defaults
	if o.Mode != "" {
		set.Mode = o.Mode
	}
	if o.Granularity != "" {
		set.Granularity = o.Granularity
	}
	if o.Trials > 0 {
		set.Trials = o.Trials
	}
	if o.Seed != 0 {
		set.Seed = o.Seed
	}
	if len(o.Percentiles) > 0 {
		set.Percentiles = o.Percentiles
	}
	set.RecordBuckets = set.RecordBuckets || o.RecordBuckets
	if s.maxTrials > 0 && set.Trials > s.maxTrials {
		return calculation.RunOptions{}, fmt.Errorf("trials %d exceeds the limit of %d", set.Trials, s.maxTrials)
	}
	if err := set.Validate(); err != nil {
		return calculation.RunOptions{}, err
	}
	return set.RunOptions()
}

// fail reports err, mapping configuration faults to 400 with their code.
func (s *Server) fail(ctx *fasthttp.RequestCtx, err error, status int, code string) {
	var ve *config.ValidationError
	switch {
	case errors.As(err, &ve):
		code := "validation_failed"
		if ve.Kind != nil {
			code = calculation.ErrorCode(ve.Kind)
		}
		writeError(ctx, fasthttp.StatusBadRequest, code, err.Error(), ve.Problems)
		return
	case calculation.ErrorCode(err) != "internal":
		writeError(ctx, fasthttp.StatusBadRequest, calculation.ErrorCode(err), err.Error(), nil)
		return
	}
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", string(ctx.Path())), zap.Error(err))
	}
	writeError(ctx, status, code, err.Error(), nil)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"status":500,"code":"internal","message":"encode response"}`, fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, message string, problems []string) {
	writeJSON(ctx, status, ErrorResponse{Status: status, Code: code, Message: message, Problems: problems})
}
