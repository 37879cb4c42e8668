// Package store archives run summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/output"
	"github.com/sdickey2024/fin-plan-shared/pkg/decimal"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Run is one archived combination run.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Name          string
	Person        string
	Files         []string
	Granularity   domain.Granularity
	Mode          domain.MonteCarloMode
	Trials        int
	SeedBase      uint64
	SuccessRate   *float64
	ExpectedFinal decimal.Money
	Summary       output.RunSummary
}

// Store persists run summaries in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the archive at path, creating the schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// SaveRun archives the summary of r under a fresh ID.
func (s *Store) SaveRun(ctx context.Context, r *domain.RunResult) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Run{}, fmt.Errorf("storage is not configured")
	}
	if r == nil || r.Name == "" {
		return Run{}, fmt.Errorf("run name is required")
	}

	run := Run{
		ID:          uuid.NewString(),
		CreatedAt:   fromMillis(toMillis(s.now())),
		Name:        r.Name,
		Person:      r.Person,
		Files:       append([]string(nil), r.Files...),
		Granularity: r.Granularity,
		Mode:        domain.ModeOff,
		Summary:     output.Summarize(r),
	}
	if mc := r.MonteCarlo; mc != nil {
		run.Mode = mc.Mode
		run.Trials = mc.Trials
		run.SeedBase = mc.SeedBase
	}
	run.SuccessRate = run.Summary.SuccessRate
	run.ExpectedFinal = decimal.NewMoney(run.Summary.Expected().FinalBalance)

	files, err := json.Marshal(run.Files)
	if err != nil {
		return Run{}, fmt.Errorf("encode files: %w", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return Run{}, fmt.Errorf("encode summary: %w", err)
	}
	var success sql.NullFloat64
	if run.SuccessRate != nil {
		success = sql.NullFloat64{Float64: *run.SuccessRate, Valid: true}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO runs (
		   id, created_at, name, person, files, granularity, mode,
		   trials, seed_base, success_rate, expected_final, summary_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		toMillis(run.CreatedAt),
		run.Name,
		run.Person,
		string(files),
		string(run.Granularity),
		string(run.Mode),
		run.Trials,
		strconv.FormatUint(run.SeedBase, 10),
		success,
		run.ExpectedFinal.String(),
		string(summary),
	)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

const runColumns = `id, created_at, name, person, files, granularity, mode,
	trials, seed_base, success_rate, expected_final, summary_json`

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, strings.TrimSpace(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// ListRuns returns the newest runs first. A non-empty name filters to that
// combination; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, name string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                    Run
		createdAt              int64
		files, summary, seed   string
		granularity, mode, fin string
		success                sql.NullFloat64
	)
	if err := sc.Scan(&run.ID, &createdAt, &run.Name, &run.Person, &files, &granularity, &mode,
		&run.Trials, &seed, &success, &fin, &summary); err != nil {
		return Run{}, err
	}
	run.CreatedAt = fromMillis(createdAt)
	run.Granularity = domain.Granularity(granularity)
	run.Mode = domain.MonteCarloMode(mode)
	if success.Valid {
		v := success.Float64
		run.SuccessRate = &v
	}
	var err error
	if run.SeedBase, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return Run{}, fmt.Errorf("decode seed base of %s: %w", run.ID, err)
	}
	if run.ExpectedFinal, err = decimal.NewMoneyFromString(fin); err != nil {
		return Run{}, fmt.Errorf("decode expected final of %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(files), &run.Files); err != nil {
		return Run{}, fmt.Errorf("decode files of %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("decode summary of %s: %w", run.ID, err)
	}
	return run, nil
}
