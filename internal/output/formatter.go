package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// ErrUnsupportedFormat is returned for format names with no registered formatter.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// File is one named output produced by a formatter.
type File struct {
	Name string
	Data []byte
}

// Formatter defines a pluggable output formatter. A formatter may produce
// several files (one per series) or none when the result lacks its data.
// Implementations should be pure (no side effects besides deterministic formatting).
type Formatter interface {
	Format(r *domain.RunResult) ([]File, error)
	// Name returns a short identifier for logging / debugging.
	Name() string
}

// FormatterFunc adapter to allow ordinary functions to act as a Formatter.
type FormatterFunc struct {
	ID string
	F  func(*domain.RunResult) ([]File, error)
}

func (ff FormatterFunc) Format(r *domain.RunResult) ([]File, error) { return ff.F(r) }
func (ff FormatterFunc) Name() string                               { return ff.ID }

// WriteFormatted runs a formatter and writes its files under dir, returning
// the written paths.
func WriteFormatted(f Formatter, r *domain.RunResult, dir string) ([]string, error) {
	files, err := f.Format(r)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", f.Name(), err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.Name)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// builtInFormatters stores available formatters.
var builtInFormatters = []Formatter{
	ConsoleFormatter{},
	SummaryFormatter{},
	CSVSeriesExporter{},
	CSVSummarizer{},
	MonteCarloCSVExporter{},
	JSONFormatter{},
	TimelineYAMLFormatter{},
}

// GetFormatterByName fetches a registered formatter.
func GetFormatterByName(name string) Formatter {
	n := NormalizeFormatName(name)
	for _, f := range builtInFormatters {
		if f.Name() == n {
			return f
		}
	}
	return nil
}

// Lookup resolves every name, failing on the first unknown one.
func Lookup(names []string) ([]Formatter, error) {
	out := make([]Formatter, 0, len(names))
	for _, name := range names {
		f := GetFormatterByName(name)
		if f == nil {
			return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, name,
				strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
		}
		out = append(out, f)
	}
	return out, nil
}

// aliasMap provides user-friendly synonyms for format names.
var aliasMap = map[string]string{
	"table":       "console",
	"verbose":     "console",
	"text":        "summary",
	"csv-series":  "csv",
	"csv-summary": "summary-csv",
	"montecarlo":  "mc-csv",
	"csv-mc":      "mc-csv",
	"json-pretty": "json",
	"yml":         "yaml",
	"timeline":    "yaml",
}

// NormalizeFormatName lowers and resolves aliases.
func NormalizeFormatName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliasMap[n]; ok {
		return mapped
	}
	return n
}

// AvailableFormatterNames returns the canonical formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, 0, len(builtInFormatters))
	for _, f := range builtInFormatters {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// AvailableFormatAliases returns the supported alias keys.
func AvailableFormatAliases() []string {
	keys := make([]string, 0, len(aliasMap))
	for k := range aliasMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
