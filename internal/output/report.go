package output

import (
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// GenerateReports writes r in every named format under dir and returns the
// written paths. Unknown names fail before anything is written.
func GenerateReports(r *domain.RunResult, formats []string, dir string) ([]string, error) {
	formatters, err := Lookup(formats)
	if err != nil {
		return nil, err
	}
	var paths []string
	seen := make(map[string]bool, len(formatters))
	for _, f := range formatters {
		if seen[f.Name()] {
			continue
		}
		seen[f.Name()] = true
		written, err := WriteFormatted(f, r, dir)
		paths = append(paths, written...)
		if err != nil {
			return paths, err
		}
	}
	return paths, nil
}
