package output

import (
	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// JSONFormatter serializes the whole run result as pretty-printed JSON.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

func (j JSONFormatter) Format(r *domain.RunResult) ([]File, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return []File{{Name: fileStem(r.Name) + ".json", Data: data}}, nil
}
