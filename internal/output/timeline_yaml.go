package output

import (
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"gopkg.in/yaml.v3"
)

type timelineDump struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	Person      string              `yaml:"person,omitempty"`
	Files       []string            `yaml:"files"`
	Events      []timelineDumpEvent `yaml:"events"`
}

type timelineDumpEvent struct {
	Name       string  `yaml:"name"`
	MonthIndex int     `yaml:"month_index"`
	Date       string  `yaml:"date"`
	Age        float64 `yaml:"age"`
	Source     string  `yaml:"source"`
}

// TimelineYAMLFormatter dumps the resolved event schedule of a run.
type TimelineYAMLFormatter struct{}

func (t TimelineYAMLFormatter) Name() string { return "yaml" }

func (t TimelineYAMLFormatter) Format(r *domain.RunResult) ([]File, error) {
	dump := timelineDump{
		Name:        r.Name,
		Description: r.Description,
		Person:      r.Person,
		Files:       r.Files,
		Events:      make([]timelineDumpEvent, 0, len(r.Events)),
	}
	for _, ev := range r.Events {
		dump.Events = append(dump.Events, timelineDumpEvent(ev))
	}
	data, err := yaml.Marshal(dump)
	if err != nil {
		return nil, err
	}
	return []File{{Name: fileStem(r.Name) + "_timeline.yaml", Data: data}}, nil
}
