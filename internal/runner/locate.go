package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Combination is one base profile with overlays layered in order.
type Combination struct {
	Profile  string
	Overlays []string
}

// Label names the combination by its file names.
func (c Combination) Label() string {
	if len(c.Overlays) == 0 {
		return filepath.Base(c.Profile)
	}
	names := make([]string, len(c.Overlays))
	for i, o := range c.Overlays {
		names[i] = filepath.Base(o)
	}
	return filepath.Base(c.Profile) + " + " + strings.Join(names, "+")
}

// Locator resolves bare input file names against the data directories.
// A name that is absolute or exists as given is used unchanged; otherwise
// the kind's directory is tried, then its parent.
type Locator struct {
	UserDir     string
	ScenarioDir string
}

// ParseSets splits --file values into overlay sets. Repeated values and
// commas separate independent sets; "+" layers files within one set.
func ParseSets(values []string) [][]string {
	var sets [][]string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			var set []string
			for _, f := range strings.Split(part, "+") {
				if f = strings.TrimSpace(f); f != "" {
					set = append(set, f)
				}
			}
			if len(set) > 0 {
				sets = append(sets, set)
			}
		}
	}
	return sets
}

// User resolves a user_base file name.
func (l Locator) User(name string) (string, error) { return locate(name, l.UserDir) }

// Scenario resolves a scenario file name.
func (l Locator) Scenario(name string) (string, error) { return locate(name, l.ScenarioDir) }

func locate(name, dir string) (string, error) {
	if filepath.IsAbs(name) || exists(name) {
		return name, nil
	}
	if dir != "" {
		for _, cand := range []string{filepath.Join(dir, name), filepath.Join(filepath.Dir(dir), name)} {
			if exists(cand) {
				return cand, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", name, os.ErrNotExist)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DefaultScenarios lists every scenario document in the scenario directory,
// sorted by name. A missing directory yields none.
func (l Locator) DefaultScenarios() ([]string, error) {
	entries, err := os.ReadDir(l.ScenarioDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			out = append(out, filepath.Join(l.ScenarioDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Plan builds the combinations for one user file and the --file values.
// With no values every default scenario runs on its own; with no scenarios
// at all the profile runs alone. Every missing file is reported at once.
func (l Locator) Plan(user string, values []string) ([]Combination, error) {
	if strings.TrimSpace(user) == "" {
		return nil, fmt.Errorf("a user file is required")
	}
	profile, err := l.User(user)
	if err != nil {
		return nil, err
	}

	sets := ParseSets(values)
	if len(sets) == 0 {
		defaults, err := l.DefaultScenarios()
		if err != nil {
			return nil, err
		}
		if len(defaults) == 0 {
			return []Combination{{Profile: profile}}, nil
		}
		combos := make([]Combination, len(defaults))
		for i, d := range defaults {
			combos[i] = Combination{Profile: profile, Overlays: []string{d}}
		}
		return combos, nil
	}

	var missing []string
	combos := make([]Combination, 0, len(sets))
	for _, set := range sets {
		c := Combination{Profile: profile}
		for _, name := range set {
			path, err := l.Scenario(name)
			if err != nil {
				missing = append(missing, name)
				continue
			}
			c.Overlays = append(c.Overlays, path)
		}
		combos = append(combos, c)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("one or more --file entries not found: %v", missing)
	}
	return combos, nil
}
