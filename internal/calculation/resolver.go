package calculation

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
)

// ResolvedConfig is a profile with its overlays applied, before event
// scheduling. It is read-only once built.
type ResolvedConfig struct {
	Name            string
	Description     string
	Files           []string
	Person          domain.Person
	Start           time.Time
	StartAge        float64
	HorizonMonths   int
	Initial         *domain.Snapshot
	BaseAssumptions domain.Assumptions
	Buckets         []domain.PortfolioBucket
	WithdrawalOrder []string
	Events          []domain.LifeEvent
	Shocks          map[int]float64
}

// Resolve layers overlays over profile in order. Overlay assumptions
// override only the fields they set; life events are pooled base first and
// must have unique names across all files.
func Resolve(profile *domain.Profile, overlays []*domain.Overlay) (*ResolvedConfig, error) {
	if profile == nil {
		return nil, fmt.Errorf("no base profile given")
	}
	if err := checkSchemaType(profile.SchemaType, domain.SchemaUserBase, profile.SourceFile); err != nil {
		return nil, err
	}
	for _, ov := range overlays {
		if err := checkSchemaType(ov.SchemaType, domain.SchemaScenario, ov.SourceFile); err != nil {
			return nil, err
		}
	}

	rc := &ResolvedConfig{
		Person:          profile.Person,
		Files:           []string{profile.SourceFile},
		BaseAssumptions: profile.Assumptions,
		WithdrawalOrder: append([]string(nil), profile.WithdrawalOrder...),
		Shocks:          make(map[int]float64),
	}

	start := profile.StartDate
	descriptions := []string{}
	if profile.Description != "" {
		descriptions = append(descriptions, profile.Description)
	}
	assumptions := profile.Assumptions
	for _, ov := range overlays {
		rc.Files = append(rc.Files, ov.SourceFile)
		if ov.StartDate != nil {
			start = ov.StartDate
		}
		if ov.Description != "" {
			descriptions = append(descriptions, ov.Description)
		}
		assumptions = assumptions.Apply(ov.Assumptions)
	}
	if start != nil {
		rc.Start = dateutil.FirstOfMonth(*start)
	} else {
		rc.Start = dateutil.FirstOfMonth(nowFunc())
	}
	rc.Description = strings.Join(descriptions, " + ")
	rc.Name = combinationName(profile, overlays)

	age, err := startAge(profile.Person, rc.Start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", profile.SourceFile, err)
	}
	rc.StartAge = age
	horizon, err := horizonMonths(profile.Person, rc.Start, age)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", profile.SourceFile, err)
	}
	rc.HorizonMonths = horizon

	events, err := poolEvents(profile, overlays)
	if err != nil {
		return nil, err
	}
	rc.Events = events

	rc.Buckets = append([]domain.PortfolioBucket(nil), profile.Buckets...)
	rc.Initial = &domain.Snapshot{
		Income:      resolveIncome(profile.Income, rc.Start, age),
		Expenses:    append([]domain.ExpenseCategory(nil), profile.Expenses...),
		TaxRate:     profile.TaxRate,
		Policy:      profile.Policy,
		Assumptions: assumptions,
	}

	addShocks(rc, profile.Shocks)
	for _, ov := range overlays {
		addShocks(rc, ov.Shocks)
	}
	return rc, nil
}

func checkSchemaType(got, want, file string) error {
	switch got {
	case want:
		return nil
	case domain.SchemaUserBase, domain.SchemaScenario:
		return configErr(ErrSchemaMismatch, file, "", "schema_type is %q, expected %q", got, want)
	default:
		return configErr(ErrUnknownSchemaType, file, "", "schema_type %q is not one of %q, %q",
			got, domain.SchemaUserBase, domain.SchemaScenario)
	}
}

func combinationName(profile *domain.Profile, overlays []*domain.Overlay) string {
	stem := func(path string) string {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(overlays) == 0 {
		return stem(profile.SourceFile)
	}
	parts := make([]string, len(overlays))
	for i, ov := range overlays {
		parts[i] = stem(ov.SourceFile)
	}
	return strings.Join(parts, "+")
}

func startAge(p domain.Person, start time.Time) (float64, error) {
	switch {
	case p.BirthDate != nil:
		return dateutil.AgeInYears(*p.BirthDate, start), nil
	case p.CurrentAge != nil:
		return *p.CurrentAge, nil
	}
	return 0, fmt.Errorf("person must declare birthdate or current_age")
}

func horizonMonths(p domain.Person, start time.Time, age float64) (int, error) {
	var months int
	if p.StopDate != nil {
		months = dateutil.MonthsBetween(start, *p.StopDate)
	} else {
		stop := p.StopAge
		if stop == 0 {
			stop = domain.DefaultStopAge
		}
		months = int(math.Round((stop - age) * 12))
	}
	if months < 0 {
		return 0, fmt.Errorf("stop point is %d months before the start date", -months)
	}
	return months, nil
}

func poolEvents(profile *domain.Profile, overlays []*domain.Overlay) ([]domain.LifeEvent, error) {
	var out []domain.LifeEvent
	owner := make(map[string]string)
	add := func(events []domain.LifeEvent, file string, layer int) error {
		for i, ev := range events {
			if strings.TrimSpace(ev.Name) == "" {
				return configErr(ErrMissingEventName, file, "", "life event #%d has no name", i+1)
			}
			if prev, dup := owner[ev.Name]; dup {
				return configErr(ErrDuplicateEventName, file, ev.Name, "already declared in %s", prev)
			}
			owner[ev.Name] = file
			ev.Source = domain.EventSource{File: file, Layer: layer, Index: i}
			out = append(out, ev)
		}
		return nil
	}
	if err := add(profile.Events, profile.SourceFile, 0); err != nil {
		return nil, err
	}
	for i, ov := range overlays {
		if err := add(ov.Events, ov.SourceFile, i+1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func resolveIncome(streams []domain.IncomeStream, start time.Time, age float64) []domain.IncomeStream {
	out := make([]domain.IncomeStream, len(streams))
	for i, s := range streams {
		s.StartMonth, s.EndMonth = 0, -1
		if w := s.Window; w != nil {
			if m, ok := windowMonth(w.StartDate, w.StartAge, start, age); ok {
				s.StartMonth = max(m, 0)
			}
			if m, ok := windowMonth(w.EndDate, w.EndAge, start, age); ok {
				s.EndMonth = max(m, 0)
			}
		}
		out[i] = s
	}
	return out
}

func windowMonth(date string, atAge *float64, start time.Time, age float64) (int, bool) {
	if date != "" {
		if t, err := dateutil.ParseYearMonth(date); err == nil {
			return dateutil.MonthsBetween(start, t), true
		}
	}
	if atAge != nil {
		return int(math.Floor((*atAge-age)*12 + ageEpsilon)), true
	}
	return 0, false
}

func addShocks(rc *ResolvedConfig, shocks []domain.MarketShock) {
	for _, s := range shocks {
		m := dateutil.MonthsBetween(rc.Start, s.Date)
		if m < 0 {
			continue
		}
		rc.Shocks[m] = s.Return
	}
}

// BuildTimeline folds scheduled events into snapshots. Events resolving to
// the same month share one breakpoint and apply in scheduled order.
func BuildTimeline(rc *ResolvedConfig, scheduled []domain.ScheduledEvent) *domain.Timeline {
	tl := &domain.Timeline{
		Start:           rc.Start,
		StartAge:        rc.StartAge,
		HorizonMonths:   rc.HorizonMonths,
		Buckets:         rc.Buckets,
		WithdrawalOrder: rc.WithdrawalOrder,
		Shocks:          rc.Shocks,
		Breakpoints:     []domain.Breakpoint{{Month: 0, Snapshot: rc.Initial}},
	}
	snap := rc.Initial
	for _, se := range scheduled {
		snap = applyEvent(snap, se.Event, rc.BaseAssumptions)
		last := &tl.Breakpoints[len(tl.Breakpoints)-1]
		if last.Month != se.Month {
			tl.Breakpoints = append(tl.Breakpoints, domain.Breakpoint{Month: se.Month})
			last = &tl.Breakpoints[len(tl.Breakpoints)-1]
		}
		last.Snapshot = snap
		last.Events = append(last.Events, se.Event.Name)
		last.Deposits = append(last.Deposits, se.Event.Deposits...)
	}
	return tl
}

// applyEvent returns a new snapshot with ev's payload merged over prev.
func applyEvent(prev *domain.Snapshot, ev domain.LifeEvent, base domain.Assumptions) *domain.Snapshot {
	next := &domain.Snapshot{
		Income:      append([]domain.IncomeStream(nil), prev.Income...),
		Expenses:    append([]domain.ExpenseCategory(nil), prev.Expenses...),
		TaxRate:     prev.TaxRate,
		Policy:      prev.Policy,
		Assumptions: prev.Assumptions,
	}

	for _, name := range sortedKeys(ev.Income) {
		amount := ev.Income[name]
		found := false
		for i := range next.Income {
			if next.Income[i].Name == name {
				next.Income[i].Monthly = amount
				found = true
			}
		}
		if !found {
			next.Income = append(next.Income, domain.IncomeStream{Name: name, Monthly: amount, EndMonth: -1})
		}
	}

	for _, name := range sortedKeys(ev.Expenses) {
		amount := ev.Expenses[name]
		found := false
		for i := range next.Expenses {
			if next.Expenses[i].Name == name {
				next.Expenses[i].Monthly = amount
				found = true
			}
		}
		if !found {
			next.Expenses = append(next.Expenses, domain.ExpenseCategory{Name: name, Monthly: amount, Class: domain.ExpenseFixed})
		}
	}
	for name, class := range ev.Classification {
		for i := range next.Expenses {
			if next.Expenses[i].Name == name {
				next.Expenses[i].Class = class
			}
		}
	}

	if ev.TaxRate != nil {
		next.TaxRate = *ev.TaxRate
	}
	if ev.Policy != nil {
		next.Policy = *ev.Policy
	}
	if ev.ResetAssumptions {
		next.Assumptions = base
	}
	next.Assumptions = next.Assumptions.Apply(ev.Assumptions)
	return next
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
