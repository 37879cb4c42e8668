package calculation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
)

// ageEpsilon absorbs float error in (age - startAge) * 12 before truncation.
const ageEpsilon = 1e-9

// Anchor is the origin event timings resolve against.
type Anchor struct {
	Start    time.Time
	StartAge float64
	// Shift moves an event's own month before its dependants resolve.
	// Shifted months are clamped at zero.
	Shift map[string]int
}

const (
	unvisited = iota
	visiting
	resolved
)

type scheduler struct {
	events []domain.LifeEvent
	anchor Anchor
	index  map[string]int
	months []int
	state  []int
}

// Schedule resolves every event to a month index and returns them ordered by
// month. Events in the same month keep declared order: base profile first,
// then overlays in application order, then declaration order within a file.
func Schedule(events []domain.LifeEvent, anchor Anchor) ([]domain.ScheduledEvent, error) {
	s := &scheduler{
		events: events,
		anchor: anchor,
		index:  make(map[string]int, len(events)),
		months: make([]int, len(events)),
		state:  make([]int, len(events)),
	}
	for i, ev := range events {
		if strings.TrimSpace(ev.Name) == "" {
			return nil, configErr(ErrMissingEventName, ev.Source.File, "", "life event #%d has no name", ev.Source.Index+1)
		}
		if j, dup := s.index[ev.Name]; dup {
			return nil, configErr(ErrDuplicateEventName, ev.Source.File, ev.Name,
				"also declared in %s", events[j].Source.File)
		}
		s.index[ev.Name] = i
	}

	for i := range events {
		if _, err := s.resolve(i, nil); err != nil {
			return nil, err
		}
	}

	out := make([]domain.ScheduledEvent, len(events))
	for i, ev := range events {
		out[i] = domain.ScheduledEvent{Month: s.months[i], Event: ev}
	}
	sort.SliceStable(out, func(a, b int) bool {
		ea, eb := out[a], out[b]
		if ea.Month != eb.Month {
			return ea.Month < eb.Month
		}
		if ea.Event.Source.Layer != eb.Event.Source.Layer {
			return ea.Event.Source.Layer < eb.Event.Source.Layer
		}
		return ea.Event.Source.Index < eb.Event.Source.Index
	})
	return out, nil
}

func (s *scheduler) resolve(i int, path []string) (int, error) {
	ev := s.events[i]
	switch s.state[i] {
	case resolved:
		return s.months[i], nil
	case visiting:
		cycle := []string{ev.Name}
		for k, name := range path {
			if name == ev.Name {
				cycle = append(append([]string{}, path[k:]...), ev.Name)
				break
			}
		}
		return 0, configErr(ErrCyclicOffsetReference, ev.Source.File, ev.Name, "%s", strings.Join(cycle, " -> "))
	}
	s.state[i] = visiting

	var month int
	switch t := ev.Timing.(type) {
	case domain.ExplicitMonth:
		month = t.Month
	case domain.AgeTiming:
		if math.IsNaN(t.Age) || math.IsInf(t.Age, 0) {
			return 0, configErr(ErrInvalidTiming, ev.Source.File, ev.Name, "age %v is not a number", t.Age)
		}
		month = int(math.Floor((t.Age-s.anchor.StartAge)*12 + ageEpsilon))
	case domain.AbsoluteDate:
		month = dateutil.MonthsBetween(s.anchor.Start, t.Date)
	case domain.OffsetFromEvent:
		j, ok := s.index[t.From]
		if !ok {
			return 0, configErr(ErrUnknownEventReference, ev.Source.File, ev.Name, "offset refers to %q", t.From)
		}
		ref, err := s.resolve(j, append(path, ev.Name))
		if err != nil {
			return 0, err
		}
		month = ref + t.Years*12 + t.Months
	case nil:
		return 0, configErr(ErrInvalidTiming, ev.Source.File, ev.Name, "no timing given")
	default:
		return 0, configErr(ErrInvalidTiming, ev.Source.File, ev.Name, "unsupported timing %T", t)
	}

	if month < 0 {
		return 0, configErr(ErrEventBeforeStart, ev.Source.File, ev.Name,
			"%s resolves to month %d, before %s", ev.Timing.Describe(), month, dateutil.FormatYearMonth(s.anchor.Start))
	}
	if shift, ok := s.anchor.Shift[ev.Name]; ok {
		month += shift
		if month < 0 {
			month = 0
		}
	}

	s.months[i] = month
	s.state[i] = resolved
	return month, nil
}
