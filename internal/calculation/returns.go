package calculation

import (
	"math"
	"math/rand/v2"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// StepContext is what a ReturnSource sees for one step.
type StepContext struct {
	Step        int
	Month       int
	Granularity domain.Granularity
	Assumptions domain.Assumptions
}

// ReturnSource yields the portfolio return for each step, in step order.
// Implementations holding random state belong to a single trial.
type ReturnSource interface {
	Next(sc StepContext) float64
}

// stepRate converts an annual rate to the rate of one step.
func stepRate(annual float64, g domain.Granularity) float64 {
	if annual <= -1 {
		return -1
	}
	if g == domain.Yearly {
		return annual
	}
	return math.Pow(1+annual, 1/float64(g.StepsPerYear())) - 1
}

// FixedReturn returns expected_return + Offset*variance from the active
// assumptions, converted to a step rate.
type FixedReturn struct {
	Offset float64
}

func (f FixedReturn) Next(sc StepContext) float64 {
	a := sc.Assumptions
	return stepRate(a.ExpectedReturn+f.Offset*a.Variance, sc.Granularity)
}

// NormalReturn draws each step from a normal distribution centred on the
// step rate of expected_return with standard deviation
// variance / sqrt(steps per year).
type NormalReturn struct {
	rng *rand.Rand
}

// NewNormalReturn seeds a normal return source.
func NewNormalReturn(seed uint64) *NormalReturn {
	return &NormalReturn{rng: newTrialRand(seed)}
}

func (n *NormalReturn) Next(sc StepContext) float64 {
	a := sc.Assumptions
	mean := stepRate(a.ExpectedReturn, sc.Granularity)
	sigma := a.Variance / math.Sqrt(float64(sc.Granularity.StepsPerYear()))
	return math.Max(mean+sigma*n.rng.NormFloat64(), -1)
}

// HistoricalReturn bootstraps annual returns from a historical series. A
// sampled year is held for twelve months so monthly steps compound back to
// the historical annual figure.
type HistoricalReturn struct {
	annual  []float64
	rng     *rand.Rand
	current float64
	drawnAt int
}

// NewHistoricalReturn seeds a bootstrap over the given annual returns.
func NewHistoricalReturn(annual []float64, seed uint64) *HistoricalReturn {
	return &HistoricalReturn{annual: annual, rng: newTrialRand(seed), drawnAt: -12}
}

func (h *HistoricalReturn) Next(sc StepContext) float64 {
	if len(h.annual) == 0 {
		return FixedReturn{}.Next(sc)
	}
	if sc.Month-h.drawnAt >= 12 {
		h.current = h.annual[h.rng.IntN(len(h.annual))]
		h.drawnAt = sc.Month
	}
	return stepRate(h.current, sc.Granularity)
}

// ShockOverlay forces the return of steps covering a shocked month. The
// inner source is always advanced so the random stream does not depend on
// where shocks fall.
type ShockOverlay struct {
	Inner  ReturnSource
	Shocks map[int]float64
}

func (s ShockOverlay) Next(sc StepContext) float64 {
	r := s.Inner.Next(sc)
	for k := 0; k < sc.Granularity.StepMonths(); k++ {
		if v, ok := s.Shocks[sc.Month+k]; ok {
			return math.Max(v, -1)
		}
	}
	return r
}
