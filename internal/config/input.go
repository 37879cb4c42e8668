package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of input documents
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// Document is an input file decoded but not yet interpreted. Tree holds the
// generic JSON form used by the structural validator; the typed form is only
// decoded when the document is interpreted.
type Document struct {
	Path       string
	SchemaType string
	Tree       map[string]any
	data       []byte
	raw        rawDocument
}

// LoadFromFile reads a JSON or YAML input document.
func (ip *InputParser) LoadFromFile(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.Parse(filename, data)
}

// Parse decodes data as the format implied by name's extension. YAML is
// normalized to JSON first so both formats share one set of field names.
func (ip *InputParser) Parse(name string, data []byte) (*Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse YAML %s: %w", name, err)
		}
		normalized, err := json.Marshal(normalizeYAML(tree))
		if err != nil {
			return nil, fmt.Errorf("failed to normalize YAML %s: %w", name, err)
		}
		data = normalized
	case ".json", "":
	default:
		return nil, fmt.Errorf("unsupported input format %q for %s", filepath.Ext(name), name)
	}

	doc := &Document{Path: name, data: data}
	if err := json.Unmarshal(data, &doc.Tree); err != nil {
		return nil, fmt.Errorf("failed to parse JSON %s: %w", name, err)
	}
	doc.SchemaType, _ = doc.Tree["schema_type"].(string)
	return doc, nil
}

func (d *Document) decode() error {
	if d.data == nil {
		return nil
	}
	if err := json.NewDecoder(bytes.NewReader(d.data)).Decode(&d.raw); err != nil {
		return fmt.Errorf("failed to decode %s: %w", d.Path, err)
	}
	d.data = nil
	return nil
}

// normalizeYAML converts YAML-only shapes (non-string keys, timestamps) to
// their JSON equivalents.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	case time.Time:
		return t.Format("2006-01-02")
	}
	return v
}

// LoadProfile loads a user_base document.
func (ip *InputParser) LoadProfile(filename string) (*domain.Profile, error) {
	doc, err := ip.LoadFromFile(filename)
	if err != nil {
		return nil, err
	}
	return doc.Profile()
}

// LoadOverlay loads a scenario document.
func (ip *InputParser) LoadOverlay(filename string) (*domain.Overlay, error) {
	doc, err := ip.LoadFromFile(filename)
	if err != nil {
		return nil, err
	}
	return doc.Overlay()
}

// Profile interprets the document as a base profile. The schema type is
// carried through unchecked; the resolver rejects mismatches.
func (d *Document) Profile() (*domain.Profile, error) {
	if err := d.decode(); err != nil {
		return nil, err
	}
	r := d.raw
	p := &domain.Profile{
		SourceFile:      d.Path,
		SchemaType:      r.SchemaType,
		SchemaVersion:   r.SchemaVersion,
		Description:     r.Description,
		WithdrawalOrder: r.Portfolio.WithdrawalOrder,
	}
	var err error
	if p.StartDate, err = optionalMonth(r.StartDate); err != nil {
		return nil, d.fieldErr("start_date", err)
	}
	if p.Person, err = r.Person.toDomain(); err != nil {
		return nil, d.fieldErr("person", err)
	}
	for _, name := range sortedKeys(r.Income) {
		p.Income = append(p.Income, r.Income[name].toDomain(name))
	}

	if r.Expenses.TotalTaxRate != nil {
		p.TaxRate = *r.Expenses.TotalTaxRate
	}
	for _, name := range sortedKeys(r.Expenses.Breakdown) {
		class, err := domain.ParseExpenseClass(r.Expenses.Classification[name])
		if err != nil {
			return nil, d.fieldErr("expenses.classification."+name, err)
		}
		p.Expenses = append(p.Expenses, domain.ExpenseCategory{Name: name, Monthly: r.Expenses.Breakdown[name], Class: class})
	}
	for name := range r.Expenses.Classification {
		if _, ok := r.Expenses.Breakdown[name]; !ok {
			return nil, d.fieldErr("expenses.classification", fmt.Errorf("%q has no breakdown entry", name))
		}
	}
	if r.Expenses.SpendingPolicy != nil {
		policy, err := r.Expenses.SpendingPolicy.toDomain()
		if err != nil {
			return nil, d.fieldErr("expenses.spending_policy", err)
		}
		p.Policy = policy
	}

	for _, treatment := range sortedKeys(r.Portfolio.Breakdown) {
		t, err := domain.ParseTaxTreatment(treatment)
		if err != nil {
			return nil, d.fieldErr("portfolio.breakdown", err)
		}
		accounts := r.Portfolio.Breakdown[treatment]
		for _, name := range sortedKeys(accounts) {
			p.Buckets = append(p.Buckets, domain.PortfolioBucket{Name: name, Treatment: t, Balance: accounts[name]})
		}
	}

	p.Assumptions = domain.Assumptions{}.Apply(r.Assumptions.toOverrides())
	if p.Events, err = d.events(); err != nil {
		return nil, err
	}
	if p.Shocks, err = d.shocks(); err != nil {
		return nil, err
	}
	return p, nil
}

// Overlay interprets the document as a scenario overlay.
func (d *Document) Overlay() (*domain.Overlay, error) {
	if err := d.decode(); err != nil {
		return nil, err
	}
	r := d.raw
	o := &domain.Overlay{
		SourceFile:    d.Path,
		SchemaType:    r.SchemaType,
		SchemaVersion: r.SchemaVersion,
		Description:   r.Description,
		Assumptions:   r.Assumptions.toOverrides(),
	}
	var err error
	if o.StartDate, err = optionalMonth(r.StartDate); err != nil {
		return nil, d.fieldErr("start_date", err)
	}
	if o.Events, err = d.events(); err != nil {
		return nil, err
	}
	if o.Shocks, err = d.shocks(); err != nil {
		return nil, err
	}
	return o, nil
}

func (d *Document) fieldErr(field string, err error) error {
	return fmt.Errorf("%s: %s: %w", d.Path, field, err)
}

func (d *Document) events() ([]domain.LifeEvent, error) {
	out := make([]domain.LifeEvent, 0, len(d.raw.LifeEvents))
	for i, re := range d.raw.LifeEvents {
		ev, err := re.toDomain(d.Path, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (d *Document) shocks() ([]domain.MarketShock, error) {
	var out []domain.MarketShock
	for i, rs := range d.raw.Shocks {
		date := rs.Date
		if date == "" {
			date = rs.YM
		}
		if date == "" {
			continue
		}
		at, err := dateutil.ParseYearMonth(date)
		if err != nil {
			return nil, d.fieldErr(fmt.Sprintf("forced_market_events[%d]", i), err)
		}
		shock := domain.MarketShock{Date: at, Source: d.Path}
		switch {
		case rs.ShockReturn != nil:
			shock.Return = *rs.ShockReturn
		case rs.DropPct != nil:
			shock.Return = -math.Abs(*rs.DropPct)
		default:
			continue
		}
		out = append(out, shock)
	}
	return out, nil
}

func optionalMonth(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := dateutil.ParseYearMonth(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (rp rawPerson) toDomain() (domain.Person, error) {
	p := domain.Person{Name: rp.Name, CurrentAge: rp.CurrentAge}
	if rp.Birthdate != "" {
		bd, err := dateutil.ParseDate(rp.Birthdate)
		if err != nil {
			return p, err
		}
		p.BirthDate = &bd
	}
	if rp.StopAge != nil {
		p.StopAge = *rp.StopAge
	}
	if rp.StopDate != "" {
		sd, err := dateutil.ParseYearMonth(rp.StopDate)
		if err != nil {
			return p, err
		}
		p.StopDate = &sd
	}
	return p, nil
}

func (ri rawIncome) toDomain(name string) domain.IncomeStream {
	s := domain.IncomeStream{Name: name, Monthly: ri.Monthly, Indexed: ri.Indexed, EndMonth: -1}
	if ri.StartDate != "" || ri.EndDate != "" || ri.StartAge != nil || ri.EndAge != nil {
		s.Window = &domain.IncomeWindow{
			StartDate: ri.StartDate,
			EndDate:   ri.EndDate,
			StartAge:  ri.StartAge,
			EndAge:    ri.EndAge,
		}
	}
	return s
}

func (rp rawPolicy) toDomain() (domain.SpendingPolicy, error) {
	t, err := domain.ParsePolicyType(rp.Type)
	if err != nil {
		return domain.SpendingPolicy{}, err
	}
	p := domain.SpendingPolicy{Type: t, PriorityOrder: rp.PriorityOrder}
	if rp.CapRate != nil {
		p.CapRate = *rp.CapRate
	}
	if rp.MaxMonthlyWithdrawal != nil {
		p.MaxMonthlyWithdrawal = *rp.MaxMonthlyWithdrawal
	}
	return p, nil
}

func (ra *rawAssumptions) toOverrides() domain.AssumptionOverrides {
	if ra == nil {
		return domain.AssumptionOverrides{}
	}
	return domain.AssumptionOverrides{
		ExpectedReturn: ra.ExpectedReturn,
		Variance:       ra.Variance,
		Inflation:      ra.Inflation,
	}
}

func (re rawEvent) toDomain(file string, index int) (domain.LifeEvent, error) {
	name := strings.TrimSpace(re.Event)
	if name == "" {
		name = strings.TrimSpace(re.Name)
	}
	ev := domain.LifeEvent{
		Name:        name,
		Income:      re.UpdatedIncome,
		Assumptions: re.UpdatedAssumptions.toOverrides(),
		Jitter:      re.Stochastic,
		Source:      domain.EventSource{File: file, Index: index},
	}
	label := name
	if label == "" {
		label = fmt.Sprintf("life_events[%d]", index)
	}

	timing, err := re.timing()
	if err != nil {
		return ev, &calculation.ConfigError{Kind: calculation.ErrInvalidTiming, File: file, Event: label, Detail: err.Error()}
	}
	ev.Timing = timing

	if ue := re.UpdatedExpenses; ue != nil {
		ev.Expenses = ue.Breakdown
		ev.TaxRate = ue.TotalTaxRate
		if len(ue.Classification) > 0 {
			ev.Classification = make(map[string]domain.ExpenseClass, len(ue.Classification))
			for k, v := range ue.Classification {
				class, err := domain.ParseExpenseClass(v)
				if err != nil {
					return ev, fmt.Errorf("%s: event %q: %w", file, label, err)
				}
				ev.Classification[k] = class
			}
		}
		if ue.SpendingPolicy != nil {
			policy, err := ue.SpendingPolicy.toDomain()
			if err != nil {
				return ev, fmt.Errorf("%s: event %q: %w", file, label, err)
			}
			ev.Policy = &policy
		}
	}

	if re.Reset != nil {
		switch re.Reset.Assumptions {
		case "base":
			ev.ResetAssumptions = true
		case "":
		default:
			return ev, fmt.Errorf("%s: event %q: reset.assumptions must be \"base\", got %q", file, label, re.Reset.Assumptions)
		}
	}

	if up := re.UpdatedPortfolio; up != nil {
		for _, treatment := range sortedKeys(up.Breakdown) {
			t, err := domain.ParseTaxTreatment(treatment)
			if err != nil {
				return ev, fmt.Errorf("%s: event %q: %w", file, label, err)
			}
			accounts := up.Breakdown[treatment]
			for _, bucket := range sortedKeys(accounts) {
				ev.Deposits = append(ev.Deposits, domain.Deposit{Bucket: bucket, Treatment: t, Amount: accounts[bucket]})
			}
		}
	}
	return ev, nil
}

// timing picks the event's single timing form.
func (re rawEvent) timing() (domain.Timing, error) {
	var forms []domain.Timing
	if re.TMonth != nil {
		forms = append(forms, domain.ExplicitMonth{Month: *re.TMonth})
	}
	if re.T != nil {
		if re.T.Year < 0 {
			return nil, fmt.Errorf("t.year must be >= 0, got %d", re.T.Year)
		}
		if re.T.Month < 1 || re.T.Month > 12 {
			return nil, fmt.Errorf("t.month must be in 1..12, got %d", re.T.Month)
		}
		forms = append(forms, domain.ExplicitMonth{Month: re.T.Year*12 + re.T.Month - 1})
	}
	if re.Age != nil {
		forms = append(forms, domain.AgeTiming{Age: *re.Age})
	}
	if strings.TrimSpace(re.Date) != "" {
		at, err := dateutil.ParseYearMonth(re.Date)
		if err != nil {
			return nil, err
		}
		forms = append(forms, domain.AbsoluteDate{Date: at})
	}
	if re.Offset != nil {
		from := strings.TrimSpace(re.Offset.From)
		if from == "" {
			return nil, fmt.Errorf("offset.from is required")
		}
		forms = append(forms, domain.OffsetFromEvent{From: from, Years: re.Offset.Years, Months: re.Offset.Months})
	}

	switch len(forms) {
	case 0:
		return nil, fmt.Errorf("one of t_month, t, age, date or offset is required")
	case 1:
		return forms[0], nil
	}
	described := make([]string, len(forms))
	for i, f := range forms {
		described[i] = f.Describe()
	}
	return nil, fmt.Errorf("conflicting timings: %s", strings.Join(described, ", "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
