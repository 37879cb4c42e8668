package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// ValidationError lists every structural problem found in one file. Kind is
// set when the schema_type itself is wrong, so errors.Is matches the same
// sentinel the resolver would report.
type ValidationError struct {
	File     string
	Kind     error
	Problems []string
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", e.File, e.Problems[0])
	}
	return fmt.Sprintf("%s: %d problems:\n  - %s", e.File, len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// updatedExpensesKeys are the only keys allowed directly under updated_expenses.
var updatedExpensesKeys = map[string]bool{
	"breakdown":       true,
	"total_tax_rate":  true,
	"classification":  true,
	"spending_policy": true,
}

var assumptionKeys = []string{"expected_return", "variance", "inflation"}

// Validate checks the document's structure before interpretation. When
// expected is non-empty the declared schema_type must equal it.
func (ip *InputParser) Validate(doc *Document, expected string) error {
	v := &validator{}
	tree := doc.Tree
	var kind error

	st, ok := tree["schema_type"].(string)
	switch {
	case !ok:
		v.addf("missing required top-level 'schema_type'")
	case expected != "" && st != expected:
		kind = calculation.ErrSchemaMismatch
		if st != domain.SchemaUserBase && st != domain.SchemaScenario {
			kind = calculation.ErrUnknownSchemaType
		}
		v.addf("schema_type is %q, expected %q", st, expected)
	case st == domain.SchemaUserBase:
		v.base(tree)
	case st == domain.SchemaScenario:
		v.scenario(tree)
	default:
		kind = calculation.ErrUnknownSchemaType
		v.addf("schema_type %q is not one of %q, %q", st, domain.SchemaUserBase, domain.SchemaScenario)
	}
	if ok {
		if sv, present := tree["schema_version"]; !present {
			v.addf("missing required top-level 'schema_version'")
		} else if f, isNum := sv.(float64); !isNum || f != float64(int(f)) {
			v.addf("schema_version must be an integer")
		}
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{File: doc.Path, Kind: kind, Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) base(tree map[string]any) {
	var missing []string
	for _, key := range []string{"person", "expenses", "income", "portfolio", "assumptions"} {
		if _, ok := tree[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		v.addf("missing top-level fields: %v", missing)
		return
	}

	person, _ := tree["person"].(map[string]any)
	if _, ok := person["name"]; !ok {
		v.addf("person missing 'name'")
	}
	_, hasBirth := person["birthdate"]
	_, hasAge := person["current_age"]
	switch {
	case !hasBirth && !hasAge:
		v.addf("person must include either 'birthdate' or 'current_age'")
	case hasBirth && hasAge:
		v.addf("person must not include both 'birthdate' and 'current_age'")
	}

	expenses, _ := tree["expenses"].(map[string]any)
	breakdown, ok := expenses["breakdown"].(map[string]any)
	if !ok {
		v.addf("expenses.breakdown missing or invalid")
	} else {
		v.amounts("expenses.breakdown", breakdown)
	}
	v.classification("expenses", expenses, breakdown)
	v.policy("expenses", expenses)

	if _, ok := tree["income"].(map[string]any); !ok {
		v.addf("income must be an object")
	}

	portfolio, _ := tree["portfolio"].(map[string]any)
	if pb, ok := portfolio["breakdown"].(map[string]any); !ok {
		v.addf("portfolio.breakdown missing or invalid")
	} else {
		v.treatments("portfolio.breakdown", pb)
	}

	if a, ok := tree["assumptions"].(map[string]any); !ok {
		v.addf("assumptions must be an object")
	} else {
		for _, k := range assumptionKeys {
			if _, ok := a[k]; !ok {
				v.addf("assumptions missing '%s'", k)
			}
		}
	}

	v.lifeEvents(tree["life_events"])
}

func (v *validator) scenario(tree map[string]any) {
	var missing []string
	for _, key := range []string{"description", "life_events"} {
		if _, ok := tree[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		v.addf("missing top-level fields: %v", missing)
		return
	}
	if raw, present := tree["assumptions"]; present {
		a, ok := raw.(map[string]any)
		if !ok {
			v.addf("assumptions must be an object when present")
		} else {
			for _, k := range assumptionKeys {
				if _, ok := a[k]; !ok {
					v.addf("assumptions missing '%s' (scenario overrides must be complete)", k)
				}
			}
		}
	}
	v.lifeEvents(tree["life_events"])
}

func (v *validator) lifeEvents(raw any) {
	if raw == nil {
		return
	}
	events, ok := raw.([]any)
	if !ok {
		v.addf("life_events must be a list")
		return
	}
	for i, item := range events {
		ev, ok := item.(map[string]any)
		if !ok {
			v.addf("life_events[%d] must be an object", i)
			continue
		}
		where := fmt.Sprintf("life_events[%d]", i)
		if name, _ := ev["event"].(string); strings.TrimSpace(name) != "" {
			where = name
		} else if name, _ := ev["name"].(string); strings.TrimSpace(name) != "" {
			where = name
		} else {
			v.addf("%s: missing 'event' name", where)
		}

		if ue, present := ev["updated_expenses"]; present {
			v.updatedExpenses(where, ue)
		}
		if up, present := ev["updated_portfolio"]; present {
			m, _ := up.(map[string]any)
			if pb, ok := m["breakdown"].(map[string]any); !ok {
				v.addf("%s: updated_portfolio.breakdown must be an object", where)
			} else {
				v.treatments(where+": updated_portfolio.breakdown", pb)
			}
		}
	}
}

func (v *validator) updatedExpenses(where string, raw any) {
	ue, ok := raw.(map[string]any)
	if !ok {
		v.addf("%s: updated_expenses must be an object", where)
		return
	}
	if _, present := ue["breakdown"]; !present {
		v.addf("%s: updated_expenses is missing required 'breakdown' object (use updated_expenses: { breakdown: { ... } })", where)
		return
	}
	if b, ok := ue["breakdown"].(map[string]any); !ok {
		v.addf("%s: updated_expenses.breakdown must be an object", where)
	} else {
		v.amounts(where+": updated_expenses.breakdown", b)
	}
	var extras []string
	for k := range ue {
		if !updatedExpensesKeys[k] {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		v.addf("%s: updated_expenses contains expense keys at the wrong level: %v; move them under updated_expenses.breakdown", where, extras)
	}
	v.classification(where+": updated_expenses", ue, nil)
	v.policy(where+": updated_expenses", ue)
}

// classification checks class values and, when breakdown is given, that
// every classified key has an amount.
func (v *validator) classification(where string, parent, breakdown map[string]any) {
	cls, ok := parent["classification"].(map[string]any)
	if !ok {
		return
	}
	for _, k := range sortedKeys(cls) {
		s, _ := cls[k].(string)
		if _, err := domain.ParseExpenseClass(s); err != nil {
			v.addf("%s.classification.%s: %v", where, k, err)
		}
		if breakdown != nil {
			if _, ok := breakdown[k]; !ok {
				v.addf("%s.classification.%s has no breakdown entry", where, k)
			}
		}
	}
}

// amounts requires every expense in breakdown to be a non-negative number.
func (v *validator) amounts(where string, breakdown map[string]any) {
	for _, k := range sortedKeys(breakdown) {
		f, ok := breakdown[k].(float64)
		switch {
		case !ok:
			v.addf("%s.%s must be a number", where, k)
		case f < 0:
			v.addf("%s.%s cannot be negative, got %v", where, k, f)
		}
	}
}

func (v *validator) policy(where string, parent map[string]any) {
	p, ok := parent["spending_policy"].(map[string]any)
	if !ok {
		return
	}
	t, _ := p["type"].(string)
	if _, err := domain.ParsePolicyType(t); err != nil {
		v.addf("%s.spending_policy: %v", where, err)
	}
}

func (v *validator) treatments(where string, breakdown map[string]any) {
	for _, k := range sortedKeys(breakdown) {
		if _, err := domain.ParseTaxTreatment(k); err != nil {
			v.addf("%s: %v", where, err)
		}
		if _, ok := breakdown[k].(map[string]any); !ok {
			v.addf("%s.%s must be an object of account balances", where, k)
		}
	}
}
