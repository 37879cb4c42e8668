package config

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// rawDocument mirrors the on-disk layout shared by user_base and scenario
// files. Fields not valid for a schema type are ignored for it.
type rawDocument struct {
	SchemaType    string               `json:"schema_type"`
	SchemaVersion int                  `json:"schema_version"`
	Description   string               `json:"description,omitempty"`
	StartDate     string               `json:"start_date,omitempty"`
	Person        rawPerson            `json:"person"`
	Income        map[string]rawIncome `json:"income,omitempty"`
	Expenses      rawExpenses          `json:"expenses"`
	Portfolio     rawPortfolio         `json:"portfolio"`
	Assumptions   *rawAssumptions      `json:"assumptions,omitempty"`
	LifeEvents    []rawEvent           `json:"life_events,omitempty"`
	Shocks        []rawShock           `json:"forced_market_events,omitempty"`
}

type rawPerson struct {
	Name       string   `json:"name,omitempty"`
	Birthdate  string   `json:"birthdate,omitempty"`
	CurrentAge *float64 `json:"current_age,omitempty"`
	StopAge    *float64 `json:"stop_age,omitempty"`
	StopDate   string   `json:"stop_date,omitempty"`
}

// rawIncome accepts either a bare monthly amount or an object.
type rawIncome struct {
	Monthly   float64  `json:"monthly"`
	Indexed   bool     `json:"indexed,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	StartAge  *float64 `json:"start_age,omitempty"`
	EndAge    *float64 `json:"end_age,omitempty"`
}

func (ri *rawIncome) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		type plain rawIncome
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return err
		}
		*ri = rawIncome(p)
		return nil
	}
	var amount float64
	if err := json.Unmarshal(trimmed, &amount); err != nil {
		return fmt.Errorf("income must be a number or an object: %w", err)
	}
	*ri = rawIncome{Monthly: amount}
	return nil
}

type rawExpenses struct {
	TotalTaxRate   *float64           `json:"total_tax_rate,omitempty"`
	Breakdown      map[string]float64 `json:"breakdown,omitempty"`
	Classification map[string]string  `json:"classification,omitempty"`
	SpendingPolicy *rawPolicy         `json:"spending_policy,omitempty"`
}

type rawPolicy struct {
	Type                 string   `json:"type,omitempty"`
	CapRate              *float64 `json:"cap_rate,omitempty"`
	MaxMonthlyWithdrawal *float64 `json:"max_monthly_withdrawal,omitempty"`
	PriorityOrder        []string `json:"priority_order,omitempty"`
}

type rawPortfolio struct {
	Breakdown       map[string]map[string]float64 `json:"breakdown,omitempty"`
	WithdrawalOrder []string                      `json:"withdrawal_order,omitempty"`
}

type rawAssumptions struct {
	ExpectedReturn *float64 `json:"expected_return,omitempty"`
	Variance       *float64 `json:"variance,omitempty"`
	Inflation      *float64 `json:"inflation,omitempty"`
}

type rawYearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type rawOffset struct {
	From   string `json:"from"`
	Years  int    `json:"years,omitempty"`
	Months int    `json:"months,omitempty"`
}

type rawReset struct {
	Assumptions string `json:"assumptions,omitempty"`
}

type rawEvent struct {
	Event              string              `json:"event,omitempty"`
	Name               string              `json:"name,omitempty"`
	TMonth             *int                `json:"t_month,omitempty"`
	T                  *rawYearMonth       `json:"t,omitempty"`
	Age                *float64            `json:"age,omitempty"`
	Date               string              `json:"date,omitempty"`
	Offset             *rawOffset          `json:"offset,omitempty"`
	UpdatedIncome      map[string]float64  `json:"updated_income,omitempty"`
	UpdatedExpenses    *rawExpenses        `json:"updated_expenses,omitempty"`
	UpdatedAssumptions *rawAssumptions     `json:"updated_assumptions,omitempty"`
	Reset              *rawReset           `json:"reset,omitempty"`
	UpdatedPortfolio   *rawPortfolio       `json:"updated_portfolio,omitempty"`
	Stochastic         *domain.EventJitter `json:"stochastic,omitempty"`
}

type rawShock struct {
	Date        string   `json:"date,omitempty"`
	YM          string   `json:"ym,omitempty"`
	DropPct     *float64 `json:"drop_pct,omitempty"`
	ShockReturn *float64 `json:"shock_return,omitempty"`
}
