package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalMetric names what a goal measures
type GoalMetric string

const (
	GoalMetricRevenue   GoalMetric = "revenue"
	GoalMetricItemsSold GoalMetric = "items_sold"
	GoalMetricProfit    GoalMetric = "profit"
	GoalMetricCustom    GoalMetric = "custom"
)

// Goal is a target with a weight used for the combined progress figure
type Goal struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Metric      GoalMetric      `json:"metric"`
	Target      decimal.Decimal `json:"target"`
	Current     decimal.Decimal `json:"current"`
	Weight      int             `json:"weight"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// Percent returns progress towards the target in the range [0, 100].
func (g *Goal) Percent() decimal.Decimal {
	if !g.Target.IsPositive() {
		return decimal.Zero
	}
	pct := g.Current.Div(g.Target).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct.Round(2)
}

// WeightedPercent combines goal progress as sum(weight*pct)/sum(weight).
// Goals with a non-positive weight are ignored.
func WeightedPercent(goals []*Goal) decimal.Decimal {
	total := decimal.Zero
	weights := 0
	for _, g := range goals {
		if g.Weight <= 0 {
			continue
		}
		total = total.Add(g.Percent().Mul(decimal.NewFromInt(int64(g.Weight))))
		weights += g.Weight
	}
	if weights == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(weights))).Round(2)
}
