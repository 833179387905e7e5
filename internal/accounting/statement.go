// Package accounting builds income statements from sold inventory and expenses.
package accounting

import (
	"fmt"
	"sort"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/shopspring/decimal"
)

const monthLayout = "2006-01"

var hundred = decimal.NewFromInt(100)

// MonthBucket holds the figures for one calendar month
type MonthBucket struct {
	Month       string          `json:"month"`
	ItemsSold   int             `json:"items_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
	COGS        decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	Expenses    decimal.Decimal `json:"expenses"`
	NetProfit   decimal.Decimal `json:"net_profit"`
	MarginPct   decimal.Decimal `json:"margin_pct"`
}

// Statement is the income statement for a range of months
type Statement struct {
	From               string                     `json:"from"`
	To                 string                     `json:"to"`
	Months             []MonthBucket              `json:"months"`
	Totals             MonthBucket                `json:"totals"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
	SalesByChannel     map[string]decimal.Decimal `json:"sales_by_channel"`
}

// Period is an inclusive range of months
type Period struct {
	From time.Time // first day of the first month, UTC
	To   time.Time // first day of the last month, UTC
}

// ParsePeriod parses from/to in YYYY-MM form. Empty values default to the
// twelve months ending with the month containing now.
func ParsePeriod(from, to string, now time.Time) (Period, error) {
	end := monthStart(now)
	if to != "" {
		t, err := time.Parse(monthLayout, to)
		if err != nil {
			return Period{}, fmt.Errorf("invalid to month %q: expected YYYY-MM", to)
		}
		end = t
	}
	start := end.AddDate(0, -11, 0)
	if from != "" {
		t, err := time.Parse(monthLayout, from)
		if err != nil {
			return Period{}, fmt.Errorf("invalid from month %q: expected YYYY-MM", from)
		}
		start = t
	}
	if start.After(end) {
		return Period{}, fmt.Errorf("from month %s is after to month %s", start.Format(monthLayout), end.Format(monthLayout))
	}
	if end.Sub(start) > 5*366*24*time.Hour {
		return Period{}, fmt.Errorf("period cannot exceed five years")
	}
	return Period{From: start, To: end}, nil
}

// End is the exclusive upper bound of the period.
func (p Period) End() time.Time {
	return p.To.AddDate(0, 1, 0)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// BuildStatement groups sold items and expenses into monthly buckets. Items without
// a sale price or sale date, and rows outside the period, are ignored.
func BuildStatement(period Period, sold []*models.InventoryItem, expenses []*models.Expense) *Statement {
	buckets := make(map[string]*MonthBucket)
	var order []string
	for m := period.From; !m.After(period.To); m = m.AddDate(0, 1, 0) {
		key := m.Format(monthLayout)
		buckets[key] = &MonthBucket{Month: key}
		order = append(order, key)
	}

	st := &Statement{
		From:               period.From.Format(monthLayout),
		To:                 period.To.Format(monthLayout),
		ExpensesByCategory: make(map[string]decimal.Decimal),
		SalesByChannel:     make(map[string]decimal.Decimal),
	}

	for _, item := range sold {
		if item.SalePrice == nil || item.SoldAt == nil {
			continue
		}
		b, ok := buckets[item.SoldAt.UTC().Format(monthLayout)]
		if !ok {
			continue
		}
		b.ItemsSold++
		b.Revenue = b.Revenue.Add(*item.SalePrice)
		b.COGS = b.COGS.Add(item.Cost)

		channel := item.SoldChannel
		if channel == "" {
			channel = "unspecified"
		}
		st.SalesByChannel[channel] = st.SalesByChannel[channel].Add(*item.SalePrice)
	}

	for _, e := range expenses {
		b, ok := buckets[e.Date.UTC().Format(monthLayout)]
		if !ok {
			continue
		}
		b.Expenses = b.Expenses.Add(e.Amount)
		st.ExpensesByCategory[e.Category] = st.ExpensesByCategory[e.Category].Add(e.Amount)
	}

	st.Totals.Month = "total"
	for _, key := range order {
		b := buckets[key]
		finish(b)
		st.Months = append(st.Months, *b)

		st.Totals.ItemsSold += b.ItemsSold
		st.Totals.Revenue = st.Totals.Revenue.Add(b.Revenue)
		st.Totals.COGS = st.Totals.COGS.Add(b.COGS)
		st.Totals.Expenses = st.Totals.Expenses.Add(b.Expenses)
	}
	finish(&st.Totals)

	for k, v := range st.ExpensesByCategory {
		st.ExpensesByCategory[k] = v.Round(2)
	}
	for k, v := range st.SalesByChannel {
		st.SalesByChannel[k] = v.Round(2)
	}
	return st
}

func finish(b *MonthBucket) {
	b.GrossProfit = b.Revenue.Sub(b.COGS)
	b.NetProfit = b.GrossProfit.Sub(b.Expenses)
	if b.Revenue.IsPositive() {
		b.MarginPct = b.NetProfit.Div(b.Revenue).Mul(hundred).Round(2)
	} else {
		b.MarginPct = decimal.Zero
	}
	b.Revenue = b.Revenue.Round(2)
	b.COGS = b.COGS.Round(2)
	b.GrossProfit = b.GrossProfit.Round(2)
	b.Expenses = b.Expenses.Round(2)
	b.NetProfit = b.NetProfit.Round(2)
}

// SortedCategories returns category names ordered by descending spend, then name.
func (s *Statement) SortedCategories() []string {
	out := make([]string, 0, len(s.ExpensesByCategory))
	for k := range s.ExpensesByCategory {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := s.ExpensesByCategory[out[i]], s.ExpensesByCategory[out[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return out[i] < out[j]
	})
	return out
}
