package bgremoval

import (
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
)

// MonthlyLimitPerKey is the number of images each provider key may process per calendar month.
const MonthlyLimitPerKey = 50

// MonthKey returns the usage bucket for t, formatted YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UsageTotals aggregates usage across the pool for one month
type UsageTotals struct {
	Month     string `json:"month"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

type slot struct {
	key       *models.APIKey
	persisted int
	pending   int
}

func (s *slot) used() int { return s.persisted + s.pending }

func (s *slot) remaining(limit int) int {
	if r := limit - s.used(); r > 0 {
		return r
	}
	return 0
}

// Pool allocates images to keys for a single batch. It is not safe for concurrent use;
// each request builds its own from freshly loaded counters.
type Pool struct {
	limit int
	slots []*slot
	index map[uuid.UUID]*slot
}

// NewPool builds a pool over keys in the given order. counts holds persisted usage;
// keys missing from counts start at zero.
func NewPool(keys []*models.APIKey, counts map[uuid.UUID]int, limit int) *Pool {
	p := &Pool{limit: limit, index: make(map[uuid.UUID]*slot, len(keys))}
	for _, k := range keys {
		s := &slot{key: k, persisted: counts[k.ID]}
		p.slots = append(p.slots, s)
		p.index[k.ID] = s
	}
	return p
}

// Remaining is the combined quota still available across all keys.
func (p *Pool) Remaining() int {
	total := 0
	for _, s := range p.slots {
		total += s.remaining(p.limit)
	}
	return total
}

// Next returns the first key in priority order whose persisted plus in-batch usage is under the limit.
func (p *Pool) Next() (*models.APIKey, bool) {
	for _, s := range p.slots {
		if s.used() < p.limit {
			return s.key, true
		}
	}
	return nil, false
}

// Record counts one successful image against keyID.
func (p *Pool) Record(keyID uuid.UUID) {
	if s, ok := p.index[keyID]; ok {
		s.pending++
	}
}

// Increments returns the in-batch usage per key, omitting keys that were not used.
func (p *Pool) Increments() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, s := range p.slots {
		if s.pending > 0 {
			out[s.key.ID] = s.pending
		}
	}
	return out
}

// Totals summarises the pool including in-batch usage.
func (p *Pool) Totals(month string) UsageTotals {
	t := UsageTotals{Month: month}
	for _, s := range p.slots {
		t.Used += s.used()
		t.Limit += p.limit
		t.Remaining += s.remaining(p.limit)
	}
	return t
}

// KeyUsage reports per-key usage including in-batch increments.
func (p *Pool) KeyUsage(mask func(string) string) []models.KeyUsage {
	out := make([]models.KeyUsage, 0, len(p.slots))
	for _, s := range p.slots {
		out = append(out, models.KeyUsage{
			ID:         s.key.ID,
			Name:       s.key.Name,
			SecretHint: mask(s.key.Secret),
			Priority:   s.key.Priority,
			Active:     s.key.Active,
			Used:       s.used(),
			Limit:      p.limit,
			Remaining:  s.remaining(p.limit),
		})
	}
	return out
}
