package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/azadi/internal/logging"
)

// Pruner is implemented by stores that can drop expired entries eagerly.
type Pruner interface {
	Prune(now time.Time) int
}

// Janitor prunes expired entries on a cron schedule. Lazy expiry keeps reads
// correct without it; the janitor only bounds memory between reads.
type Janitor struct {
	expr   *cronexpr.Expression
	stores []Pruner
	now    func() time.Time
}

// NewJanitor parses spec (5-field cron or @hourly style).
func NewJanitor(spec string, stores ...Pruner) (*Janitor, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("cache prune schedule %q: %w", spec, err)
	}
	return &Janitor{expr: expr, stores: stores, now: time.Now}, nil
}

// Next returns the next scheduled run after t.
func (j *Janitor) Next(t time.Time) time.Time {
	return j.expr.Next(t)
}

// RunOnce prunes every store and returns the total removed.
func (j *Janitor) RunOnce() int {
	now := j.now()
	total := 0
	for _, s := range j.stores {
		total += s.Prune(now)
	}
	return total
}

// Run blocks until ctx is done, pruning at each scheduled time.
func (j *Janitor) Run(ctx context.Context) {
	log := logging.With("cache-janitor")
	for {
		next := j.Next(j.now())
		if next.IsZero() {
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if n := j.RunOnce(); n > 0 {
				log.Debug().Int("removed", n).Msg("pruned expired cache entries")
			}
		}
	}
}
