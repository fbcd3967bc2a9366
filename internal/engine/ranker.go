package engine

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
)

// Priority bonuses added on top of the risk weight.
const (
	urgencyBonus = 50
	recencyBonus = 25

	recencyWindow = 300 * time.Second

	// DefaultHistoryCapacity bounds the ranked-threat history.
	DefaultHistoryCapacity = 50
)

// Ranker assigns priority scores, orders batches and keeps a bounded history
// of everything it has ranked.
type Ranker struct {
	mu       sync.RWMutex
	capacity int
	history  []domain.RankedThreat
}

// NewRanker creates a ranker whose history keeps at most capacity entries.
func NewRanker(capacity int) *Ranker {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Ranker{capacity: capacity}
}

// Priority computes the score of t relative to now:
// risk weight, +50 when urgent, +25 when posted within the last five minutes.
func Priority(t domain.RankedThreat, now time.Time) int {
	score := t.Classification.RiskLevel.PriorityWeight()
	if t.Classification.UrgencyDetected {
		score += urgencyBonus
	}
	if t.Post.Timestamp.After(now.Add(-recencyWindow)) {
		score += recencyBonus
	}
	return score
}

// Rank scores every threat, returns them sorted by priority (highest first)
// and appends the sorted batch to the history. The input slice is not modified.
// Ties are broken by newer post first, then by post ID.
func (r *Ranker) Rank(threats []domain.RankedThreat, now time.Time) []domain.RankedThreat {
	ranked := make([]domain.RankedThreat, len(threats))
	for i, t := range threats {
		t.PriorityScore = Priority(t, now)
		ranked[i] = t
	}
	slices.SortStableFunc(ranked, func(a, b domain.RankedThreat) int {
		if c := cmp.Compare(b.PriorityScore, a.PriorityScore); c != 0 {
			return c
		}
		if c := b.Post.Timestamp.Compare(a.Post.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Post.ID, b.Post.ID)
	})

	r.mu.Lock()
	r.history = append(r.history, ranked...)
	if over := len(r.history) - r.capacity; over > 0 {
		r.history = slices.Clone(r.history[over:])
	}
	r.mu.Unlock()

	return ranked
}

// History returns a copy of the retained threats, oldest first.
func (r *Ranker) History() []domain.RankedThreat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.history)
}
