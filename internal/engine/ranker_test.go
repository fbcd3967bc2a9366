package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threat(id string, risk domain.RiskLevel, urgent bool, ts time.Time) domain.RankedThreat {
	return domain.RankedThreat{
		Post: domain.Post{ID: id, Timestamp: ts},
		Classification: domain.Classification{
			RiskLevel:       risk,
			UrgencyDetected: urgent,
		},
	}
}

func ids(threats []domain.RankedThreat) []string {
	out := make([]string, len(threats))
	for i, t := range threats {
		out[i] = t.Post.ID
	}
	return out
}

func TestPriority(t *testing.T) {
	now := t0
	old := now.Add(-time.Hour)
	recent := now.Add(-time.Minute)

	tests := []struct {
		name string
		t    domain.RankedThreat
		want int
	}{
		{"critical old", threat("a", domain.RiskCritical, false, old), 400},
		{"high urgent old", threat("b", domain.RiskHigh, true, old), 350},
		{"medium recent", threat("c", domain.RiskMedium, false, recent), 225},
		{"low urgent recent", threat("d", domain.RiskLow, true, recent), 175},
		{"exactly five minutes", threat("e", domain.RiskLow, false, now.Add(-300*time.Second)), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Priority(tt.t, now))
		})
	}
}

func TestRank_Ordering(t *testing.T) {
	r := NewRanker(50)
	now := t0
	old := now.Add(-time.Hour)

	in := []domain.RankedThreat{
		threat("low", domain.RiskLow, false, old),
		threat("critical", domain.RiskCritical, false, old),
		threat("high-urgent", domain.RiskHigh, true, old),
		threat("high-recent", domain.RiskHigh, false, now.Add(-time.Minute)),
	}

	got := r.Rank(in, now)

	assert.Equal(t, []string{"critical", "high-urgent", "high-recent", "low"}, ids(got))
	assert.Equal(t, []int{400, 350, 325, 100}, []int{got[0].PriorityScore, got[1].PriorityScore, got[2].PriorityScore, got[3].PriorityScore})
	assert.Zero(t, in[0].PriorityScore, "input must not be modified")
}

func TestRank_TieBreak(t *testing.T) {
	r := NewRanker(50)
	now := t0
	older := now.Add(-2 * time.Hour)
	newer := now.Add(-time.Hour)

	in := []domain.RankedThreat{
		threat("b", domain.RiskHigh, false, older),
		threat("c", domain.RiskHigh, false, newer),
		threat("a", domain.RiskHigh, false, older),
	}

	assert.Equal(t, []string{"c", "a", "b"}, ids(r.Rank(in, now)))
}

func TestRank_EmptyBatch(t *testing.T) {
	r := NewRanker(50)

	assert.Empty(t, r.Rank(nil, t0))
	assert.Empty(t, r.History())
}

func TestRank_BoundedHistory(t *testing.T) {
	r := NewRanker(50)

	for batch := range 3 {
		var in []domain.RankedThreat
		for i := range 20 {
			in = append(in, threat(fmt.Sprintf("p%02d", batch*20+i), domain.RiskMedium, false, t0.Add(time.Duration(batch*20+i)*time.Second)))
		}
		r.Rank(in, t0)
	}

	h := r.History()
	require.Len(t, h, 50)

	// The first batch loses its ten oldest-appended entries. Within a batch,
	// newer posts rank first, so p19..p10 are evicted and p09 survives.
	assert.Equal(t, "p09", h[0].Post.ID)
	assert.Equal(t, "p40", h[49].Post.ID)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	r := NewRanker(5)
	r.Rank([]domain.RankedThreat{threat("x", domain.RiskLow, false, t0)}, t0)

	h := r.History()
	h[0].Post.ID = "mutated"

	assert.Equal(t, "x", r.History()[0].Post.ID)
}
