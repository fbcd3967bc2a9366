package engine

import "github.com/couchcryptid/threat-signal-etl/internal/domain"

// Summarize counts detected categories across threats and collects the
// high and critical ones. Unknown classifications are ignored.
func Summarize(threats []domain.RankedThreat) domain.ThreatSummary {
	summary := domain.ThreatSummary{
		ThreatBreakdown: make(map[string]int),
		HighRiskPosts:   []domain.RankedThreat{},
	}
	for _, t := range threats {
		c := t.Classification
		if !c.IsThreat() {
			continue
		}
		summary.ThreatBreakdown[c.PrimaryThreat]++
		summary.TotalThreatsDetected++
		if c.RiskLevel.IsHigh() {
			summary.HighRiskCount++
			summary.HighRiskPosts = append(summary.HighRiskPosts, t)
		}
	}
	return summary
}
