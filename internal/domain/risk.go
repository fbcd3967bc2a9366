package domain

import (
	"fmt"
	"strings"
)

// RiskLevel is the four-step severity scale shared by taxonomy categories,
// gazetteer entries and classifications.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Weight is the classifier tie-break weight: critical=4 down to low=1.
// Unrecognized levels weigh 0.
func (r RiskLevel) Weight() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// PriorityWeight is the base ranking score for the level.
func (r RiskLevel) PriorityWeight() int {
	return r.Weight() * 100
}

// Valid reports whether r is one of the four known levels.
func (r RiskLevel) Valid() bool {
	return r.Weight() > 0
}

// IsHigh reports whether the level is high or critical.
func (r RiskLevel) IsHigh() bool {
	return r == RiskHigh || r == RiskCritical
}

// ParseRiskLevel normalizes s into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return r, nil
}
