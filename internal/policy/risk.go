// Package policy implements the deny-by-default decision engine that gates
// proposed agent actions before they execute.
package policy

import (
	"fmt"
	"strings"
)

// RiskLevel classifies the severity of a proposed action.
type RiskLevel string

const (
	// RiskNone marks inspection-only actions. NONE always implies allowed.
	RiskNone RiskLevel = "NONE"
	// RiskMedium marks ordinary content modification or command execution.
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh marks unrecognized actions, denied by default.
	RiskHigh RiskLevel = "HIGH"
	// RiskCritical marks destructive or sensitive-file actions.
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity returns the ordering rank of a risk level, ascending.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskNone:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether r is one of the four defined levels.
func (r RiskLevel) Valid() bool {
	return r.Severity() >= 0
}

// ParseRiskLevel converts a string to a RiskLevel, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk level %q (must be none, medium, high, or critical)", s)
	}
	return r, nil
}
