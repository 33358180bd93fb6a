// Package domain defines the core interfaces and types for ShieldAML.
package domain

import (
	"time"
)

// Severity classifies a red flag. Ordered NONE < LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// RiskLevel is the discretized risk classification of a transaction or
// customer. These four values are the only ones ever produced.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevelForScore maps an ensemble score to a transaction risk level.
// Cutoffs are evaluated high to low, closed below: 80, 60, 35.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 35:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Flag is a single FATF red flag raised against a transaction.
type Flag struct {
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	FATFRef     string   `json:"fatf_ref"`
}

// IsClean reports whether this is the sentinel flag emitted when no
// red-flag predicate matched.
func (f Flag) IsClean() bool {
	return f.Code == FlagClean
}

// Recommendation is the compliance action derived from a risk level.
type Recommendation struct {
	Action      string   `json:"action"`
	Steps       []string `json:"steps"`
	STRRequired bool     `json:"str_required"`
	EDDRequired bool     `json:"edd_required"`
}

// AnalysisResult is the complete risk assessment for one transaction.
// It is immutable once produced; persistence and alert derivation happen
// outside the engine.
type AnalysisResult struct {
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`

	Score      int            `json:"score"`
	RiskLevel  RiskLevel      `json:"risk_level"`
	TreeScores map[string]int `json:"tree_scores"`

	Flags []Flag `json:"flags"`

	// FlagCount excludes the "clean" sentinel.
	FlagCount int `json:"flag_count"`

	Recommendation Recommendation `json:"recommendation"`

	ModelVersion  string `json:"model_version"`
	ComplianceRef string `json:"compliance_ref"`
}

// DashboardStats is the aggregate view served by GET /api/dashboard.
type DashboardStats struct {
	HighRisk      int     `json:"high_risk"`
	MediumRisk    int     `json:"medium_risk"`
	Cleared       int     `json:"cleared"`
	FlaggedAmount float64 `json:"flagged_amount"`
	OpenAlerts    int     `json:"open_alerts"`
	STRReports    int     `json:"str_reports"`
	Total         int     `json:"total"`
}
