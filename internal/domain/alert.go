package domain

import "time"

// Alert statuses.
const (
	AlertOpen     = "OPEN"
	AlertResolved = "RESOLVED"
)

// STR report statuses.
const (
	STRDraft     = "DRAFT"
	STRSubmitted = "SUBMITTED"
)

// Alert is a case opened against a HIGH or CRITICAL risk transaction.
type Alert struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id"`
	AlertType     string     `json:"alert_type"`
	CustomerName  string     `json:"customer_name"`
	Amount        float64    `json:"amount"`
	Description   string     `json:"description"`
	RiskLevel     RiskLevel  `json:"risk_level"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// STRReport is a Suspicious Transaction Report filing. Reports start as
// drafts and transition to submitted.
type STRReport struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	CustomerName  string         `json:"customer_name"`
	Amount        float64        `json:"amount"`
	RiskScore     int            `json:"risk_score"`
	Flags         []Flag         `json:"flags,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	OfficerName   string         `json:"officer_name"`
	OfficerCert   string         `json:"officer_cert"`
	Status        string         `json:"status"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
