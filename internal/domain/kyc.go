package domain

import "time"

// CDD levels for customer due diligence.
const (
	CDDStandard = "Standard CDD"
	CDDEnhanced = "EDD"
)

// CustomerProfile is a customer submitted for KYC risk assessment.
// Only the name is required.
type CustomerProfile struct {
	Name        string `json:"name"`
	Nationality string `json:"nationality,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	Country     string `json:"country,omitempty"`
	DOB         string `json:"dob,omitempty"`
	IDNumber    string `json:"id_number,omitempty"`
}

// KYCResult is the outcome of a customer KYC risk assessment.
type KYCResult struct {
	CustomerName string `json:"customer_name"`

	RiskScore int       `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`

	SanctionsMatch      bool `json:"sanctions_match"`
	IsPEP               bool `json:"is_pep"`
	HighRiskNationality bool `json:"high_risk_nationality"`

	CDDLevel    string    `json:"cdd_level"`
	STRRequired bool      `json:"str_required"`
	Timestamp   time.Time `json:"timestamp"`
}
