package domain

import (
	"time"
)

// KYCStatus is the verification state of the customer behind a transaction.
type KYCStatus int

const (
	KYCIncomplete KYCStatus = 0
	KYCVerified   KYCStatus = 1
	KYCEnhanced   KYCStatus = 2
)

// Transaction types with type-specific scoring rules. Unrecognized values
// are not an error; no type-specific rule applies to them.
const (
	TxTypeWire      = "wire"
	TxTypeCash      = "cash"
	TxTypeCrypto    = "crypto"
	TxTypeInsurance = "insurance"
	TxTypeInternal  = "internal"
)

// TransactionInput is the raw transaction submitted for analysis.
// Amount, type and country are required; everything else defaults.
type TransactionInput struct {
	TransactionID string `json:"transaction_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`

	// Country is the ISO 2-letter counterparty country code, matched
	// case-insensitively against the risk sets.
	Country string `json:"country"`

	Hour             int       `json:"hour"`
	TxCount30d       int       `json:"tx_count_30d"`
	AccountAgeMonths int       `json:"account_age_months"`
	KYCStatus        KYCStatus `json:"kyc_status"`

	PreviouslyFlagged bool `json:"previously_flagged"`
	IsPEP             bool `json:"is_pep"`
}

// AnalyzeRequest is the API request payload for transaction analysis.
// Optional fields are pointers so that omitted values can be defaulted
// rather than read as zero.
type AnalyzeRequest struct {
	TransactionID string `json:"transaction_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Type     string  `json:"type"`
	Country  string  `json:"country"`

	Hour             *int `json:"hour,omitempty"`
	TxCount30d       *int `json:"tx_count_30d,omitempty"`
	AccountAgeMonths *int `json:"account_age_months,omitempty"`
	KYCStatus        *int `json:"kyc_status,omitempty"`

	PreviouslyFlagged bool `json:"previously_flagged"`
	IsPEP             bool `json:"is_pep"`
}

// ToInput converts a request to a TransactionInput, applying the documented
// defaults for omitted optional fields: hour 12, tx count 0, account age
// 12 months, KYC verified, currency USD.
func (r *AnalyzeRequest) ToInput() *TransactionInput {
	in := &TransactionInput{
		TransactionID:     r.TransactionID,
		CustomerID:        r.CustomerID,
		CustomerName:      r.CustomerName,
		Amount:            r.Amount,
		Currency:          "USD",
		Type:              r.Type,
		Country:           r.Country,
		Hour:              12,
		AccountAgeMonths:  12,
		KYCStatus:         KYCVerified,
		PreviouslyFlagged: r.PreviouslyFlagged,
		IsPEP:             r.IsPEP,
	}
	if r.Currency != "" {
		in.Currency = r.Currency
	}
	if r.Hour != nil {
		in.Hour = *r.Hour
	}
	if r.TxCount30d != nil {
		in.TxCount30d = *r.TxCount30d
	}
	if r.AccountAgeMonths != nil {
		in.AccountAgeMonths = *r.AccountAgeMonths
	}
	if r.KYCStatus != nil {
		in.KYCStatus = KYCStatus(*r.KYCStatus)
	}
	return in
}

// TransactionRecord is a stored transaction together with its analysis.
// This is what the repository persists and what list endpoints return.
type TransactionRecord struct {
	TransactionInput

	Score          int            `json:"risk_score"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	TreeScores     map[string]int `json:"tree_scores"`
	Flags          []Flag         `json:"flags"`
	Recommendation Recommendation `json:"recommendation"`
	STRFiled       bool           `json:"str_filed"`
	CreatedAt      time.Time      `json:"created_at"`
}
