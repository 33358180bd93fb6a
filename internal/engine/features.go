package engine

import (
	"math"
	"strings"

	"github.com/opensource-finance/shieldaml/internal/domain"
)

// FeatureSet is the normalized input the scoring trees and flag detector
// operate on. Every derived boolean is a pure function of the raw fields
// and the static country sets; extraction is total and never fails.
type FeatureSet struct {
	Amount     float64
	Country    string
	TxType     string
	Hour       int
	TxCount    int
	AccountAge int
	KYCStatus  domain.KYCStatus

	PrevFlagged bool
	IsPEP       bool

	IsSanctioned   bool
	IsHighRisk     bool
	IsNight        bool
	AboveThreshold bool
	NearThreshold  bool
	IsNewAccount   bool
	IsHighVelocity bool
	IsRoundAmount  bool
	KYCIncomplete  bool
}

// Extract converts a raw transaction into the feature set. Country and
// type comparison is case-insensitive. The sanctioned and high-risk sets
// are checked independently; the flag detector relies on testing
// sanctioned first so the two country flags stay mutually exclusive.
func Extract(in *domain.TransactionInput, ref *domain.RefData) FeatureSet {
	country := strings.ToLower(strings.TrimSpace(in.Country))
	txType := strings.ToLower(strings.TrimSpace(in.Type))

	return FeatureSet{
		Amount:     in.Amount,
		Country:    country,
		TxType:     txType,
		Hour:       in.Hour,
		TxCount:    in.TxCount30d,
		AccountAge: in.AccountAgeMonths,
		KYCStatus:  in.KYCStatus,

		PrevFlagged: in.PreviouslyFlagged,
		IsPEP:       in.IsPEP,

		IsSanctioned:   ref.IsSanctioned(country),
		IsHighRisk:     ref.IsHighRisk(country),
		IsNight:        in.Hour < 6,
		AboveThreshold: in.Amount >= ref.ReportingThreshold,
		NearThreshold:  in.Amount >= ref.StructuringLimit && in.Amount < ref.ReportingThreshold,
		IsNewAccount:   in.AccountAgeMonths < 3,
		IsHighVelocity: in.TxCount30d > 15,
		IsRoundAmount:  in.Amount > 1000 && math.Mod(in.Amount, 1000) == 0,
		KYCIncomplete:  in.KYCStatus == domain.KYCIncomplete,
	}
}
