package domain

import "fmt"

// RefData holds the static reference tables the engine scores against:
// country risk sets, the named-entity sanctions list, PEP keywords, the
// FATF red-flag catalog and the USD reporting thresholds. It is built once
// at startup and never mutated, so it is safe for concurrent reads.
type RefData struct {
	SanctionedCountries map[string]bool
	HighRiskCountries   map[string]bool
	NormalCountries     map[string]bool

	// SanctionsList entries are matched as case-insensitive substrings
	// against customer names.
	SanctionsList []string

	// PEPKeywords are matched as case-insensitive substrings against
	// customer occupations.
	PEPKeywords []string

	// RedFlagCatalog maps flag codes to their human descriptions.
	RedFlagCatalog map[string]string

	// ReportingThreshold is the USD amount above which reporting is
	// mandatory. StructuringLimit is the lower bound of the "just under
	// the threshold" band used for structuring detection.
	ReportingThreshold float64
	StructuringLimit   float64
}

// Red-flag codes. The catalog is closed; "clean" is the sentinel emitted
// when no other flag applies.
const (
	FlagSanctionedCountry    = "sanctioned_country"
	FlagHighRiskCountry      = "high_risk_country"
	FlagNightTransaction     = "night_transaction"
	FlagThresholdBreach      = "threshold_breach"
	FlagStructuringSuspected = "structuring_suspected"
	FlagNewAccountLarge      = "new_account_large"
	FlagHighVelocity         = "high_velocity"
	FlagIncompleteKYC        = "incomplete_kyc"
	FlagRepeatOffender       = "repeat_offender"
	FlagCryptoHighRisk       = "crypto_highrisk"
	FlagPEPLinked            = "pep_linked"
	FlagRoundAmount          = "round_amount"
	FlagClean                = "clean"
)

// DefaultRefData returns the production reference tables.
func DefaultRefData() *RefData {
	return &RefData{
		SanctionedCountries: countrySet("ir", "kp", "ru", "sy", "sd", "by", "cu", "mm"),
		HighRiskCountries:   countrySet("ir", "kp", "ru", "sy", "sd", "pk", "af", "by", "cu", "mm", "iq", "ly", "ye", "so"),
		NormalCountries:     countrySet("ae", "sa", "eg", "us", "uk", "de", "fr", "jp", "sg", "au", "ca", "ch", "nl"),
		SanctionsList: []string{
			"kim jong", "putin vladimir", "khamenei", "al-bashir", "lukashenko",
			"maduro nicolas", "al-assad", "gaddafi",
		},
		PEPKeywords: []string{
			"minister", "president", "senator", "official", "politician",
			"ambassador", "governor", "parliament", "general", "director general",
		},
		RedFlagCatalog: map[string]string{
			FlagSanctionedCountry:    "Transaction to/from FATF sanctioned jurisdiction",
			FlagHighRiskCountry:      "Destination is FATF high-risk jurisdiction",
			FlagNightTransaction:     "Transaction executed during unusual hours (00:00–05:59)",
			FlagThresholdBreach:      "Amount exceeds mandatory reporting threshold ($10,000)",
			FlagStructuringSuspected: "Amount near reporting threshold — possible structuring",
			FlagNewAccountLarge:      "Large transaction from recently opened account",
			FlagHighVelocity:         "Abnormally high transaction frequency in 30-day period",
			FlagIncompleteKYC:        "Customer identity not fully verified (incomplete KYC)",
			FlagRepeatOffender:       "Customer has prior suspicious activity on record",
			FlagCryptoHighRisk:       "Cryptocurrency transfer to high-risk jurisdiction",
			FlagPEPLinked:            "Customer linked to Politically Exposed Person (PEP)",
			FlagRoundAmount:          "Suspiciously round transaction amount",
		},
		ReportingThreshold: 10_000,
		StructuringLimit:   9_500,
	}
}

// Validate checks that the reference tables are usable. A failure here is
// a configuration error: the engine cannot run without them.
func (r *RefData) Validate() error {
	if len(r.SanctionedCountries) == 0 {
		return fmt.Errorf("refdata: sanctioned country set is empty")
	}
	if len(r.HighRiskCountries) == 0 {
		return fmt.Errorf("refdata: high-risk country set is empty")
	}
	if len(r.RedFlagCatalog) == 0 {
		return fmt.Errorf("refdata: red-flag catalog is empty")
	}
	if r.StructuringLimit <= 0 || r.ReportingThreshold <= r.StructuringLimit {
		return fmt.Errorf("refdata: thresholds are inconsistent (structuring %.0f, reporting %.0f)",
			r.StructuringLimit, r.ReportingThreshold)
	}
	return nil
}

// IsSanctioned reports whether the country code is in the sanctioned set.
// Codes are stored lowercase; callers pass normalized input.
func (r *RefData) IsSanctioned(country string) bool {
	return r.SanctionedCountries[country]
}

// IsHighRisk reports whether the country code is in the high-risk set.
// The sanctioned and high-risk sets are independent: membership in one
// does not imply membership in the other.
func (r *RefData) IsHighRisk(country string) bool {
	return r.HighRiskCountries[country]
}

func countrySet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
