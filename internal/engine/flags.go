package engine

import (
	"github.com/opensource-finance/shieldaml/internal/domain"
)

// flagCheck is one entry in the built-in red-flag catalog: an independent
// predicate with a fixed severity and regulatory citation. Checks run in
// declaration order; order affects presentation only, flags never feed
// back into the scoring trees.
type flagCheck struct {
	code     string
	severity domain.Severity
	fatfRef  string
	applies  func(f FeatureSet) bool
}

// builtinFlagChecks is the fixed FATF red-flag catalog. The sanctioned and
// high-risk country checks are mutually exclusive by construction:
// sanctioned is tested first and the high-risk predicate excludes it. The
// crypto check is independent of both and stacks with them.
var builtinFlagChecks = []flagCheck{
	{domain.FlagSanctionedCountry, domain.SeverityCritical, "FATF Recommendation 6",
		func(f FeatureSet) bool { return f.IsSanctioned }},
	{domain.FlagHighRiskCountry, domain.SeverityHigh, "FATF Recommendation 19",
		func(f FeatureSet) bool { return f.IsHighRisk && !f.IsSanctioned }},
	{domain.FlagNightTransaction, domain.SeverityMedium, "FATF Typologies Report 2023",
		func(f FeatureSet) bool { return f.IsNight }},
	{domain.FlagThresholdBreach, domain.SeverityHigh, "FRA Law 161/2024 Art. 14",
		func(f FeatureSet) bool { return f.AboveThreshold }},
	{domain.FlagStructuringSuspected, domain.SeverityHigh, "FATF Recommendation 3",
		func(f FeatureSet) bool { return f.NearThreshold }},
	{domain.FlagNewAccountLarge, domain.SeverityHigh, "FATF Recommendation 10",
		func(f FeatureSet) bool { return f.IsNewAccount && f.Amount > 5000 }},
	{domain.FlagHighVelocity, domain.SeverityMedium, "FATF Typologies Report 2023",
		func(f FeatureSet) bool { return f.IsHighVelocity }},
	{domain.FlagIncompleteKYC, domain.SeverityHigh, "FATF Recommendation 10",
		func(f FeatureSet) bool { return f.KYCIncomplete }},
	{domain.FlagRepeatOffender, domain.SeverityHigh, "FRA Law 161/2024 Art. 18",
		func(f FeatureSet) bool { return f.PrevFlagged }},
	{domain.FlagCryptoHighRisk, domain.SeverityCritical, "FATF Recommendation 15",
		func(f FeatureSet) bool { return f.TxType == "crypto" && f.IsHighRisk }},
	{domain.FlagPEPLinked, domain.SeverityHigh, "FATF Recommendation 12",
		func(f FeatureSet) bool { return f.IsPEP }},
	{domain.FlagRoundAmount, domain.SeverityLow, "FATF Typologies Report 2023",
		func(f FeatureSet) bool { return f.IsRoundAmount && f.Amount > 5000 }},
}

// detectBuiltinFlags evaluates the catalog in order and returns every
// matching flag, without the clean sentinel.
func detectBuiltinFlags(f FeatureSet, ref *domain.RefData) []domain.Flag {
	var flags []domain.Flag
	for _, check := range builtinFlagChecks {
		if check.applies(f) {
			flags = append(flags, domain.Flag{
				Code:        check.code,
				Severity:    check.severity,
				Description: ref.RedFlagCatalog[check.code],
				FATFRef:     check.fatfRef,
			})
		}
	}
	return flags
}

// cleanFlag is the sentinel emitted when no red-flag predicate matched.
func cleanFlag() domain.Flag {
	return domain.Flag{
		Code:        domain.FlagClean,
		Severity:    domain.SeverityNone,
		Description: "No significant FATF red flags detected",
		FATFRef:     "N/A",
	}
}

// DetectFlags evaluates the built-in catalog against a feature set. The
// returned list is never empty: when nothing matches it contains exactly
// the clean sentinel.
func DetectFlags(f FeatureSet, ref *domain.RefData) []domain.Flag {
	flags := detectBuiltinFlags(f, ref)
	if len(flags) == 0 {
		return []domain.Flag{cleanFlag()}
	}
	return flags
}
