package engine

import (
	"testing"

	"github.com/opensource-finance/shieldaml/internal/domain"
)

func flagCodes(flags []domain.Flag) []string {
	codes := make([]string, len(flags))
	for i, f := range flags {
		codes[i] = f.Code
	}
	return codes
}

func TestDetectFlags(t *testing.T) {
	ref := domain.DefaultRefData()

	tests := []struct {
		name string
		f    FeatureSet
		want []string
	}{
		{
			name: "clean transaction yields sentinel only",
			f:    FeatureSet{Amount: 500, Country: "us", TxType: "transfer", Hour: 12, AccountAge: 24, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagClean},
		},
		{
			name: "sanctioned suppresses high risk flag",
			f:    FeatureSet{Amount: 500, Country: "ir", IsSanctioned: true, IsHighRisk: true, Hour: 12, AccountAge: 24, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagSanctionedCountry},
		},
		{
			name: "high risk without sanctions",
			f:    FeatureSet{Amount: 500, Country: "pk", IsHighRisk: true, Hour: 12, AccountAge: 24, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagHighRiskCountry},
		},
		{
			name: "crypto to sanctioned stacks country and crypto flags",
			f:    FeatureSet{Amount: 500, Country: "ir", TxType: "crypto", IsSanctioned: true, IsHighRisk: true, Hour: 12, AccountAge: 24, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagSanctionedCountry, domain.FlagCryptoHighRisk},
		},
		{
			name: "structuring band",
			f:    FeatureSet{Amount: 9_800, NearThreshold: true, Hour: 12, AccountAge: 24, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagStructuringSuspected},
		},
		{
			name: "new account large only above 5000",
			f:    FeatureSet{Amount: 6_000, IsNewAccount: true, Hour: 12, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagNewAccountLarge},
		},
		{
			name: "new account small raises nothing",
			f:    FeatureSet{Amount: 4_000, IsNewAccount: true, Hour: 12, KYCStatus: domain.KYCVerified},
			want: []string{domain.FlagClean},
		},
		{
			name: "flags emitted in catalog order",
			f: FeatureSet{
				Amount: 125_000, Country: "ir", TxType: "wire",
				IsSanctioned: true, IsHighRisk: true, IsNight: true,
				AboveThreshold: true, IsNewAccount: true, KYCIncomplete: true,
				IsRoundAmount: true,
			},
			want: []string{
				domain.FlagSanctionedCountry,
				domain.FlagNightTransaction,
				domain.FlagThresholdBreach,
				domain.FlagNewAccountLarge,
				domain.FlagIncompleteKYC,
				domain.FlagRoundAmount,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flagCodes(DetectFlags(tt.f, ref))
			if len(got) != len(tt.want) {
				t.Fatalf("DetectFlags() codes = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("flag[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDetectFlagsDescriptionsFromCatalog(t *testing.T) {
	ref := domain.DefaultRefData()
	f := FeatureSet{Amount: 500, Country: "ir", IsSanctioned: true, IsHighRisk: true}

	flags := DetectFlags(f, ref)
	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	want := ref.RedFlagCatalog[domain.FlagSanctionedCountry]
	if flags[0].Description != want {
		t.Errorf("description = %q, want %q", flags[0].Description, want)
	}
	if flags[0].Severity != domain.SeverityCritical {
		t.Errorf("severity = %q, want CRITICAL", flags[0].Severity)
	}
	if flags[0].FATFRef != "FATF Recommendation 6" {
		t.Errorf("fatf_ref = %q", flags[0].FATFRef)
	}
}
