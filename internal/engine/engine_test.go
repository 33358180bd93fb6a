package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/opensource-finance/shieldaml/internal/domain"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { return "TXN-TEST0001" }),
	}
	e, err := NewEngine(domain.DefaultRefData(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestAnalyzeTransactionSanctionedWire(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeTransaction(&domain.TransactionInput{
		Amount:           125_000,
		Type:             "wire",
		Country:          "IR",
		Hour:             3,
		TxCount30d:       8,
		AccountAgeMonths: 2,
		KYCStatus:        domain.KYCIncomplete,
	})
	if err != nil {
		t.Fatalf("AnalyzeTransaction() error = %v", err)
	}

	if res.Score != 72 {
		t.Errorf("score = %d, want 72", res.Score)
	}
	if res.RiskLevel != domain.RiskHigh {
		t.Errorf("risk level = %q, want HIGH", res.RiskLevel)
	}

	wantTrees := map[string]int{
		TreeSanctionsAmount:  95,
		TreeAccountBehavior:  65,
		TreeTypeCountryCombo: 70,
		TreeKYCVelocity:      40,
		TreeAnomalyDetection: 75,
	}
	if !reflect.DeepEqual(res.TreeScores, wantTrees) {
		t.Errorf("tree scores = %v, want %v", res.TreeScores, wantTrees)
	}

	wantFlags := []string{
		domain.FlagSanctionedCountry,
		domain.FlagNightTransaction,
		domain.FlagThresholdBreach,
		domain.FlagNewAccountLarge,
		domain.FlagIncompleteKYC,
		domain.FlagRoundAmount,
	}
	if got := flagCodes(res.Flags); !reflect.DeepEqual(got, wantFlags) {
		t.Errorf("flags = %v, want %v", got, wantFlags)
	}
	if res.FlagCount != len(wantFlags) {
		t.Errorf("flag count = %d, want %d", res.FlagCount, len(wantFlags))
	}
	if res.Recommendation.Action != "REVIEW & ESCALATE" {
		t.Errorf("action = %q, want REVIEW & ESCALATE", res.Recommendation.Action)
	}
	if !res.Recommendation.EDDRequired {
		t.Error("EDD should be required at HIGH")
	}
	if res.ModelVersion != ModelVersion {
		t.Errorf("model version = %q", res.ModelVersion)
	}
}

func TestAnalyzeTransactionRepeatOffenderEscalates(t *testing.T) {
	e := newTestEngine(t)

	// Same sanctioned wire, but the customer was flagged before: the
	// history contributions lift the score across the CRITICAL cutoff.
	res, err := e.AnalyzeTransaction(&domain.TransactionInput{
		Amount:            125_000,
		Type:              "wire",
		Country:           "IR",
		Hour:              3,
		TxCount30d:        8,
		AccountAgeMonths:  2,
		KYCStatus:         domain.KYCIncomplete,
		PreviouslyFlagged: true,
	})
	if err != nil {
		t.Fatalf("AnalyzeTransaction() error = %v", err)
	}

	if res.Score != 85 {
		t.Errorf("score = %d, want 85", res.Score)
	}
	if res.RiskLevel != domain.RiskCritical {
		t.Errorf("risk level = %q, want CRITICAL", res.RiskLevel)
	}

	wantTrees := map[string]int{
		TreeSanctionsAmount:  95,
		TreeAccountBehavior:  95,
		TreeTypeCountryCombo: 70,
		TreeKYCVelocity:      75,
		TreeAnomalyDetection: 87,
	}
	if !reflect.DeepEqual(res.TreeScores, wantTrees) {
		t.Errorf("tree scores = %v, want %v", res.TreeScores, wantTrees)
	}

	wantFlags := []string{
		domain.FlagSanctionedCountry,
		domain.FlagNightTransaction,
		domain.FlagThresholdBreach,
		domain.FlagNewAccountLarge,
		domain.FlagIncompleteKYC,
		domain.FlagRepeatOffender,
		domain.FlagRoundAmount,
	}
	if got := flagCodes(res.Flags); !reflect.DeepEqual(got, wantFlags) {
		t.Errorf("flags = %v, want %v", got, wantFlags)
	}

	if res.Recommendation.Action != "FREEZE & REPORT" {
		t.Errorf("action = %q, want FREEZE & REPORT", res.Recommendation.Action)
	}
	if !res.Recommendation.STRRequired {
		t.Error("STR should be required at CRITICAL")
	}
}

func TestAnalyzeTransactionStructuringCash(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeTransaction(&domain.TransactionInput{
		Amount:           9_800,
		Type:             "cash",
		Country:          "eg",
		Hour:             14,
		TxCount30d:       5,
		AccountAgeMonths: 24,
		KYCStatus:        domain.KYCVerified,
	})
	if err != nil {
		t.Fatalf("AnalyzeTransaction() error = %v", err)
	}

	if res.Score != 12 {
		t.Errorf("score = %d, want 12", res.Score)
	}
	if res.RiskLevel != domain.RiskLow {
		t.Errorf("risk level = %q, want LOW", res.RiskLevel)
	}
	if got := flagCodes(res.Flags); !reflect.DeepEqual(got, []string{domain.FlagStructuringSuspected}) {
		t.Errorf("flags = %v, want only structuring_suspected", got)
	}
}

func TestAnalyzeTransactionClean(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeTransaction(&domain.TransactionInput{
		Amount:           500,
		Type:             "transfer",
		Country:          "us",
		Hour:             12,
		TxCount30d:       3,
		AccountAgeMonths: 24,
		KYCStatus:        domain.KYCVerified,
	})
	if err != nil {
		t.Fatalf("AnalyzeTransaction() error = %v", err)
	}

	if res.Score != 0 {
		t.Errorf("score = %d, want 0", res.Score)
	}
	if res.RiskLevel != domain.RiskLow {
		t.Errorf("risk level = %q, want LOW", res.RiskLevel)
	}
	if len(res.Flags) != 1 || !res.Flags[0].IsClean() {
		t.Errorf("flags = %v, want exactly the clean sentinel", res.Flags)
	}
	if res.FlagCount != 0 {
		t.Errorf("flag count = %d, want 0 (sentinel excluded)", res.FlagCount)
	}
	if res.Recommendation.Action != "PROCEED — STANDARD MONITORING" {
		t.Errorf("action = %q", res.Recommendation.Action)
	}
	if res.Recommendation.STRRequired || res.Recommendation.EDDRequired {
		t.Error("clean transaction should not require STR or EDD")
	}
}

func TestAnalyzeTransactionDeterministic(t *testing.T) {
	e := newTestEngine(t)

	in := &domain.TransactionInput{
		TransactionID:    "TXN-SAME",
		Amount:           47_500,
		Type:             "crypto",
		Country:          "pk",
		Hour:             2,
		TxCount30d:       20,
		AccountAgeMonths: 1,
		KYCStatus:        domain.KYCIncomplete,
		IsPEP:            true,
	}

	first, err := e.AnalyzeTransaction(in)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := e.AnalyzeTransaction(in)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical input produced different results:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeTransactionCountryCaseInsensitive(t *testing.T) {
	e := newTestEngine(t)

	for _, country := range []string{"ir", "IR", " Ir "} {
		res, err := e.AnalyzeTransaction(&domain.TransactionInput{
			Amount: 500, Type: "wire", Country: country, Hour: 12,
			AccountAgeMonths: 24, KYCStatus: domain.KYCVerified,
		})
		if err != nil {
			t.Fatalf("country %q: %v", country, err)
		}
		if got := flagCodes(res.Flags); len(got) == 0 || got[0] != domain.FlagSanctionedCountry {
			t.Errorf("country %q: flags = %v, want sanctioned_country first", country, got)
		}
	}
}

func TestAnalyzeTransactionGeneratesID(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeTransaction(&domain.TransactionInput{
		Amount: 500, Type: "transfer", Country: "us", Hour: 12,
		AccountAgeMonths: 24, KYCStatus: domain.KYCVerified,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TransactionID != "TXN-TEST0001" {
		t.Errorf("transaction_id = %q, want generated TXN-TEST0001", res.TransactionID)
	}

	res, err = e.AnalyzeTransaction(&domain.TransactionInput{
		TransactionID: "TXN-GIVEN",
		Amount:        500, Type: "transfer", Country: "us", Hour: 12,
		AccountAgeMonths: 24, KYCStatus: domain.KYCVerified,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TransactionID != "TXN-GIVEN" {
		t.Errorf("transaction_id = %q, want caller-supplied TXN-GIVEN", res.TransactionID)
	}
}

func TestAnalyzeTransactionInvalidInput(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		in   *domain.TransactionInput
	}{
		{"nil input", nil},
		{"zero amount", &domain.TransactionInput{Type: "wire", Country: "us", Hour: 12}},
		{"negative amount", &domain.TransactionInput{Amount: -10, Type: "wire", Country: "us", Hour: 12}},
		{"missing type", &domain.TransactionInput{Amount: 100, Country: "us", Hour: 12}},
		{"missing country", &domain.TransactionInput{Amount: 100, Type: "wire", Hour: 12}},
		{"hour too large", &domain.TransactionInput{Amount: 100, Type: "wire", Country: "us", Hour: 24}},
		{"negative hour", &domain.TransactionInput{Amount: 100, Type: "wire", Country: "us", Hour: -1}},
		{"negative tx count", &domain.TransactionInput{Amount: 100, Type: "wire", Country: "us", Hour: 12, TxCount30d: -1}},
		{"negative account age", &domain.TransactionInput{Amount: 100, Type: "wire", Country: "us", Hour: 12, AccountAgeMonths: -1}},
		{"kyc status out of range", &domain.TransactionInput{Amount: 100, Type: "wire", Country: "us", Hour: 12, KYCStatus: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.AnalyzeTransaction(tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if res != nil {
				t.Errorf("result should be nil on invalid input, got %+v", res)
			}
		})
	}
}

type staticDetector struct {
	flags []domain.Flag
}

func (d staticDetector) Detect(FeatureSet) []domain.Flag { return d.flags }

func TestAnalyzeTransactionCustomFlags(t *testing.T) {
	custom := domain.Flag{
		Code:        "offshore_shell",
		Severity:    domain.SeverityHigh,
		Description: "Counterparty matches shell company pattern",
		FATFRef:     "Internal policy",
	}
	e := newTestEngine(t, WithCustomFlags(staticDetector{flags: []domain.Flag{custom}}))

	// A clean transaction with a custom hit: no sentinel, count 1, score untouched.
	res, err := e.AnalyzeTransaction(&domain.TransactionInput{
		Amount: 500, Type: "transfer", Country: "us", Hour: 12,
		AccountAgeMonths: 24, KYCStatus: domain.KYCVerified,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := flagCodes(res.Flags); !reflect.DeepEqual(got, []string{"offshore_shell"}) {
		t.Errorf("flags = %v, want custom flag without sentinel", got)
	}
	if res.FlagCount != 1 {
		t.Errorf("flag count = %d, want 1", res.FlagCount)
	}
	if res.Score != 0 {
		t.Errorf("custom flags must not change the score, got %d", res.Score)
	}

	// Custom flags land after the built-in catalog.
	res, err = e.AnalyzeTransaction(&domain.TransactionInput{
		Amount: 500, Type: "wire", Country: "ir", Hour: 12,
		AccountAgeMonths: 24, KYCStatus: domain.KYCVerified,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := flagCodes(res.Flags); !reflect.DeepEqual(got, []string{domain.FlagSanctionedCountry, "offshore_shell"}) {
		t.Errorf("flags = %v, want builtin then custom", got)
	}
}

func TestNewEngineRejectsBadRefData(t *testing.T) {
	if _, err := NewEngine(nil); err == nil {
		t.Error("NewEngine(nil) should fail")
	}

	ref := domain.DefaultRefData()
	ref.SanctionedCountries = nil
	if _, err := NewEngine(ref); err == nil {
		t.Error("NewEngine with empty sanctioned set should fail")
	}

	ref = domain.DefaultRefData()
	ref.ReportingThreshold = 9_000 // below the structuring limit
	if _, err := NewEngine(ref); err == nil {
		t.Error("NewEngine with inverted thresholds should fail")
	}
}
