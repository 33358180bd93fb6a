package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/shieldaml/internal/domain"
	"github.com/opensource-finance/shieldaml/internal/engine"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(id string, level domain.RiskLevel, amount float64) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		TransactionInput: domain.TransactionInput{
			TransactionID:    id,
			CustomerID:       "CUS-100",
			CustomerName:     "Test Customer",
			Amount:           amount,
			Currency:         "USD",
			Type:             "wire",
			Country:          "us",
			Hour:             12,
			AccountAgeMonths: 24,
			KYCStatus:        domain.KYCVerified,
		},
		Score:      50,
		RiskLevel:  level,
		TreeScores: map[string]int{"Sanctions & Amount": 50},
		Flags: []domain.Flag{
			{Code: "threshold_breach", Severity: domain.SeverityHigh, Description: "over threshold", FATFRef: "FRA Law 161/2024 Art. 14"},
		},
		Recommendation: domain.Recommendation{Action: "REVIEW & ESCALATE", Steps: []string{"hold"}, EDDRequired: true},
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("TXN-1", domain.RiskHigh, 15_000)
	if err := repo.SaveTransaction(ctx, rec); err != nil {
		t.Fatalf("SaveTransaction() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, "TXN-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.TransactionID != "TXN-1" || got.Score != 50 || got.RiskLevel != domain.RiskHigh {
		t.Errorf("got %+v", got)
	}
	if got.TreeScores["Sanctions & Amount"] != 50 {
		t.Errorf("tree scores not preserved: %v", got.TreeScores)
	}
	if len(got.Flags) != 1 || got.Flags[0].Code != "threshold_breach" {
		t.Errorf("flags not preserved: %v", got.Flags)
	}
	if got.Recommendation.Action != "REVIEW & ESCALATE" || !got.Recommendation.EDDRequired {
		t.Errorf("recommendation not preserved: %+v", got.Recommendation)
	}
	if got.STRFiled {
		t.Error("str_filed should default to false")
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTransaction(context.Background(), "TXN-MISSING")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListTransactionsFilterAndLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	levels := []domain.RiskLevel{domain.RiskLow, domain.RiskHigh, domain.RiskHigh, domain.RiskCritical}
	for i, level := range levels {
		rec := testRecord(transactionID(i), level, 1_000)
		rec.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := repo.SaveTransaction(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.ListTransactions(ctx, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("len(all) = %d, want 4", len(all))
	}
	// Newest first.
	if all[0].TransactionID != transactionID(3) {
		t.Errorf("first = %s, want newest", all[0].TransactionID)
	}

	high, err := repo.ListTransactions(ctx, 10, domain.RiskHigh)
	if err != nil {
		t.Fatal(err)
	}
	if len(high) != 2 {
		t.Errorf("len(high) = %d, want 2", len(high))
	}

	limited, err := repo.ListTransactions(ctx, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func transactionID(i int) string {
	return "TXN-" + string(rune('A'+i))
}

func TestMarkSTRFiled(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveTransaction(ctx, testRecord("TXN-1", domain.RiskCritical, 90_000)); err != nil {
		t.Fatal(err)
	}

	if err := repo.MarkSTRFiled(ctx, "TXN-1"); err != nil {
		t.Fatalf("MarkSTRFiled() error = %v", err)
	}
	got, err := repo.GetTransaction(ctx, "TXN-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.STRFiled {
		t.Error("str_filed not set")
	}

	if err := repo.MarkSTRFiled(ctx, "TXN-MISSING"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAlertLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alert := &domain.Alert{
		ID:            "ALT-001",
		TransactionID: "TXN-1",
		AlertType:     "Sanctioned Country",
		CustomerName:  "Test Customer",
		Amount:        125_000,
		Description:   "Wire transfer to sanctioned jurisdiction",
		RiskLevel:     domain.RiskCritical,
		Status:        domain.AlertOpen,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveAlert(ctx, alert); err != nil {
		t.Fatalf("SaveAlert() error = %v", err)
	}

	open, err := repo.ListAlerts(ctx, domain.AlertOpen, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].ID != "ALT-001" || open[0].ResolvedAt != nil {
		t.Errorf("open alerts = %+v", open)
	}

	if err := repo.ResolveAlert(ctx, "ALT-001"); err != nil {
		t.Fatalf("ResolveAlert() error = %v", err)
	}

	open, err = repo.ListAlerts(ctx, domain.AlertOpen, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Errorf("open alerts after resolve = %d, want 0", len(open))
	}

	resolved, err := repo.ListAlerts(ctx, domain.AlertResolved, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0].ResolvedAt == nil {
		t.Errorf("resolved alerts = %+v", resolved)
	}

	// Resolving again finds no open alert.
	if err := repo.ResolveAlert(ctx, "ALT-001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second resolve error = %v, want ErrNotFound", err)
	}
}

func TestSTRReportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	report := &domain.STRReport{
		ID:            "STR-2026-001",
		TransactionID: "TXN-1",
		CustomerName:  "Test Customer",
		Amount:        125_000,
		RiskScore:     89,
		Flags: []domain.Flag{
			{Code: "sanctioned_country", Severity: domain.SeverityCritical},
		},
		Recommendation: domain.Recommendation{Action: "FREEZE & REPORT", STRRequired: true, EDDRequired: true},
		OfficerName:    "L. Mansour",
		OfficerCert:    "CAMS-4471",
		Status:         domain.STRDraft,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveSTRReport(ctx, report); err != nil {
		t.Fatalf("SaveSTRReport() error = %v", err)
	}

	reports, err := repo.ListSTRReports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Status != domain.STRDraft || reports[0].SubmittedAt != nil {
		t.Errorf("reports = %+v", reports)
	}
	if reports[0].OfficerCert != "CAMS-4471" {
		t.Errorf("officer cert = %q", reports[0].OfficerCert)
	}

	if err := repo.SubmitSTRReport(ctx, "STR-2026-001"); err != nil {
		t.Fatalf("SubmitSTRReport() error = %v", err)
	}

	reports, err = repo.ListSTRReports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if reports[0].Status != domain.STRSubmitted || reports[0].SubmittedAt == nil {
		t.Errorf("after submit: %+v", reports[0])
	}

	if err := repo.SubmitSTRReport(ctx, "STR-2026-001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second submit error = %v, want ErrNotFound", err)
	}
}

func TestKYCResultRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	result := &domain.KYCResult{
		CustomerName:   "Ali Khamenei",
		RiskScore:      100,
		RiskLevel:      domain.RiskCritical,
		SanctionsMatch: true,
		IsPEP:          true,
		CDDLevel:       domain.CDDEnhanced,
		STRRequired:    true,
		Timestamp:      time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveKYCResult(ctx, result); err != nil {
		t.Fatalf("SaveKYCResult() error = %v", err)
	}

	results, err := repo.ListKYCResults(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	got := results[0]
	if got.CustomerName != "Ali Khamenei" || !got.SanctionsMatch || !got.IsPEP || !got.STRRequired {
		t.Errorf("got %+v", got)
	}
	if got.CDDLevel != domain.CDDEnhanced {
		t.Errorf("cdd = %q", got.CDDLevel)
	}
}

func TestCustomRuleUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.CustomRuleConfig{
		ID:         "r1",
		Name:       "large night cash",
		Expression: `tx_type == "cash" && is_night`,
		FlagCode:   "large_night_cash",
		Severity:   domain.SeverityHigh,
		Enabled:    true,
	}
	if err := repo.SaveCustomRule(ctx, rule); err != nil {
		t.Fatalf("SaveCustomRule() error = %v", err)
	}

	rule.Expression = `tx_type == "cash" && is_night && amount > 20000.0`
	rule.Enabled = false
	if err := repo.SaveCustomRule(ctx, rule); err != nil {
		t.Fatalf("upsert error = %v", err)
	}

	rules, err := repo.ListCustomRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(rules))
	}
	if rules[0].Enabled {
		t.Error("enabled not updated")
	}
	if rules[0].Expression != rule.Expression {
		t.Errorf("expression = %q", rules[0].Expression)
	}
}

func TestDashboardStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, level := range []domain.RiskLevel{domain.RiskCritical, domain.RiskHigh, domain.RiskMedium, domain.RiskLow} {
		if err := repo.SaveTransaction(ctx, testRecord(transactionID(i), level, 10_000)); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.SaveAlert(ctx, &domain.Alert{
		ID: "ALT-001", TransactionID: transactionID(0), AlertType: "Sanctioned Country",
		Amount: 10_000, RiskLevel: domain.RiskCritical, Status: domain.AlertOpen,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveSTRReport(ctx, &domain.STRReport{
		ID: "STR-2026-001", TransactionID: transactionID(0), Amount: 10_000,
		RiskScore: 90, Status: domain.STRDraft, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("DashboardStats() error = %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.HighRisk != 2 {
		t.Errorf("high risk = %d, want 2 (HIGH + CRITICAL)", stats.HighRisk)
	}
	if stats.MediumRisk != 1 || stats.Cleared != 1 {
		t.Errorf("medium = %d, cleared = %d", stats.MediumRisk, stats.Cleared)
	}
	if stats.FlaggedAmount != 20_000 {
		t.Errorf("flagged amount = %v, want 20000", stats.FlaggedAmount)
	}
	if stats.OpenAlerts != 1 || stats.STRReports != 1 {
		t.Errorf("open alerts = %d, str reports = %d", stats.OpenAlerts, stats.STRReports)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	eng, err := engine.NewEngine(domain.DefaultRefData())
	if err != nil {
		t.Fatal(err)
	}

	if err := Seed(ctx, repo, eng, nil); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if err := Seed(ctx, repo, eng, nil); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	txs, err := repo.ListTransactions(ctx, 100, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != len(demoTransactions) {
		t.Errorf("len(txs) = %d, want %d", len(txs), len(demoTransactions))
	}

	// Stored scores come from the engine, never hardcoded.
	for _, tx := range txs {
		result, err := eng.AnalyzeTransaction(&tx.TransactionInput)
		if err != nil {
			t.Fatalf("re-analyzing %s: %v", tx.TransactionID, err)
		}
		if tx.Score != result.Score || tx.RiskLevel != result.RiskLevel {
			t.Errorf("%s: stored %d/%s, engine %d/%s",
				tx.TransactionID, tx.Score, tx.RiskLevel, result.Score, result.RiskLevel)
		}
	}

	// HIGH and CRITICAL outcomes open alerts; STR drafts exist where required.
	alerts, err := repo.ListAlerts(ctx, domain.AlertOpen, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) == 0 {
		t.Error("seeding should open alerts for high-risk demo transactions")
	}
}
