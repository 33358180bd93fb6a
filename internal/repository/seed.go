package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/shieldaml/internal/domain"
	"github.com/opensource-finance/shieldaml/internal/engine"
)

// demoTransaction is one seeded demo input. Scores are not stored here:
// every seeded transaction goes through the live engine so persisted
// results always match what the engine would produce.
type demoTransaction struct {
	id       string
	custID   string
	custName string
	amount   float64
	txType   string
	country  string
	hour     int
	txCount  int
	ageMo    int
	kyc      domain.KYCStatus
	prev     bool
	pep      bool
}

var demoTransactions = []demoTransaction{
	{"TXN-8821", "CUS-001", "Mohammed Al-Rashid", 125_000, "wire", "ir", 3, 8, 2, domain.KYCIncomplete, true, false},
	{"TXN-8819", "CUS-002", "Sara Ahmed Corp", 8_400, "cash", "eg", 14, 3, 6, domain.KYCIncomplete, false, false},
	{"TXN-8814", "CUS-003", "Gulf Traders LLC", 45_000, "crypto", "ru", 22, 22, 4, domain.KYCVerified, false, false},
	{"TXN-8810", "CUS-004", "Nour Investment", 2_200, "insurance", "ae", 11, 5, 18, domain.KYCVerified, false, false},
	{"TXN-8805", "CUS-005", "Cairo Export Co", 890, "wire", "uk", 9, 2, 24, domain.KYCVerified, false, false},
	{"TXN-8803", "CUS-006", "Ahmed Hassan", 3_100, "internal", "eg", 10, 1, 36, domain.KYCVerified, false, false},
	{"TXN-8799", "CUS-007", "Al-Noor Holdings", 67_000, "wire", "sa", 7, 12, 8, domain.KYCEnhanced, true, true},
	{"TXN-8795", "CUS-008", "Phoenix Trading", 9_800, "cash", "eg", 16, 7, 12, domain.KYCIncomplete, false, false},
}

// Seed loads the demo dataset through the engine and persists the results,
// deriving alerts for HIGH/CRITICAL outcomes and STR drafts where the
// recommendation requires filing. It is a no-op when transactions exist.
func Seed(ctx context.Context, repo domain.Repository, eng *engine.Engine, logger *slog.Logger) error {
	existing, err := repo.ListTransactions(ctx, 1, "")
	if err != nil {
		return fmt.Errorf("seed: checking existing data: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	alertSeq, strSeq := 1, 1

	for i, demo := range demoTransactions {
		in := &domain.TransactionInput{
			TransactionID:     demo.id,
			CustomerID:        demo.custID,
			CustomerName:      demo.custName,
			Amount:            demo.amount,
			Currency:          "USD",
			Type:              demo.txType,
			Country:           demo.country,
			Hour:              demo.hour,
			TxCount30d:        demo.txCount,
			AccountAgeMonths:  demo.ageMo,
			KYCStatus:         demo.kyc,
			PreviouslyFlagged: demo.prev,
			IsPEP:             demo.pep,
		}

		result, err := eng.AnalyzeTransaction(in)
		if err != nil {
			return fmt.Errorf("seed: analyzing %s: %w", demo.id, err)
		}

		createdAt := now.Add(-time.Duration(len(demoTransactions)-i) * time.Hour)
		rec := &domain.TransactionRecord{
			TransactionInput: *in,
			Score:            result.Score,
			RiskLevel:        result.RiskLevel,
			TreeScores:       result.TreeScores,
			Flags:            result.Flags,
			Recommendation:   result.Recommendation,
			CreatedAt:        createdAt,
		}
		if err := repo.SaveTransaction(ctx, rec); err != nil {
			return fmt.Errorf("seed: saving %s: %w", demo.id, err)
		}

		if result.RiskLevel == domain.RiskHigh || result.RiskLevel == domain.RiskCritical {
			top := result.Flags[0]
			alert := &domain.Alert{
				ID:            fmt.Sprintf("ALT-%03d", alertSeq),
				TransactionID: demo.id,
				AlertType:     alertTypeForFlag(top.Code),
				CustomerName:  demo.custName,
				Amount:        demo.amount,
				Description:   top.Description,
				RiskLevel:     result.RiskLevel,
				Status:        domain.AlertOpen,
				CreatedAt:     createdAt,
			}
			if err := repo.SaveAlert(ctx, alert); err != nil {
				return fmt.Errorf("seed: saving alert for %s: %w", demo.id, err)
			}
			alertSeq++
		}

		if result.Recommendation.STRRequired {
			report := &domain.STRReport{
				ID:             fmt.Sprintf("STR-%d-%03d", now.Year(), strSeq),
				TransactionID:  demo.id,
				CustomerName:   demo.custName,
				Amount:         demo.amount,
				RiskScore:      result.Score,
				Flags:          result.Flags,
				Recommendation: result.Recommendation,
				Status:         domain.STRDraft,
				CreatedAt:      createdAt,
			}
			if err := repo.SaveSTRReport(ctx, report); err != nil {
				return fmt.Errorf("seed: saving STR for %s: %w", demo.id, err)
			}
			if err := repo.MarkSTRFiled(ctx, demo.id); err != nil {
				return fmt.Errorf("seed: marking STR filed for %s: %w", demo.id, err)
			}
			strSeq++
		}
	}

	if logger != nil {
		logger.Info("demo data seeded", "transactions", len(demoTransactions))
	}
	return nil
}

// alertTypeForFlag turns a flag code into a display alert type,
// e.g. "sanctioned_country" becomes "Sanctioned Country".
func alertTypeForFlag(code string) string {
	words := strings.Split(code, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
