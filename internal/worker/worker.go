// Package worker derives compliance cases from completed analyses: it
// opens alerts for HIGH and CRITICAL outcomes and drafts STR filings
// where the recommendation mandates one.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/shieldaml/internal/domain"
)

// Worker consumes analysis-completed events from the EventBus.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	logger *slog.Logger

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates the case-derivation worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the analysis pipeline.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAnalysisCompleted, w.handleAnalysis)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", domain.TopicAnalysisCompleted, err)
	}
	w.subscriptions = append(w.subscriptions, sub)

	w.logger.Info("worker started", "topic", domain.TopicAnalysisCompleted)
	return nil
}

// Stop unsubscribes and halts processing.
func (w *Worker) Stop() {
	for _, sub := range w.subscriptions {
		_ = sub.Unsubscribe()
	}
	w.subscriptions = nil
	w.cancel()
	w.logger.Info("worker stopped")
}

// handleAnalysis derives alerts and STR drafts from one analyzed
// transaction. The payload is the persisted TransactionRecord.
func (w *Worker) handleAnalysis(ctx context.Context, msg *domain.Message) error {
	var rec domain.TransactionRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		w.logger.Error("malformed analysis event", "message_id", msg.ID, "error", err)
		return err
	}

	if rec.RiskLevel == domain.RiskHigh || rec.RiskLevel == domain.RiskCritical {
		if err := w.openAlert(ctx, &rec); err != nil {
			w.logger.Error("failed to open alert",
				"transaction_id", rec.TransactionID, "error", err)
			return err
		}
	}

	if rec.Recommendation.STRRequired {
		if err := w.draftSTR(ctx, &rec); err != nil {
			w.logger.Error("failed to draft STR",
				"transaction_id", rec.TransactionID, "error", err)
			return err
		}
	}

	return nil
}

func (w *Worker) openAlert(ctx context.Context, rec *domain.TransactionRecord) error {
	top := topFlag(rec.Flags)

	alert := &domain.Alert{
		ID:            "ALT-" + shortID(),
		TransactionID: rec.TransactionID,
		AlertType:     alertTypeForFlag(top.Code),
		CustomerName:  rec.CustomerName,
		Amount:        rec.Amount,
		Description:   top.Description,
		RiskLevel:     rec.RiskLevel,
		Status:        domain.AlertOpen,
		CreatedAt:     time.Now().UTC(),
	}
	if err := w.repo.SaveAlert(ctx, alert); err != nil {
		return err
	}

	w.logger.Info("alert opened",
		"alert_id", alert.ID,
		"transaction_id", rec.TransactionID,
		"alert_type", alert.AlertType,
		"risk_level", rec.RiskLevel,
	)

	payload, _ := json.Marshal(alert)
	return w.bus.Publish(ctx, domain.TopicAlertOpened, payload)
}

func (w *Worker) draftSTR(ctx context.Context, rec *domain.TransactionRecord) error {
	report := &domain.STRReport{
		ID:             fmt.Sprintf("STR-%d-%s", time.Now().UTC().Year(), shortID()),
		TransactionID:  rec.TransactionID,
		CustomerName:   rec.CustomerName,
		Amount:         rec.Amount,
		RiskScore:      rec.Score,
		Flags:          rec.Flags,
		Recommendation: rec.Recommendation,
		Status:         domain.STRDraft,
		CreatedAt:      time.Now().UTC(),
	}
	if err := w.repo.SaveSTRReport(ctx, report); err != nil {
		return err
	}
	if err := w.repo.MarkSTRFiled(ctx, rec.TransactionID); err != nil {
		return err
	}

	w.logger.Info("STR drafted",
		"report_id", report.ID,
		"transaction_id", rec.TransactionID,
		"risk_score", rec.Score,
	)

	payload, _ := json.Marshal(report)
	return w.bus.Publish(ctx, domain.TopicSTRFiled, payload)
}

// topFlag picks the first flag as the alert headline; flag order follows
// the catalog, so the most serious pattern comes first.
func topFlag(flags []domain.Flag) domain.Flag {
	if len(flags) > 0 {
		return flags[0]
	}
	return domain.Flag{Code: "manual_review", Description: "Manual review required"}
}

// alertTypeForFlag turns a flag code into a display alert type,
// e.g. "sanctioned_country" becomes "Sanctioned Country".
func alertTypeForFlag(code string) string {
	words := strings.Split(code, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func shortID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
