package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/shieldaml/internal/domain"
	"github.com/opensource-finance/shieldaml/internal/engine"
	"github.com/opensource-finance/shieldaml/internal/repository"
	"github.com/opensource-finance/shieldaml/internal/rules"
)

const (
	// velocityWindow is the rolling window for the per-customer
	// transaction counter used when tx_count_30d is not supplied.
	velocityWindow = 30 * 24 * time.Hour

	// dashboardCacheKey and dashboardCacheTTL control dashboard
	// aggregate caching.
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 30 * time.Second

	// transactionCacheTTL bounds staleness of per-transaction reads;
	// records are immutable except for the STR-filed bit.
	transactionCacheTTL = 5 * time.Minute
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	engine     *engine.Engine
	ruleEngine *rules.Engine
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, ruleEngine *rules.Engine, version string) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		engine:     eng,
		ruleEngine: ruleEngine,
		version:    version,
	}
}

// AnalyzeTransaction handles POST /api/transactions/analyze.
func (h *Handler) AnalyzeTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	in := req.ToInput()

	// When the caller does not supply a 30-day count, track velocity
	// through the cache counter keyed by customer.
	if req.TxCount30d == nil && h.cache != nil && in.CustomerID != "" {
		count, err := h.cache.IncrementCounter(ctx, "velocity:"+in.CustomerID, velocityWindow)
		if err != nil {
			slog.Warn("velocity counter unavailable", "customer_id", in.CustomerID, "error", err)
		} else {
			in.TxCount30d = int(count)
		}
	}

	result, err := h.engine.AnalyzeTransaction(in)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
		return
	}

	in.TransactionID = result.TransactionID
	rec := &domain.TransactionRecord{
		TransactionInput: *in,
		Score:            result.Score,
		RiskLevel:        result.RiskLevel,
		TreeScores:       result.TreeScores,
		Flags:            result.Flags,
		Recommendation:   result.Recommendation,
		CreatedAt:        result.Timestamp,
	}

	if h.repo != nil {
		if err := h.repo.SaveTransaction(ctx, rec); err != nil {
			slog.Error("failed to save transaction",
				"transaction_id", rec.TransactionID, "error", err)
			// The analysis result is still valid; respond with it.
		}
	}

	if h.cache != nil {
		_ = h.cache.Delete(ctx, dashboardCacheKey)
		if data, err := json.Marshal(rec); err == nil {
			_ = h.cache.Set(ctx, "tx:"+rec.TransactionID, data, transactionCacheTTL)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(rec)
		if err := h.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
			slog.Error("failed to publish analysis event",
				"transaction_id", rec.TransactionID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// ListTransactions handles GET /api/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	riskLevel := domain.RiskLevel(strings.ToUpper(r.URL.Query().Get("risk_level")))

	records, err := h.repo.ListTransactions(r.Context(), limit, riskLevel)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list transactions"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": records,
		"count":        len(records),
	})
}

// GetTransaction handles GET /api/transactions/{id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, "tx:"+txID); err == nil && data != nil {
			var rec domain.TransactionRecord
			if err := json.Unmarshal(data, &rec); err == nil {
				writeJSON(w, http.StatusOK, &rec)
				return
			}
		}
	}

	rec, err := h.repo.GetTransaction(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	if err != nil {
		slog.Error("failed to get transaction", "transaction_id", txID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get transaction"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// CheckKYC handles POST /api/kyc/check.
func (h *Handler) CheckKYC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var profile domain.CustomerProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	result, err := h.engine.AssessKYC(&profile)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("KYC assessment failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "KYC assessment failed"})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveKYCResult(ctx, result); err != nil {
			slog.Error("failed to save KYC result",
				"customer_name", result.CustomerName, "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(result)
		if err := h.bus.Publish(ctx, domain.TopicKYCCompleted, payload); err != nil {
			slog.Error("failed to publish KYC event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// ListKYCResults handles GET /api/kyc.
func (h *Handler) ListKYCResults(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	results, err := h.repo.ListKYCResults(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list KYC results", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list KYC results"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// ListAlerts handles GET /api/alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	status := strings.ToUpper(r.URL.Query().Get("status"))

	alerts, err := h.repo.ListAlerts(r.Context(), status, limit)
	if err != nil {
		slog.Error("failed to list alerts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list alerts"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert handles PATCH /api/alerts/{id}/resolve.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	err := h.repo.ResolveAlert(r.Context(), alertID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "open alert not found"})
		return
	}
	if err != nil {
		slog.Error("failed to resolve alert", "alert_id", alertID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve alert"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     alertID,
		"status": domain.AlertResolved,
	})
}

// ListSTRReports handles GET /api/str.
func (h *Handler) ListSTRReports(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	reports, err := h.repo.ListSTRReports(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list STR reports", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list STR reports"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// GenerateSTRRequest is the request body for POST /api/str/generate.
type GenerateSTRRequest struct {
	TransactionID string `json:"transaction_id"`
	OfficerName   string `json:"officer_name"`
	OfficerCert   string `json:"officer_cert"`
}

// GenerateSTR handles POST /api/str/generate: drafts an STR for an
// already-analyzed transaction.
func (h *Handler) GenerateSTR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateSTRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transaction_id is required"})
		return
	}

	rec, err := h.repo.GetTransaction(ctx, req.TransactionID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	if err != nil {
		slog.Error("failed to load transaction for STR",
			"transaction_id", req.TransactionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load transaction"})
		return
	}

	report := &domain.STRReport{
		ID:             fmt.Sprintf("STR-%d-%s", time.Now().UTC().Year(), strings.ToUpper(uuid.New().String()[:8])),
		TransactionID:  rec.TransactionID,
		CustomerName:   rec.CustomerName,
		Amount:         rec.Amount,
		RiskScore:      rec.Score,
		Flags:          rec.Flags,
		Recommendation: rec.Recommendation,
		OfficerName:    req.OfficerName,
		OfficerCert:    req.OfficerCert,
		Status:         domain.STRDraft,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.repo.SaveSTRReport(ctx, report); err != nil {
		slog.Error("failed to save STR report", "transaction_id", rec.TransactionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save STR report"})
		return
	}
	if err := h.repo.MarkSTRFiled(ctx, rec.TransactionID); err != nil {
		slog.Error("failed to mark STR filed", "transaction_id", rec.TransactionID, "error", err)
	}
	if h.cache != nil {
		_ = h.cache.Delete(ctx, "tx:"+rec.TransactionID)
	}

	if h.bus != nil {
		payload, _ := json.Marshal(report)
		_ = h.bus.Publish(ctx, domain.TopicSTRFiled, payload)
	}

	writeJSON(w, http.StatusCreated, report)
}

// SubmitSTR handles PATCH /api/str/{id}/submit.
func (h *Handler) SubmitSTR(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	err := h.repo.SubmitSTRReport(r.Context(), reportID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft STR report not found"})
		return
	}
	if err != nil {
		slog.Error("failed to submit STR report", "report_id", reportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to submit STR report"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     reportID,
		"status": domain.STRSubmitted,
	})
}

// ListRules handles GET /api/rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ruleConfigs, err := h.repo.ListCustomRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rules"})
		return
	}

	loaded := 0
	if h.ruleEngine != nil {
		loaded = h.ruleEngine.RulesCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  ruleConfigs,
		"count":  len(ruleConfigs),
		"loaded": loaded,
	})
}

// CreateRule handles POST /api/rules.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cfg domain.CustomRuleConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	// Compile before persisting so broken expressions never reach the store.
	if h.ruleEngine != nil {
		if err := h.ruleEngine.ValidateRule(&cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	if err := h.repo.SaveCustomRule(ctx, &cfg); err != nil {
		slog.Error("failed to save rule", "rule_id", cfg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save rule"})
		return
	}

	if h.ruleEngine != nil && cfg.Enabled {
		if err := h.ruleEngine.LoadRule(&cfg); err != nil {
			slog.Error("failed to load rule", "rule_id", cfg.ID, "error", err)
		}
	}

	slog.Info("custom rule created", "rule_id", cfg.ID, "name", cfg.Name, "enabled", cfg.Enabled)
	writeJSON(w, http.StatusCreated, cfg)
}

// ReloadRules handles POST /api/rules/reload: replaces the loaded rule
// set from the store.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if h.ruleEngine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rule engine not available"})
		return
	}

	ruleConfigs, err := h.repo.ListCustomRules(r.Context())
	if err != nil {
		slog.Error("failed to load rules from store", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rules"})
		return
	}

	if err := h.ruleEngine.ReloadRules(ruleConfigs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	slog.Info("custom rules reloaded", "loaded", h.ruleEngine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded": h.ruleEngine.RulesCount(),
	})
}

// Dashboard handles GET /api/dashboard. Aggregates are cached briefly to
// keep the endpoint cheap under dashboard polling.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, dashboardCacheKey); err == nil && data != nil {
			var stats domain.DashboardStats
			if err := json.Unmarshal(data, &stats); err == nil {
				writeJSON(w, http.StatusOK, &stats)
				return
			}
		}
	}

	stats, err := h.repo.DashboardStats(ctx)
	if err != nil {
		slog.Error("failed to aggregate dashboard stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to aggregate dashboard stats"})
		return
	}

	if h.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			_ = h.cache.Set(ctx, dashboardCacheKey, data, dashboardCacheTTL)
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "shieldaml",
		"version": h.version,
	})
}

// Ready handles GET /ready: verifies backing services.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			checks["repository"] = err.Error()
			healthy = false
		} else {
			checks["repository"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			checks["bus"] = err.Error()
			healthy = false
		} else {
			checks["bus"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
