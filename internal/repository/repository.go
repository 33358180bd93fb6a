// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/shieldaml/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores an analyzed transaction.
func (r *SQLRepository) SaveTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec == nil || rec.TransactionID == "" {
		return fmt.Errorf("%w: transaction ID is required", ErrInvalidInput)
	}

	treeScores, _ := json.Marshal(rec.TreeScores)
	flags, _ := json.Marshal(rec.Flags)
	recommendation, _ := json.Marshal(rec.Recommendation)

	query := `
		INSERT INTO transactions (
			id, customer_id, customer_name, amount, currency, type, country,
			hour, tx_count_30d, account_age_months, kyc_status,
			previously_flagged, is_pep,
			risk_score, risk_level, tree_scores, flags, recommendation,
			str_filed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.TransactionID, rec.CustomerID, rec.CustomerName,
		rec.Amount, rec.Currency, rec.Type, rec.Country,
		rec.Hour, rec.TxCount30d, rec.AccountAgeMonths, int(rec.KYCStatus),
		boolToInt(rec.PreviouslyFlagged), boolToInt(rec.IsPEP),
		rec.Score, string(rec.RiskLevel), string(treeScores), string(flags), string(recommendation),
		boolToInt(rec.STRFiled), rec.CreatedAt,
	)
	return err
}

// GetTransaction retrieves a stored transaction by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txID string) (*domain.TransactionRecord, error) {
	query := `
		SELECT id, customer_id, customer_name, amount, currency, type, country,
			   hour, tx_count_30d, account_age_months, kyc_status,
			   previously_flagged, is_pep,
			   risk_score, risk_level, tree_scores, flags, recommendation,
			   str_filed, created_at
		FROM transactions
		WHERE id = ?
	`

	rec, err := scanTransaction(r.db.QueryRowContext(ctx, r.rebind(query), txID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListTransactions returns the most recent transactions, optionally filtered
// by risk level. limit <= 0 means the default of 100.
func (r *SQLRepository) ListTransactions(ctx context.Context, limit int, riskLevel domain.RiskLevel) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, customer_id, customer_name, amount, currency, type, country,
			   hour, tx_count_30d, account_age_months, kyc_status,
			   previously_flagged, is_pep,
			   risk_score, risk_level, tree_scores, flags, recommendation,
			   str_filed, created_at
		FROM transactions
	`
	args := []any{}
	if riskLevel != "" {
		query += ` WHERE risk_level = ?`
		args = append(args, string(riskLevel))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkSTRFiled flags a stored transaction as having an STR filed.
func (r *SQLRepository) MarkSTRFiled(ctx context.Context, txID string) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`UPDATE transactions SET str_filed = 1 WHERE id = ?`), txID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var kycStatus, prevFlagged, isPEP, strFiled int
	var riskLevel, treeScores, flags, recommendation string

	err := row.Scan(
		&rec.TransactionID, &rec.CustomerID, &rec.CustomerName,
		&rec.Amount, &rec.Currency, &rec.Type, &rec.Country,
		&rec.Hour, &rec.TxCount30d, &rec.AccountAgeMonths, &kycStatus,
		&prevFlagged, &isPEP,
		&rec.Score, &riskLevel, &treeScores, &flags, &recommendation,
		&strFiled, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.KYCStatus = domain.KYCStatus(kycStatus)
	rec.PreviouslyFlagged = prevFlagged == 1
	rec.IsPEP = isPEP == 1
	rec.STRFiled = strFiled == 1
	rec.RiskLevel = domain.RiskLevel(riskLevel)
	json.Unmarshal([]byte(treeScores), &rec.TreeScores)
	json.Unmarshal([]byte(flags), &rec.Flags)
	json.Unmarshal([]byte(recommendation), &rec.Recommendation)

	return &rec, nil
}

// SaveAlert stores an alert.
func (r *SQLRepository) SaveAlert(ctx context.Context, alert *domain.Alert) error {
	if alert == nil || alert.ID == "" {
		return fmt.Errorf("%w: alert ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO alerts (
			id, transaction_id, alert_type, customer_name, amount,
			description, risk_level, status, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, alert.TransactionID, alert.AlertType, alert.CustomerName,
		alert.Amount, alert.Description, string(alert.RiskLevel), alert.Status,
		alert.CreatedAt, nullableTime(alert.ResolvedAt),
	)
	return err
}

// ListAlerts returns alerts, optionally filtered by status.
func (r *SQLRepository) ListAlerts(ctx context.Context, status string, limit int) ([]*domain.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, transaction_id, alert_type, customer_name, amount,
			   description, risk_level, status, created_at, resolved_at
		FROM alerts
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var a domain.Alert
		var riskLevel string
		var resolvedAt sql.NullTime

		if err := rows.Scan(
			&a.ID, &a.TransactionID, &a.AlertType, &a.CustomerName, &a.Amount,
			&a.Description, &riskLevel, &a.Status, &a.CreatedAt, &resolvedAt,
		); err != nil {
			return nil, err
		}

		a.RiskLevel = domain.RiskLevel(riskLevel)
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// ResolveAlert marks an open alert as resolved.
func (r *SQLRepository) ResolveAlert(ctx context.Context, alertID string) error {
	query := `
		UPDATE alerts
		SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, r.rebind(query),
		domain.AlertResolved, time.Now().UTC(), alertID, domain.AlertOpen)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSTRReport stores a suspicious transaction report.
func (r *SQLRepository) SaveSTRReport(ctx context.Context, report *domain.STRReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: report ID is required", ErrInvalidInput)
	}

	flags, _ := json.Marshal(report.Flags)
	recommendation, _ := json.Marshal(report.Recommendation)

	query := `
		INSERT INTO str_reports (
			id, transaction_id, customer_name, amount, risk_score,
			flags, recommendation, officer_name, officer_cert,
			status, submitted_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		report.ID, report.TransactionID, report.CustomerName, report.Amount, report.RiskScore,
		string(flags), string(recommendation), report.OfficerName, report.OfficerCert,
		report.Status, nullableTime(report.SubmittedAt), report.CreatedAt,
	)
	return err
}

// ListSTRReports returns STR reports, newest first.
func (r *SQLRepository) ListSTRReports(ctx context.Context, limit int) ([]*domain.STRReport, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, transaction_id, customer_name, amount, risk_score,
			   flags, recommendation, officer_name, officer_cert,
			   status, submitted_at, created_at
		FROM str_reports
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.STRReport
	for rows.Next() {
		var rep domain.STRReport
		var flags, recommendation string
		var submittedAt sql.NullTime

		if err := rows.Scan(
			&rep.ID, &rep.TransactionID, &rep.CustomerName, &rep.Amount, &rep.RiskScore,
			&flags, &recommendation, &rep.OfficerName, &rep.OfficerCert,
			&rep.Status, &submittedAt, &rep.CreatedAt,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(flags), &rep.Flags)
		json.Unmarshal([]byte(recommendation), &rep.Recommendation)
		if submittedAt.Valid {
			t := submittedAt.Time
			rep.SubmittedAt = &t
		}
		reports = append(reports, &rep)
	}
	return reports, rows.Err()
}

// SubmitSTRReport transitions a draft report to submitted.
func (r *SQLRepository) SubmitSTRReport(ctx context.Context, reportID string) error {
	query := `
		UPDATE str_reports
		SET status = ?, submitted_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, r.rebind(query),
		domain.STRSubmitted, time.Now().UTC(), reportID, domain.STRDraft)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveKYCResult stores a KYC assessment outcome. Results are append-only
// history; each row gets a fresh ID.
func (r *SQLRepository) SaveKYCResult(ctx context.Context, result *domain.KYCResult) error {
	if result == nil || result.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO kyc_results (
			id, customer_name, risk_score, risk_level,
			sanctions_match, is_pep, high_risk_nationality,
			cdd_level, str_required, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		uuid.New().String(), result.CustomerName, result.RiskScore, string(result.RiskLevel),
		boolToInt(result.SanctionsMatch), boolToInt(result.IsPEP), boolToInt(result.HighRiskNationality),
		result.CDDLevel, boolToInt(result.STRRequired), result.Timestamp,
	)
	return err
}

// ListKYCResults returns KYC assessments, newest first.
func (r *SQLRepository) ListKYCResults(ctx context.Context, limit int) ([]*domain.KYCResult, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT customer_name, risk_score, risk_level,
			   sanctions_match, is_pep, high_risk_nationality,
			   cdd_level, str_required, timestamp
		FROM kyc_results
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.KYCResult
	for rows.Next() {
		var res domain.KYCResult
		var riskLevel string
		var sanctions, pep, highRisk, strRequired int

		if err := rows.Scan(
			&res.CustomerName, &res.RiskScore, &riskLevel,
			&sanctions, &pep, &highRisk,
			&res.CDDLevel, &strRequired, &res.Timestamp,
		); err != nil {
			return nil, err
		}

		res.RiskLevel = domain.RiskLevel(riskLevel)
		res.SanctionsMatch = sanctions == 1
		res.IsPEP = pep == 1
		res.HighRiskNationality = highRisk == 1
		res.STRRequired = strRequired == 1
		results = append(results, &res)
	}
	return results, rows.Err()
}

// SaveCustomRule inserts or updates a custom screening rule.
func (r *SQLRepository) SaveCustomRule(ctx context.Context, rule *domain.CustomRuleConfig) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO custom_rules (
			id, name, description, expression, flag_code, severity, fatf_ref,
			enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			flag_code = excluded.flag_code,
			severity = excluded.severity,
			fatf_ref = excluded.fatf_ref,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.FlagCode, string(rule.Severity), rule.FATFRef,
		boolToInt(rule.Enabled), now, now,
	)
	return err
}

// ListCustomRules returns every stored screening rule, enabled or not.
func (r *SQLRepository) ListCustomRules(ctx context.Context) ([]*domain.CustomRuleConfig, error) {
	query := `
		SELECT id, name, description, expression, flag_code, severity, fatf_ref,
			   enabled, created_at, updated_at
		FROM custom_rules
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.CustomRuleConfig
	for rows.Next() {
		var rule domain.CustomRuleConfig
		var severity string
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
			&rule.FlagCode, &severity, &rule.FATFRef,
			&enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Severity = domain.Severity(severity)
		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// DashboardStats aggregates the compliance dashboard counters.
func (r *SQLRepository) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN risk_level IN ('HIGH', 'CRITICAL') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'MEDIUM' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'LOW' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level IN ('HIGH', 'CRITICAL') THEN amount ELSE 0 END), 0)
		FROM transactions
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total, &stats.HighRisk, &stats.MediumRisk, &stats.Cleared, &stats.FlaggedAmount,
	); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT COUNT(*) FROM alerts WHERE status = ?`), domain.AlertOpen,
	).Scan(&stats.OpenAlerts); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM str_reports`).Scan(&stats.STRReports); err != nil {
		return nil, err
	}

	return stats, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
