package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Transaction analyses
	SaveTransaction(ctx context.Context, rec *TransactionRecord) error
	GetTransaction(ctx context.Context, txID string) (*TransactionRecord, error)
	ListTransactions(ctx context.Context, limit int, riskLevel RiskLevel) ([]*TransactionRecord, error)
	MarkSTRFiled(ctx context.Context, txID string) error

	// Alerts
	SaveAlert(ctx context.Context, alert *Alert) error
	ListAlerts(ctx context.Context, status string, limit int) ([]*Alert, error)
	ResolveAlert(ctx context.Context, alertID string) error

	// STR reports
	SaveSTRReport(ctx context.Context, report *STRReport) error
	ListSTRReports(ctx context.Context, limit int) ([]*STRReport, error)
	SubmitSTRReport(ctx context.Context, reportID string) error

	// KYC assessments
	SaveKYCResult(ctx context.Context, result *KYCResult) error
	ListKYCResults(ctx context.Context, limit int) ([]*KYCResult, error)

	// Custom screening rules
	SaveCustomRule(ctx context.Context, rule *CustomRuleConfig) error
	ListCustomRules(ctx context.Context) ([]*CustomRuleConfig, error)

	// Dashboard aggregation
	DashboardStats(ctx context.Context) (*DashboardStats, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
