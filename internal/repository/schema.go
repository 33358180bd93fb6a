package repository

// Schema definitions for the ShieldAML database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    customer_id TEXT,
    customer_name TEXT,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    type TEXT NOT NULL,
    country TEXT NOT NULL,
    hour INTEGER NOT NULL,
    tx_count_30d INTEGER NOT NULL,
    account_age_months INTEGER NOT NULL,
    kyc_status INTEGER NOT NULL,
    previously_flagged INTEGER NOT NULL DEFAULT 0,
    is_pep INTEGER NOT NULL DEFAULT 0,
    risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    tree_scores TEXT NOT NULL,
    flags TEXT NOT NULL,
    recommendation TEXT NOT NULL,
    str_filed INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_risk_level ON transactions(risk_level);
CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    alert_type TEXT NOT NULL,
    customer_name TEXT,
    amount REAL NOT NULL,
    description TEXT,
    risk_level TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    resolved_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_alerts_tx ON alerts(transaction_id);
`

const schemaSTRReports = `
CREATE TABLE IF NOT EXISTS str_reports (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    customer_name TEXT,
    amount REAL NOT NULL,
    risk_score INTEGER NOT NULL,
    flags TEXT NOT NULL,
    recommendation TEXT NOT NULL,
    officer_name TEXT,
    officer_cert TEXT,
    status TEXT NOT NULL,
    submitted_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_str_reports_status ON str_reports(status);
`

const schemaKYCResults = `
CREATE TABLE IF NOT EXISTS kyc_results (
    id TEXT PRIMARY KEY,
    customer_name TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    sanctions_match INTEGER NOT NULL,
    is_pep INTEGER NOT NULL,
    high_risk_nationality INTEGER NOT NULL,
    cdd_level TEXT NOT NULL,
    str_required INTEGER NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kyc_results_timestamp ON kyc_results(timestamp);
`

const schemaCustomRules = `
CREATE TABLE IF NOT EXISTS custom_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    flag_code TEXT NOT NULL,
    severity TEXT NOT NULL,
    fatf_ref TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_custom_rules_enabled ON custom_rules(enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaAlerts,
		schemaSTRReports,
		schemaKYCResults,
		schemaCustomRules,
	}
}
