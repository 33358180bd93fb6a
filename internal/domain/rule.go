package domain

import "time"

// CustomRuleConfig defines an operator-authored screening rule. The CEL
// expression is evaluated against the extracted feature set; when it
// returns true the configured flag is appended to the analysis. Custom
// flags are annotations only and never feed the scoring trees.
type CustomRuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL boolean expression over the feature variables
	// (amount, country, tx_type, hour, tx_count, account_age, and the
	// derived booleans such as is_night or near_threshold).
	Expression string `json:"expression"`

	// Flag emitted when the expression is true.
	FlagCode string   `json:"flag_code"`
	Severity Severity `json:"severity"`
	FATFRef  string   `json:"fatf_ref,omitempty"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
