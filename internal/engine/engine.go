// Package engine implements the ShieldAML risk decision engine: feature
// extraction, the fixed five-tree scoring ensemble, FATF red-flag
// detection and recommendation resolution for transactions, plus the
// parallel KYC assessment path for customer profiles.
//
// Every component is a pure function of its inputs and the injected
// reference tables; the engine performs no I/O and is safe for
// unsynchronized concurrent use.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/shieldaml/internal/domain"
)

// ModelVersion identifies the scoring model in analysis results.
const ModelVersion = "ShieldAML-RF-v1.0"

// complianceRef cites the frameworks the rule catalog is drawn from.
const complianceRef = "FATF 2023 · FRA Law 161/2024 · UN Sanctions"

// ErrInvalidInput marks a client-input failure: a required field is
// missing or outside its declared domain. No partial result is produced.
var ErrInvalidInput = errors.New("invalid input")

// FlagDetector produces additional red flags from a feature set. Custom
// flags are annotations appended after the built-in catalog; they never
// influence the score.
type FlagDetector interface {
	Detect(f FeatureSet) []domain.Flag
}

// Engine is the transaction and KYC risk assessment engine. The reference
// tables are injected at construction and treated as immutable; clock and
// ID generation are injectable for tests.
type Engine struct {
	ref    *domain.RefData
	custom FlagDetector

	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides transaction ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithCustomFlags attaches a detector for operator-authored flags.
func WithCustomFlags(d FlagDetector) Option {
	return func(e *Engine) { e.custom = d }
}

// NewEngine creates an engine over the given reference tables and fails
// when the tables are inconsistent.
func NewEngine(ref *domain.RefData, opts ...Option) (*Engine, error) {
	if ref == nil {
		return nil, fmt.Errorf("engine: reference data is required")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		ref:   ref,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newTransactionID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// newTransactionID generates a TXN- prefixed identifier.
func newTransactionID() string {
	return "TXN-" + strings.ToUpper(uuid.New().String()[:8])
}

// validate rejects malformed input before feature extraction. Optional
// fields were already defaulted by the caller; here only domain bounds
// are enforced.
func validate(in *domain.TransactionInput) error {
	if in == nil {
		return fmt.Errorf("%w: transaction is required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Country) == "" {
		return fmt.Errorf("%w: country is required", ErrInvalidInput)
	}
	if in.Hour < 0 || in.Hour > 23 {
		return fmt.Errorf("%w: hour must be between 0 and 23", ErrInvalidInput)
	}
	if in.TxCount30d < 0 {
		return fmt.Errorf("%w: tx_count_30d must be non-negative", ErrInvalidInput)
	}
	if in.AccountAgeMonths < 0 {
		return fmt.Errorf("%w: account_age_months must be non-negative", ErrInvalidInput)
	}
	if in.KYCStatus < domain.KYCIncomplete || in.KYCStatus > domain.KYCEnhanced {
		return fmt.Errorf("%w: kyc_status must be 0, 1 or 2", ErrInvalidInput)
	}
	return nil
}

// AnalyzeTransaction runs the full pipeline for one transaction: feature
// extraction, tree ensemble, flag detection and recommendation. After
// validation every stage is total; identical input yields an identical
// score, level, flags and recommendation.
func (e *Engine) AnalyzeTransaction(in *domain.TransactionInput) (*domain.AnalysisResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	features := Extract(in, e.ref)
	prediction := predict(features)

	flags := detectBuiltinFlags(features, e.ref)
	if e.custom != nil {
		flags = append(flags, e.custom.Detect(features)...)
	}
	if len(flags) == 0 {
		flags = []domain.Flag{cleanFlag()}
	}

	flagCount := 0
	for _, f := range flags {
		if !f.IsClean() {
			flagCount++
		}
	}

	txID := in.TransactionID
	if txID == "" {
		txID = e.newID()
	}

	return &domain.AnalysisResult{
		TransactionID:  txID,
		Timestamp:      e.now(),
		Score:          prediction.Score,
		RiskLevel:      prediction.RiskLevel,
		TreeScores:     prediction.TreeScores,
		Flags:          flags,
		FlagCount:      flagCount,
		Recommendation: ResolveRecommendation(prediction.RiskLevel),
		ModelVersion:   ModelVersion,
		ComplianceRef:  complianceRef,
	}, nil
}

// RefData exposes the injected reference tables to collaborators that
// share them (the API layer, seeding).
func (e *Engine) RefData() *domain.RefData {
	return e.ref
}
