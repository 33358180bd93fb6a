// Package rules provides the CEL-Go based custom screening rule engine.
//
// Operators author boolean CEL expressions over the extracted transaction
// features; each rule that evaluates to true appends its configured flag
// to the analysis result. Custom flags annotate only, the scoring trees
// never see them.
package rules

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/opensource-finance/shieldaml/internal/domain"
	"github.com/opensource-finance/shieldaml/internal/engine"
)

// Engine compiles and evaluates custom screening rules. It implements
// engine.FlagDetector and supports hot-reloading from the rule store.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	logger        *slog.Logger
}

// CompiledRule holds a pre-compiled CEL program with its configuration.
type CompiledRule struct {
	Config  *domain.CustomRuleConfig
	Program cel.Program
}

// NewEngine creates the rule engine with the feature-variable environment.
func NewEngine(logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("country", cel.StringType),
		cel.Variable("tx_type", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("tx_count", cel.IntType),
		cel.Variable("account_age", cel.IntType),
		cel.Variable("kyc_status", cel.IntType),
		cel.Variable("previously_flagged", cel.BoolType),
		cel.Variable("is_pep", cel.BoolType),
		cel.Variable("is_sanctioned", cel.BoolType),
		cel.Variable("is_high_risk", cel.BoolType),
		cel.Variable("is_night", cel.BoolType),
		cel.Variable("above_threshold", cel.BoolType),
		cel.Variable("near_threshold", cel.BoolType),
		cel.Variable("is_new_account", cel.BoolType),
		cel.Variable("is_high_velocity", cel.BoolType),
		cel.Variable("is_round_amount", cel.BoolType),
		cel.Variable("kyc_incomplete", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		logger:        logger,
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.CustomRuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a single rule, replacing any rule with the
// same ID.
func (e *Engine) LoadRule(cfg *domain.CustomRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads every enabled rule in the slice.
func (e *Engine) LoadRules(configs []*domain.CustomRuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules atomically replaces the loaded rule set with the enabled
// rules from configs. On compile failure the existing set is kept.
func (e *Engine) ReloadRules(configs []*domain.CustomRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules
	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.CustomRuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.CustomRuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// Detect evaluates every loaded rule against the feature set and returns
// a flag for each rule that matched. A rule that fails to evaluate is
// logged and skipped so one bad rule never blocks an analysis.
func (e *Engine) Detect(f engine.FeatureSet) []domain.Flag {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := map[string]any{
		"amount":             f.Amount,
		"country":            f.Country,
		"tx_type":            f.TxType,
		"hour":               int64(f.Hour),
		"tx_count":           int64(f.TxCount),
		"account_age":        int64(f.AccountAge),
		"kyc_status":         int64(f.KYCStatus),
		"previously_flagged": f.PrevFlagged,
		"is_pep":             f.IsPEP,
		"is_sanctioned":      f.IsSanctioned,
		"is_high_risk":       f.IsHighRisk,
		"is_night":           f.IsNight,
		"above_threshold":    f.AboveThreshold,
		"near_threshold":     f.NearThreshold,
		"is_new_account":     f.IsNewAccount,
		"is_high_velocity":   f.IsHighVelocity,
		"is_round_amount":    f.IsRoundAmount,
		"kyc_incomplete":     f.KYCIncomplete,
	}

	var flags []domain.Flag
	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			e.logger.Warn("custom rule evaluation failed",
				"rule_id", rule.Config.ID,
				"rule_name", rule.Config.Name,
				"error", err)
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}
		flags = append(flags, domain.Flag{
			Code:        rule.Config.FlagCode,
			Severity:    rule.Config.Severity,
			Description: rule.Config.Description,
			FATFRef:     rule.Config.FATFRef,
		})
	}
	return flags
}

// Close clears the loaded rule set.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.CustomRuleConfig) (*CompiledRule, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("rule ID is required")
	}
	if cfg.FlagCode == "" {
		return nil, fmt.Errorf("rule %s: flag_code is required", cfg.ID)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
