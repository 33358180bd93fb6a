package engine

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/shieldaml/internal/domain"
)

// kycRiskLevel maps a KYC score to a customer risk level. The cutoffs are
// distinct from the transaction tier cutoffs: 80, 40, 20.
func kycRiskLevel(score int) domain.RiskLevel {
	switch {
	case score >= 80:
		return domain.RiskCritical
	case score >= 40:
		return domain.RiskHigh
	case score >= 20:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// AssessKYC runs the customer KYC risk assessment: a case-insensitive
// substring match of the name against the sanctions list, of the
// occupation against the PEP keyword list, and a nationality check
// against the high-risk country set. Only the name is required.
func (e *Engine) AssessKYC(profile *domain.CustomerProfile) (*domain.KYCResult, error) {
	if profile == nil || strings.TrimSpace(profile.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	name := strings.ToLower(profile.Name)
	nationality := strings.ToLower(strings.TrimSpace(profile.Nationality))
	occupation := strings.ToLower(profile.Occupation)

	sanctionsHit := false
	for _, entry := range e.ref.SanctionsList {
		if strings.Contains(name, entry) {
			sanctionsHit = true
			break
		}
	}

	isPEP := false
	for _, kw := range e.ref.PEPKeywords {
		if strings.Contains(occupation, kw) {
			isPEP = true
			break
		}
	}

	highRiskNat := e.ref.IsHighRisk(nationality)

	score := 0
	if sanctionsHit {
		score += 90
	}
	if isPEP {
		score += 40
	}
	if highRiskNat {
		score += 25
	}
	if score > 100 {
		score = 100
	}

	level := kycRiskLevel(score)

	cdd := domain.CDDStandard
	if level == domain.RiskCritical || level == domain.RiskHigh {
		cdd = domain.CDDEnhanced
	}

	return &domain.KYCResult{
		CustomerName:        profile.Name,
		RiskScore:           score,
		RiskLevel:           level,
		SanctionsMatch:      sanctionsHit,
		IsPEP:               isPEP,
		HighRiskNationality: highRiskNat,
		CDDLevel:            cdd,
		STRRequired:         sanctionsHit,
		Timestamp:           e.now(),
	}, nil
}
