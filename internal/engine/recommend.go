package engine

import (
	"github.com/opensource-finance/shieldaml/internal/domain"
)

// recommendations is the fixed regulatory policy table, one entry per risk
// level. Unknown levels fall back to the LOW entry; resolution never
// errors.
var recommendations = map[domain.RiskLevel]domain.Recommendation{
	domain.RiskCritical: {
		Action: "FREEZE & REPORT",
		Steps: []string{
			"Immediately freeze the transaction",
			"File STR with Egyptian Financial Intelligence Unit (EIFIU) within 24 hours",
			"Escalate to MLRO and senior management",
			"Apply Enhanced Due Diligence (EDD) on customer",
			"Document all findings with audit trail",
			"Do NOT tip off the customer (tipping-off offence under FRA 161/2024)",
		},
		STRRequired: true,
		EDDRequired: true,
	},
	domain.RiskHigh: {
		Action: "REVIEW & ESCALATE",
		Steps: []string{
			"Place transaction on hold pending review",
			"Escalate to compliance supervisor",
			"Apply Enhanced Due Diligence (EDD)",
			"Consider filing STR if suspicion confirmed",
			"Request additional documentation from customer",
		},
		STRRequired: false,
		EDDRequired: true,
	},
	domain.RiskMedium: {
		Action: "ENHANCED MONITORING",
		Steps: []string{
			"Allow transaction but flag for monitoring",
			"Apply Standard Customer Due Diligence (CDD)",
			"Request source of funds documentation",
			"Increase monitoring frequency for this customer",
		},
		STRRequired: false,
		EDDRequired: false,
	},
	domain.RiskLow: {
		Action: "PROCEED — STANDARD MONITORING",
		Steps: []string{
			"Transaction may proceed",
			"Apply standard CDD procedures",
			"Continue routine monitoring",
		},
		STRRequired: false,
		EDDRequired: false,
	},
}

// ResolveRecommendation looks up the compliance action for a risk level.
func ResolveRecommendation(level domain.RiskLevel) domain.Recommendation {
	if rec, ok := recommendations[level]; ok {
		return rec
	}
	return recommendations[domain.RiskLow]
}
