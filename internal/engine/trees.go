package engine

// A scoringTree is one member of the fixed ensemble: a pure additive
// scoring function over the feature set, clamped to [0,100] before
// weighting. Trees are appended here; they are never configured at
// runtime.
type scoringTree struct {
	name   string
	weight float64
	score  func(f FeatureSet) float64
}

// Tree names as reported in the per-tree score breakdown.
const (
	TreeSanctionsAmount  = "Sanctions & Amount"
	TreeAccountBehavior  = "Account Behavior"
	TreeTypeCountryCombo = "Type & Country Combo"
	TreeKYCVelocity      = "KYC & Velocity"
	TreeAnomalyDetection = "Anomaly Detection"
)

// ensembleTrees is the fixed five-tree ensemble. Weights sum to 1.0.
var ensembleTrees = []scoringTree{
	{TreeSanctionsAmount, 0.25, treeSanctionsAmount},
	{TreeAccountBehavior, 0.20, treeAccountBehavior},
	{TreeTypeCountryCombo, 0.25, treeTypeCountryCombo},
	{TreeKYCVelocity, 0.15, treeKYCVelocity},
	{TreeAnomalyDetection, 0.15, treeAnomalyDetection},
}

// treeSanctionsAmount scores sanctions exposure and transaction size.
// Amount tiers are mutually exclusive, highest tier wins.
func treeSanctionsAmount(f FeatureSet) float64 {
	score := 0.0
	if f.IsSanctioned {
		score += 45
	} else if f.IsHighRisk {
		score += 20
	}
	switch {
	case f.Amount > 100_000:
		score += 25
	case f.Amount > 50_000:
		score += 18
	case f.Amount > 10_000:
		score += 10
	}
	if f.IsNight {
		score += 15
	}
	if f.AboveThreshold {
		score += 10
	}
	return min(score, 100)
}

// treeAccountBehavior scores account age and behavioral patterns.
// All contributions are independent and additive.
func treeAccountBehavior(f FeatureSet) float64 {
	score := 0.0
	if f.IsNewAccount {
		score += 30
	}
	if f.IsHighVelocity {
		score += 20
	}
	if f.PrevFlagged {
		score += 30
	}
	if f.KYCIncomplete {
		score += 25
	}
	if f.IsPEP {
		score += 20
	}
	if f.IsRoundAmount {
		score += 10
	}
	return min(score, 100)
}

// treeTypeCountryCombo scores transaction type + country combinations.
// The crypto bonuses stack for a crypto transfer to a sanctioned country,
// since sanctioned countries also appear in the high-risk set.
func treeTypeCountryCombo(f FeatureSet) float64 {
	score := 0.0
	if f.TxType == "crypto" && f.IsHighRisk {
		score += 55
	}
	if f.TxType == "cash" && f.NearThreshold {
		score += 40
	}
	if f.TxType == "wire" && f.IsSanctioned {
		score += 50
	}
	if f.TxType == "insurance" && f.Amount > 100_000 {
		score += 25
	}
	if f.TxType == "crypto" && f.IsSanctioned {
		score += 60
	}
	if f.IsHighRisk && f.IsNight {
		score += 20
	}
	return min(score, 100)
}

// treeKYCVelocity scores KYC gaps combined with amount and velocity.
func treeKYCVelocity(f FeatureSet) float64 {
	score := 0.0
	if f.KYCIncomplete && f.Amount > 5_000 {
		score += 40
	}
	if f.IsHighVelocity && f.IsNewAccount {
		score += 40
	}
	if f.PrevFlagged && f.Amount > 10_000 {
		score += 35
	}
	if f.IsPEP && f.AboveThreshold {
		score += 30
	}
	if f.NearThreshold {
		score += 15
	}
	return min(score, 100)
}

// treeAnomalyDetection counts binary risk signals, with a spike bonus
// when four or more fire at once.
func treeAnomalyDetection(f FeatureSet) float64 {
	signals := []bool{
		f.IsNight,
		f.IsNewAccount,
		f.Amount > 25_000,
		f.IsHighRisk,
		f.PrevFlagged,
		f.KYCIncomplete,
		f.IsHighVelocity,
		f.IsPEP,
	}

	count := 0
	for _, s := range signals {
		if s {
			count++
		}
	}

	score := float64(count) * 12
	if count >= 4 {
		score += 15
	}
	return min(score, 100)
}
