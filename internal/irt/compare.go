package irt

// AIC computes Akaike's information criterion 2k - 2*loglik.
func AIC(nparams int, loglik float64) float64 {
	return 2*float64(nparams) - 2*loglik
}

// ModelComparison reports relative fit of two models estimated on the same
// data. The likelihood-ratio fields are populated only when A is a nested
// restriction of B; AIC comparison is valid either way.
type ModelComparison struct {
	FamilyA   Family  `json:"family_a"`
	FamilyB   Family  `json:"family_b"`
	LogLikA   float64 `json:"log_lik_a"`
	LogLikB   float64 `json:"log_lik_b"`
	AICA      float64 `json:"aic_a"`
	AICB      float64 `json:"aic_b"`
	Preferred Family  `json:"preferred"`
	LRValid   bool    `json:"lr_valid"`
	LRStat    float64 `json:"lr_stat,omitempty"`
	LRDf      int     `json:"lr_df,omitempty"`
}

// Nested reports whether family a is a constrained special case of family b:
// 1PL ties 2PL's discriminations, RSM ties GRM's discriminations and shares
// its category steps.
func Nested(a, b Family) bool {
	return (a == OnePL && b == TwoPL) || (a == RSM && b == GRM)
}

// CompareModels computes log-likelihood and AIC comparison between two fits
// of the same data, preferring the lower AIC. The likelihood-ratio statistic
// 2*(loglik_b - loglik_a) is reported only for valid nestings.
func CompareModels(a, b *FittedModel) ModelComparison {
	mc := ModelComparison{
		FamilyA: a.Family,
		FamilyB: b.Family,
		LogLikA: a.LogLik,
		LogLikB: b.LogLik,
		AICA:    a.AIC,
		AICB:    b.AIC,
	}
	mc.Preferred = a.Family
	if b.AIC < a.AIC {
		mc.Preferred = b.Family
	}
	if Nested(a.Family, b.Family) {
		mc.LRValid = true
		mc.LRStat = 2 * (b.LogLik - a.LogLik)
		mc.LRDf = b.NParams - a.NParams
	}
	return mc
}
