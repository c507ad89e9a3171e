package irt

import (
	"math"
	"testing"
)

func TestAIC_Scenario(t *testing.T) {
	// 9 parameters at loglik -500 vs 18 parameters at -480.
	a := AIC(9, -500)
	b := AIC(18, -480)
	if a != 1018 {
		t.Fatalf("AIC(9, -500) = %f, want 1018", a)
	}
	if b != 996 {
		t.Fatalf("AIC(18, -480) = %f, want 996", b)
	}
	if b >= a {
		t.Fatal("the richer model should be preferred here")
	}
}

func TestCompareModels(t *testing.T) {
	one := &FittedModel{Family: OnePL, LogLik: -500, NParams: 9, AIC: AIC(9, -500)}
	two := &FittedModel{Family: TwoPL, LogLik: -480, NParams: 18, AIC: AIC(18, -480)}

	mc := CompareModels(one, two)
	if mc.Preferred != TwoPL {
		t.Fatalf("preferred %s, want 2PL", mc.Preferred)
	}
	if !mc.LRValid {
		t.Fatal("1PL within 2PL is a valid likelihood-ratio comparison")
	}
	if math.Abs(mc.LRStat-40) > 1e-12 || mc.LRDf != 9 {
		t.Fatalf("LR stat %f df %d, want 40 and 9", mc.LRStat, mc.LRDf)
	}
}

func TestCompareModels_NonNested(t *testing.T) {
	grm := &FittedModel{Family: GRM, LogLik: -450, NParams: 12, AIC: AIC(12, -450)}
	two := &FittedModel{Family: TwoPL, LogLik: -480, NParams: 18, AIC: AIC(18, -480)}
	mc := CompareModels(two, grm)
	if mc.LRValid {
		t.Fatal("GRM and 2PL are not nested; the LR test is not valid")
	}
	if mc.Preferred != GRM {
		t.Fatalf("preferred %s, want GRM by AIC", mc.Preferred)
	}
}

func TestNested(t *testing.T) {
	cases := []struct {
		a, b Family
		want bool
	}{
		{OnePL, TwoPL, true},
		{RSM, GRM, true},
		{TwoPL, OnePL, false},
		{OnePL, GRM, false},
		{GRM, RSM, false},
	}
	for _, c := range cases {
		if got := Nested(c.a, c.b); got != c.want {
			t.Errorf("Nested(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
