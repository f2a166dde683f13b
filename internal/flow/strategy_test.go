package flow

import "testing"

func TestStrategyListsDisjointExceptCommon(t *testing.T) {
	numeric := StrategiesFor(KindNumeric)
	categorical := StrategiesFor(KindCategorical)

	common := map[Strategy]bool{
		StrategyLeaveMissing: true,
		StrategyDropRows:     true,
		StrategyCustom:       true,
	}

	numericSet := make(map[Strategy]bool)
	for _, s := range numeric {
		numericSet[s] = true
	}
	for _, s := range categorical {
		if numericSet[s] && !common[s] {
			t.Fatalf("strategy %s offered for both kinds but is not a common option", s)
		}
	}
	for s := range common {
		if !numericSet[s] {
			t.Fatalf("common strategy %s missing from numeric list", s)
		}
		if !StrategyApplies(s, KindCategorical) {
			t.Fatalf("common strategy %s missing from categorical list", s)
		}
	}
}

func TestStrategyApplicability(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		kind     ColumnKind
		want     bool
	}{
		{"numeric never offers replace_unknown", StrategyReplaceUnknown, KindNumeric, false},
		{"categorical never offers fill_mean", StrategyFillMean, KindCategorical, false},
		{"numeric offers fill_median", StrategyFillMedian, KindNumeric, true},
		{"categorical offers mode", StrategyMode, KindCategorical, true},
		{"drop rows common to numeric", StrategyDropRows, KindNumeric, true},
		{"drop rows common to categorical", StrategyDropRows, KindCategorical, true},
		{"none is never offered", StrategyNone, KindNumeric, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StrategyApplies(tt.strategy, tt.kind); got != tt.want {
				t.Fatalf("StrategyApplies(%s, %s) = %v, want %v", tt.strategy, tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindForDtype(t *testing.T) {
	tests := []struct {
		dtype string
		want  ColumnKind
	}{
		{"int64", KindNumeric},
		{"float64", KindNumeric},
		{"numeric", KindNumeric},
		{"object", KindCategorical},
		{"string", KindCategorical},
		{"datetime64[ns]", KindCategorical},
		{"", KindCategorical},
	}
	for _, tt := range tests {
		if got := KindForDtype(tt.dtype); got != tt.want {
			t.Errorf("KindForDtype(%q) = %v, want %v", tt.dtype, got, tt.want)
		}
	}
}
