package flow

// Strategy enumerates the missing-value handling options. Which subset
// applies depends on whether the column is numeric or categorical; the two
// lists are disjoint except for the three common options (leave missing,
// drop rows, custom value).
type Strategy string

const (
	StrategyNone           Strategy = "none" // no decision recorded
	StrategyLeaveMissing   Strategy = "leave_missing"
	StrategyDropRows       Strategy = "drop_rows"
	StrategyCustom         Strategy = "custom"
	StrategyFillZero       Strategy = "fill_zero"
	StrategyFillMean       Strategy = "fill_mean"
	StrategyFillMedian     Strategy = "fill_median"
	StrategyForwardFill    Strategy = "forward_fill"
	StrategyReplaceUnknown Strategy = "replace_unknown"
	StrategyMode           Strategy = "mode"
	StrategyEmpty          Strategy = "empty"
)

// ColumnKind partitions columns for strategy applicability.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
)

var commonStrategies = []Strategy{
	StrategyLeaveMissing,
	StrategyDropRows,
	StrategyCustom,
}

var numericOnlyStrategies = []Strategy{
	StrategyFillZero,
	StrategyFillMean,
	StrategyFillMedian,
	StrategyForwardFill,
}

var categoricalOnlyStrategies = []Strategy{
	StrategyReplaceUnknown,
	StrategyMode,
	StrategyEmpty,
}

// StrategiesFor returns the ordered option list for a column kind.
func StrategiesFor(kind ColumnKind) []Strategy {
	var out []Strategy
	out = append(out, commonStrategies...)
	switch kind {
	case KindNumeric:
		out = append(out, numericOnlyStrategies...)
	case KindCategorical:
		out = append(out, categoricalOnlyStrategies...)
	}
	return out
}

// StrategyApplies reports whether a strategy is offered for the given kind.
func StrategyApplies(s Strategy, kind ColumnKind) bool {
	for _, candidate := range StrategiesFor(kind) {
		if candidate == s {
			return true
		}
	}
	return false
}

// KindForDtype maps a data service dtype to a strategy column kind.
// Anything non-numeric is treated as categorical for strategy purposes.
func KindForDtype(dtype string) ColumnKind {
	switch dtype {
	case "int", "int64", "float", "float64", "numeric", "double":
		return KindNumeric
	default:
		return KindCategorical
	}
}

// RequiresValue reports whether a strategy needs a user-supplied fill value.
func (s Strategy) RequiresValue() bool {
	return s == StrategyCustom
}
