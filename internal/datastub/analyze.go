package datastub

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"gridprep/models"
)

// missingMarkers are cell values treated as missing in addition to the
// empty string.
var missingMarkers = map[string]bool{
	"na": true, "n/a": true, "nan": true, "null": true, "none": true, "-": true,
}

func isMissing(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	return missingMarkers[strings.ToLower(trimmed)]
}

func isNumeric(value string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(value, ",", "")), 64)
	return err == nil
}

// suggestHeaderRow picks the first row that looks like column names: every
// cell filled, at least one cell non-numeric, and the row below it populated.
// Rows above it are treated as description rows. Returns -1 when nothing
// qualifies.
func suggestHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > 20 {
		limit = 20
	}
	for i := 0; i < limit; i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}
		filled, textual := 0, 0
		for _, cell := range row {
			if !isMissing(cell) {
				filled++
				if !isNumeric(cell) {
					textual++
				}
			}
		}
		if filled == len(row) && textual > 0 && i+1 < len(rows) && len(rows[i+1]) > 0 {
			return i
		}
	}
	return -1
}

var datetimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02.01.2006",
	time.RFC3339,
}

// pandas-style strftime formats matching datetimeLayouts, index for index.
var datetimeFormats = []string{
	"%Y-%m-%d",
	"%Y-%m-%d %H:%M:%S",
	"%m/%d/%Y",
	"%d.%m.%Y",
	"%Y-%m-%dT%H:%M:%S%z",
}

// detectDatetimeFormat tries the known layouts against every non-missing
// value; a layout that parses all of them wins.
func detectDatetimeFormat(values []string) (string, bool) {
	present := nonMissing(values)
	if len(present) == 0 {
		return "", false
	}
	for i, layout := range datetimeLayouts {
		matched := true
		for _, value := range present {
			if _, err := time.Parse(layout, strings.TrimSpace(value)); err != nil {
				matched = false
				break
			}
		}
		if matched {
			return datetimeFormats[i], true
		}
	}
	return "", false
}

func nonMissing(values []string) []string {
	var out []string
	for _, value := range values {
		if !isMissing(value) {
			out = append(out, value)
		}
	}
	return out
}

// inferDtype reports a pandas-style dtype for a column sample.
func inferDtype(values []string) string {
	present := nonMissing(values)
	if len(present) == 0 {
		return "object"
	}

	allInt, allFloat, allBool := true, true, true
	for _, value := range present {
		trimmed := strings.TrimSpace(value)
		if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
			allInt = false
		}
		if !isNumeric(trimmed) {
			allFloat = false
		}
		switch strings.ToLower(trimmed) {
		case "true", "false":
		default:
			allBool = false
		}
	}
	switch {
	case allBool:
		return "bool"
	case allInt:
		return "int64"
	case allFloat:
		return "float64"
	}
	if _, ok := detectDatetimeFormat(present); ok {
		return "datetime64[ns]"
	}
	return "object"
}

// columnMetadata summarizes one column for the file-metadata response.
func columnMetadata(name string, values []string) models.ColumnMetadata {
	missing := 0
	var samples []string
	for _, value := range values {
		if isMissing(value) {
			missing++
			continue
		}
		if len(samples) < 5 {
			samples = append(samples, value)
		}
	}
	pct := 0.0
	if len(values) > 0 {
		pct = float64(missing) / float64(len(values)) * 100
	}
	return models.ColumnMetadata{
		Name:              name,
		Dtype:             inferDtype(values),
		MissingCount:      missing,
		MissingPercentage: pct,
		SampleValues:      samples,
	}
}

// missingValueSuggestions ranks fill strategies for a column. Numeric
// columns get moment-based fills with the computed value shown; categorical
// columns get mode and placeholder fills. Columns with nothing missing get
// no suggestions.
func missingValueSuggestions(values []string, dtype string) models.MissingValuesRules {
	missing := 0
	var numbers []float64
	counts := make(map[string]int)
	for _, value := range values {
		if isMissing(value) {
			missing++
			continue
		}
		counts[value]++
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			numbers = append(numbers, f)
		}
	}

	rules := models.MissingValuesRules{MissingCount: missing}
	if len(values) > 0 {
		rules.MissingPercent = float64(missing) / float64(len(values)) * 100
	}
	if missing == 0 {
		return rules
	}

	switch dtype {
	case "int64", "float64":
		rules.Suggestions = numericSuggestions(numbers)
	default:
		rules.Suggestions = categoricalSuggestions(counts)
	}
	rules.Suggestions = append(rules.Suggestions, "drop_rows", "leave_missing")
	return rules
}

func numericSuggestions(numbers []float64) []string {
	if len(numbers) == 0 {
		return []string{"fill_zero"}
	}

	mean, meanErr := stats.Mean(numbers)
	median, medianErr := stats.Median(numbers)

	var out []string
	// A heavy-tailed column is better served by the median; compare spread
	// against the mean to pick the lead suggestion.
	variance := stat.Variance(numbers, nil)
	if medianErr == nil && meanErr == nil && variance > mean*mean {
		out = append(out,
			fmt.Sprintf("fill_median (%.2f)", median),
			fmt.Sprintf("fill_mean (%.2f)", mean))
	} else {
		if meanErr == nil {
			out = append(out, fmt.Sprintf("fill_mean (%.2f)", mean))
		}
		if medianErr == nil {
			out = append(out, fmt.Sprintf("fill_median (%.2f)", median))
		}
	}
	return append(out, "fill_zero", "forward_fill")
}

func categoricalSuggestions(counts map[string]int) []string {
	mode, best := "", 0
	for value, count := range counts {
		if count > best || (count == best && value < mode) {
			mode, best = value, count
		}
	}
	out := []string{}
	if mode != "" {
		out = append(out, fmt.Sprintf("mode (%s)", mode))
	}
	return append(out, "replace_unknown", "empty")
}
