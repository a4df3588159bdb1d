package tracker

import (
	"fmt"
	"regexp"
	"strconv"
)

// valuePattern parses "<number><unit>" or "<number> <unit>" strings.
var valuePattern = regexp.MustCompile(`^(\d+(\.\d+)?)(\s*)(\w+)?$`)

// Progress is an immutable snapshot of completed/total/unit for one
// operation.
type Progress struct {
	Completed *float64
	Total     *float64
	Unit      string
}

// PctDone returns the completion fraction, defined only when both
// Completed and Total are set.
func (p Progress) PctDone() (float64, bool) {
	if p.Completed == nil || p.Total == nil || *p.Total == 0 {
		return 0, false
	}
	return *p.Completed / *p.Total, true
}

// Finished reports whether Completed equals Total, with both set.
func (p Progress) Finished() bool {
	return p.Completed != nil && p.Total != nil && *p.Completed == *p.Total
}

func (p Progress) String() string {
	val := "?"
	if p.Completed != nil {
		val = formatFloat(*p.Completed)
	}
	if p.Total != nil {
		val += "/" + formatFloat(*p.Total)
	}
	if p.Unit != "" {
		val += " " + p.Unit
	}
	if pct, ok := p.PctDone(); ok {
		val += fmt.Sprintf(" (%.0f%%)", pct*100)
	}
	return val
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseValue parses a raw completed/total argument, which may be a
// string in "<number><unit>"/"<number> <unit>" form, or a plain number.
// Returns the parsed number and the unit extracted, if any.
func parseValue(value any) (float64, string, error) {
	switch v := value.(type) {
	case string:
		m := valuePattern.FindStringSubmatch(v)
		if m == nil {
			return 0, "", fmt.Errorf("tracker: value %q is not in the form {number}{unit} or {number} {unit}", v)
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, "", err
		}
		return n, m[4], nil
	case float64:
		return v, "", nil
	case int:
		return float64(v), "", nil
	default:
		return 0, "", fmt.Errorf("tracker: value must be a number or {number}{unit} string, got %T", value)
	}
}
