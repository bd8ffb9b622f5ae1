package market

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is an optional numeric form value. The zero value is absent.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number unless x is NaN or infinite.
func Num(x float64) Number {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Number{}
	}
	return Number{Value: x, Valid: true}
}

// ParseNumber is the single parse-or-absent step between raw form input
// and the calculators. Empty, non-numeric and non-finite input is absent.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Num(x)
}

// Or returns the value, or def when absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Int truncates the value toward zero as a count. Absent and negative
// values yield 0; values beyond the int range saturate at math.MaxInt.
func (n Number) Int() int {
	if !n.Valid || n.Value <= 0 {
		return 0
	}
	if n.Value >= math.MaxInt {
		return math.MaxInt
	}
	return int(n.Value)
}

func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// UnmarshalJSON accepts a JSON number, a numeric string, "" or null.
// Anything unparseable decodes to an absent Number rather than an error.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = Number{}
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}
	*n = ParseNumber(string(b))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}
