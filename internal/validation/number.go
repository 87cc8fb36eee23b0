package validation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a JSON number that also accepts numeric strings, since browser
// forms routinely send "3" for 3. Decoding never fails: anything that is not
// a finite number leaves Valid false and the validator reports it.
type Number struct {
	Value float64
	Set   bool // the key was present and not null
	Valid bool // Value holds a finite number
}

// NewNumber returns a valid Number holding v.
func NewNumber(v float64) Number { return Number{Value: v, Set: true, Valid: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	n.Set = true
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		n.Value, n.Valid = CoerceNumber(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	n.Value, n.Valid = f, !math.IsNaN(f) && !math.IsInf(f, 0)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// CoerceNumber parses a loosely typed numeric string. It returns NaN and
// false when s is empty or not a finite number.
func CoerceNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN(), false
	}
	return f, true
}

// positive is false for NaN, so coerced garbage fails range rules.
func positive(f float64) bool { return f > 0 && !math.IsInf(f, 0) }
