package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ExtractValue normalizes a numeric field from a provider dump.
//
// Yahoo exports carry numbers as JSON numbers, numeric strings, or objects
// like {"total": 12.5}. This handles all three.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func ExtractValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
		return 0, false
	case map[string]interface{}:
		for _, key := range []string{"total", "value", "amount"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// Number is a nullable numeric field that accepts any form ExtractValue
// understands.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	n.Value, n.Valid = ExtractValue(raw)
	return nil
}

// Ptr returns the value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Or returns the value, or def when absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Int truncates the value toward zero; absent is 0.
func (n Number) Int() int {
	return int(n.Value)
}

// IntPtr truncates the value toward zero, or returns nil when absent.
func (n Number) IntPtr() *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Value)
	return &v
}

// Flag is a boolean that also accepts 0/1 and "true"/"1"/"yes" strings.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		*f = s == "true" || s == "1" || s == "yes"
	default:
		*f = false
	}
	return nil
}

// Timestamp parses unix seconds (number or string) or RFC 3339. Anything
// else decodes to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Time = time.Time{}
	if s, ok := raw.(string); ok {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	if secs, ok := ExtractValue(raw); ok && secs > 0 {
		t.Time = time.Unix(int64(secs), 0).UTC()
	}
	return nil
}

// ID is an identifier written either as a string or as a bare number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*id = ID(strings.TrimSpace(v))
	case float64:
		*id = ID(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		*id = ""
	}
	return nil
}
