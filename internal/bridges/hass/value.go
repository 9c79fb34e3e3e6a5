package hass

import (
	"encoding/json"
	"math"
)

// ValueKind discriminates the variants a Value can hold.
type ValueKind int

const (
	// KindAbsent marks a value that was missing or JSON null.
	KindAbsent ValueKind = iota
	// KindBool holds a JSON boolean.
	KindBool
	// KindNumber holds a JSON number as float64.
	KindNumber
	// KindString holds a JSON string.
	KindString
	// KindStrings holds a homogeneous array of strings.
	KindStrings
	// KindNumbers holds a homogeneous array of numbers.
	KindNumbers
	// KindRaw holds any other JSON shape verbatim, so nothing an
	// entity reports is silently dropped.
	KindRaw
)

// Value is a tagged variant for entity state and attribute values.
//
// Home Assistant attribute payloads are schemaless JSON; Value keeps
// every shape representable while giving callers total, explicit
// conversions instead of type assertions on interface{}.
type Value struct {
	kind    ValueKind
	boolVal bool
	numVal  float64
	strVal  string
	strs    []string
	nums    []float64
	raw     json.RawMessage
}

// AbsentValue is the canonical missing value.
var AbsentValue = Value{kind: KindAbsent}

// BoolValue creates a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// NumberValue creates a numeric Value.
func NumberValue(n float64) Value { return Value{kind: KindNumber, numVal: n} }

// StringValue creates a string Value.
func StringValue(s string) Value { return Value{kind: KindString, strVal: s} }

// StringsValue creates a string array Value.
func StringsValue(s []string) Value { return Value{kind: KindStrings, strs: s} }

// NumbersValue creates a numeric array Value.
func NumbersValue(n []float64) Value { return Value{kind: KindNumbers, nums: n} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether the value was missing or null.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Bool returns the boolean payload. For non-boolean values it returns
// false with ok=false.
func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.boolVal, true
	}
	return false, false
}

// Float returns the numeric payload. For non-numeric values it returns
// 0 with ok=false.
func (v Value) Float() (float64, bool) {
	if v.kind == KindNumber {
		return v.numVal, true
	}
	return 0, false
}

// Int returns the numeric payload rounded to the nearest integer.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// String returns the string payload. For non-string values it returns
// "" with ok=false.
func (v Value) String() (string, bool) {
	if v.kind == KindString {
		return v.strVal, true
	}
	return "", false
}

// StringSlice returns the string array payload, or nil with ok=false.
func (v Value) StringSlice() ([]string, bool) {
	if v.kind == KindStrings {
		return v.strs, true
	}
	return nil, false
}

// FloatSlice returns the numeric array payload, or nil with ok=false.
func (v Value) FloatSlice() ([]float64, bool) {
	if v.kind == KindNumbers {
		return v.nums, true
	}
	return nil, false
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := string(data)
	if trimmed == "null" {
		*v = AbsentValue
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}

	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil {
		*v = StringsValue(strs)
		return nil
	}

	var nums []float64
	if err := json.Unmarshal(data, &nums); err == nil {
		*v = NumbersValue(nums)
		return nil
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	*v = Value{kind: KindRaw, raw: raw}
	return nil
}

// MarshalJSON encodes the variant back to its JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.boolVal)
	case KindNumber:
		return json.Marshal(v.numVal)
	case KindString:
		return json.Marshal(v.strVal)
	case KindStrings:
		return json.Marshal(v.strs)
	case KindNumbers:
		return json.Marshal(v.nums)
	case KindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// Attributes is the schemaless attribute bag attached to every entity state.
type Attributes map[string]Value

// Bool returns the named attribute as a boolean.
func (a Attributes) Bool(key string) (bool, bool) {
	return a[key].Bool()
}

// Float returns the named attribute as a float.
func (a Attributes) Float(key string) (float64, bool) {
	return a[key].Float()
}

// Int returns the named attribute rounded to the nearest integer.
func (a Attributes) Int(key string) (int, bool) {
	return a[key].Int()
}

// String returns the named attribute as a string.
func (a Attributes) String(key string) (string, bool) {
	return a[key].String()
}

// StringSlice returns the named attribute as a string array.
func (a Attributes) StringSlice(key string) ([]string, bool) {
	return a[key].StringSlice()
}

// FloatSlice returns the named attribute as a numeric array.
func (a Attributes) FloatSlice(key string) ([]float64, bool) {
	return a[key].FloatSlice()
}

// Has reports whether the named attribute is present and non-null.
func (a Attributes) Has(key string) bool {
	v, ok := a[key]
	return ok && !v.IsAbsent()
}
