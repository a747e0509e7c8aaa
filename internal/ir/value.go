package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
	"unicode/utf8"
)

// Value is a sealed interface representing the structured values exchanged
// with guest code. Only Null, Bool, Number, String, Array and Object implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents an absent value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Number represents a numeric value. Integers and floats share one
// representation; the value must be finite.
type Number float64

func (Number) irValue() {}

// IsInteger reports whether n has no fractional part.
func (n Number) IsInteger() bool {
	f := float64(n)
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

// String represents a text value. Must be valid UTF-8.
type String string

func (String) irValue() {}

// Array represents a dense, ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair.
// Example: NewObject(O("name", String("Ada")), O("age", Number(36)))
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewObject creates an Object from key-value pairs.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// NewArray creates an Array from values.
func NewArray(vals ...Value) Array {
	return Array(vals)
}

// SortedKeys returns keys in UTF-16 code unit order (RFC 8785).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units.
// Go's default string comparison uses UTF-8 which produces a different order
// for characters outside the BMP.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// TypeName returns a short name for the dynamic type of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Validate checks the invariants of a value graph: no nil members, finite
// numbers and valid UTF-8 text. Errors carry the path of the offending member.
func Validate(v Value) error {
	return validateAt(v, "value")
}

func validateAt(v Value, path string) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("%s: nil is not a value", path)
	case Null, Bool:
		return nil
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%s: number must be finite", path)
		}
		return nil
	case String:
		if !utf8.ValidString(string(val)) {
			return fmt.Errorf("%s: string is not valid UTF-8", path)
		}
		return nil
	case Array:
		for i, elem := range val {
			if err := validateAt(elem, fmt.Sprintf("%s[%d]", path, i+1)); err != nil {
				return err
			}
		}
		return nil
	case Object:
		for _, k := range val.SortedKeys() {
			if !utf8.ValidString(k) {
				return fmt.Errorf("%s: key is not valid UTF-8", path)
			}
			if err := validateAt(val[k], path+"."+k); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%s: unknown value type %T", path, v)
	}
}

// Equal reports whether a and b are deeply equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for digests and golden output.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Array.
func (arr Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalValue marshals a Value to JSON bytes.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(bool(val))
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite number %v", f)
		}
		return json.Marshal(f)
	case String:
		return json.Marshal(string(val))
	case Array:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes JSON into a Value.
// JSON null becomes Null; all numbers become Number.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// UnmarshalObject decodes a JSON object into an Object.
func UnmarshalObject(data []byte) (Object, error) {
	v, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", TypeName(v))
	}
	return obj, nil
}

// FromAny converts a decoded JSON or YAML document into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		if !utf8.ValidString(val) {
			return nil, fmt.Errorf("string is not valid UTF-8")
		}
		return String(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return finiteNumber(float64(val))
	case float64:
		return finiteNumber(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", val, err)
		}
		return finiteNumber(f)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func finiteNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("number must be finite: %v", f)
	}
	return Number(f), nil
}

// ToAny converts a Value into plain Go values (nil, bool, float64, string,
// []any, map[string]any) suitable for encoding/json or yaml.
// Integral numbers that fit in int64 become int64.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null, nil:
		return nil
	case Bool:
		return bool(val)
	case Number:
		if val.IsInteger() && math.Abs(float64(val)) < 1<<53 {
			return int64(val)
		}
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
