// Package prefs bridges a typed preference API onto a key-value store.
//
// Every Bridge call round-trips to its Store; nothing is cached, so two
// bridges over the same store always observe each other's writes.
package prefs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedType is returned by SetAny for values with no
	// preference representation.
	ErrUnsupportedType = errors.New("prefs: unsupported value type")

	// ErrFloatUnsupported is returned by the float32 accessors.
	ErrFloatUnsupported = errors.New("prefs: float values are not supported, use double")

	// ErrCorruptValue is returned when a stored encoding cannot be decoded.
	ErrCorruptValue = errors.New("prefs: corrupt stored value")
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindDouble
	KindBool
	KindInt
	KindString
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "double", "float64":
		return KindDouble, nil
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer":
		return KindInt, nil
	case "string", "":
		return KindString, nil
	case "data", "bytes":
		return KindData, nil
	default:
		return KindAbsent, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

// Value is a preference value. The zero Value is absent.
type Value struct {
	kind Kind
	num  uint64 // float64 bits, int64 or bool
	str  string
	data []byte
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// Double returns a double value.
func Double(f float64) Value { return Value{kind: KindDouble, num: math.Float64bits(f)} }

// Bool returns a bool value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: uint64(i)} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Data returns a byte-buffer value. The slice is copied.
func Data(d []byte) Value {
	return Value{kind: KindData, data: bytes.Clone(nonNil(d))}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v holds nothing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsDouble converts numeric kinds and parseable strings to a double.
func (v Value) AsDouble() (float64, bool) {
	switch v.kind {
	case KindDouble:
		return math.Float64frombits(v.num), true
	case KindInt:
		return float64(int64(v.num)), true
	case KindBool:
		return float64(v.num), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	}
	return 0, false
}

// AsInt converts numeric kinds and parseable strings to an integer.
// Doubles are truncated toward zero.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return int64(v.num), true
	case KindDouble:
		return int64(math.Float64frombits(v.num)), true
	case KindBool:
		return int64(v.num), true
	case KindString:
		s := strings.TrimSpace(v.str)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// AsBool converts numeric kinds and the usual true/false spellings.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool, KindInt:
		return v.num != 0, true
	case KindDouble:
		return math.Float64frombits(v.num) != 0, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// AsString returns the string variant, or a decimal rendering of a
// number.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10), true
	case KindDouble:
		return strconv.FormatFloat(math.Float64frombits(v.num), 'g', -1, 64), true
	}
	return "", false
}

// AsData returns the byte-buffer variant.
func (v Value) AsData() ([]byte, bool) {
	if v.kind != KindData {
		return nil, false
	}
	return bytes.Clone(nonNil(v.data)), true
}

// Any returns the Go value held by v: float64, bool, int64, string,
// []byte, or nil when absent.
func (v Value) Any() any {
	switch v.kind {
	case KindDouble:
		return math.Float64frombits(v.num)
	case KindBool:
		return v.num != 0
	case KindInt:
		return int64(v.num)
	case KindString:
		return v.str
	case KindData:
		return bytes.Clone(nonNil(v.data))
	}
	return nil
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindData:
		return bytes.Equal(v.data, o.data)
	}
	return v.num == o.num
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindData:
		return fmt.Sprintf("<%d bytes>", len(v.data))
	}
	s, _ := v.AsString()
	return s
}

// FromAny converts a Go value to a Value. Types are tried in the order
// string, []byte, float64, bool, then the integer types; nil maps to
// Absent. Anything else yields ErrUnsupportedType.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case []byte:
		return Data(t), nil
	case float64:
		return Double(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case float32:
		return Absent(), ErrFloatUnsupported
	default:
		return Absent(), fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

// Parse builds a Value of kind k from its textual form, as given on a
// command line.
func Parse(k Kind, s string) (Value, error) {
	switch k {
	case KindString:
		return String(s), nil
	case KindData:
		return Data([]byte(s)), nil
	case KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Absent(), fmt.Errorf("prefs: parse double: %w", err)
		}
		return Double(f), nil
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Absent(), fmt.Errorf("prefs: parse int: %w", err)
		}
		return Int(i), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Absent(), fmt.Errorf("prefs: parse bool: %w", err)
		}
		return Bool(b), nil
	}
	return Absent(), fmt.Errorf("%w: %s", ErrUnsupportedType, k)
}

// MarshalBinary encodes v as one tag byte followed by the payload:
// 8 big-endian bytes for numbers and bools, raw bytes for strings and
// data.
func (v Value) MarshalBinary() ([]byte, error) {
	switch v.kind {
	case KindAbsent:
		return []byte{byte(KindAbsent)}, nil
	case KindDouble, KindInt, KindBool:
		buf := make([]byte, 9)
		buf[0] = byte(v.kind)
		binary.BigEndian.PutUint64(buf[1:], v.num)
		return buf, nil
	case KindString:
		return append([]byte{byte(KindString)}, v.str...), nil
	case KindData:
		return append([]byte{byte(KindData)}, v.data...), nil
	}
	return nil, fmt.Errorf("%w: kind %d", ErrUnsupportedType, v.kind)
}

// UnmarshalBinary decodes the form written by MarshalBinary.
func (v *Value) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return ErrCorruptValue
	}
	k, payload := Kind(b[0]), b[1:]
	switch k {
	case KindAbsent:
		*v = Absent()
	case KindDouble, KindInt, KindBool:
		if len(payload) != 8 {
			return fmt.Errorf("%w: %s payload of %d bytes", ErrCorruptValue, k, len(payload))
		}
		*v = Value{kind: k, num: binary.BigEndian.Uint64(payload)}
	case KindString:
		*v = String(string(payload))
	case KindData:
		*v = Data(payload)
	default:
		return fmt.Errorf("%w: tag %d", ErrCorruptValue, b[0])
	}
	return nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
