package interpreter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// Value is a dynamically-typed command argument or result.
type Value struct {
	Kind ValueKind
	I64  int64
	F64  float64
	Bool bool
	Str  string
}

// String renders the value the way scripts see it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// IsEmpty reports whether the value is the empty result.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty || (v.Kind == KindString && v.Str == "")
}

// AsFloat64 converts the value to float64 if possible.
func (v Value) AsFloat64() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.F64, nil
	case KindInt:
		return float64(v.I64), nil
	case KindBool:
		if v.Bool {
			return 1.0, nil
		}
		return 0.0, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("expected floating-point number but got %q", v.Str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected floating-point number but got \"\"")
	}
}

// AsInt64 converts the value to int64 if possible.
func (v Value) AsInt64() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.I64, nil
	case KindFloat:
		return int64(v.F64), nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer but got %q", v.Str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer but got \"\"")
	}
}

// AsBool converts the value to bool if possible.
func (v Value) AsBool() (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindInt:
		return v.I64 != 0, nil
	case KindFloat:
		return math.Abs(v.F64) > 0, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return false, fmt.Errorf("expected boolean value but got %q", v.Str)
	default:
		return false, fmt.Errorf("expected boolean value but got \"\"")
	}
}

// Int creates an integer Value.
func Int(i int64) Value {
	return Value{Kind: KindInt, I64: i}
}

// Float creates a float Value.
func Float(f float64) Value {
	return Value{Kind: KindFloat, F64: f}
}

// Bool creates a boolean Value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// String creates a string Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Strings wraps each argument as a string Value.
func Strings(args ...string) []Value {
	out := make([]Value, len(args))
	for i, s := range args {
		out[i] = String(s)
	}
	return out
}

// Parse guesses the narrowest kind for a literal: integer, float, boolean,
// otherwise string.
func Parse(s string) Value {
	if s == "true" || s == "false" {
		return Bool(s == "true")
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}

	return String(s)
}
