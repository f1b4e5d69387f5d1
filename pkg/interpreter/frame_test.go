package interpreter_test

import (
	"slices"
	"testing"

	"interpcore/pkg/interpreter"
)

func TestFrameFree(t *testing.T) {
	tests := []struct {
		name     string
		flags    interpreter.FrameFlags
		global   bool
		wantKept bool
	}{
		{"procedure frame", interpreter.FrameProcedure, false, false},
		{"global frame on thread release", interpreter.FrameGlobal, false, true},
		{"global frame on teardown", interpreter.FrameGlobal, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := interpreter.NewCallFrame("f", tt.flags, 0)
			f.Set("a", interpreter.Int(1))

			f.Free(tt.global)

			if _, ok := f.Get("a"); ok != tt.wantKept {
				t.Errorf("variable kept = %v, want %v", ok, tt.wantKept)
			}
		})
	}
}

func TestFrameNamesAndDispose(t *testing.T) {
	f := interpreter.NewCallFrame("f", interpreter.FrameProcedure, 1)
	f.Set("b", interpreter.Int(2))
	f.Set("a", interpreter.Int(1))

	if got := f.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v", got)
	}
	if !f.Unset("a") || f.Unset("a") {
		t.Error("Unset should report whether the variable existed")
	}

	f.Dispose()
	if !f.Disposed() || len(f.Names()) != 0 {
		t.Error("Dispose should empty and retire the frame")
	}
}

func TestCallStack(t *testing.T) {
	s := interpreter.NewCallStack()
	if s.Top() != nil || s.Pop() != nil {
		t.Fatal("empty stack has no top")
	}

	outer := interpreter.NewCallFrame("outer", interpreter.FrameProcedure, 1)
	inner := interpreter.NewCallFrame("inner", interpreter.FrameProcedure, 2)
	outer.Set("x", interpreter.Int(1))
	inner.Set("y", interpreter.Int(2))
	s.Push(outer)
	s.Push(inner)

	if s.Len() != 2 || s.Top() != inner {
		t.Error("inner should be on top")
	}
	if s.AtLevel(1) != outer || s.AtLevel(2) != inner || s.AtLevel(0) != nil || s.AtLevel(3) != nil {
		t.Error("AtLevel is 1-based and bounded")
	}

	s.Free(false)
	if s.Len() != 0 {
		t.Errorf("Free should empty the stack, %d left", s.Len())
	}
	if _, ok := outer.Get("x"); ok {
		t.Error("procedure frames are freed with the stack")
	}
}

func TestValueConversions(t *testing.T) {
	tests := []struct {
		in      interpreter.Value
		str     string
		i64     int64
		intErr  bool
		boolean bool
		boolErr bool
	}{
		{interpreter.Int(42), "42", 42, false, true, false},
		{interpreter.Float(2.5), "2.5", 2, false, true, false},
		{interpreter.Bool(false), "false", 0, false, false, false},
		{interpreter.String(" 0x10 "), " 0x10 ", 16, false, false, true},
		{interpreter.String("yes"), "yes", 0, true, true, false},
		{interpreter.Value{}, "", 0, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.in.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}

			n, err := tt.in.AsInt64()
			if (err != nil) != tt.intErr || (err == nil && n != tt.i64) {
				t.Errorf("AsInt64() = %d, %v", n, err)
			}

			b, err := tt.in.AsBool()
			if (err != nil) != tt.boolErr || (err == nil && b != tt.boolean) {
				t.Errorf("AsBool() = %v, %v", b, err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want interpreter.ValueKind
	}{
		{"12", interpreter.KindInt},
		{"1.5", interpreter.KindFloat},
		{"true", interpreter.KindBool},
		{"hello", interpreter.KindString},
	}

	for _, tt := range tests {
		if got := interpreter.Parse(tt.in).Kind; got != tt.want {
			t.Errorf("Parse(%q).Kind = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := interpreter.Strings("a", "b"); len(got) != 2 || got[1].String() != "b" {
		t.Errorf("Strings = %v", got)
	}
}
