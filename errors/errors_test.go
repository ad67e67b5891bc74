package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseAllocate,
				Kind:    KindUnsupportedShape,
				Slot:    7,
				HasSlot: true,
				Shape:   "c:func(int32)",
				GoType:  "func(int32)",
				Detail:  "too wide",
			},
			contains: []string{"[allocate]", "unsupported_shape", "slot 7", "c:func(int32)", "Go type func(int32)", "too wide"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDispatch,
				Kind:  KindSlotFree,
			},
			contains: []string{"[dispatch]", "slot_free"},
		},
		{
			name:     "slot zero",
			err:      SlotFree(PhaseRelease, 0),
			contains: []string{"[release]", "slot_free", "at slot 0"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidData,
				Detail: "load pool.hcl",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[config]", "invalid_data", "load pool.hcl", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoSlot(t *testing.T) {
	msg := PoolExhausted(4).Error()
	if strings.Contains(msg, "at slot") {
		t.Errorf("unexpected slot in %q", msg)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseBind, KindInvalidData, cause, "instantiate")

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through to cause")
	}
}

func TestError_Is(t *testing.T) {
	err := UnsupportedShape(PhaseResolve, "c:func()")

	if !errors.Is(err, ErrUnsupportedShape) {
		t.Error("sentinel without phase should match any phase")
	}
	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindUnsupportedShape}) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(err, &Error{Phase: PhaseAllocate, Kind: KindUnsupportedShape}) {
		t.Error("different phase should not match")
	}
	if errors.Is(err, ErrPoolExhausted) {
		t.Error("different kind should not match")
	}
	if err.Is(errors.New("plain")) {
		t.Error("non-structured target should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseAllocate, KindInvalidInput).
		Slot(3).
		Shape("c:func(int64) int64").
		GoType("func(int64) int64").
		Value(42).
		Cause(cause).
		Detail("expected %d params, got %d", 1, 2).
		Build()

	if err.Phase != PhaseAllocate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseAllocate)
	}
	if err.Kind != KindInvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
	}
	if !err.HasSlot || err.Slot != 3 {
		t.Errorf("Slot = %d (has=%v), want 3", err.Slot, err.HasSlot)
	}
	if err.Shape != "c:func(int64) int64" {
		t.Errorf("Shape = %q", err.Shape)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if err.Cause != cause {
		t.Error("Cause not set")
	}
	if err.Detail != "expected 1 params, got 2" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestBuilder_DetailNoArgs(t *testing.T) {
	err := New(PhaseDispatch, KindSlotFree).Detail("all slots free").Build()
	if err.Detail != "all slots free" {
		t.Errorf("Detail = %q, want literal", err.Detail)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"unsupported", UnsupportedShape(PhaseAllocate, "k"), PhaseAllocate, KindUnsupportedShape},
		{"exhausted", PoolExhausted(8), PhaseAllocate, KindPoolExhausted},
		{"slot free", SlotFree(PhaseDispatch, 1), PhaseDispatch, KindSlotFree},
		{"invalid entry", InvalidEntry(PhaseRelease, 0x99), PhaseRelease, KindInvalidEntry},
		{"invalid input", InvalidInput(PhaseRegister, "empty key"), PhaseRegister, KindInvalidInput},
		{"not invocation", NotInvocation(), PhaseDispatch, KindNotInvocation},
		{"type mismatch", TypeMismatch(PhaseRegister, "string", "unsupported"), PhaseRegister, KindTypeMismatch},
		{"config", Config("decode", nil), PhaseConfig, KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}
