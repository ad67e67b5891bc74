package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the thunk lifecycle the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // wrapper registration
	PhaseResolve  Phase = "resolve"  // shape lookup
	PhaseAllocate Phase = "allocate" // slot acquisition
	PhaseRelease  Phase = "release"  // slot release
	PhaseDispatch Phase = "dispatch" // native call landing in wrapper code
	PhaseBind     Phase = "bind"     // host module construction
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedShape Kind = "unsupported_shape"
	KindPoolExhausted    Kind = "pool_exhausted"
	KindSlotFree         Kind = "slot_free"
	KindInvalidEntry     Kind = "invalid_entry"
	KindInvalidInput     Kind = "invalid_input"
	KindNotInvocation    Kind = "not_invocation"
	KindTypeMismatch     Kind = "type_mismatch"
	KindInvalidData      Kind = "invalid_data"
)

// Sentinels for errors.Is. They carry no phase, so they match an error of
// the same kind raised in any phase.
var (
	ErrUnsupportedShape = &Error{Kind: KindUnsupportedShape}
	ErrPoolExhausted    = &Error{Kind: KindPoolExhausted}
	ErrSlotFree         = &Error{Kind: KindSlotFree}
	ErrInvalidEntry     = &Error{Kind: KindInvalidEntry}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrNotInvocation    = &Error{Kind: KindNotInvocation}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Shape  string
	GoType string
	Detail string
	Slot   int
	// HasSlot distinguishes slot 0 from "no slot".
	HasSlot bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasSlot {
		fmt.Fprintf(&b, " at slot %d", e.Slot)
	}

	if e.Shape != "" || e.GoType != "" {
		b.WriteString(": ")
		if e.Shape != "" && e.GoType != "" {
			b.WriteString("shape ")
			b.WriteString(e.Shape)
			b.WriteString(", Go type ")
			b.WriteString(e.GoType)
		} else if e.Shape != "" {
			b.WriteString("shape ")
			b.WriteString(e.Shape)
		} else {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		}
	}

	if e.Detail != "" {
		if e.Shape != "" || e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kinds must be equal; the
// phase is compared only when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Slot sets the slot index
func (b *Builder) Slot(index int) *Builder {
	b.err.Slot = index
	b.err.HasSlot = true
	return b
}

// Shape sets the shape key
func (b *Builder) Shape(key string) *Builder {
	b.err.Shape = key
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnsupportedShape reports a shape with no registered wrapper
func UnsupportedShape(phase Phase, key string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedShape,
		Shape:  key,
		Detail: "no wrapper registered",
	}
}

// PoolExhausted reports a full scan that found no free slot
func PoolExhausted(capacity int) *Error {
	return &Error{
		Phase:  PhaseAllocate,
		Kind:   KindPoolExhausted,
		Detail: fmt.Sprintf("no free slot among %d", capacity),
		Value:  capacity,
	}
}

// SlotFree reports a slot observed as free where a binding was required
func SlotFree(phase Phase, index int) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindSlotFree,
		Slot:    index,
		HasSlot: true,
		Detail:  "slot is not bound",
	}
}

// InvalidEntry reports an entry point that does not belong to the pool
func InvalidEntry(phase Phase, entry uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEntry,
		Detail: fmt.Sprintf("entry point %#x is not a pool entry", entry),
		Value:  entry,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInvocation reports a dispatch query made outside a thunk invocation
func NotInvocation() *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNotInvocation,
		Detail: "no thunk invocation in context",
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		GoType: goType,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a configuration loading error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
