package shape

import (
	"reflect"

	"github.com/tetratelabs/wazero/api"
)

// Key identifies a delegate shape: one calling signature under one calling
// convention. Keys are compared as plain strings.
type Key string

// Convention names the native calling convention class of a shape.
type Convention string

const (
	ConventionC       Convention = "c"
	ConventionStdCall Convention = "stdcall"
)

// Wrapper is the per-shape trampoline target. Func receives the raw native
// value stack: Params words on entry, Results words written back in place.
type Wrapper struct {
	Func    api.GoFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// StackSize is the number of words the wrapper reads or writes.
func (w Wrapper) StackSize() int {
	if len(w.Results) > len(w.Params) {
		return len(w.Results)
	}
	return len(w.Params)
}

// KeyOf derives the shape key of a delegate from its declared Go func type.
// Returns "" for nil or non-func values.
func KeyOf(fn any, conv Convention) Key {
	if fn == nil {
		return ""
	}
	return KeyOfType(reflect.TypeOf(fn), conv)
}

// KeyOfType is KeyOf for a reflect.Type.
func KeyOfType(t reflect.Type, conv Convention) Key {
	if t == nil || t.Kind() != reflect.Func {
		return ""
	}
	if conv == "" {
		conv = ConventionC
	}
	return Key(string(conv) + ":" + t.String())
}
