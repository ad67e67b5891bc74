package thunk

import (
	"context"

	"github.com/jtolds/gls"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/shape"
)

// invocationKey is an unexported type to prevent collisions with context
// keys from other packages.
type invocationKey struct{}

// Invocation describes the thunk call currently executing in a context.
type Invocation struct {
	Delegate   Delegate
	Pool       *Pool
	Shape      shape.Key
	Entry      EntryPoint
	Generation uint64
	Index      int
}

// Invoke is the landing point of a native call on entry: it runs the stub
// of the entry's slot with the raw value stack. The stack must hold at
// least as many words as the bound wrapper reads or writes.
func (p *Pool) Invoke(ctx context.Context, entry EntryPoint, stack []uint64) error {
	index, ok := p.Index(entry)
	if !ok {
		return errors.InvalidEntry(errors.PhaseDispatch, uintptr(entry))
	}
	return p.stubs[index].call(ctx, stack)
}

// Stub returns the native-callable body of slot i. Platform bindings wrap
// it in their own calling convention.
func (p *Pool) Stub(i int) func(ctx context.Context, stack []uint64) error {
	if i < 0 || i >= len(p.stubs) {
		return nil
	}
	return p.stubs[i].call
}

func (p *Pool) dispatch(ctx context.Context, index int, stack []uint64) error {
	b := p.slots[index].binding.Load()
	if b == nil {
		p.stats.faults.Add(1)
		p.logger.Error("thunk invoked on free slot", zap.Int("slot", index))
		return errors.SlotFree(errors.PhaseDispatch, index)
	}
	if need := b.wrapper.StackSize(); len(stack) < need {
		return errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
			Slot(index).
			Shape(string(b.key)).
			Detail("stack has %d words, wrapper needs %d", len(stack), need).
			Build()
	}

	p.stats.invocations.Add(1)
	inv := &Invocation{
		Delegate:   b.delegate,
		Pool:       p,
		Shape:      b.key,
		Entry:      p.stubs[index].entry,
		Generation: b.generation,
		Index:      index,
	}
	ctx = context.WithValue(ctx, invocationKey{}, inv)

	if p.glsMgr != nil {
		p.glsMgr.SetValues(gls.Values{p: index}, func() {
			b.wrapper.Func(ctx, stack)
		})
		return nil
	}
	b.wrapper.Func(ctx, stack)
	return nil
}

// FromContext returns the innermost thunk invocation carried by ctx.
func FromContext(ctx context.Context) (*Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(*Invocation)
	return inv, ok
}

// CurrentSlotIndex returns the slot whose entry point started the
// invocation carried by ctx.
func CurrentSlotIndex(ctx context.Context) (int, bool) {
	inv, ok := FromContext(ctx)
	if !ok {
		return -1, false
	}
	return inv.Index, true
}

// LookupDelegate returns the delegate bound for the invocation in ctx.
func LookupDelegate(ctx context.Context) (Delegate, bool) {
	inv, ok := FromContext(ctx)
	if !ok {
		return nil, false
	}
	return inv.Delegate, true
}

// CurrentDelegate is LookupDelegate for wrapper code. Calling it outside a
// thunk invocation is an internal consistency fault and panics.
func CurrentDelegate(ctx context.Context) Delegate {
	d, ok := LookupDelegate(ctx)
	if !ok {
		panic(errors.NotInvocation())
	}
	return d
}

// GoroutineSlotIndex returns the slot of the invocation running on the
// calling goroutine. It requires WithGoroutineLocal(true).
func (p *Pool) GoroutineSlotIndex() (int, bool) {
	if p.glsMgr == nil {
		return -1, false
	}
	v, ok := p.glsMgr.GetValue(p)
	if !ok {
		return -1, false
	}
	index, ok := v.(int)
	return index, ok
}

// GoroutineDelegate returns the delegate currently bound to the slot found
// by GoroutineSlotIndex. A slot released mid-call reports a SlotFree fault.
func (p *Pool) GoroutineDelegate() (Delegate, error) {
	index, ok := p.GoroutineSlotIndex()
	if !ok {
		return nil, errors.NotInvocation()
	}
	b := p.slots[index].binding.Load()
	if b == nil {
		return nil, errors.SlotFree(errors.PhaseDispatch, index)
	}
	return b.delegate, nil
}
