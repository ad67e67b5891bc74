package thunk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero/api"

	thunkerrors "github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/shape"
)

const shapeCtx shape.Key = "ctx"

// ctxDelegate receives the invocation context so it can re-enter the pool.
type ctxDelegate func(ctx context.Context) int64

func ctxWrapper() shape.Wrapper {
	return shape.Wrapper{
		Name:    "ctx",
		Results: []api.ValueType{api.ValueTypeI64},
		Func: func(ctx context.Context, stack []uint64) {
			fn := CurrentDelegate(ctx).(ctxDelegate)
			stack[0] = api.EncodeI64(fn(ctx))
		},
	}
}

func TestDispatch_RepeatedInvoke(t *testing.T) {
	p := newTestPool(t, 4)

	e, err := p.CreateThunk(func(x int64) int64 { return x * 3 }, shapeS)
	if err != nil {
		t.Fatalf("CreateThunk failed: %v", err)
	}

	ctx := context.Background()
	for i := int64(0); i < 10; i++ {
		stack := []uint64{api.EncodeI64(i)}
		if err := p.Invoke(ctx, e, stack); err != nil {
			t.Fatalf("Invoke %d failed: %v", i, err)
		}
		if got := int64(stack[0]); got != i*3 {
			t.Fatalf("Invoke %d returned %d, want %d", i, got, i*3)
		}
	}

	if st := p.Stats(); st.Invocations != 10 {
		t.Fatalf("Expected 10 invocations, got %d", st.Invocations)
	}
}

func TestDispatch_InvocationContext(t *testing.T) {
	p := newTestPool(t, 4)
	p.Registry().Register(shapeCtx, ctxWrapper())

	// Occupy slots 0 and 1 so the ctx delegate lands on slot 2.
	p.CreateThunk(constDelegate(0), shapeS)
	p.CreateThunk(constDelegate(1), shapeS)

	var got *Invocation
	e, err := p.CreateThunk(ctxDelegate(func(ctx context.Context) int64 {
		got, _ = FromContext(ctx)
		return 0
	}), shapeCtx)
	if err != nil {
		t.Fatalf("CreateThunk failed: %v", err)
	}

	if err := p.Invoke(context.Background(), e, []uint64{0}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if got == nil {
		t.Fatal("Delegate saw no invocation in context")
	}
	if got.Index != 2 || got.Entry != e || got.Pool != p || got.Shape != shapeCtx {
		t.Fatalf("Unexpected invocation: %+v", got)
	}
}

func TestDispatch_Reentrant(t *testing.T) {
	p := newTestPool(t, 4)
	p.Registry().Register(shapeCtx, ctxWrapper())

	var innerSlot int
	inner, err := p.CreateThunk(ctxDelegate(func(ctx context.Context) int64 {
		innerSlot, _ = CurrentSlotIndex(ctx)
		return 7
	}), shapeCtx)
	if err != nil {
		t.Fatalf("CreateThunk(inner) failed: %v", err)
	}

	var before, after int
	var innerResult int64
	outer, err := p.CreateThunk(ctxDelegate(func(ctx context.Context) int64 {
		before, _ = CurrentSlotIndex(ctx)
		stack := []uint64{0}
		if err := p.Invoke(ctx, inner, stack); err != nil {
			t.Errorf("nested Invoke failed: %v", err)
		}
		innerResult = int64(stack[0])
		after, _ = CurrentSlotIndex(ctx)
		return 1
	}), shapeCtx)
	if err != nil {
		t.Fatalf("CreateThunk(outer) failed: %v", err)
	}

	stack := []uint64{0}
	if err := p.Invoke(context.Background(), outer, stack); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	innerIdx := mustIndex(t, p, inner)
	outerIdx := mustIndex(t, p, outer)
	if innerSlot != innerIdx {
		t.Fatalf("Inner call saw slot %d, want %d", innerSlot, innerIdx)
	}
	if before != outerIdx || after != outerIdx {
		t.Fatalf("Outer call saw slots %d/%d, want %d", before, after, outerIdx)
	}
	if innerResult != 7 || int64(stack[0]) != 1 {
		t.Fatalf("Results = %d, %d; want 7, 1", innerResult, int64(stack[0]))
	}
}

func TestDispatch_Concurrent(t *testing.T) {
	const slots = 8
	p := newTestPool(t, slots)

	entries := make([]EntryPoint, slots)
	for i := range entries {
		e, err := p.CreateThunk(constDelegate(int64(i*10)), shapeS)
		if err != nil {
			t.Fatalf("CreateThunk failed: %v", err)
		}
		entries[i] = e
	}

	var wg sync.WaitGroup
	for g := 0; g < 64; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			i := g % slots
			for n := 0; n < 100; n++ {
				stack := []uint64{0}
				if err := p.Invoke(context.Background(), entries[i], stack); err != nil {
					t.Errorf("Invoke failed: %v", err)
					return
				}
				if got := int64(stack[0]); got != int64(i*10) {
					t.Errorf("slot %d returned %d, want %d", i, got, i*10)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestDispatch_FreeSlotFault(t *testing.T) {
	p := newTestPool(t, 2)

	e, _ := p.CreateThunk(constDelegate(1), shapeS)
	p.ReleaseThunk(e)

	err := p.Invoke(context.Background(), e, []uint64{0})
	if !errors.Is(err, thunkerrors.ErrSlotFree) {
		t.Fatalf("Expected SlotFree, got %v", err)
	}
	if !errors.Is(err, &thunkerrors.Error{Phase: thunkerrors.PhaseDispatch, Kind: thunkerrors.KindSlotFree}) {
		t.Fatalf("Expected dispatch phase, got %v", err)
	}
	if st := p.Stats(); st.Faults != 1 || st.Invocations != 0 {
		t.Fatalf("Unexpected stats: %+v", st)
	}
}

func TestDispatch_InvalidEntry(t *testing.T) {
	p := newTestPool(t, 2)

	for _, e := range []EntryPoint{0, 3, 100} {
		if err := p.Invoke(context.Background(), e, []uint64{0}); !errors.Is(err, thunkerrors.ErrInvalidEntry) {
			t.Errorf("Invoke(%d): expected InvalidEntry, got %v", e, err)
		}
	}
	if p.Stub(-1) != nil || p.Stub(2) != nil {
		t.Error("Stub out of range should be nil")
	}
}

func TestDispatch_ShortStack(t *testing.T) {
	p := newTestPool(t, 2)
	e, _ := p.CreateThunk(constDelegate(1), shapeS)

	err := p.Invoke(context.Background(), e, nil)
	if !errors.Is(err, thunkerrors.ErrInvalidInput) {
		t.Fatalf("Expected InvalidInput for empty stack, got %v", err)
	}
}

func TestDispatch_Stub(t *testing.T) {
	p := newTestPool(t, 2)
	e, _ := p.CreateThunk(func(x int64) int64 { return -x }, shapeS)

	stub := p.Stub(mustIndex(t, p, e))
	stack := []uint64{api.EncodeI64(5)}
	if err := stub(context.Background(), stack); err != nil {
		t.Fatalf("stub failed: %v", err)
	}
	if int64(stack[0]) != -5 {
		t.Fatalf("stub returned %d, want -5", int64(stack[0]))
	}
}

func TestCurrentDelegate_OutsideInvocation(t *testing.T) {
	if _, ok := LookupDelegate(context.Background()); ok {
		t.Fatal("LookupDelegate should fail outside an invocation")
	}
	if idx, ok := CurrentSlotIndex(context.Background()); ok || idx != -1 {
		t.Fatalf("CurrentSlotIndex = %d, %v", idx, ok)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, thunkerrors.ErrNotInvocation) {
			t.Fatalf("Expected NotInvocation panic, got %v", r)
		}
	}()
	CurrentDelegate(context.Background())
}

func TestDispatch_GoroutineLocal(t *testing.T) {
	p := newTestPool(t, 4, WithGoroutineLocal(true))

	// helper has no context; it finds the slot through goroutine-local state.
	var seenSlot int
	var seenDelegate Delegate
	helper := func() {
		seenSlot, _ = p.GoroutineSlotIndex()
		seenDelegate, _ = p.GoroutineDelegate()
	}

	p.CreateThunk(constDelegate(0), shapeS)
	d := func(x int64) int64 {
		helper()
		return x
	}
	e, err := p.CreateThunk(d, shapeS)
	if err != nil {
		t.Fatalf("CreateThunk failed: %v", err)
	}

	if err := p.Invoke(context.Background(), e, []uint64{0}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if seenSlot != 1 {
		t.Fatalf("Goroutine-local slot = %d, want 1", seenSlot)
	}
	if seenDelegate == nil {
		t.Fatal("Goroutine-local delegate not found")
	}

	if _, ok := p.GoroutineSlotIndex(); ok {
		t.Fatal("Goroutine-local slot should be cleared after the call")
	}
	if _, err := p.GoroutineDelegate(); !errors.Is(err, thunkerrors.ErrNotInvocation) {
		t.Fatalf("Expected NotInvocation outside a call, got %v", err)
	}
}

func TestDispatch_GoroutineLocalDisabled(t *testing.T) {
	p := newTestPool(t, 1)

	var ok bool
	e, _ := p.CreateThunk(func(x int64) int64 {
		_, ok = p.GoroutineSlotIndex()
		return x
	}, shapeS)
	p.Invoke(context.Background(), e, []uint64{0})

	if ok {
		t.Fatal("GoroutineSlotIndex should report false without WithGoroutineLocal")
	}
}

func TestDispatch_ReleaseDuringCall(t *testing.T) {
	p := newTestPool(t, 2, WithGoroutineLocal(true))
	p.Registry().Register(shapeCtx, ctxWrapper())

	var e EntryPoint
	var snapshot Delegate
	var liveErr error
	e, _ = p.CreateThunk(ctxDelegate(func(ctx context.Context) int64 {
		p.ReleaseThunk(e)
		snapshot, _ = LookupDelegate(ctx)
		_, liveErr = p.GoroutineDelegate()
		return 0
	}), shapeCtx)

	if err := p.Invoke(context.Background(), e, []uint64{0}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if snapshot == nil {
		t.Fatal("Context snapshot should survive release")
	}
	if !errors.Is(liveErr, thunkerrors.ErrSlotFree) {
		t.Fatalf("Live lookup after release should fault, got %v", liveErr)
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnThunkEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) types() []EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

func TestObserver(t *testing.T) {
	p := newTestPool(t, 1)
	obs := &recordingObserver{}
	p.Subscribe(obs)

	e, _ := p.CreateThunk(constDelegate(1), shapeS)
	p.CreateThunk(constDelegate(2), shapeS)
	p.ReleaseThunk(e)

	want := []EventType{EventBound, EventExhausted, EventReleased}
	got := obs.types()
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if obs.events[0].Entry != e || obs.events[0].Index != 0 || obs.events[1].Index != -1 {
		t.Fatalf("Unexpected event payloads: %+v", obs.events)
	}

	p.Unsubscribe(obs)
	p.CreateThunk(constDelegate(3), shapeS)
	if len(obs.types()) != 3 {
		t.Fatal("Unsubscribed observer still notified")
	}
}
