// Package thunk maintains a bounded pool of native-callable entry points
// that forward into Go delegates.
//
// Native code can only hold a bare code address of a fixed calling
// convention; it cannot carry a closure's captured state. A Pool owns N
// slots, each with an entry point fixed when the pool is built. Binding a
// delegate to a free slot hands out that slot's entry point; every native
// call on it lands in the wrapper registered for the delegate's shape,
// which recovers the delegate from the invocation context and calls it.
//
// # Lifecycle
//
//	reg := shape.NewRegistry()
//	pool, _ := thunk.New(thunk.WithCapacity(4096), thunk.WithRegistry(reg))
//
//	key, _ := pool.RegisterFunc(func(int32) int32 { return 0 })
//	entry, err := pool.CreateThunk(func(x int32) int32 { return x * 2 }, key)
//	if errors.Is(err, thunkerrors.ErrPoolExhausted) { ... }
//
//	// native call landing on entry
//	stack := []uint64{api.EncodeI32(21), 0, 0, 0}
//	pool.Invoke(ctx, entry, stack) // stack[0] == 42
//
//	pool.ReleaseThunk(entry)
//
// # Slot Search
//
// RoundRobin (default) scans forward from the slot after the previous
// allocation and wraps at N, so slots that were just handed out are the
// last to be revisited. FreeList pops the most recently released slot.
// Neither strategy evicts: when every slot is bound, CreateThunk fails with
// PoolExhausted until ReleaseThunk frees one.
//
// # Dispatch
//
// Each stub has its slot index fixed at construction. On entry it loads
// the slot binding once and passes the invocation to the wrapper through
// the context, so reentrant and concurrent calls each see their own slot:
//
//	func(ctx context.Context, stack []uint64) {
//	    idx, _ := thunk.CurrentSlotIndex(ctx)
//	    fn := thunk.CurrentDelegate(ctx).(func(int32) int32)
//	    ...
//	}
//
// With WithGoroutineLocal(true) the slot index is also published in
// goroutine-local storage for the duration of the call.
//
// # Concurrency
//
// CreateThunk and ReleaseThunk serialize on one mutex; the hold time is a
// scan of at most N slots. Invoke takes no lock. An invocation racing with
// the release and reuse of its own slot sees either the old or the new
// binding, never a mix.
package thunk
