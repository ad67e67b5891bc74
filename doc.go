// Package thunkruntime lets native code call Go closures through plain
// function pointers.
//
// Native callers can hold only a bare code address of a fixed calling
// convention. This library keeps a bounded pool of pre-built entry points
// ("thunks"); binding a closure to a free one returns its address, and every
// call on that address is routed to generic wrapper code for the closure's
// signature, which recovers the closure and runs it.
//
// # Architecture Overview
//
//	thunkruntime/
//	├── shape/           Shape keys and the wrapper registry
//	├── thunk/           Pool: slot table, allocator, dispatch resolver
//	├── host/            wazero binding: host stubs, funcref table, caller
//	├── config/          HCL pool configuration
//	├── errors/          Structured error types
//	└── cmd/thunkpool/   CLI and interactive slot inspector
//
// # Quick Start
//
//	pool, _ := thunk.New(thunk.WithCapacity(4096))
//	pool.RegisterFunc(func(int32) int32 { return 0 })
//
//	rt := wazero.NewRuntime(ctx)
//	b, _ := host.Bind(ctx, rt, pool)
//
//	entry, err := pool.NewCallback(func(x int32) int32 { return x * 2 })
//	if errors.Is(err, thunkerrors.ErrPoolExhausted) {
//	    // every slot is bound; release one first
//	}
//
//	res, _ := b.Call(ctx, entry, 21) // res[0] == 42
//	pool.ReleaseThunk(entry)
//
// # Shapes and Wrappers
//
// A shape key names a delegate signature plus calling convention. Wrappers
// are registered per key, either by hand as a shape.Wrapper or reflectively
// through Pool.RegisterFunc. Re-registering a key affects only thunks
// created afterwards.
//
// # Thread Safety
//
// Pool and Registry are safe for concurrent use. Invocations take no lock
// and may run concurrently and reentrantly; each one sees the slot whose
// entry point it came through.
//
// # Capacity
//
// The pool never grows and never evicts. When every slot is bound,
// CreateThunk fails with PoolExhausted until ReleaseThunk frees a slot.
package thunkruntime
