// Package host exposes a thunk pool to WebAssembly guests running in wazero.
//
// Three modules are involved:
//
//	thunks        host module, exports thunk0..thunkN-1 (one stub per slot)
//	thunk_table   imports every stub, exports "table" with stub i at Entry(i)
//	thunk_caller  imports the table, exports "call" (call_indirect by index)
//
// With the default layout an EntryPoint is a funcref table index, so a guest
// that imports thunk_table.table can call a bound delegate with
// call_indirect on the value CreateThunk returned. Index 0 stays null.
//
//	rt := wazero.NewRuntime(ctx)
//	b, err := host.Bind(ctx, rt, pool)
//	entry, _ := pool.NewCallback(func(x int64) int64 { return x + 1 })
//	res, err := b.Call(ctx, entry, 41) // res[0] == 42
//
// Every stub has the pool's StubConvention as i64 params and results; the
// bound wrapper reads and writes the leading words of the stack.
package host
