// Package wasm generates the small WebAssembly modules that expose a thunk
// pool to guests.
//
// # Encoding
//
// LEB128 helpers for WebAssembly integers:
//
//	encoded := wasm.EncodeULEB128(300)   // unsigned
//	encoded := wasm.EncodeSLEB128(-100)  // signed
//
// # Table Modules
//
// A table module imports one host function per slot and places it in an
// exported funcref table at the slot's entry index:
//
//	b := wasm.NewTableModuleBuilder("thunks", params, results)
//	b.SetOffset(1)
//	b.AddFunc("thunk0")
//	bin := b.Build()
//
// # Caller Modules
//
// A caller module imports such a table and exports "call", which takes a
// table index and the raw arguments and performs call_indirect. It lets Go
// code call a thunk exactly the way a guest would.
//
// This package is internal to host and should not be used directly.
package wasm
