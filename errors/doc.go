// Package errors provides structured error types for the thunk runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries context: slot index, shape key, Go type name, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAllocate, errors.KindUnsupportedShape).
//		Shape("c:func(int32) int32").
//		Detail("wrapper takes %d params, stubs take %d", 6, 4).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedShape(errors.PhaseResolve, key)
//	err := errors.PoolExhausted(capacity)
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels match by kind regardless of phase:
//
//	if errors.Is(err, thunkerrors.ErrPoolExhausted) { ... }
package errors
