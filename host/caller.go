package host

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/host/internal/wasm"
	"github.com/wippyai/thunk-runtime/thunk"
)

// Caller calls thunks the way a guest does: through call_indirect on the
// table built by InstantiateTable, with the entry point as table index.
type Caller struct {
	mod    api.Module
	params int
}

// InstantiateCaller builds the caller module for p. The table module must
// already be instantiated under the same table module name.
func InstantiateCaller(ctx context.Context, rt wazero.Runtime, p *thunk.Pool, opts ...Option) (*Caller, error) {
	o := applyOptions(opts)

	size, err := tableSize(p)
	if err != nil {
		return nil, err
	}

	params, results := StubTypes(p)
	b := wasm.NewCallerModuleBuilder(o.tableModuleName, TableExportName, size, params, results)
	b.SetExportName(CallExportName)

	mod, err := rt.InstantiateWithConfig(ctx, b.Build(), wazero.NewModuleConfig().WithName(o.callerModuleName))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidData, err,
			fmt.Sprintf("instantiate caller module %q", o.callerModuleName))
	}

	return &Caller{mod: mod, params: len(params)}, nil
}

// Module returns the underlying caller module.
func (c *Caller) Module() api.Module {
	return c.mod
}

// Call invokes entry with args as the leading raw words; missing words are
// zero. A free slot, a null entry or an entry outside the table traps and
// is returned as an error. Call is safe for concurrent and reentrant use.
func (c *Caller) Call(ctx context.Context, entry thunk.EntryPoint, args ...uint64) ([]uint64, error) {
	if len(args) > c.params {
		return nil, errors.InvalidInput(errors.PhaseDispatch,
			fmt.Sprintf("%d arguments given, stubs take %d", len(args), c.params))
	}
	if uint64(entry) > math.MaxUint32 {
		return nil, errors.InvalidEntry(errors.PhaseDispatch, uintptr(entry))
	}

	stack := make([]uint64, 1+c.params)
	stack[0] = api.EncodeU32(uint32(entry))
	copy(stack[1:], args)

	// Each api.Function carries its own call stack, so nested calls need
	// their own instance.
	fn := c.mod.ExportedFunction(CallExportName)
	return fn.Call(ctx, stack...)
}
