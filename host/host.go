package host

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/host/internal/wasm"
	"github.com/wippyai/thunk-runtime/thunk"
)

// Default module and export names.
const (
	DefaultModuleName       = "thunks"
	DefaultTableModuleName  = "thunk_table"
	DefaultCallerModuleName = "thunk_caller"

	TableExportName = "table"
	CallExportName  = "call"
)

// ExportName returns the host export name of slot i.
func ExportName(i int) string {
	return "thunk" + strconv.Itoa(i)
}

// EntryExport returns the host export that a native call on entry lands in.
func EntryExport(p *thunk.Pool, entry thunk.EntryPoint) (string, bool) {
	i, ok := p.Index(entry)
	if !ok {
		return "", false
	}
	return ExportName(i), true
}

// StubTypes returns the wasm signature shared by every stub of p.
func StubTypes(p *thunk.Pool) (params, results []api.ValueType) {
	c := p.StubConvention()
	params = make([]api.ValueType, c.Params)
	for i := range params {
		params[i] = api.ValueTypeI64
	}
	results = make([]api.ValueType, c.Results)
	for i := range results {
		results[i] = api.ValueTypeI64
	}
	return params, results
}

// Instantiate builds a host module exporting one function per slot of p.
// A dispatch fault panics inside the host function; wazero turns it into
// an error returned from the guest call.
func Instantiate(ctx context.Context, rt wazero.Runtime, p *thunk.Pool, opts ...Option) (api.Module, error) {
	o := applyOptions(opts)
	params, results := StubTypes(p)

	builder := rt.NewHostModuleBuilder(o.moduleName)
	for i := 0; i < p.Capacity(); i++ {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(stubFunc(p.Stub(i)), params, results).
			Export(ExportName(i))
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidData, err,
			fmt.Sprintf("instantiate host module %q", o.moduleName))
	}

	o.logger.Debug("host module instantiated",
		zap.String("module", o.moduleName),
		zap.String("pool", p.ID()),
		zap.Int("exports", p.Capacity()))
	return mod, nil
}

func stubFunc(call func(ctx context.Context, stack []uint64) error) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		if err := call(ctx, stack); err != nil {
			panic(err)
		}
	}
}

// InstantiateTable builds a module that imports every stub of p from the
// host module and exports a funcref table where index Entry(i) holds
// slot i's stub. The host module must already be instantiated under the
// same module name. The pool layout must have Stride 1.
func InstantiateTable(ctx context.Context, rt wazero.Runtime, p *thunk.Pool, opts ...Option) (api.Module, error) {
	o := applyOptions(opts)

	size, err := tableSize(p)
	if err != nil {
		return nil, err
	}

	params, results := StubTypes(p)
	b := wasm.NewTableModuleBuilder(o.moduleName, params, results)
	b.SetOffset(uint32(p.Layout().Base))
	b.SetTableExport(TableExportName)
	for i := 0; i < p.Capacity(); i++ {
		b.AddFunc(ExportName(i))
	}

	mod, err := rt.InstantiateWithConfig(ctx, b.Build(), wazero.NewModuleConfig().WithName(o.tableModuleName))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidData, err,
			fmt.Sprintf("instantiate table module %q", o.tableModuleName))
	}

	o.logger.Debug("thunk table instantiated",
		zap.String("module", o.tableModuleName),
		zap.String("pool", p.ID()),
		zap.Uint32("size", size))
	return mod, nil
}

func tableSize(p *thunk.Pool) (uint32, error) {
	l := p.Layout()
	if l.Stride != 1 {
		return 0, errors.InvalidInput(errors.PhaseBind,
			fmt.Sprintf("table layout needs stride 1, got %d", l.Stride))
	}
	size := uint64(l.Base) + uint64(p.Capacity())
	if size > math.MaxInt32 {
		return 0, errors.InvalidInput(errors.PhaseBind,
			fmt.Sprintf("table size %d exceeds the wasm table index range", size))
	}
	return uint32(size), nil
}
