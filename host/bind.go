package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/thunk-runtime/thunk"
)

// Binding holds the modules that expose one pool to wasm guests.
type Binding struct {
	Pool   *thunk.Pool
	Host   api.Module
	Table  api.Module
	Caller *Caller
}

// Bind instantiates the host, table and caller modules for p.
func Bind(ctx context.Context, rt wazero.Runtime, p *thunk.Pool, opts ...Option) (*Binding, error) {
	b := &Binding{Pool: p}

	var err error
	if b.Host, err = Instantiate(ctx, rt, p, opts...); err != nil {
		return nil, err
	}
	if b.Table, err = InstantiateTable(ctx, rt, p, opts...); err != nil {
		b.Close(ctx)
		return nil, err
	}
	if b.Caller, err = InstantiateCaller(ctx, rt, p, opts...); err != nil {
		b.Close(ctx)
		return nil, err
	}
	return b, nil
}

// Call invokes entry through the caller module.
func (b *Binding) Call(ctx context.Context, entry thunk.EntryPoint, args ...uint64) ([]uint64, error) {
	return b.Caller.Call(ctx, entry, args...)
}

// Close closes the modules in reverse dependency order and returns the
// first error.
func (b *Binding) Close(ctx context.Context) error {
	var first error
	if b.Caller != nil {
		if err := b.Caller.mod.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	for _, m := range []api.Module{b.Table, b.Host} {
		if m == nil {
			continue
		}
		if err := m.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
