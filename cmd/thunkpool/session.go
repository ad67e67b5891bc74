package main

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/config"
	"github.com/wippyai/thunk-runtime/host"
	"github.com/wippyai/thunk-runtime/shape"
	"github.com/wippyai/thunk-runtime/thunk"
)

// linear is the delegate shape bound by the CLI: f(x, y) = k*x + y.
type linear func(x, y int64) int64

// session owns a pool bound into a wazero runtime.
type session struct {
	rt      wazero.Runtime
	pool    *thunk.Pool
	binding *host.Binding
	logger  *zap.Logger
	key     shape.Key
	next    int64
}

func newSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session, error) {
	opts, err := cfg.PoolOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, thunk.WithLogger(logger))

	pool, err := thunk.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	key, err := pool.RegisterFunc(linear(nil))
	if err != nil {
		return nil, fmt.Errorf("register shape: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	b, err := host.Bind(ctx, rt, pool, append(cfg.HostOptions(), host.WithLogger(logger))...)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("bind pool: %w", err)
	}

	return &session{
		rt:      rt,
		pool:    pool,
		binding: b,
		logger:  logger,
		key:     key,
		next:    1,
	}, nil
}

// bind creates a thunk for the next multiplier.
func (s *session) bind() (thunk.EntryPoint, int64, error) {
	k := s.next
	entry, err := s.pool.CreateThunk(linear(func(x, y int64) int64 { return k*x + y }), s.key)
	if err != nil {
		return 0, k, err
	}
	s.next++
	return entry, k, nil
}

func (s *session) call(ctx context.Context, entry thunk.EntryPoint, x, y int64) (int64, error) {
	res, err := s.binding.Call(ctx, entry, uint64(x), uint64(y))
	if err != nil {
		return 0, err
	}
	return int64(res[0]), nil
}

func (s *session) close(ctx context.Context) {
	s.binding.Close(ctx)
	s.rt.Close(ctx)
}
