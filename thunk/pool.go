package thunk

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jtolds/gls"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/shape"
)

// Delegate is a managed callable bound to a thunk, typically a Go func
// value or closure.
type Delegate = any

// binding is one active slot assignment. Delegate and wrapper are published
// together so an invocation never sees a half-written slot.
type binding struct {
	delegate   Delegate
	key        shape.Key
	wrapper    shape.Wrapper
	generation uint64
}

type slot struct {
	binding atomic.Pointer[binding]
}

// stub is the native-callable entry for one slot. The slot index is fixed
// in the closure when the table is built.
type stub struct {
	call  func(ctx context.Context, stack []uint64) error
	entry EntryPoint
}

type counters struct {
	allocations atomic.Uint64
	releases    atomic.Uint64
	exhaustions atomic.Uint64
	invocations atomic.Uint64
	faults      atomic.Uint64
}

// Pool is a fixed-capacity table of thunks. All allocation state is owned
// by the pool; nothing is shared between pools except an explicitly shared
// registry.
type Pool struct {
	registry  *shape.Registry
	logger    *zap.Logger
	glsMgr    *gls.ContextManager
	id        string
	slots     []slot
	stubs     []stub
	freeList  []int
	observers []Observer
	stats     counters
	opts      options
	cursor    int
	free      int
	nextGen   uint64
	mu        sync.Mutex
	obsMu     sync.RWMutex
}

// New creates a pool and builds its stub table.
func New(opts ...Option) (*Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		id:       uuid.NewString(),
		registry: o.registry,
		opts:     o,
		slots:    make([]slot, o.capacity),
		stubs:    make([]stub, o.capacity),
		free:     o.capacity,
	}
	if p.registry == nil {
		p.registry = shape.NewRegistry()
	}
	l := o.logger
	if l == nil {
		l = Logger()
	}
	p.logger = l.With(zap.String("pool", p.id))

	if o.goroutineLocal {
		p.glsMgr = gls.NewContextManager()
	}

	for i := range p.stubs {
		p.stubs[i] = stub{
			entry: o.layout.Entry(i),
			call: func(ctx context.Context, stack []uint64) error {
				return p.dispatch(ctx, i, stack)
			},
		}
	}

	if o.strategy == FreeList {
		p.freeList = make([]int, 0, o.capacity)
		for i := o.capacity - 1; i >= 0; i-- {
			p.freeList = append(p.freeList, i)
		}
	}

	p.logger.Debug("pool created",
		zap.Int("capacity", o.capacity),
		zap.Stringer("strategy", o.strategy),
		zap.Int("stub_params", o.stubs.Params),
		zap.Int("stub_results", o.stubs.Results))

	return p, nil
}

// ID returns the pool's unique identifier.
func (p *Pool) ID() string {
	return p.id
}

// Registry returns the wrapper registry consulted by CreateThunk.
func (p *Pool) Registry() *shape.Registry {
	return p.registry
}

// Capacity returns the fixed slot count.
func (p *Pool) Capacity() int {
	return len(p.slots)
}

// Strategy returns the allocation strategy.
func (p *Pool) Strategy() Strategy {
	return p.opts.strategy
}

// StubConvention returns the raw signature shared by all stubs.
func (p *Pool) StubConvention() StubConvention {
	return p.opts.stubs
}

// Convention returns the calling convention used to derive shape keys.
func (p *Pool) Convention() shape.Convention {
	return p.opts.convention
}

// Layout returns the entry-point layout.
func (p *Pool) Layout() Layout {
	return p.opts.layout
}

// Entry returns the fixed entry point of slot i.
func (p *Pool) Entry(i int) (EntryPoint, bool) {
	if i < 0 || i >= len(p.stubs) {
		return 0, false
	}
	return p.stubs[i].entry, true
}

// Index returns the slot index of an entry point.
func (p *Pool) Index(e EntryPoint) (int, bool) {
	return p.opts.layout.index(e, len(p.slots))
}

// Len returns the number of bound slots.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots) - p.free
}

// SlotInfo is a point-in-time view of one slot.
type SlotInfo struct {
	Delegate   Delegate
	Shape      shape.Key
	Wrapper    string
	Entry      EntryPoint
	Generation uint64
	Index      int
	Bound      bool
}

// Slot returns a snapshot of slot i. It does not lock the pool.
func (p *Pool) Slot(i int) (SlotInfo, bool) {
	if i < 0 || i >= len(p.slots) {
		return SlotInfo{}, false
	}
	info := SlotInfo{Index: i, Entry: p.stubs[i].entry}
	if b := p.slots[i].binding.Load(); b != nil {
		info.Bound = true
		info.Delegate = b.delegate
		info.Shape = b.key
		info.Wrapper = b.wrapper.Name
		info.Generation = b.generation
	}
	return info, true
}

// Slots returns snapshots of all slots in index order.
func (p *Pool) Slots() []SlotInfo {
	out := make([]SlotInfo, len(p.slots))
	for i := range p.slots {
		out[i], _ = p.Slot(i)
	}
	return out
}

// Stats is a summary of pool state and counters.
type Stats struct {
	ID          string
	Strategy    Strategy
	Capacity    int
	Bound       int
	Cursor      int
	Allocations uint64
	Releases    uint64
	Exhaustions uint64
	Invocations uint64
	Faults      uint64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	bound := len(p.slots) - p.free
	cursor := p.cursor
	p.mu.Unlock()

	return Stats{
		ID:          p.id,
		Strategy:    p.opts.strategy,
		Capacity:    len(p.slots),
		Bound:       bound,
		Cursor:      cursor,
		Allocations: p.stats.allocations.Load(),
		Releases:    p.stats.releases.Load(),
		Exhaustions: p.stats.exhaustions.Load(),
		Invocations: p.stats.invocations.Load(),
		Faults:      p.stats.faults.Load(),
	}
}
