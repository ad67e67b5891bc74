package thunk

import (
	"fmt"
	"math/bits"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/shape"
)

// DefaultCapacity is the slot count used when WithCapacity is not given.
const DefaultCapacity = 4096

// EntryPoint is a native-callable address handed out for a slot.
type EntryPoint uintptr

// Strategy selects how the allocator finds a free slot.
type Strategy uint8

const (
	// RoundRobin scans forward from the slot after the last allocation,
	// wrapping at the end of the table.
	RoundRobin Strategy = iota
	// FreeList pops the most recently released slot.
	FreeList
)

func (s Strategy) String() string {
	switch s {
	case RoundRobin:
		return "round-robin"
	case FreeList:
		return "free-list"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy parses the names produced by Strategy.String.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "round-robin", "roundrobin":
		return RoundRobin, nil
	case "free-list", "freelist":
		return FreeList, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown strategy %q", name))
	}
}

// Layout places slot entry points: entry(i) = Base + i*Stride.
// The default layout matches wasm funcref table indices, where 0 is the
// null function pointer.
type Layout struct {
	Base   uintptr
	Stride uintptr
}

// fits reports whether the last of n entries is addressable.
func (l Layout) fits(n int) bool {
	hi, span := bits.Mul64(uint64(n-1), uint64(l.Stride))
	if hi != 0 {
		return false
	}
	last, carry := bits.Add64(uint64(l.Base), span, 0)
	return carry == 0 && last <= uint64(^uintptr(0))
}

// DefaultLayout returns the wasm table index layout.
func DefaultLayout() Layout {
	return Layout{Base: 1, Stride: 1}
}

// Entry returns the entry point of slot i.
func (l Layout) Entry(i int) EntryPoint {
	return EntryPoint(l.Base + uintptr(i)*l.Stride)
}

// index inverts Entry for a table of n slots.
func (l Layout) index(e EntryPoint, n int) (int, bool) {
	addr := uintptr(e)
	if addr < l.Base {
		return -1, false
	}
	off := addr - l.Base
	if off%l.Stride != 0 {
		return -1, false
	}
	i := off / l.Stride
	if i >= uintptr(n) {
		return -1, false
	}
	return int(i), true
}

// StubConvention is the raw signature shared by every stub of a pool:
// Params 64-bit words in, Results words out.
type StubConvention struct {
	Params  int
	Results int
}

// DefaultStubConvention is four word-sized arguments and one result.
func DefaultStubConvention() StubConvention {
	return StubConvention{Params: 4, Results: 1}
}

// StackSize is the stack length a stub must be given.
func (c StubConvention) StackSize() int {
	if c.Results > c.Params {
		return c.Results
	}
	return c.Params
}

func (c StubConvention) accepts(w shape.Wrapper) bool {
	return len(w.Params) <= c.Params && len(w.Results) <= c.Results
}

type options struct {
	registry       *shape.Registry
	logger         *zap.Logger
	layout         Layout
	stubs          StubConvention
	convention     shape.Convention
	capacity       int
	strategy       Strategy
	goroutineLocal bool
}

func defaultOptions() options {
	return options{
		layout:     DefaultLayout(),
		stubs:      DefaultStubConvention(),
		convention: shape.ConventionC,
		capacity:   DefaultCapacity,
		strategy:   RoundRobin,
	}
}

func (o options) validate() error {
	if o.capacity <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("capacity must be positive, got %d", o.capacity))
	}
	if o.layout.Stride == 0 {
		return errors.InvalidInput(errors.PhaseConfig, "layout stride cannot be zero")
	}
	if !o.layout.fits(o.capacity) {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("layout base %#x stride %#x overflows for %d slots", o.layout.Base, o.layout.Stride, o.capacity))
	}
	if o.stubs.Params < 0 || o.stubs.Results < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "stub convention cannot be negative")
	}
	if o.strategy != RoundRobin && o.strategy != FreeList {
		return errors.InvalidInput(errors.PhaseConfig, o.strategy.String())
	}
	return nil
}

// Option configures a Pool.
type Option func(*options)

// WithCapacity sets the fixed number of slots.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithStrategy selects the slot search strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithLayout sets the entry point layout.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// WithStubConvention sets the raw stub signature.
func WithStubConvention(c StubConvention) Option {
	return func(o *options) { o.stubs = c }
}

// WithConvention sets the calling convention used to derive shape keys
// in NewCallback and RegisterFunc.
func WithConvention(c shape.Convention) Option {
	return func(o *options) { o.convention = c }
}

// WithRegistry shares a wrapper registry between pools.
func WithRegistry(r *shape.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the pool logger. Defaults to the package Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGoroutineLocal also publishes the current slot in goroutine-local
// storage during invocations, for code that has no context at hand.
func WithGoroutineLocal(enabled bool) Option {
	return func(o *options) { o.goroutineLocal = enabled }
}
