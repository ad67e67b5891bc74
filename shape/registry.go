package shape

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/launix-de/NonLockingReadMap"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/errors"
)

// entry is stored once per key. Overwrites swap the wrapper pointer and
// never insert a second entry for the same key.
type entry struct {
	key     Key
	wrapper *atomic.Pointer[Wrapper]
}

func (e entry) GetKey() Key {
	return e.key
}

func (e entry) ComputeSize() uint {
	return uint(unsafe.Sizeof(e)) + uint(len(e.key)) + uint(unsafe.Sizeof(Wrapper{}))
}

// Registry maps shape keys to wrappers. Reads never block; writers are
// serialized, so registration is expected to be rare compared to lookups.
type Registry struct {
	mu sync.Mutex
	m  NonLockingReadMap.NonLockingReadMap[entry, Key]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		m: NonLockingReadMap.New[entry, Key](),
	}
}

// Register inserts or overwrites the wrapper for key. Bindings already made
// with a previous wrapper keep it.
func (r *Registry) Register(key Key, w Wrapper) error {
	if key == "" {
		return errors.InvalidInput(errors.PhaseRegister, "shape key cannot be empty")
	}
	if w.Func == nil {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Shape(string(key)).
			Detail("wrapper func cannot be nil").
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.m.Get(key); e != nil {
		e.wrapper.Store(&w)
		Logger().Debug("wrapper replaced", zap.String("shape", string(key)))
		return nil
	}

	e := &entry{key: key, wrapper: new(atomic.Pointer[Wrapper])}
	e.wrapper.Store(&w)
	r.m.Set(e)
	Logger().Debug("wrapper registered", zap.String("shape", string(key)))
	return nil
}

// Resolve returns the wrapper for key.
func (r *Registry) Resolve(key Key) (Wrapper, error) {
	e := r.m.Get(key)
	if e == nil {
		return Wrapper{}, errors.UnsupportedShape(errors.PhaseResolve, string(key))
	}
	return *e.wrapper.Load(), nil
}

// Has reports whether key is registered.
func (r *Registry) Has(key Key) bool {
	return r.m.Get(key) != nil
}

// Unregister removes key and reports whether it was present.
func (r *Registry) Unregister(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.m.Remove(key) != nil
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []Key {
	all := r.m.GetAll()
	keys := make([]Key, 0, len(all))
	for _, e := range all {
		keys = append(keys, e.key)
	}
	return keys
}

// Len returns the number of registered shapes.
func (r *Registry) Len() int {
	return len(r.m.GetAll())
}
