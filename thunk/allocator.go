package thunk

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/shape"
)

// CreateThunk binds delegate to a free slot using the wrapper registered
// for key and returns the slot's entry point. A failed call leaves the
// slot table and cursor untouched.
func (p *Pool) CreateThunk(delegate Delegate, key shape.Key) (EntryPoint, error) {
	if isNil(delegate) {
		return 0, errors.New(errors.PhaseAllocate, errors.KindInvalidInput).
			Shape(string(key)).
			Detail("delegate cannot be nil").
			Build()
	}

	w, err := p.registry.Resolve(key)
	if err != nil {
		return 0, err
	}
	if !p.opts.stubs.accepts(w) {
		return 0, errors.New(errors.PhaseAllocate, errors.KindUnsupportedShape).
			Shape(string(key)).
			Detail("wrapper takes %d params and %d results, stubs take %d and %d",
				len(w.Params), len(w.Results), p.opts.stubs.Params, p.opts.stubs.Results).
			Build()
	}

	p.mu.Lock()
	index, ok := p.acquire()
	if !ok {
		p.mu.Unlock()
		p.stats.exhaustions.Add(1)
		p.logger.Warn("thunk pool exhausted",
			zap.String("shape", string(key)),
			zap.Int("capacity", len(p.slots)))
		p.notify(Event{Type: EventExhausted, Index: -1, Shape: key})
		return 0, errors.PoolExhausted(len(p.slots))
	}

	p.nextGen++
	b := &binding{
		delegate:   delegate,
		key:        key,
		wrapper:    w,
		generation: p.nextGen,
	}
	p.slots[index].binding.Store(b)
	p.free--
	p.cursor = index + 1
	if p.cursor == len(p.slots) {
		p.cursor = 0
	}
	p.mu.Unlock()

	entry := p.stubs[index].entry
	p.stats.allocations.Add(1)
	p.logger.Debug("thunk bound",
		zap.Int("slot", index),
		zap.String("shape", string(key)),
		zap.Uint64("generation", b.generation))
	p.notify(Event{Type: EventBound, Index: index, Entry: entry, Shape: key, Delegate: delegate})

	return entry, nil
}

// acquire picks a free slot index. Caller holds p.mu.
func (p *Pool) acquire() (int, bool) {
	if p.free == 0 {
		return -1, false
	}

	if p.opts.strategy == FreeList {
		n := len(p.freeList)
		if n == 0 {
			return -1, false
		}
		index := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return index, true
	}

	index := p.cursor
	for visited := 0; visited < len(p.slots); visited++ {
		if p.slots[index].binding.Load() == nil {
			return index, true
		}
		index++
		if index == len(p.slots) {
			index = 0
		}
	}
	return -1, false
}

// ReleaseThunk frees the slot behind entry so a later CreateThunk may reuse
// it. The caller must guarantee no native code will invoke entry again.
func (p *Pool) ReleaseThunk(entry EntryPoint) error {
	index, ok := p.Index(entry)
	if !ok {
		return errors.InvalidEntry(errors.PhaseRelease, uintptr(entry))
	}

	p.mu.Lock()
	b := p.slots[index].binding.Load()
	if b == nil {
		p.mu.Unlock()
		return errors.SlotFree(errors.PhaseRelease, index)
	}
	p.slots[index].binding.Store(nil)
	p.free++
	if p.opts.strategy == FreeList {
		p.freeList = append(p.freeList, index)
	}
	p.mu.Unlock()

	p.stats.releases.Add(1)
	p.logger.Debug("thunk released",
		zap.Int("slot", index),
		zap.String("shape", string(b.key)),
		zap.Uint64("generation", b.generation))
	p.notify(Event{Type: EventReleased, Index: index, Entry: entry, Shape: b.key, Delegate: b.delegate})

	return nil
}

// NewCallback binds fn under the shape key derived from its Go type.
func (p *Pool) NewCallback(fn any) (EntryPoint, error) {
	key := shape.KeyOf(fn, p.opts.convention)
	if key == "" {
		return 0, errors.TypeMismatch(errors.PhaseAllocate, typeName(fn), "callback must be a func")
	}
	return p.CreateThunk(fn, key)
}

func isNil(d Delegate) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
