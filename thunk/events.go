package thunk

import "github.com/wippyai/thunk-runtime/shape"

// EventType enumerates slot lifecycle notifications.
type EventType uint8

const (
	// EventBound is sent after a delegate is bound to a slot.
	EventBound EventType = iota
	// EventReleased is sent after a slot is freed.
	EventReleased
	// EventExhausted is sent when CreateThunk finds no free slot.
	EventExhausted
)

func (t EventType) String() string {
	switch t {
	case EventBound:
		return "bound"
	case EventReleased:
		return "released"
	case EventExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Event represents a slot lifecycle event. Index is -1 for EventExhausted.
type Event struct {
	Delegate Delegate
	Shape    shape.Key
	Entry    EntryPoint
	Index    int
	Type     EventType
}

// Observer receives notifications about slot lifecycle events.
// Notifications are delivered after the pool lock is released.
type Observer interface {
	OnThunkEvent(Event)
}

// Subscribe adds an observer for lifecycle events.
func (p *Pool) Subscribe(o Observer) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	p.observers = append(p.observers, o)
}

// Unsubscribe removes an observer.
func (p *Pool) Unsubscribe(o Observer) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	for i, obs := range p.observers {
		if obs == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *Pool) notify(e Event) {
	p.obsMu.RLock()
	defer p.obsMu.RUnlock()
	for _, o := range p.observers {
		o.OnThunkEvent(e)
	}
}
