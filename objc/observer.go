package objc

// EventType identifies an object lifecycle event.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventRegistered
	EventRetained
	EventReleased
	EventDeallocated
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventRegistered:
		return "registered"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventDeallocated:
		return "deallocated"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle step. Refcount and Lifetime are the values
// after the step.
type Event struct {
	Host     HostObject
	Object   ID
	Isa      Class
	Refcount uint32
	Type     EventType
	Lifetime Lifetime
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnObjectEvent calls f(e).
func (f ObserverFunc) OnObjectEvent(e Event) { f(e) }

type observerSlot struct {
	o  Observer
	id int
}

// Subscribe adds an observer and returns a function that removes it.
func (r *Runtime) Subscribe(o Observer) (unsubscribe func()) {
	r.nextObsID++
	id := r.nextObsID
	r.observers = append(r.observers, observerSlot{id: id, o: o})
	return func() {
		for i, s := range r.observers {
			if s.id == id {
				r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

func (r *Runtime) notify(typ EventType, id ID, e *hostObjectEntry) {
	if len(r.observers) == 0 {
		return
	}
	ev := Event{
		Type:     typ,
		Object:   id,
		Isa:      e.isa,
		Refcount: e.refcount,
		Lifetime: e.lifetime,
		Host:     e.host,
	}
	// observers may subscribe or unsubscribe while being notified
	for _, s := range append([]observerSlot(nil), r.observers...) {
		s.o.OnObjectEvent(ev)
	}
}
