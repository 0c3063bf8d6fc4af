package objc

import (
	"slices"

	"github.com/wippyai/objc-runtime/errors"
)

// Lifetime is the ownership state of a table entry.
type Lifetime uint8

const (
	// LifetimeStatic objects live as long as the process, e.g. classes.
	LifetimeStatic Lifetime = iota
	// LifetimeCounted objects are alive with refcount >= 1 owners.
	LifetimeCounted
	// LifetimeDeallocating objects are owned by nobody and wait for
	// DeallocObject.
	LifetimeDeallocating
)

func (l Lifetime) String() string {
	switch l {
	case LifetimeStatic:
		return "static"
	case LifetimeCounted:
		return "counted"
	case LifetimeDeallocating:
		return "deallocating"
	default:
		return "unknown"
	}
}

// hostObjectEntry tracks the host object and refcount of one object.
// refcount is only meaningful for LifetimeCounted.
type hostObjectEntry struct {
	host     HostObject
	isa      Class
	refcount uint32
	lifetime Lifetime
}

// objectTable maps guest addresses to host entries. Entries are stored by
// pointer, so an entry held by a caller stays valid while nested calls
// insert or remove other entries.
type objectTable struct {
	entries map[ID]*hostObjectEntry
	freed   map[ID]struct{}
}

func newObjectTable(trackFreed bool) *objectTable {
	t := &objectTable{
		entries: make(map[ID]*hostObjectEntry),
	}
	if trackFreed {
		t.freed = make(map[ID]struct{})
	}
	return t
}

func (t *objectTable) lookup(id ID) (*hostObjectEntry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

func (t *objectTable) insert(phase errors.Phase, id ID, e *hostObjectEntry) *errors.Error {
	if _, ok := t.entries[id]; ok {
		return errors.DuplicateRegistration(phase, uint32(id))
	}
	t.entries[id] = e
	if t.freed != nil {
		delete(t.freed, id)
	}
	return nil
}

func (t *objectTable) remove(phase errors.Phase, id ID) (*hostObjectEntry, *errors.Error) {
	e, ok := t.entries[id]
	if !ok {
		if t.wasFreed(id) {
			return nil, errors.DoubleFree(phase, uint32(id))
		}
		return nil, errors.UnknownObject(phase, uint32(id))
	}
	delete(t.entries, id)
	if t.freed != nil {
		t.freed[id] = struct{}{}
	}
	return e, nil
}

func (t *objectTable) wasFreed(id ID) bool {
	_, ok := t.freed[id]
	return ok
}

// unknown builds the error for a lookup miss.
func (t *objectTable) unknown(phase errors.Phase, id ID) *errors.Error {
	err := errors.UnknownObject(phase, uint32(id))
	if t.wasFreed(id) {
		err.Detail = "object was already deallocated"
	}
	return err
}

func (t *objectTable) len() int {
	return len(t.entries)
}

// ids returns the live handles in address order.
func (t *objectTable) ids() []ID {
	ids := make([]ID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
