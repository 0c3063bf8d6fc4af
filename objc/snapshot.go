package objc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ObjectInfo is a read-only view of one table entry.
type ObjectInfo struct {
	HostType string   `cbor:"host_type"`
	Object   ID       `cbor:"object"`
	Isa      Class    `cbor:"isa"`
	Refcount uint32   `cbor:"refcount"`
	Lifetime Lifetime `cbor:"lifetime"`
}

func infoOf(id ID, e *hostObjectEntry) ObjectInfo {
	return ObjectInfo{
		Object:   id,
		Isa:      e.isa,
		Refcount: e.refcount,
		Lifetime: e.lifetime,
		HostType: fmt.Sprintf("%T", e.host),
	}
}

// Lookup returns the table entry for object without side effects.
func (r *Runtime) Lookup(object ID) (ObjectInfo, bool) {
	e, ok := r.objects.lookup(object)
	if !ok {
		return ObjectInfo{}, false
	}
	return infoOf(object, e), true
}

// Snapshot returns every table entry in address order.
func (r *Runtime) Snapshot() []ObjectInfo {
	ids := r.objects.ids()
	out := make([]ObjectInfo, 0, len(ids))
	for _, id := range ids {
		e, _ := r.objects.lookup(id)
		out = append(out, infoOf(id, e))
	}
	return out
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("objc: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// MarshalSnapshot serializes a snapshot to deterministic CBOR bytes.
func MarshalSnapshot(infos []ObjectInfo) ([]byte, error) {
	return snapshotEncMode.Marshal(infos)
}

// UnmarshalSnapshot deserializes a snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	if err := cbor.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("objc: unmarshal snapshot: %w", err)
	}
	return infos, nil
}
