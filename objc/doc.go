// Package objc implements the dual-representation object model.
//
// Classes and metaclasses are objects too.
//
// Every object has two linked representations: an objc_object record in
// guest memory, which keeps the Objective-C ABI (the isa pointer is the
// first 32-bit word), and a host entry in the Runtime's object table
// holding the host payload and the reference count. Guest code can only
// reach the first; host code reaches the second through the guest address.
// The host side survives guest memory corruption, which VerifyIsa detects.
//
// # Lifetimes
//
// An entry is in one of three states:
//
//	LifetimeStatic        never retained, released or deallocated (classes)
//	LifetimeCounted       refcount >= 1
//	LifetimeDeallocating  refcount reached zero, waiting for DeallocObject
//
// # Lifecycle
//
// Allocation counts as the first retain. Release reports when the last
// owner is gone but does not destroy anything; the caller runs class
// specific teardown and then calls DeallocObject:
//
//	obj, _ := rt.AllocObject(cls, &Counter{})
//	_ = rt.Retain(obj)            // refcount 2
//	dead, _ := rt.Release(obj)    // false, refcount 1
//	dead, _ = rt.Release(obj)     // true, now deallocating
//	if dead {
//	    // teardown may retain, release or deallocate other objects
//	    _ = rt.DeallocObject(obj)
//	}
//
// # Host Payloads
//
// Payloads are stored type-erased and must be non-nil pointers. Borrow
// performs a checked downcast and returns the shared, mutable payload; Read
// returns a copy:
//
//	c, err := objc.Borrow[Counter](rt, obj)
//	c.Value = 5
//
// A mismatched type parameter is a KindTypeMismatch error, never an
// unchecked cast.
//
// # Errors
//
// Every violated invariant is returned as an *errors.Error carrying the
// handle, after being logged. Checks run before any mutation, so a failed
// call leaves the table unchanged. Set Config.PanicOnViolation to turn
// violations into panics.
//
// # Observers
//
// Subscribe registers a callback for allocation, registration, retain,
// release and deallocation events. Callbacks run after the table is
// consistent and may call back into the Runtime.
package objc
