package objc

import (
	"fmt"
	"reflect"

	"github.com/wippyai/objc-runtime/errors"
)

// HostObject is the host-side state of an object: anything only host code
// needs to see. Values must be non-nil pointers so that every Borrow of
// the same object shares one instance.
type HostObject any

// Dropper is optionally implemented by host objects that hold resources
// of their own. Drop runs after the object left the table.
type Dropper interface {
	Drop()
}

// TrivialHostObject is the empty host object used by [NSObject alloc].
type TrivialHostObject struct{}

func checkHostObject(phase errors.Phase, host HostObject) *errors.Error {
	if host == nil {
		return errors.InvalidInput(phase, "nil host object")
	}
	v := reflect.ValueOf(host)
	if v.Kind() != reflect.Pointer {
		return errors.New(phase, errors.KindInvalidInput).
			GoType(fmt.Sprintf("%T", host)).
			Detail("host object must be a pointer").
			Build()
	}
	if v.IsNil() {
		return errors.New(phase, errors.KindInvalidInput).
			GoType(fmt.Sprintf("%T", host)).
			Detail("nil host object").
			Build()
	}
	return nil
}
