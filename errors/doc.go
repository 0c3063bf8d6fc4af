// Package errors provides structured error types for the object-model runtime.
//
// Errors are categorized by Phase (which operation failed) and Kind (which
// invariant was violated). The Error type carries the guest handle involved,
// Go type names for payload mismatches, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAccess, errors.KindTypeMismatch).
//		Handle(0x1000).
//		GoType("*foundation.ClassInfo").
//		Expected("*main.Counter").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownObject(errors.PhaseRetain, 0x1000)
//	err := errors.PrematureDealloc(0x1000, 2)
//
// Every Kind in this package reports a programming error in the emulated
// class layer or guest memory corruption; none is meant to be retried.
// All errors implement the standard error interface and support errors.Is/As.
package errors
