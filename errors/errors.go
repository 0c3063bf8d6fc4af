package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which operation was running when the error occurred
type Phase string

const (
	PhaseAlloc    Phase = "alloc"    // object allocation
	PhaseRegister Phase = "register" // static object registration
	PhaseRetain   Phase = "retain"   // refcount increment
	PhaseRelease  Phase = "release"  // refcount decrement
	PhaseDealloc  Phase = "dealloc"  // object destruction
	PhaseAccess   Phase = "access"   // host payload access
	PhaseIsa      Phase = "isa"      // guest header access
	PhaseMemory   Phase = "memory"   // guest memory operations
	PhaseLoad     Phase = "load"     // executable image loading
	PhaseConfig   Phase = "config"   // configuration
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownObject         Kind = "unknown_object"
	KindStaticLifetime        Kind = "static_lifetime"
	KindDeallocating          Kind = "deallocating"
	KindPrematureDealloc      Kind = "premature_dealloc"
	KindDoubleFree            Kind = "double_free"
	KindTypeMismatch          Kind = "type_mismatch"
	KindDuplicateRegistration Kind = "duplicate_registration"
	KindRefcountOverflow      Kind = "refcount_overflow"
	KindCorrupted             Kind = "corrupted"
	KindInvalidInput          Kind = "invalid_input"
	KindOutOfBounds           Kind = "out_of_bounds"
	KindAllocation            Kind = "allocation"
	KindInvalidImage          Kind = "invalid_image"
	KindUnsupported           Kind = "unsupported"
	KindNotFound              Kind = "not_found"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	Expected  string
	Detail    string
	Handle    uint32
	HasHandle bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasHandle {
		fmt.Fprintf(&b, " at 0x%08x", e.Handle)
	}

	if e.GoType != "" || e.Expected != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Expected != "" {
			b.WriteString("have ")
			b.WriteString(e.GoType)
			b.WriteString(", want ")
			b.WriteString(e.Expected)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("want ")
			b.WriteString(e.Expected)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Expected != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the guest object address the error refers to
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	b.err.HasHandle = true
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Expected sets the expected type or state
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Kind-only sentinels for errors.Is checks that do not care about phase:
//
//	if errors.Is(err, objerrors.ErrTypeMismatch) { ... }
var (
	ErrUnknownObject         = &Error{Kind: KindUnknownObject}
	ErrStaticLifetime        = &Error{Kind: KindStaticLifetime}
	ErrDeallocating          = &Error{Kind: KindDeallocating}
	ErrPrematureDealloc      = &Error{Kind: KindPrematureDealloc}
	ErrDoubleFree            = &Error{Kind: KindDoubleFree}
	ErrTypeMismatch          = &Error{Kind: KindTypeMismatch}
	ErrDuplicateRegistration = &Error{Kind: KindDuplicateRegistration}
	ErrRefcountOverflow      = &Error{Kind: KindRefcountOverflow}
	ErrCorrupted             = &Error{Kind: KindCorrupted}
	ErrOutOfBounds           = &Error{Kind: KindOutOfBounds}
	ErrInvalidImage          = &Error{Kind: KindInvalidImage}
)

// Convenience constructors for common error patterns

// UnknownObject creates an error for a handle with no table entry
func UnknownObject(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindUnknownObject,
		Handle:    handle,
		HasHandle: true,
		Detail:    "no entry found, it may have already been deallocated",
	}
}

// StaticLifetime creates an error for refcounting a static-lifetime object
func StaticLifetime(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindStaticLifetime,
		Handle:    handle,
		HasHandle: true,
		Detail:    "object has static lifetime",
	}
}

// Deallocating creates an error for touching an object whose refcount
// already reached zero
func Deallocating(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindDeallocating,
		Handle:    handle,
		HasHandle: true,
		Detail:    "object is pending deallocation",
	}
}

// PrematureDealloc creates an error for deallocating a live object
func PrematureDealloc(handle uint32, refcount uint32) *Error {
	return &Error{
		Phase:     PhaseDealloc,
		Kind:      KindPrematureDealloc,
		Handle:    handle,
		HasHandle: true,
		Value:     refcount,
		Detail:    fmt.Sprintf("refcount is still %d", refcount),
	}
}

// DoubleFree creates an error for releasing a block that is already gone
func DoubleFree(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindDoubleFree,
		Handle:    handle,
		HasHandle: true,
		Detail:    "already freed",
	}
}

// TypeMismatch creates a payload downcast error
func TypeMismatch(phase Phase, handle uint32, goType, expected string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTypeMismatch,
		Handle:    handle,
		HasHandle: true,
		GoType:    goType,
		Expected:  expected,
	}
}

// DuplicateRegistration creates an error for inserting a live handle twice
func DuplicateRegistration(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindDuplicateRegistration,
		Handle:    handle,
		HasHandle: true,
		Detail:    "handle is already registered",
	}
}

// RefcountOverflow creates an error for a refcount that would wrap
func RefcountOverflow(handle uint32, refcount uint32) *Error {
	return &Error{
		Phase:     PhaseRetain,
		Kind:      KindRefcountOverflow,
		Handle:    handle,
		HasHandle: true,
		Value:     refcount,
		Detail:    fmt.Sprintf("refcount %d cannot be incremented", refcount),
	}
}

// Corrupted creates an error for guest state that diverged from the host
func Corrupted(phase Phase, handle uint32, detail string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindCorrupted,
		Handle:    handle,
		HasHandle: true,
		Detail:    detail,
	}
}

// OutOfBounds creates a guest memory bounds error
func OutOfBounds(offset, length uint32) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Value:  offset,
		Detail: fmt.Sprintf("offset=%d, length=%d", offset, length),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidImage creates an executable image rejection error
func InvalidImage(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidImage,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
