package autoreg

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.
// Never return these directly to users - always wrap them with context.

var (
	// Resolution errors.
	ErrServiceNotFound  = errors.New("service not found")
	ErrServiceTypeNil   = errors.New("service type cannot be nil")
	ErrKeyNotComparable = errors.New("service key must be comparable")
	ErrMaxDepthExceeded = errors.New("maximum resolution depth exceeded")

	// Source errors.
	ErrSourceNil    = errors.New("registration source cannot be nil")
	ErrAccessorNil  = errors.New("registration accessor cannot be nil")
	ErrPredicateNil = errors.New("type predicate cannot be nil")
	ErrNotProvided  = errors.New("registration does not provide the requested service")

	// Registration errors.
	ErrConstructorNil      = errors.New("constructor cannot be nil")
	ErrActivatorNil        = errors.New("activator cannot be nil")
	ErrRegistrationNil     = errors.New("registration cannot be nil")
	ErrNoServices          = errors.New("registration must expose at least one service")
	ErrNotConcreteType     = errors.New("type must be a pointer to a struct")
	ErrInstanceNil         = errors.New("instance cannot be nil")
	ErrBuilderAlreadyBuilt = errors.New("builder has already been built")

	// Lifecycle errors.
	ErrContainerNil      = errors.New("container cannot be nil")
	ErrContainerDisposed = errors.New("container has been disposed")
)

var (
	_ error = LifetimeError{}
	_ error = ValidationError{}
	_ error = ResolutionError{}
	_ error = CircularDependencyError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = TypeMismatchError{}
	_ error = ConstructorInvocationError{}
	_ error = ConstructorPanicError{}
	_ error = BuildError{}
	_ error = DisposalError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid service lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// ValidationError reports an invalid argument passed across a call boundary.
// It is returned synchronously and never deferred to a later query.
type ValidationError struct {
	ServiceType reflect.Type
	Cause       error
}

func (e ValidationError) Error() string {
	if e.ServiceType != nil {
		return fmt.Sprintf("%s: %v", formatType(e.ServiceType), e.Cause)
	}
	return e.Cause.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Cause
}

// ResolutionError is returned when no registration, explicit or synthesized,
// satisfies a requested service, or when activating it fails.
type ResolutionError struct {
	Service   Service
	Cause     error
	Available []reflect.Type // registered types, used for suggestions
}

func (e ResolutionError) Error() string {
	var b strings.Builder

	if e.Cause == nil || errors.Is(e.Cause, ErrServiceNotFound) {
		b.WriteString(fmt.Sprintf("service not found: %s", e.Service))
	} else {
		b.WriteString(fmt.Sprintf("failed to resolve %s: %v", e.Service, e.Cause))
	}

	if len(e.Available) > 0 {
		similar := findSimilarTypes(e.Service.Type, e.Available)
		if len(similar) > 0 {
			b.WriteString("\n\nDid you mean one of these?\n")
			for _, t := range similar {
				b.WriteString(fmt.Sprintf("  • %s\n", formatType(t)))
			}
		}
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// findSimilarTypes finds types with similar names using a simple substring match
func findSimilarTypes(target reflect.Type, available []reflect.Type) []reflect.Type {
	if target == nil || len(available) == 0 {
		return nil
	}

	targetName := target.String()
	targetShortName := shortName(target)

	var similar []reflect.Type
	for _, t := range available {
		if t == nil || t == target {
			continue
		}

		typeName := t.String()
		typeShortName := shortName(t)

		if targetShortName == typeShortName ||
			strings.Contains(strings.ToLower(typeName), strings.ToLower(targetShortName)) ||
			strings.Contains(strings.ToLower(targetName), strings.ToLower(typeShortName)) {
			similar = append(similar, t)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

func shortName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// CircularDependencyError reports a service or registration that was requested
// again while it was still being synthesized or activated.
type CircularDependencyError struct {
	Service Service
	Path    []Service
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	if len(e.Path) == 0 {
		b.WriteString(fmt.Sprintf("    %s\n", e.Service))
		b.WriteString("      ↓\n")
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Service))
	} else {
		for i, s := range e.Path {
			b.WriteString(fmt.Sprintf("    %s\n", s))
			if i < len(e.Path)-1 {
				b.WriteString("      ↓\n")
			}
		}
		b.WriteString("      ↓\n")
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Service))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Use Lazy[T] or a func() T factory to break the dependency\n")
	b.WriteString("  • Check custom registration sources for self-referential lookups\n")

	return b.String()
}

// RegistrationError wraps errors during service registration.
type RegistrationError struct {
	ServiceType reflect.Type
	Operation   string // "register", "analyze", "build-registration", etc.
	Cause       error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatType(e.ServiceType), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion or conversion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ConstructorInvocationError for constructor call failures
type ConstructorInvocationError struct {
	Constructor reflect.Type
	Cause       error
}

func (e ConstructorInvocationError) Error() string {
	return fmt.Sprintf("failed to invoke %s: %v", formatType(e.Constructor), e.Cause)
}

func (e ConstructorInvocationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
type ConstructorPanicError struct {
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s panicked: %v\n", formatType(e.Constructor), e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// BuildError wraps errors that occur while building a container.
type BuildError struct {
	Phase   string // "validation", "graph"
	Details string
	Cause   error
}

func (e BuildError) Error() string {
	return fmt.Sprintf("build failed during %s phase: %s: %v", e.Phase, e.Details, e.Cause)
}

func (e BuildError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates disposal errors
type DisposalError struct {
	Context string
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsNotFound reports whether err means that nothing satisfies a requested service.
func IsNotFound(err error) bool {
	var re ResolutionError
	if errors.As(err, &re) {
		return re.Cause == nil || errors.Is(re.Cause, ErrServiceNotFound)
	}
	return errors.Is(err, ErrServiceNotFound)
}

// IsCircularDependency reports whether err contains a CircularDependencyError.
func IsCircularDependency(err error) bool {
	var ce CircularDependencyError
	return errors.As(err, &ce)
}

// IsInvalidArgument reports whether err was caused by a malformed input.
func IsInvalidArgument(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
