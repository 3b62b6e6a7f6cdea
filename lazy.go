package autoreg

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Lazy defers activation of T until Value is first called. Resolve
// *Lazy[T] once LazySource is registered; T may be explicitly registered or
// synthesized.
//
// Example:
//
//	type ReportService struct {
//	    Exporter *autoreg.Lazy[*PDFExporter] `inject:""`
//	}
//
//	exporter, err := s.Exporter.Value()
type Lazy[T any] struct {
	once    sync.Once
	created atomic.Bool
	factory func() (any, error)
	value   T
	err     error
}

// lazyBinder lets LazySource wire a Lazy[T] it only knows by reflect.Type.
type lazyBinder interface {
	bindLazy(factory func() (any, error))
	lazyElem() reflect.Type
}

var _ lazyBinder = (*Lazy[any])(nil)

// Value activates T on first use and returns the same result afterwards.
func (l *Lazy[T]) Value() (T, error) {
	l.once.Do(func() {
		defer l.created.Store(true)

		if l.factory == nil {
			l.err = ValidationError{ServiceType: reflect.TypeFor[T](), Cause: ErrActivatorNil}
			return
		}

		raw, err := l.factory()
		if err != nil {
			l.err = err
			return
		}

		l.value, l.err = convertTo[T](raw, "lazy value")
	})

	return l.value, l.err
}

// MustValue is like Value but panics on error.
func (l *Lazy[T]) MustValue() T {
	v, err := l.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// IsValueCreated reports whether Value has run.
func (l *Lazy[T]) IsValueCreated() bool {
	return l.created.Load()
}

func (l *Lazy[T]) bindLazy(factory func() (any, error)) {
	l.factory = factory
}

func (l *Lazy[T]) lazyElem() reflect.Type {
	return reflect.TypeFor[T]()
}

// convertTo asserts raw to T, mapping nil to T's zero value.
func convertTo[T any](raw any, context string) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}

	v, ok := raw.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(raw),
			Context:  context,
		}
	}
	return v, nil
}
