package autoreg

import (
	"reflect"
	"sync"
)

// Owned carries an instance of T together with the responsibility to
// release it. Closing an Owned disposes the instance when the container
// created it for this Owned alone, that is when T's registration is
// Transient. Shared instances stay with the container.
//
// Example:
//
//	owned, err := autoreg.Resolve[*autoreg.Owned[*Connection]](c)
//	if err != nil {
//	    return err
//	}
//	defer owned.Close()
type Owned[T any] struct {
	value    T
	dispose  func() error
	once     sync.Once
	closeErr error
}

// ownedBinder lets OwnedSource wire an Owned[T] it only knows by reflect.Type.
type ownedBinder interface {
	bindOwned(value any, dispose func() error) error
	ownedElem() reflect.Type
}

var (
	_ ownedBinder = (*Owned[any])(nil)
	_ Disposable  = (*Owned[any])(nil)
)

// Value returns the owned instance.
func (o *Owned[T]) Value() T {
	return o.value
}

// Close releases the instance. Only the first call has an effect.
func (o *Owned[T]) Close() error {
	o.once.Do(func() {
		if o.dispose != nil {
			o.closeErr = o.dispose()
		}
	})
	return o.closeErr
}

func (o *Owned[T]) bindOwned(value any, dispose func() error) error {
	v, err := convertTo[T](value, "owned value")
	if err != nil {
		return err
	}

	o.value = v
	o.dispose = dispose
	return nil
}

func (o *Owned[T]) ownedElem() reflect.Type {
	return reflect.TypeFor[T]()
}
