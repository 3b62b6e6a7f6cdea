package autoreg_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/junioryono/autoreg"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TService is a basic service for testing.
type TService struct {
	ID string
}

func (s *TService) GetID() string { return s.ID }

// TInterface is a basic interface for testing.
type TInterface interface {
	GetID() string
}

// TDependency is a basic dependency for testing.
type TDependency struct {
	Name string
}

// TConsumer is synthesized with its dependencies injected.
type TConsumer struct {
	Service *TService    `inject:""`
	Dep     *TDependency `inject:""`
	Skipped *TService    `inject:"-"`
}

// TParamConsumer injects every exported field.
type TParamConsumer struct {
	autoreg.In

	Service *TService
	Missing TInterface `optional:"true"`
}

// TNamedConsumer injects a keyed dependency.
type TNamedConsumer struct {
	Primary *TService `inject:"" name:"primary"`
}

// FooWidget and BarWidget exercise name-based predicates.
type (
	FooWidget struct{}
	BarWidget struct{}
)

// TAbstractBase is abstract through the marker.
type TAbstractBase struct {
	autoreg.Abstract
	Name string
}

// TBox is a generic concrete type.
type TBox[T any] struct {
	Value T
}

// TFunc is a named func type.
type TFunc func() int

// TDisposable tracks Close calls.
type TDisposable struct {
	Name     string
	closed   atomic.Bool
	closeErr error
	onClose  func(name string)
}

func (d *TDisposable) Close() error {
	if d.closed.Swap(true) {
		return errors.New("already closed")
	}
	if d.onClose != nil {
		d.onClose(d.Name)
	}
	return d.closeErr
}

func (d *TDisposable) IsClosed() bool {
	return d.closed.Load()
}

// TContextDisposable records the context it was closed with.
type TContextDisposable struct {
	ctx context.Context
}

func (d *TContextDisposable) Close(ctx context.Context) error {
	d.ctx = ctx
	return nil
}

// ============================================================================
// Circular Dependency Test Types
// ============================================================================

type TCircularA struct{ B *TCircularB }
type TCircularB struct{ A *TCircularA }

func NewTCircularA(b *TCircularB) *TCircularA { return &TCircularA{B: b} }
func NewTCircularB(a *TCircularA) *TCircularB { return &TCircularB{A: a} }

// TSelfRef is a synthesized type that injects itself.
type TSelfRef struct {
	Self *TSelfRef `inject:""`
}

// ============================================================================
// Sources
// ============================================================================

// fixedSource provides one fixed service with a fixed instance.
type fixedSource struct {
	service  autoreg.Service
	instance any
	calls    atomic.Int32
}

func (s *fixedSource) RegistrationsFor(service autoreg.Service, accessor autoreg.Accessor) ([]*autoreg.Registration, error) {
	if accessor == nil {
		return nil, autoreg.ValidationError{Cause: autoreg.ErrAccessorNil}
	}

	if service != s.service {
		return nil, nil
	}

	s.calls.Add(1)

	activator, err := autoreg.NewDelegateActivator(reflect.TypeOf(s.instance), func(autoreg.ActivationContext) (any, error) {
		return s.instance, nil
	})
	if err != nil {
		return nil, err
	}

	reg, err := autoreg.NewRegistration(activator).As(service).Build()
	if err != nil {
		return nil, err
	}

	return []*autoreg.Registration{reg}, nil
}

func (s *fixedSource) IsAdapterForIndividualComponents() bool { return false }

// countingSource wraps a source and counts calls per service.
type countingSource struct {
	inner autoreg.RegistrationSource

	mu    sync.Mutex
	calls map[autoreg.Service]int
}

func newCountingSource(inner autoreg.RegistrationSource) *countingSource {
	return &countingSource{inner: inner, calls: make(map[autoreg.Service]int)}
}

func (s *countingSource) RegistrationsFor(service autoreg.Service, accessor autoreg.Accessor) ([]*autoreg.Registration, error) {
	s.mu.Lock()
	s.calls[service]++
	s.mu.Unlock()
	return s.inner.RegistrationsFor(service, accessor)
}

func (s *countingSource) IsAdapterForIndividualComponents() bool {
	return s.inner.IsAdapterForIndividualComponents()
}

func (s *countingSource) Calls(service autoreg.Service) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[service]
}

// ============================================================================
// Helpers
// ============================================================================

// buildContainer builds a container from setup and closes it with the test.
func buildContainer(t *testing.T, setup func(b *autoreg.Builder), opts ...autoreg.ContainerOption) *autoreg.Container {
	t.Helper()

	b := autoreg.NewBuilder()
	if setup != nil {
		setup(b)
	}

	c, err := b.Build(opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })
	return c
}

// withFallback installs the concrete-type source and the implicit adapters.
func withFallback(t *testing.T) func(b *autoreg.Builder) {
	return func(b *autoreg.Builder) {
		require.NoError(t, b.RegisterAnyConcreteType())
		require.NoError(t, b.RegisterImplicitAdapters())
	}
}

func newTService() *TService { return &TService{ID: "explicit"} }
