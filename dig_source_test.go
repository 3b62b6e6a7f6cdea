package autoreg_test

import (
	"errors"
	"testing"

	"github.com/junioryono/autoreg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

func newDigContainer(t *testing.T) *dig.Container {
	t.Helper()

	dc := dig.New()
	require.NoError(t, dc.Provide(func() *TDependency { return &TDependency{Name: "dig"} }))
	require.NoError(t, dc.Provide(func() *TService { return &TService{ID: "dig-primary"} }, dig.Name("primary")))
	return dc
}

func TestDigSource(t *testing.T) {
	t.Run("nil container", func(t *testing.T) {
		source, err := autoreg.NewDigSource(nil)
		assert.Nil(t, source)
		assert.True(t, autoreg.IsInvalidArgument(err))
		assert.ErrorIs(t, err, autoreg.ErrContainerNil)
	})

	t.Run("provides dig values as singletons", func(t *testing.T) {
		source, err := autoreg.NewDigSource(newDigContainer(t))
		require.NoError(t, err)

		c := buildContainer(t, func(b *autoreg.Builder) {
			require.NoError(t, b.RegisterSource(source, false))
		})

		first, err := autoreg.Resolve[*TDependency](c)
		require.NoError(t, err)
		assert.Equal(t, "dig", first.Name)

		second, err := autoreg.Resolve[*TDependency](c)
		require.NoError(t, err)
		assert.Same(t, first, second)

		regs, err := c.Registrations(autoreg.ServiceOf[*TDependency]())
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, autoreg.Singleton, regs[0].Lifetime())
		assert.Equal(t, "dig", regs[0].Metadata()["source"])
	})

	t.Run("names map to string keys", func(t *testing.T) {
		source, err := autoreg.NewDigSource(newDigContainer(t))
		require.NoError(t, err)

		c := buildContainer(t, func(b *autoreg.Builder) {
			require.NoError(t, b.RegisterSource(source, false))
		})

		svc, err := autoreg.ResolveKeyed[*TService](c, "primary")
		require.NoError(t, err)
		assert.Equal(t, "dig-primary", svc.ID)

		ok, err := autoreg.IsRegisteredType[*TService](c)
		require.NoError(t, err)
		assert.False(t, ok, "the unnamed type is not provided")

		ok, err = c.IsRegistered(autoreg.KeyedServiceOf[*TService](42))
		require.NoError(t, err)
		assert.False(t, ok, "only string keys have dig names")
	})

	t.Run("takes precedence over synthesis", func(t *testing.T) {
		source, err := autoreg.NewDigSource(newDigContainer(t))
		require.NoError(t, err)

		c := buildContainer(t, func(b *autoreg.Builder) {
			require.NoError(t, b.RegisterAnyConcreteType())
			require.NoError(t, b.RegisterSource(source, false))
		})

		consumer, err := autoreg.Resolve[*TConsumer](c)
		require.NoError(t, err)
		assert.Equal(t, "dig", consumer.Dep.Name)
	})

	t.Run("dig failures", func(t *testing.T) {
		dc := dig.New()
		require.NoError(t, dc.Provide(func() (*TDependency, error) { return nil, errors.New("unavailable") }))

		source, err := autoreg.NewDigSource(dc)
		require.NoError(t, err)

		c := buildContainer(t, func(b *autoreg.Builder) {
			require.NoError(t, b.RegisterSource(source, false))
		})

		_, err = autoreg.IsRegisteredType[*TDependency](c)
		require.Error(t, err)

		var regErr autoreg.RegistrationError
		assert.True(t, errors.As(err, &regErr))
	})

	t.Run("parameter objects are not services", func(t *testing.T) {
		source, err := autoreg.NewDigSource(newDigContainer(t))
		require.NoError(t, err)

		empty := func(autoreg.Service) ([]*autoreg.Registration, error) { return nil, nil }

		regs, err := source.RegistrationsFor(autoreg.ServiceOf[TParamConsumer](), empty)
		require.NoError(t, err)
		assert.Empty(t, regs)
	})
}
