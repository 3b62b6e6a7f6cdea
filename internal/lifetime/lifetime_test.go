package lifetime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/junioryono/autoreg/internal/lifetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	name  string
	log   *[]string
	err   error
	calls int
}

func (c *closer) Close() error {
	c.calls++
	*c.log = append(*c.log, c.name)
	return c.err
}

type ctxCloser struct {
	got context.Context
}

func (c *ctxCloser) Close(ctx context.Context) error {
	c.got = ctx
	return nil
}

func TestManager_LoadOrStore(t *testing.T) {
	m := lifetime.New(nil)
	id := uuid.New()

	_, ok := m.Load(id)
	assert.False(t, ok)

	first := &struct{ n int }{1}
	actual, loaded, err := m.LoadOrStore(id, first)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Same(t, first, actual)

	second := &struct{ n int }{2}
	actual, loaded, err = m.LoadOrStore(id, second)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Same(t, first, actual)

	got, ok := m.Load(id)
	require.True(t, ok)
	assert.Same(t, first, got)

	stats := m.GetStatistics()
	assert.Equal(t, int64(1), stats.TotalInstances)
	assert.Equal(t, int64(1), stats.ActiveInstances)
	assert.Equal(t, int64(2), stats.TotalAccessCount, "one cached load and one lost store")
}

func TestManager_DisposeLIFO(t *testing.T) {
	var log []string
	var reported []any
	var reportedErrs []error

	m := lifetime.New(func(instance any, err error) {
		reported = append(reported, instance)
		reportedErrs = append(reportedErrs, err)
	})

	a := &closer{name: "a", log: &log}
	b := &closer{name: "b", log: &log}
	c := &closer{name: "c", log: &log}

	for _, inst := range []*closer{a, b, c} {
		_, _, err := m.LoadOrStore(uuid.New(), inst)
		require.NoError(t, err)
	}

	require.NoError(t, m.Dispose(context.Background()))
	assert.Equal(t, []string{"c", "b", "a"}, log)
	assert.Equal(t, []any{c, b, a}, reported)
	assert.Equal(t, []error{nil, nil, nil}, reportedErrs)

	stats := m.GetStatistics()
	assert.Equal(t, int64(3), stats.TotalInstances)
	assert.Equal(t, int64(0), stats.ActiveInstances)
	assert.Equal(t, int64(3), stats.DisposedInstances)

	t.Run("second dispose is a no-op", func(t *testing.T) {
		require.NoError(t, m.Dispose(context.Background()))
		assert.Equal(t, 1, a.calls)
	})

	t.Run("store after dispose fails", func(t *testing.T) {
		_, _, err := m.LoadOrStore(uuid.New(), a)
		assert.ErrorIs(t, err, lifetime.ErrDisposed)
	})
}

func TestManager_DisposeCollectsErrors(t *testing.T) {
	var log []string
	boom := errors.New("boom")

	m := lifetime.New(nil)
	_, _, err := m.LoadOrStore(uuid.New(), &closer{name: "bad", log: &log, err: boom})
	require.NoError(t, err)
	_, _, err = m.LoadOrStore(uuid.New(), &closer{name: "good", log: &log})
	require.NoError(t, err)

	err = m.Dispose(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"good", "bad"}, log)
}

func TestDisposeValue(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	c := &ctxCloser{}
	require.NoError(t, lifetime.DisposeValue(ctx, c))
	assert.Equal(t, ctx, c.got)

	assert.NoError(t, lifetime.DisposeValue(ctx, "not disposable"))
}
