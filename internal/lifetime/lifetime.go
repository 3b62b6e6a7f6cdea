package lifetime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrDisposed is returned when the manager is used after Dispose.
var ErrDisposed = errors.New("lifetime manager is disposed")

// Manager caches shared instances per registration and disposes them in
// reverse creation order.
type Manager struct {
	mu sync.RWMutex

	// Shared instances by registration ID
	instances map[uuid.UUID]*managedInstance

	// Creation order, used for LIFO disposal
	order []*managedInstance

	// Disposal callback
	onDispose func(instance any, err error)

	// Statistics
	stats Statistics

	// State
	disposed int32
}

// managedInstance wraps a cached instance.
type managedInstance struct {
	instance any
}

// Disposable is implemented by instances that release resources on Close.
type Disposable interface {
	Close() error
}

// ContextDisposable is implemented by instances whose Close honors a context.
type ContextDisposable interface {
	Close(ctx context.Context) error
}

// Statistics tracks lifetime manager metrics.
type Statistics struct {
	TotalInstances    int64
	ActiveInstances   int64
	DisposedInstances int64
	TotalAccessCount  int64
}

// New creates a new lifetime manager that reports every disposal to
// onDispose, which may be nil.
func New(onDispose func(instance any, err error)) *Manager {
	return &Manager{
		instances: make(map[uuid.UUID]*managedInstance),
		onDispose: onDispose,
	}
}

// Load returns the instance cached for id.
func (m *Manager) Load(id uuid.UUID) (any, bool) {
	if m.isDisposed() {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	managed, ok := m.instances[id]
	if !ok {
		return nil, false
	}

	atomic.AddInt64(&m.stats.TotalAccessCount, 1)
	return managed.instance, true
}

// LoadOrStore caches instance for id unless another instance was stored
// first. It returns the cached instance and whether it was already present.
// When loaded is true, or the manager is disposed, the caller still owns
// instance and should dispose it.
func (m *Manager) LoadOrStore(id uuid.UUID, instance any) (actual any, loaded bool, err error) {
	if m.isDisposed() {
		return nil, false, ErrDisposed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Dispose flips the flag before taking the lock.
	if m.isDisposed() {
		return nil, false, ErrDisposed
	}

	if managed, ok := m.instances[id]; ok {
		atomic.AddInt64(&m.stats.TotalAccessCount, 1)
		return managed.instance, true, nil
	}

	managed := &managedInstance{instance: instance}

	m.instances[id] = managed
	m.order = append(m.order, managed)

	atomic.AddInt64(&m.stats.TotalInstances, 1)
	atomic.AddInt64(&m.stats.ActiveInstances, 1)

	return instance, false, nil
}

// Dispose disposes every cached instance, newest first. It is safe to call
// more than once; only the first call does any work.
func (m *Manager) Dispose(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.disposed, 0, 1) {
		return nil
	}

	m.mu.Lock()
	order := m.order
	m.order = nil
	m.instances = make(map[uuid.UUID]*managedInstance)
	m.mu.Unlock()

	var errs []error

	// Dispose in reverse order
	for i := len(order) - 1; i >= 0; i-- {
		if err := m.disposeInstance(ctx, order[i]); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// disposeInstance disposes a single instance.
func (m *Manager) disposeInstance(ctx context.Context, managed *managedInstance) error {
	err := DisposeValue(ctx, managed.instance)
	if m.onDispose != nil {
		m.onDispose(managed.instance, err)
	}

	atomic.AddInt64(&m.stats.ActiveInstances, -1)
	atomic.AddInt64(&m.stats.DisposedInstances, 1)

	if err != nil {
		return fmt.Errorf("failed to dispose %T: %w", managed.instance, err)
	}

	return nil
}

// DisposeValue closes v if it implements Disposable or ContextDisposable.
func DisposeValue(ctx context.Context, v any) error {
	switch d := v.(type) {
	case ContextDisposable:
		return d.Close(ctx)
	case Disposable:
		return d.Close()
	}
	return nil
}

// GetStatistics returns lifetime statistics.
func (m *Manager) GetStatistics() Statistics {
	return Statistics{
		TotalInstances:    atomic.LoadInt64(&m.stats.TotalInstances),
		ActiveInstances:   atomic.LoadInt64(&m.stats.ActiveInstances),
		DisposedInstances: atomic.LoadInt64(&m.stats.DisposedInstances),
		TotalAccessCount:  atomic.LoadInt64(&m.stats.TotalAccessCount),
	}
}

// isDisposed checks if the manager is disposed.
func (m *Manager) isDisposed() bool {
	return atomic.LoadInt32(&m.disposed) != 0
}
