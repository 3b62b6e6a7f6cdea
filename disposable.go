package autoreg

import "github.com/junioryono/autoreg/internal/lifetime"

// Disposable is implemented by services that release resources. Singletons
// created by the container are closed, newest first, when it is closed.
// Transients are closed by their Owned wrapper.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable = lifetime.Disposable

// DisposableWithContext is implemented by services whose cleanup honors a
// context. It takes precedence over Disposable.
type DisposableWithContext = lifetime.ContextDisposable
