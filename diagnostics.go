package autoreg

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResolveOperation identifies one top-level Resolve or ResolveAll call.
type ResolveOperation struct {
	ID      uuid.UUID
	Service Service
	Started time.Time
}

// ResolveEvent reports the outcome of a top-level resolve.
type ResolveEvent struct {
	Operation    *ResolveOperation
	Succeeded    bool
	TraceContent string
	Err          error
	Duration     time.Duration
}

// tracer records activations for one operation.
type tracer struct {
	b strings.Builder
}

func (t *tracer) enter(depth int, reg *Registration) {
	if t == nil {
		return
	}

	t.b.WriteString(strings.Repeat("  ", depth))
	t.b.WriteString(fmt.Sprintf("%s (%s)", formatType(reg.activator.LimitType()), reg.lifetime))
	if reg.target != nil {
		t.b.WriteString(fmt.Sprintf(" -> %s", formatType(reg.target.activator.LimitType())))
	}
	t.b.WriteByte('\n')
}

func (t *tracer) fail(depth int, reg *Registration, err error) {
	if t == nil {
		return
	}

	t.b.WriteString(strings.Repeat("  ", depth))
	t.b.WriteString(fmt.Sprintf("%s failed: %v\n", formatType(reg.activator.LimitType()), err))
}

func (t *tracer) cached(depth int, reg *Registration) {
	if t == nil {
		return
	}

	t.b.WriteString(strings.Repeat("  ", depth))
	t.b.WriteString(fmt.Sprintf("%s (%s, cached)\n", formatType(reg.activator.LimitType()), reg.lifetime))
}

func (t *tracer) String() string {
	if t == nil {
		return ""
	}
	return t.b.String()
}
