package cursor

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Minter issues strictly increasing cursors. It is safe for concurrent use.
type Minter struct {
	mu    sync.Mutex
	clock clockwork.Clock
	last  time.Time
}

// NewMinter returns a minter reading time from clock. A nil clock means the
// wall clock.
func NewMinter(clock clockwork.Clock) *Minter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Minter{clock: clock}
}

// Next returns a cursor strictly greater than every cursor in after and
// every cursor this minter issued or observed before. When the clock has not
// moved past that floor the result is the floor plus one nanosecond.
func (m *Minter) Next(after ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	floor := m.last
	for _, c := range after {
		if t, ok := Parse(c); ok && t.After(floor) {
			floor = t
		}
	}

	now := m.clock.Now().UTC().Round(0)
	if !now.After(floor) {
		now = floor.Add(time.Nanosecond)
	}

	m.last = now
	return Format(now)
}

// Observe raises the floor to c, e.g. the highest cursor found in durable
// state at startup. Foreign and older cursors are ignored.
func (m *Minter) Observe(c string) {
	t, ok := Parse(c)
	if !ok {
		return
	}

	m.mu.Lock()
	if t.After(m.last) {
		m.last = t
	}
	m.mu.Unlock()
}

// Last returns the highest cursor issued or observed, or "" if none.
func (m *Minter) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last.IsZero() {
		return ""
	}
	return Format(m.last)
}
