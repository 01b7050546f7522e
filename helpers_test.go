package elsa

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestPage returns a page with predictable ids s1, s2, ...
func newTestPage(t *testing.T) *Page {
	t.Helper()
	p := NewPage(nil)
	n := 0
	p.SetIDGenerator(func() string {
		n++
		return fmt.Sprintf("s%d", n)
	})
	return p
}

func mustCreate(t *testing.T, p *Page, typ string, x, y float64, opts ...CreateOption) *Shape {
	t.Helper()
	s, err := p.CreateShape(typ, x, y, opts...)
	require.NoError(t, err)
	return s
}

// requireContainment checks every shape sits in a live container that
// accepts it and is listed among its children.
func requireContainment(t *testing.T, p *Page) {
	t.Helper()
	for _, s := range p.Shapes() {
		c, err := s.GetContainer()
		require.NoError(t, err, "shape %s", s.ID)
		if c == nil {
			require.Contains(t, p.roots, s.ID)
			continue
		}
		require.True(t, c.ChildAllowed(s), "%s rejects %s", c.Type, s.Type)
		require.Contains(t, c.ChildIDs(), s.ID)
	}
}

type fakeTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeScheduler records timers; tests fire them explicitly.
type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fireAll runs every timer, including stopped ones, the way a timer that
// raced its Stop call would.
func (s *fakeScheduler) fireAll() {
	for _, t := range s.timers {
		t.fired = true
		t.fn()
	}
}

func (s *fakeScheduler) last() *fakeTimer {
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

type recorder struct {
	events []Event
}

func record(p *Page, names ...EventName) *recorder {
	r := &recorder{}
	for _, n := range names {
		p.Events().Subscribe(n, func(ev Event) { r.events = append(r.events, ev) })
	}
	return r
}

func (r *recorder) count(name EventName) int {
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}
