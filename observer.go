package refcount

import (
	"sync"
	"sync/atomic"
)

// EventType identifies an object lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
	EventUpgradeFailed
	EventLeaked
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	case EventUpgradeFailed:
		return "upgrade_failed"
	case EventLeaked:
		return "leaked"
	default:
		return "unknown"
	}
}

// Event describes an object lifecycle event. Value is the managed object;
// after EventDestroyed it must not be used.
type Event struct {
	Value    any
	TypeName string
	Type     EventType
}

// Observer receives lifecycle events. Callbacks run synchronously on the
// goroutine that caused the event and never inside a control block lock.
// An EventDestroyed callback must not take new owners of Value.
type Observer interface {
	OnRefEvent(Event)
}

var (
	observers atomic.Pointer[[]Observer]
	obsMu     sync.Mutex
)

// Subscribe adds an observer for lifecycle events.
func Subscribe(o Observer) {
	obsMu.Lock()
	defer obsMu.Unlock()
	var next []Observer
	if cur := observers.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, o)
	observers.Store(&next)
}

// Unsubscribe removes an observer.
func Unsubscribe(o Observer) {
	obsMu.Lock()
	defer obsMu.Unlock()
	cur := observers.Load()
	if cur == nil {
		return
	}
	next := make([]Observer, 0, len(*cur))
	for _, obs := range *cur {
		if obs != o {
			next = append(next, obs)
		}
	}
	observers.Store(&next)
}

func emit(t EventType, v any) {
	list := observers.Load()
	if list == nil || len(*list) == 0 {
		return
	}
	e := Event{Value: v, TypeName: typeName(v), Type: t}
	for _, o := range *list {
		o.OnRefEvent(e)
	}
}

// Stats is an Observer that counts lifecycle events.
type Stats struct {
	created       atomic.Int64
	destroyed     atomic.Int64
	upgradeFailed atomic.Int64
	leaked        atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Created       int64
	Destroyed     int64
	UpgradeFailed int64
	Leaked        int64
}

// Live returns the number of objects created and not yet destroyed.
func (s StatsSnapshot) Live() int64 {
	return s.Created - s.Destroyed
}

// OnRefEvent implements Observer.
func (s *Stats) OnRefEvent(e Event) {
	switch e.Type {
	case EventCreated:
		s.created.Add(1)
	case EventDestroyed:
		s.destroyed.Add(1)
	case EventUpgradeFailed:
		s.upgradeFailed.Add(1)
	case EventLeaked:
		s.leaked.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Created:       s.created.Load(),
		Destroyed:     s.destroyed.Load(),
		UpgradeFailed: s.upgradeFailed.Load(),
		Leaked:        s.leaked.Load(),
	}
}
