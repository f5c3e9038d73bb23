package refcount

import (
	"sync"
	"sync/atomic"
)

type node struct {
	Object
	id    int
	drops *atomic.Int32
	next  *Shared[*node]
	peer  *Weak[*node]
}

func (n *node) Drop() {
	n.drops.Add(1)
	if n.next != nil {
		n.next.Reset()
	}
	if n.peer != nil {
		n.peer.Reset()
	}
}

func newNode(id int) (*node, *atomic.Int32) {
	drops := &atomic.Int32{}
	return &node{id: id, drops: drops}, drops
}

type shape interface {
	Managed
	Area() int
}

type square struct {
	Object
	side  int
	drops atomic.Int32
}

func (s *square) Area() int { return s.side * s.side }
func (s *square) Drop()     { s.drops.Add(1) }

type circle struct {
	Object
	r int
}

func (c *circle) Area() int { return 3 * c.r * c.r }

// pooled prefers OnZeroReached over Drop.
type pooled struct {
	Object
	reclaimed atomic.Int32
	dropped   atomic.Int32
}

func (p *pooled) OnZeroReached() { p.reclaimed.Add(1) }
func (p *pooled) Drop()          { p.dropped.Add(1) }

type plain struct {
	Object
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnRefEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
