package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/control"
	"github.com/wippyai/refcount/resource"
	"github.com/wippyai/refcount/wasmhost"
)

// options controls every workload.
type options struct {
	workers    int
	iterations int
}

// workload is one concurrent scenario. run reports progress through done
// and returns an error if an ownership property was violated.
type workload struct {
	name string
	desc string
	run  func(ctx context.Context, opts options, done *atomic.Int64) error
}

// result summarizes a finished workload.
type result struct {
	name    string
	ops     int64
	elapsed time.Duration
	stats   refcount.StatsSnapshot
	blocks  int64
	err     error
}

var workloads = []workload{
	{"churn", "clone, move and drop shared handles", runChurn},
	{"upgrade", "race weak upgrades against the last drop", runUpgrade},
	{"unique", "hand unique owners across goroutines", runUnique},
	{"table", "clone, downgrade and drop through a handle table", runTable},
	{"host", "drive the handle table through wasm host calls", runHost},
}

func selectWorkloads(names []string) ([]workload, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return workloads, nil
	}
	var out []workload
	for _, n := range names {
		found := false
		for _, w := range workloads {
			if w.name == n {
				out = append(out, w)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown workload %q", n)
		}
	}
	return out, nil
}

// execute runs w and checks that every object it created was destroyed
// exactly once.
func execute(ctx context.Context, w workload, opts options, done *atomic.Int64) result {
	stats := &refcount.Stats{}
	refcount.Subscribe(stats)
	defer refcount.Unsubscribe(stats)

	blocksBefore := control.Stats().Live()
	start := time.Now()
	err := w.run(ctx, opts, done)
	res := result{
		name:    w.name,
		ops:     done.Load(),
		elapsed: time.Since(start),
		stats:   stats.Snapshot(),
		blocks:  control.Stats().Live() - blocksBefore,
	}
	if err == nil && res.stats.Live() != 0 {
		err = fmt.Errorf("%d objects created but not destroyed", res.stats.Live())
	}
	if err == nil && res.blocks != 0 {
		err = fmt.Errorf("%d control blocks not freed", res.blocks)
	}
	res.err = err
	return res
}

type payload struct {
	refcount.Object
	drops atomic.Int32
}

func (p *payload) Drop() { p.drops.Add(1) }

func checkDrops(ps []*payload) error {
	for i, p := range ps {
		if n := p.drops.Load(); n != 1 {
			return fmt.Errorf("object %d destroyed %d times", i, n)
		}
	}
	return nil
}

// firstError keeps the first error reported by any worker.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) set(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func fanOut(workers int, fn func(worker int)) {
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			fn(w)
		}(w)
	}
	wg.Wait()
}

func runChurn(ctx context.Context, opts options, done *atomic.Int64) error {
	ps := make([]*payload, opts.iterations)
	for i := range ps {
		ps[i] = &payload{}
	}

	for i, p := range ps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root := refcount.New(p)
		w := root.Weak()
		handles := make(chan *refcount.Shared[*payload], opts.workers)
		for j := 0; j < opts.workers; j++ {
			handles <- root.Clone()
		}
		close(handles)
		root.Reset()

		fanOut(opts.workers, func(int) {
			for h := range handles {
				m := h.Move()
				c := m.Clone()
				m.Reset()
				c.Reset()
			}
		})
		if !w.Expired() {
			return fmt.Errorf("object %d alive after every owner was dropped", i)
		}
		w.Reset()
		done.Add(1)
	}
	return checkDrops(ps)
}

func runUpgrade(ctx context.Context, opts options, done *atomic.Int64) error {
	ps := make([]*payload, opts.iterations)
	for i := range ps {
		ps[i] = &payload{}
	}

	for _, p := range ps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s := refcount.New(p)
		weaks := make([]*refcount.Weak[*payload], opts.workers)
		for j := range weaks {
			weaks[j] = s.Weak()
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.Reset()
		}()
		for _, w := range weaks {
			wg.Add(1)
			go func(w *refcount.Weak[*payload]) {
				defer wg.Done()
				<-start
				w.Upgrade().Reset()
				w.Reset()
			}(w)
		}
		close(start)
		wg.Wait()
		done.Add(1)
	}
	return checkDrops(ps)
}

func runUnique(ctx context.Context, opts options, done *atomic.Int64) error {
	ps := make([]*payload, opts.iterations)
	for i := range ps {
		ps[i] = &payload{}
	}

	ch := make(chan *refcount.Unique[*payload])
	go func() {
		defer close(ch)
		for _, p := range ps {
			if ctx.Err() != nil {
				return
			}
			ch <- refcount.NewUnique(p)
		}
	}()

	var failed firstError
	fanOut(opts.workers, func(worker int) {
		for u := range ch {
			w := refcount.WeakFromRaw(u.Get())
			if w.Upgrade().Valid() {
				failed.set(fmt.Errorf("weak handle upgraded a unique owner"))
			}
			m := u.Move()
			if worker%2 == 0 {
				m.Reset()
			} else {
				s := m.Share()
				c := s.Clone()
				s.Reset()
				c.Reset()
			}
			if !w.Expired() {
				failed.set(fmt.Errorf("weak handle outlived its unique owner"))
			}
			w.Reset()
			done.Add(1)
		}
	})
	if err := failed.get(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return checkDrops(ps)
}

func runTable(ctx context.Context, opts options, done *atomic.Int64) error {
	table := resource.NewTable()
	defer table.Close()

	ps := make([]*payload, opts.workers)
	roots := make([]resource.Handle, opts.workers)
	for i := range ps {
		ps[i] = &payload{}
		h, err := table.InsertShared(1, refcount.New[refcount.Managed](ps[i]))
		if err != nil {
			return err
		}
		roots[i] = h
	}

	var failed firstError
	fanOut(opts.workers, func(worker int) {
		for i := 0; i < opts.iterations && ctx.Err() == nil; i++ {
			root := roots[(worker+i)%len(roots)]
			c, err := table.Clone(root)
			if err != nil {
				failed.set(err)
				return
			}
			w, _ := table.Downgrade(c)
			if up, err := table.Upgrade(w); err == nil {
				table.Drop(up)
			} else {
				failed.set(fmt.Errorf("upgrade of a live entry failed: %w", err))
			}
			table.Drop(w)
			table.Drop(c)
			done.Add(1)
		}
	})
	if err := failed.get(); err != nil {
		return err
	}
	for _, h := range roots {
		if err := table.Drop(h); err != nil {
			return err
		}
	}
	return checkDrops(ps)
}

func runHost(ctx context.Context, opts options, done *atomic.Int64) error {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	table := resource.NewTable()
	defer table.Close()

	if _, err := wasmhost.Instantiate(ctx, rt, table); err != nil {
		return err
	}
	guest, err := wasmhost.InstantiateForwarder(ctx, rt, wasmhost.DefaultOptions())
	if err != nil {
		return err
	}

	ps := make([]*payload, opts.iterations)
	for i := range ps {
		ps[i] = &payload{}
	}

	var failed firstError
	var next atomic.Int64
	fanOut(opts.workers, func(int) {
		// api.Function is not safe for concurrent calls; each worker
		// looks up its own.
		clone := guest.ExportedFunction("clone")
		drop := guest.ExportedFunction("drop")
		downgrade := guest.ExportedFunction("downgrade")
		upgrade := guest.ExportedFunction("upgrade")

		callHost := func(fn api.Function, h uint32) uint32 {
			res, err := fn.Call(ctx, api.EncodeU32(h))
			if err != nil {
				failed.set(err)
				return 0
			}
			return api.DecodeU32(res[0])
		}

		for ctx.Err() == nil {
			i := next.Add(1) - 1
			if i >= int64(len(ps)) {
				return
			}
			h, err := table.InsertShared(1, refcount.New[refcount.Managed](ps[i]))
			if err != nil {
				failed.set(err)
				return
			}
			c := callHost(clone, uint32(h))
			w := callHost(downgrade, c)
			if callHost(drop, uint32(h)) != 1 {
				failed.set(fmt.Errorf("drop of handle %d failed", h))
			}
			if callHost(drop, c) != 1 {
				failed.set(fmt.Errorf("drop of handle %d failed", c))
			}
			if up := callHost(upgrade, w); up != 0 {
				failed.set(fmt.Errorf("upgrade after last drop returned %d", up))
			}
			callHost(drop, w)
			done.Add(1)
		}
	})
	if err := failed.get(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if table.Len() != 0 {
		return fmt.Errorf("%d table entries left", table.Len())
	}
	return checkDrops(ps)
}
