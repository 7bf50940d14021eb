// Package lookup runs debounced symbol lookups and caches quote results.
package lookup

import (
	"context"
	"sync"
	"time"
)

type pending struct {
	timer  *time.Timer
	cancel context.CancelFunc
	gen    uint64
}

// Debouncer delays work per key. Scheduling again for a key cancels the
// pending timer and any run already in flight for it.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	gen     uint64
	stopped bool
	root    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewDebouncer creates a debouncer that waits delay after the last Schedule call
func NewDebouncer(delay time.Duration) *Debouncer {
	root, stop := context.WithCancel(context.Background())
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pending),
		root:    root,
		stop:    stop,
	}
}

// Schedule runs fn for key after the debounce delay, replacing any earlier
// schedule for the same key. fn's context is cancelled if key is rescheduled
// or the debouncer stops. Returns false once the debouncer is stopped.
func (d *Debouncer) Schedule(key string, fn func(ctx context.Context)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		p.cancel()
	}

	d.gen++
	gen := d.gen
	ctx, cancel := context.WithCancel(d.root)
	p := &pending{cancel: cancel, gen: gen}
	p.timer = time.AfterFunc(d.delay, func() { d.run(key, gen, ctx, fn) })
	d.pending[key] = p
	return true
}

func (d *Debouncer) run(key string, gen uint64, ctx context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if d.stopped || !ok || p.gen != gen || ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	fn(ctx)

	d.mu.Lock()
	if p, ok := d.pending[key]; ok && p.gen == gen {
		p.cancel()
		delete(d.pending, key)
	}
	d.mu.Unlock()
}

// Cancel drops the pending or in-flight work for key
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		p.cancel()
		delete(d.pending, key)
	}
}

// Pending returns the number of keys with scheduled or running work
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop clears every timer, cancels running work and waits for it to return
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		p.cancel()
		delete(d.pending, key)
	}
	d.stop()
	d.mu.Unlock()

	d.wg.Wait()
}
