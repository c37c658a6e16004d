/* poller.go
 * Contains the recurring-fetch controller used for every upstream resource:
 * fixed interval, enable gate, manual refresh, an in-flight guard and
 * stale-on-error retention of the last good value
 */

package poller

import (
	"context"
	"sync"
	"time"
)

// FetchFunc produces one fresh value for the resource a poller owns.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// State is a point-in-time copy of a poller's cache entry. On failure Err is
// set while Value keeps the last successful result: a transient upstream
// failure must not blank the display.
type State[T any] struct {
	Value     T
	HasValue  bool
	Err       error
	Loading   bool
	UpdatedAt time.Time
}

// Poller repeatedly invokes a fetch on a fixed interval. Each distinct
// logical resource (endpoint plus parameters) gets its own Poller; changing
// parameters means constructing a new one, not mutating an old one.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	onUpdate func(T)

	mu        sync.Mutex
	enabled   bool
	inFlight  bool
	seq       uint64
	applied   uint64
	value     T
	hasValue  bool
	err       error
	updatedAt time.Time

	refreshCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a poller for one logical resource. It starts disabled and
// idle; call SetEnabled(true) and Start.
func New[T any](name string, interval time.Duration, fetch FetchFunc[T]) *Poller[T] {
	return &Poller[T]{
		name:      name,
		interval:  interval,
		fetch:     fetch,
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// OnUpdate registers a callback invoked with each fresh successful value.
// Must be set before Start.
func (p *Poller[T]) OnUpdate(fn func(T)) {
	p.onUpdate = fn
}

// SetEnabled flips the network gate. A disabled poller issues no requests at
// all; enabling triggers an immediate out-of-band fetch.
func (p *Poller[T]) SetEnabled(enabled bool) {
	p.mu.Lock()
	was := p.enabled
	p.enabled = enabled
	p.mu.Unlock()
	if enabled && !was {
		p.Refresh()
	}
}

// Refresh requests an immediate fetch independent of the timer. A refresh
// already pending or in flight is not duplicated.
func (p *Poller[T]) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Start launches the polling loop.
func (p *Poller[T]) Start() {
	go p.run()
}

// Stop tears the loop down. In-flight work is allowed to finish; its result
// is simply no longer consumed.
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.done
}

// State returns a copy of the current cache entry.
func (p *Poller[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State[T]{
		Value:     p.value,
		HasValue:  p.hasValue,
		Err:       p.err,
		Loading:   p.inFlight,
		UpdatedAt: p.updatedAt,
	}
}

func (p *Poller[T]) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// SetEnabled before Start queues a refresh; the initial poll covers it.
	select {
	case <-p.refreshCh:
	default:
	}
	p.poll()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.refreshCh:
			p.poll()
		}
	}
}

// poll performs one fetch cycle. The in-flight guard keeps a tick that fires
// during a slow request from racing a second request for the same resource,
// and the sequence check keeps a slow earlier completion from overwriting a
// fresher value.
func (p *Poller[T]) poll() {
	p.mu.Lock()
	if !p.enabled || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	value, err := p.fetch(context.Background())

	p.mu.Lock()
	p.inFlight = false
	if seq <= p.applied {
		// An out-of-order completion; fresher data already landed.
		p.mu.Unlock()
		return
	}
	p.applied = seq
	if err != nil {
		p.err = err
		p.mu.Unlock()
		return
	}
	p.value = value
	p.hasValue = true
	p.err = nil
	p.updatedAt = time.Now()
	fn := p.onUpdate
	p.mu.Unlock()

	if fn != nil {
		fn(value)
	}
}
