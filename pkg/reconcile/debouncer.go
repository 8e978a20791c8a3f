package reconcile

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last trigger before a scan
// runs.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer coalesces triggers into a single call of fire, made once no
// trigger arrived for the delay. A forced trigger makes the next call
// forced, whatever the triggers after it asked for.
type Debouncer struct {
	clock Clock
	delay time.Duration
	fire  func(force bool)

	mu           sync.Mutex
	timer        Timer
	generation   uint64
	pendingForce bool
	stopped      bool
}

func NewDebouncer(clock Clock, delay time.Duration, fire func(force bool)) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{clock: clock, delay: delay, fire: fire}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger(force bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if force {
		d.pendingForce = true
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = d.clock.AfterFunc(d.delay, func() { d.expire(gen) })
}

// expire runs fire unless the timer was superseded while its callback was
// already on its way.
func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.generation {
		d.mu.Unlock()
		return
	}
	force := d.pendingForce
	d.pendingForce = false
	d.timer = nil
	d.mu.Unlock()

	d.fire(force)
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// PendingForce reports whether the scheduled call will be forced.
func (d *Debouncer) PendingForce() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil && d.pendingForce
}

// Stop cancels the scheduled call; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pendingForce = false
}
