package calculator

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Debouncer runs only the latest of a burst of scheduled calls. A call
// scheduled while another is pending replaces it.
type Debouncer struct {
	delay time.Duration

	// run is held while a call executes, so Flush and Stop wait for a
	// call the timer already started. Lock order is run then mu.
	run sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	seq     uint64
}

// NewDebouncer creates a debouncer with a quiet window
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending call with fn and restarts the window
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// fire runs the pending call if no newer call replaced it meanwhile
func (d *Debouncer) fire(seq uint64) {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	if seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Flush runs the pending call now. It reports whether there was one. A call
// already started by the timer finishes before Flush returns.
func (d *Debouncer) Flush() bool {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	fn := d.take()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Stop discards the pending call and waits for a running one
func (d *Debouncer) Stop() {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	d.take()
	d.mu.Unlock()
}

// Pending reports whether a call is waiting
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// take removes the pending call. Callers hold mu.
func (d *Debouncer) take() func() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	fn := d.pending
	d.pending = nil
	return fn
}

// AutoCalculator recalculates a calculator shortly after its inputs stop
// changing
type AutoCalculator struct {
	calc      *Calculator
	debouncer *Debouncer

	mu sync.Mutex
}

// NewAutoCalculator wires a calculator to a debounce window
func NewAutoCalculator(calc *Calculator, delay time.Duration) *AutoCalculator {
	return &AutoCalculator{
		calc:      calc,
		debouncer: NewDebouncer(delay),
	}
}

// SetInput sets an input and schedules a recalculation
func (a *AutoCalculator) SetInput(key string, value any) {
	a.mu.Lock()
	a.calc.SetInput(key, value)
	a.mu.Unlock()

	a.debouncer.Schedule(a.recalculate)
}

func (a *AutoCalculator) recalculate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calc.HasInputs() {
		a.calc.Calculate()
	}
}

// Flush runs a pending recalculation immediately. On return no
// recalculation is in flight.
func (a *AutoCalculator) Flush() bool {
	return a.debouncer.Flush()
}

// Stop discards a pending recalculation
func (a *AutoCalculator) Stop() {
	a.debouncer.Stop()
}

// Result returns the last computed result
func (a *AutoCalculator) Result() (decimal.Decimal, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calc.Result()
}

// Err returns the error of the last recalculation
func (a *AutoCalculator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calc.Err()
}

// Calculate recalculates now, discarding any pending run
func (a *AutoCalculator) Calculate() (decimal.Decimal, bool) {
	a.debouncer.Stop()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calc.Calculate()
	return a.calc.Result()
}

// Calculator returns the wrapped calculator. Callers must not use it while
// a recalculation may be pending; Flush or Stop first.
func (a *AutoCalculator) Calculator() *Calculator {
	return a.calc
}
