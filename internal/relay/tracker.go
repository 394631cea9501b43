package relay

import "sync"

// Tracker counts in-flight background saves so shutdown can wait for
// them instead of dropping completed exchanges.
type Tracker struct {
	wg sync.WaitGroup
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Go runs fn on a new goroutine tracked until it returns.
func (t *Tracker) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until every tracked goroutine has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
