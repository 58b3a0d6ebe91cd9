package interval

import "time"

// Ticker drives the countdown. It mirrors the parts of time.Ticker the
// controller needs so tests can tick by hand.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	t := time.NewTicker(d)
	// idle until the first run starts
	t.Stop()
	return &timeTicker{ticker: t}
}

func (t *timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *timeTicker) Reset(d time.Duration) {
	t.ticker.Reset(d)
}

func (t *timeTicker) Stop() {
	t.ticker.Stop()
}
