package sequencer

import (
	"sync"
	"time"
)

// Timer is a cancellable repeating clock
type Timer interface {
	Stop()
}

// Scheduler starts repeating clocks. fn runs once per interval until the timer is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// TickerScheduler runs each clock on its own goroutine driven by a time.Ticker
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Timer {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := &tickerTimer{stopChan: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stopChan:
				return
			case <-ticker.C:
				// a stop may race the ticker; prefer the stop
				select {
				case <-t.stopChan:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

type tickerTimer struct {
	stopChan chan struct{}
	once     sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stopChan) })
}
