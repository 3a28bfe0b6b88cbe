// Package metrics holds the backend-neutral metric types shared by the actor
// engine, the shuttle transport and their metrics adapters.
package metrics

import "time"

// Timer measures one operation. ObserveDuration records the time elapsed
// since the timer was started and must be called once.
type Timer interface {
	ObserveDuration()
}

// TimerFunc adapts a function to Timer.
type TimerFunc func()

func (f TimerFunc) ObserveDuration() { f() }

// StartTimer returns a Timer that hands the elapsed duration to observe.
func StartTimer(observe func(time.Duration)) Timer {
	start := time.Now()
	return TimerFunc(func() { observe(time.Since(start)) })
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

// NopTimer returns a Timer that records nothing.
func NopTimer() Timer { return nopTimer{} }
