package store

import (
	"errors"
	"sync"
)

// Runner runs functions that touch a store, one at a time.
type Runner interface {
	Run(fn func())
}

// Loop serializes every access to one store and the components subscribed
// to it. It plays the role of a UI thread for a session. Never block on I/O
// inside Run.
type Loop struct {
	mu sync.Mutex
}

// Run calls fn while holding the loop.
func (l *Loop) Run(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// ErrorMessage returns the user-facing detail carried by err, or fallback
// when err has none.
func ErrorMessage(err error, fallback string) string {
	var detailed interface{ Detail() string }
	if errors.As(err, &detailed) {
		if d := detailed.Detail(); d != "" {
			return d
		}
	}
	return fallback
}
