// Package lock serializes work on a single location across goroutines or processes.
package lock

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Locker hands out exclusive ownership of a named key until unlock is called.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// key normalizes a location name so "Karachi" and " karachi" share a lock.
func key(name string) string {
	return "weather:lock:" + strings.ToLower(strings.TrimSpace(name))
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

// NewLocal constructs an empty Local locker.
func NewLocal() *Local {
	return &Local{keys: make(map[string]chan struct{})}
}

// Lock blocks until the key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, name string) (func(), error) {
	k := key(name)

	l.mu.Lock()
	sem, ok := l.keys[k]
	if !ok {
		sem = make(chan struct{}, 1)
		l.keys[k] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for lock %s: %w", k, ctx.Err())
	}
}
