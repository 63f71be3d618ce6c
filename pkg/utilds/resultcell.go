// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package utilds

import (
	"errors"
	"sync"
	"time"
)

var ErrResultTimeout = errors.New("timed out waiting for result")

// ResultCell is a single-assignment result holder. Exactly one of several
// racing writers (a protocol event vs. a fallback timer) wins; later writes
// are rejected. Readers block on Wait until the cell settles.
type ResultCell[T any] struct {
	once   sync.Once
	doneCh chan struct{}

	// written once, before doneCh closes
	val T
	err error
}

func MakeResultCell[T any]() *ResultCell[T] {
	return &ResultCell[T]{
		doneCh: make(chan struct{}),
	}
}

// SetOnce settles the cell with a value or an error. Returns true if this
// call won the race, false if the cell was already settled.
func (rc *ResultCell[T]) SetOnce(val T, err error) bool {
	won := false
	rc.once.Do(func() {
		rc.val = val
		rc.err = err
		close(rc.doneCh)
		won = true
	})
	return won
}

// IsSet reports whether the cell has settled, without blocking.
func (rc *ResultCell[T]) IsSet() bool {
	select {
	case <-rc.doneCh:
		return true
	default:
		return false
	}
}

// Get returns the settled value. Only valid after the cell has settled.
func (rc *ResultCell[T]) Get() (T, error) {
	<-rc.doneCh
	return rc.val, rc.err
}

// Wait blocks until the cell settles or the timeout elapses. A timeout does
// not settle the cell; the caller decides what to do with it.
func (rc *ResultCell[T]) Wait(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-rc.doneCh:
		return rc.val, rc.err
	case <-timer.C:
		var zero T
		return zero, ErrResultTimeout
	}
}
