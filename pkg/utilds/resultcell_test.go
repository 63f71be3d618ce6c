// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package utilds

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestResultCellSetOnce(t *testing.T) {
	rc := MakeResultCell[int]()

	if rc.IsSet() {
		t.Error("new cell should not be set")
	}

	if !rc.SetOnce(42, nil) {
		t.Error("first SetOnce should win")
	}
	if rc.SetOnce(99, nil) {
		t.Error("second SetOnce should lose")
	}
	if !rc.IsSet() {
		t.Error("cell should be set after SetOnce")
	}

	val, err := rc.Get()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Errorf("expected 42, got %d (late write must not overwrite)", val)
	}
}

func TestResultCellError(t *testing.T) {
	rc := MakeResultCell[string]()
	wantErr := errors.New("boom")
	rc.SetOnce("", wantErr)

	_, err := rc.Get()
	if !errors.Is(err, wantErr) {
		t.Errorf("expected settled error, got %v", err)
	}
}

func TestResultCellWaitTimeout(t *testing.T) {
	rc := MakeResultCell[int]()

	start := time.Now()
	_, err := rc.Wait(20 * time.Millisecond)
	if !errors.Is(err, ErrResultTimeout) {
		t.Errorf("expected ErrResultTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned before timeout elapsed (%v)", elapsed)
	}

	// A timed-out Wait must not settle the cell
	if rc.IsSet() {
		t.Error("Wait timeout should not settle the cell")
	}
	if !rc.SetOnce(7, nil) {
		t.Error("SetOnce after Wait timeout should still win")
	}
}

func TestResultCellConcurrentWriters(t *testing.T) {
	rc := MakeResultCell[int]()

	const writers = 16
	var winners int
	var winnersLock sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if rc.SetOnce(n, nil) {
				winnersLock.Lock()
				winners++
				winnersLock.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}

	val, err := rc.Wait(time.Second)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if val < 0 || val >= writers {
		t.Errorf("settled value %d out of range", val)
	}
}
