// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package logsink is the standalone append-only writer used when no host
// logger is available. Until Init is called, writes fall through to stdout
// so no message is ever dropped.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alexflint/go-filemutex"
	"github.com/webdriverio/cdpcapture/pkg/base"
)

type sinkState int

const (
	stateUninitialized sinkState = iota
	stateOpen
	stateClosed
)

// timestamp layout for both file names and line prefixes
const tsLayout = "2006-01-02T15:04:05.000Z"

// Sink is a lazily-initialized append-mode log file with a stdout fallback.
// One shared instance per process is wired at the outermost layer; the
// forwarder receives the handle explicitly.
type Sink struct {
	lock     sync.Mutex
	state    sinkState
	file     *os.File
	path     string
	fallback io.Writer // stdout unless overridden in tests
}

func MakeSink() *Sink {
	return &Sink{
		fallback: os.Stdout,
	}
}

// MakeSinkWithFallback is used by tests to observe pre-init writes.
func MakeSinkWithFallback(fallback io.Writer) *Sink {
	return &Sink{
		fallback: fallback,
	}
}

// Init creates dir if needed, derives a timestamped file name, and opens it
// in append mode. Creation is serialized across processes with a lock file
// so parallel instances never claim the same file. Intended to be called at
// most once per run; a second call on an open sink is a no-op.
func (s *Sink) Init(dir string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state == stateOpen {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}

	fm, err := filemutex.New(filepath.Join(dir, ".wdio-capture.lock"))
	if err == nil {
		if lockErr := fm.Lock(); lockErr == nil {
			defer fm.Unlock()
		}
	}

	path, file, err := createLogFile(dir)
	if err != nil {
		return err
	}
	s.file = file
	s.path = path
	s.state = stateOpen
	return nil
}

func createLogFile(dir string) (string, *os.File, error) {
	ts := strings.ReplaceAll(time.Now().UTC().Format(tsLayout), ":", "-")
	// O_EXCL plus a numeric suffix handles two instances landing on the
	// same millisecond even if the directory lock could not be taken.
	for i := 0; i < 10; i++ {
		name := base.LogFilePrefix + ts
		if i > 0 {
			name = fmt.Sprintf("%s-%d", name, i)
		}
		path := filepath.Join(dir, name+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			return path, file, nil
		}
		if !os.IsExist(err) {
			return "", nil, fmt.Errorf("cannot open log file %s: %w", path, err)
		}
	}
	return "", nil, fmt.Errorf("cannot derive unique log file name in %s", dir)
}

// Write appends one line. Before Init (or after Close) the line goes to
// stdout instead of being dropped.
func (s *Sink) Write(message string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != stateOpen {
		fmt.Fprintln(s.fallback, message)
		return
	}
	ts := time.Now().UTC().Format(tsLayout)
	fmt.Fprintf(s.file, "%s INFO wdio-tauri-service: %s\n", ts, message)
}

// Close flushes and ends the stream. Safe to call repeatedly or on a sink
// that was never initialized.
func (s *Sink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != stateOpen {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.state = stateClosed
	return err
}

// HasPath reports whether the sink currently owns an open log file.
func (s *Sink) HasPath() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state == stateOpen
}

// Path returns the log file path, empty until Init succeeds.
func (s *Sink) Path() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.path
}
