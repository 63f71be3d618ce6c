// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package logsink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteBeforeInitFallsBack(t *testing.T) {
	var buf bytes.Buffer
	sink := MakeSinkWithFallback(&buf)

	if sink.HasPath() {
		t.Error("uninitialized sink should not report a path")
	}
	sink.Write("early message")

	if got := buf.String(); got != "early message\n" {
		t.Errorf("expected fallback write, got %q", got)
	}
}

func TestInitThenWrite(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	sink := MakeSinkWithFallback(&buf)

	sink.Write("before")
	if err := sink.Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !sink.HasPath() {
		t.Error("initialized sink should report a path")
	}
	sink.Write("after")
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// the pre-init write went to the fallback, not the file
	if got := buf.String(); got != "before\n" {
		t.Errorf("expected fallback to hold pre-init write, got %q", got)
	}

	data, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("cannot read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "after") {
		t.Errorf("log file missing post-init write: %q", content)
	}
	if !strings.Contains(content, "INFO wdio-tauri-service:") {
		t.Errorf("log line missing level/scope label: %q", content)
	}
	if strings.Contains(content, "before") {
		t.Errorf("pre-init write leaked into the file: %q", content)
	}
}

func TestLogFileName(t *testing.T) {
	dir := t.TempDir()
	sink := MakeSink()
	if err := sink.Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer sink.Close()

	name := filepath.Base(sink.Path())
	if !strings.HasPrefix(name, "wdio-") || !strings.HasSuffix(name, ".log") {
		t.Errorf("unexpected log file name %q", name)
	}
	if strings.Contains(name, ":") {
		t.Errorf("log file name should not contain colons: %q", name)
	}
}

func TestInitTwiceIsNoop(t *testing.T) {
	dir := t.TempDir()
	sink := MakeSink()
	if err := sink.Init(dir); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	path := sink.Path()
	sink.Write("one")
	if err := sink.Init(dir); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if sink.Path() != path {
		t.Errorf("second Init changed the path: %q vs %q", path, sink.Path())
	}
	sink.Write("two")
	sink.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "one") || !strings.Contains(string(data), "two") {
		t.Errorf("writes across double-Init were lost: %q", string(data))
	}
}

func TestTwoSinksNeverShareAFile(t *testing.T) {
	dir := t.TempDir()
	a := MakeSink()
	b := MakeSink()
	if err := a.Init(dir); err != nil {
		t.Fatalf("Init a: %v", err)
	}
	if err := b.Init(dir); err != nil {
		t.Fatalf("Init b: %v", err)
	}
	defer a.Close()
	defer b.Close()

	if a.Path() == b.Path() {
		t.Errorf("two sinks claimed the same file %q", a.Path())
	}
}

func TestCloseIdempotent(t *testing.T) {
	sink := MakeSink()
	if err := sink.Close(); err != nil {
		t.Errorf("Close on uninitialized sink should be a no-op, got %v", err)
	}

	dir := t.TempDir()
	if err := sink.Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if sink.HasPath() {
		t.Error("closed sink should not report a path")
	}
}
