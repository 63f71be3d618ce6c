// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package cdpcapture

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/webdriverio/cdpcapture/pkg/cdpconn"
	"github.com/webdriverio/cdpcapture/pkg/cdptest"
	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
	"github.com/webdriverio/cdpcapture/pkg/config"
)

func TestEngineEndToEndFileSink(t *testing.T) {
	ctx := cdptypes.ExecutionContextDescription{ID: 1, Origin: "app://local", Name: "main"}
	ctx.AuxData.IsDefault = true
	fb := &cdptest.FakeBrowser{
		Contexts: []cdptypes.ExecutionContextDescription{ctx},
		Targets:  []cdptypes.TargetInfo{{TargetID: "t1", Type: "page"}},
	}
	fb.Start()
	defer fb.Stop()

	dir := t.TempDir()
	opts := config.DefaultCaptureOptions()
	opts.OutputDir = dir

	engine, err := Start(EngineConfig{
		WSURL: fb.URL(),
		ConnOptions: cdpconn.ConnOptions{
			CommandTimeout: 2 * time.Second,
			ContextTimeout: 300 * time.Millisecond,
			DialRetries:    2,
			DialRetryDelay: 10 * time.Millisecond,
		},
		Options:       opts,
		InstanceLabel: "e2e",
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForSession := time.Now().Add(2 * time.Second)
	for fb.SessionCount() < 1 && time.Now().Before(waitForSession) {
		time.Sleep(10 * time.Millisecond)
	}

	raw, _ := json.Marshal("hello from main")
	fb.EmitConsole("", cdptypes.ConsoleAPICalledEvent{
		Type:               "info",
		Args:               []cdptypes.RemoteObject{{Type: "string", Value: raw}},
		ExecutionContextID: 1,
	})

	deadline := time.Now().Add(2 * time.Second)
	for engine.Manager().LinesForwarded() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	engine.Stop()

	logPath := engine.LogPath()
	if logPath == "" {
		t.Fatal("engine with an output dir should report a log path")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("cannot read log file: %v", err)
	}
	if !strings.Contains(string(data), "[Tauri:MainProcess:e2e] hello from main") {
		t.Errorf("log file missing labeled line: %q", string(data))
	}

	// engine stop is idempotent
	engine.Stop()
}
