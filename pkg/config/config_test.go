// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package config

import (
	"testing"

	"github.com/webdriverio/cdpcapture/pkg/base"
)

func TestDefaultCaptureOptions(t *testing.T) {
	opts := DefaultCaptureOptions()
	if !opts.MainEnabled || !opts.RendererEnabled {
		t.Error("both sources should be enabled by default")
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadCaptureOptionsFromEnv(t *testing.T) {
	t.Setenv(base.ConfigJsonEnvName, `{"mainenabled":true,"rendererenabled":false,"mainminlevel":"warn","rendererminlevel":"error"}`)
	t.Setenv(base.LogDirEnvName, "/tmp/wdio-logs")

	opts, err := LoadCaptureOptions()
	if err != nil {
		t.Fatalf("LoadCaptureOptions failed: %v", err)
	}
	if opts.RendererEnabled {
		t.Error("renderer capture should be disabled by the JSON override")
	}
	if opts.MainMinLevel != "warn" {
		t.Errorf("expected main min level warn, got %q", opts.MainMinLevel)
	}
	if opts.OutputDir != "/tmp/wdio-logs" {
		t.Errorf("log dir env should override output dir, got %q", opts.OutputDir)
	}
}

func TestLoadCaptureOptionsRejectsBadLevel(t *testing.T) {
	t.Setenv(base.ConfigJsonEnvName, `{"mainenabled":true,"rendererenabled":true,"mainminlevel":"loud","rendererminlevel":"info"}`)

	if _, err := LoadCaptureOptions(); err == nil {
		t.Error("unknown level name should be rejected")
	}
}

func TestLoadCaptureOptionsBadJson(t *testing.T) {
	t.Setenv(base.ConfigJsonEnvName, `{not json`)

	if _, err := LoadCaptureOptions(); err == nil {
		t.Error("malformed JSON should be rejected")
	}
}
