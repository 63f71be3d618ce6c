// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/webdriverio/cdpcapture/pkg/base"
	"github.com/webdriverio/cdpcapture/pkg/logroute"
)

// CaptureOptions is supplied once when capture starts and is immutable for
// that capture's lifetime.
type CaptureOptions struct {
	// MainEnabled turns on primary-context (main process) log capture.
	MainEnabled bool `json:"mainenabled"`

	// RendererEnabled turns on secondary-target (renderer window) capture.
	RendererEnabled bool `json:"rendererenabled"`

	// Minimum forwarded level per source.
	MainMinLevel     string `json:"mainminlevel"`
	RendererMinLevel string `json:"rendererminlevel"`

	// OutputDir, when set, routes output into a timestamped file there
	// instead of the host logger.
	OutputDir string `json:"outputdir,omitempty"`
}

// DefaultCaptureOptions captures both sources at info and above, with no
// file output.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		MainEnabled:      true,
		RendererEnabled:  true,
		MainMinLevel:     logroute.LevelInfo,
		RendererMinLevel: logroute.LevelInfo,
	}
}

// LoadCaptureOptions layers environment overrides over the defaults:
// CDPCAPTURE_CONFIG_JSON replaces the whole option set, CDPCAPTURE_LOGDIR
// overrides just the output directory.
func LoadCaptureOptions() (CaptureOptions, error) {
	opts := DefaultCaptureOptions()

	if configJson := os.Getenv(base.ConfigJsonEnvName); configJson != "" {
		if err := json.Unmarshal([]byte(configJson), &opts); err != nil {
			return opts, fmt.Errorf("cannot parse %s: %w", base.ConfigJsonEnvName, err)
		}
	}
	if logDir := os.Getenv(base.LogDirEnvName); logDir != "" {
		opts.OutputDir = logDir
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Validate rejects unknown level names before they silently rank as info.
func (opts CaptureOptions) Validate() error {
	if !logroute.IsValidLevel(opts.MainMinLevel) {
		return fmt.Errorf("invalid main min level %q", opts.MainMinLevel)
	}
	if !logroute.IsValidLevel(opts.RendererMinLevel) {
		return fmt.Errorf("invalid renderer min level %q", opts.RendererMinLevel)
	}
	return nil
}
