// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package base

import "time"

// Environment variables
const ConfigJsonEnvName = "CDPCAPTURE_CONFIG_JSON"
const LogDirEnvName = "CDPCAPTURE_LOGDIR"
const InstanceLabelEnvName = "CDPCAPTURE_INSTANCE"

const CDPCaptureVersion = "v0.1.0"

// DefaultCommandTimeout bounds every protocol command round-trip.
const DefaultCommandTimeout = 10 * time.Second

// DefaultContextTimeout bounds the wait for a default-marked execution
// context before falling back to the first one observed.
const DefaultContextTimeout = 10 * time.Second

// DefaultDialRetries / DefaultDialRetryDelay cover the window where the
// debuggee's DevTools endpoint is not up yet while the app is still booting.
const DefaultDialRetries = 10
const DefaultDialRetryDelay = 250 * time.Millisecond

// MinBrowserVersion is the oldest runtime whose target-discovery behavior we
// rely on for secondary (renderer) capture.
const MinBrowserVersion = "v58.0.0"

// LogFilePrefix is the prefix of the timestamped capture log file name.
const LogFilePrefix = "wdio-"
