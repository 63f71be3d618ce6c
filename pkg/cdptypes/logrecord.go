// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package cdptypes

// LogRecord is the normalized, immutable output of the event parser. Nothing
// downstream of the parser ever touches a raw protocol payload.
type LogRecord struct {
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Source     LogSource `json:"source"`
	Ts         int64     `json:"ts"` // ms since epoch
	StackTrace string    `json:"stacktrace,omitempty"`
}
