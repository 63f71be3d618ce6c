// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package logroute applies per-source level filtering and routes labeled log
// lines either into the process-wide file sink or into a host logger.
package logroute

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
	"github.com/webdriverio/cdpcapture/pkg/logsink"
)

// SystemName is the fixed first segment of every output label.
const SystemName = "Tauri"

// Levels in priority order, trace lowest.
const (
	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levelPriority = map[string]int{
	LevelTrace: 0,
	LevelDebug: 1,
	LevelInfo:  2,
	LevelWarn:  3,
	LevelError: 4,
}

// Priority returns the integer rank of a level. Unknown levels rank as info
// so a malformed record is neither silently hidden nor over-promoted.
func Priority(level string) int {
	if p, ok := levelPriority[level]; ok {
		return p
	}
	return levelPriority[LevelInfo]
}

// IsValidLevel reports whether level is one of the five known names.
func IsValidLevel(level string) bool {
	_, ok := levelPriority[level]
	return ok
}

// ShouldLog reports whether a record at level passes a minimum-level filter.
func ShouldLog(level string, minLevel string) bool {
	return Priority(level) >= Priority(minLevel)
}

// SourceDisplayName maps a log source to the label segment users see.
func SourceDisplayName(source cdptypes.LogSource) string {
	switch source {
	case cdptypes.SourceMain:
		return "MainProcess"
	case cdptypes.SourceRenderer:
		return "Renderer"
	default:
		return string(source)
	}
}

// Forwarder routes filtered records. The destination is chosen on every
// call: an initialized sink always wins over the host logger, so a sink
// initialized mid-run redirects subsequent output immediately.
type Forwarder struct {
	Sink   *logsink.Sink
	Logger *logrus.Logger
}

func MakeForwarder(sink *logsink.Sink, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		Sink:   sink,
		Logger: logger,
	}
}

// Label composes "[<System>:<SourceDisplayName>(:<instanceLabel>)]".
func Label(source cdptypes.LogSource, instanceLabel string) string {
	if instanceLabel != "" {
		return fmt.Sprintf("[%s:%s:%s]", SystemName, SourceDisplayName(source), instanceLabel)
	}
	return fmt.Sprintf("[%s:%s]", SystemName, SourceDisplayName(source))
}

// Forward is a no-op when the record does not pass minLevel. Writes never
// block on protocol dispatch; the sink's stream buffers internally.
func (f *Forwarder) Forward(source cdptypes.LogSource, level string, message string, minLevel string, instanceLabel string) {
	if !ShouldLog(level, minLevel) {
		return
	}
	line := Label(source, instanceLabel) + " " + message

	if f.Sink != nil && f.Sink.HasPath() {
		f.Sink.Write(line)
		return
	}
	if f.Logger != nil {
		switch level {
		case LevelError:
			f.Logger.Error(line)
		case LevelWarn:
			f.Logger.Warn(line)
		case LevelInfo:
			f.Logger.Info(line)
		default:
			// trace and debug share the debug method
			f.Logger.Debug(line)
		}
		return
	}
	if f.Sink != nil {
		// uninitialized sink degrades to stdout rather than dropping
		f.Sink.Write(line)
	}
}

// ForwardRecord routes an already-parsed record.
func (f *Forwarder) ForwardRecord(rec cdptypes.LogRecord, minLevel string, instanceLabel string) {
	f.Forward(rec.Source, rec.Level, rec.Message, minLevel, instanceLabel)
}
