// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package logparse turns raw Runtime.consoleAPICalled payloads into
// normalized log records. Everything here is a pure transform: no I/O, no
// state, and no panics regardless of how malformed the payload is.
package logparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
)

// LevelForType maps a console event type to one of the four levels the
// parser emits. Unknown types degrade to info rather than erroring.
func LevelForType(consoleType string) string {
	switch consoleType {
	case cdptypes.ConsoleTypeError, cdptypes.ConsoleTypeAssert:
		return "error"
	case cdptypes.ConsoleTypeWarning:
		return "warn"
	case cdptypes.ConsoleTypeInfo:
		return "info"
	case cdptypes.ConsoleTypeDebug, cdptypes.ConsoleTypeTrace, cdptypes.ConsoleTypeVerbose:
		return "debug"
	default:
		return "info"
	}
}

// FormatArg stringifies a single remote-value descriptor.
func FormatArg(arg cdptypes.RemoteObject) string {
	if arg.Type == "undefined" {
		return "undefined"
	}
	if arg.Subtype == "null" {
		return "null"
	}
	if len(arg.Value) > 0 {
		return formatValue(arg.Value)
	}
	if arg.Description != "" {
		return arg.Description
	}
	if arg.Subtype != "" {
		return "[" + arg.Subtype + "]"
	}
	return "[" + arg.Type + "]"
}

func formatValue(raw json.RawMessage) string {
	// Strings arrive JSON-quoted; everything else keeps its JSON form
	// (numbers, booleans) which matches how the console printed it.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// FormatArgs joins the ordered argument list with single spaces. An empty
// list yields an empty message.
func FormatArgs(args []cdptypes.RemoteObject) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, FormatArg(arg))
	}
	return strings.Join(parts, " ")
}

// FormatStackTrace renders one line per frame:
//
//	at <functionName> (<url>:<line>:<col>)
//
// with "<anonymous>" standing in for frames without a function name.
func FormatStackTrace(st *cdptypes.StackTrace) string {
	if st == nil || len(st.CallFrames) == 0 {
		return ""
	}
	lines := make([]string, 0, len(st.CallFrames))
	for _, frame := range st.CallFrames {
		fn := frame.FunctionName
		if fn == "" {
			fn = "<anonymous>"
		}
		lines = append(lines, fmt.Sprintf("at %s (%s:%d:%d)", fn, frame.URL, frame.LineNumber, frame.ColumnNumber))
	}
	return strings.Join(lines, "\n")
}

// ParseConsoleEvent produces the immutable record the rest of the engine
// consumes. Identical input always yields an identical record.
func ParseConsoleEvent(source cdptypes.LogSource, ev cdptypes.ConsoleAPICalledEvent) cdptypes.LogRecord {
	return cdptypes.LogRecord{
		Level:      LevelForType(ev.Type),
		Message:    FormatArgs(ev.Args),
		Source:     source,
		Ts:         int64(ev.Timestamp),
		StackTrace: FormatStackTrace(ev.StackTrace),
	}
}
