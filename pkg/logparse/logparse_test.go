// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package logparse

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
)

func strArg(s string) cdptypes.RemoteObject {
	raw, _ := json.Marshal(s)
	return cdptypes.RemoteObject{Type: "string", Value: raw}
}

func TestLevelForType(t *testing.T) {
	cases := []struct {
		consoleType string
		want        string
	}{
		{"error", "error"},
		{"assert", "error"},
		{"warning", "warn"},
		{"info", "info"},
		{"log", "info"},
		{"debug", "debug"},
		{"trace", "debug"},
		{"verbose", "debug"},
		{"table", "info"},
		{"someFutureType", "info"},
		{"", "info"},
	}
	for _, c := range cases {
		if got := LevelForType(c.consoleType); got != c.want {
			t.Errorf("LevelForType(%q) = %q, want %q", c.consoleType, got, c.want)
		}
	}
}

func TestParseErrorEvent(t *testing.T) {
	ev := cdptypes.ConsoleAPICalledEvent{
		Type: "error",
		Args: []cdptypes.RemoteObject{strArg("boom")},
	}
	rec := ParseConsoleEvent(cdptypes.SourceMain, ev)
	if rec.Level != "error" {
		t.Errorf("expected level error, got %q", rec.Level)
	}
	if rec.Message != "boom" {
		t.Errorf("expected message %q, got %q", "boom", rec.Message)
	}
	if rec.Source != cdptypes.SourceMain {
		t.Errorf("expected source main, got %q", rec.Source)
	}
}

func TestParseMixedPrimitiveArgs(t *testing.T) {
	ev := cdptypes.ConsoleAPICalledEvent{
		Type: "log",
		Args: []cdptypes.RemoteObject{
			strArg("a"),
			{Type: "number", Value: json.RawMessage("1")},
			{Type: "boolean", Value: json.RawMessage("true")},
		},
	}
	rec := ParseConsoleEvent(cdptypes.SourceRenderer, ev)
	if rec.Message != "a 1 true" {
		t.Errorf("expected %q, got %q", "a 1 true", rec.Message)
	}
}

func TestFormatArgSpecialValues(t *testing.T) {
	cases := []struct {
		name string
		arg  cdptypes.RemoteObject
		want string
	}{
		{"undefined", cdptypes.RemoteObject{Type: "undefined"}, "undefined"},
		{"null", cdptypes.RemoteObject{Type: "object", Subtype: "null"}, "null"},
		{"object with description", cdptypes.RemoteObject{Type: "object", Description: "Object"}, "Object"},
		{"object with subtype only", cdptypes.RemoteObject{Type: "object", Subtype: "array"}, "[array]"},
		{"bare function", cdptypes.RemoteObject{Type: "function"}, "[function]"},
		{"float", cdptypes.RemoteObject{Type: "number", Value: json.RawMessage("1.5")}, "1.5"},
	}
	for _, c := range cases {
		if got := FormatArg(c.arg); got != c.want {
			t.Errorf("%s: FormatArg = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestFormatArgsEmpty(t *testing.T) {
	if got := FormatArgs(nil); got != "" {
		t.Errorf("empty args should produce empty message, got %q", got)
	}
}

func TestFormatStackTrace(t *testing.T) {
	st := &cdptypes.StackTrace{
		CallFrames: []cdptypes.CallFrame{
			{FunctionName: "doWork", URL: "app://main.js", LineNumber: 10, ColumnNumber: 4},
			{FunctionName: "", URL: "app://main.js", LineNumber: 20, ColumnNumber: 1},
		},
	}
	want := "at doWork (app://main.js:10:4)\nat <anonymous> (app://main.js:20:1)"
	if got := FormatStackTrace(st); got != want {
		t.Errorf("FormatStackTrace = %q, want %q", got, want)
	}

	if got := FormatStackTrace(nil); got != "" {
		t.Errorf("nil stack trace should format to empty string, got %q", got)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	ev := cdptypes.ConsoleAPICalledEvent{
		Type:      "warning",
		Args:      []cdptypes.RemoteObject{strArg("x"), {Type: "object", Subtype: "array", Description: "Array(3)"}},
		Timestamp: 1699999999123.0,
		StackTrace: &cdptypes.StackTrace{
			CallFrames: []cdptypes.CallFrame{{FunctionName: "f", URL: "u", LineNumber: 1, ColumnNumber: 2}},
		},
	}
	first := ParseConsoleEvent(cdptypes.SourceMain, ev)
	for i := 0; i < 5; i++ {
		if again := ParseConsoleEvent(cdptypes.SourceMain, ev); !reflect.DeepEqual(first, again) {
			t.Fatalf("repeated parse diverged: %+v vs %+v", first, again)
		}
	}
	if first.Ts != 1699999999123 {
		t.Errorf("expected ms timestamp carried through, got %d", first.Ts)
	}
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	events := []cdptypes.ConsoleAPICalledEvent{
		{},
		{Type: "banana"},
		{Type: "log", Args: []cdptypes.RemoteObject{{Value: json.RawMessage("{not json")}}},
		{Type: "error", StackTrace: &cdptypes.StackTrace{}},
	}
	for i, ev := range events {
		rec := ParseConsoleEvent(cdptypes.SourceMain, ev)
		if rec.Level == "" {
			t.Errorf("event %d: parser produced empty level", i)
		}
	}
}
