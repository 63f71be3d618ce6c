// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package cdptypes

import "encoding/json"

// DevTools protocol methods this engine issues or listens for
const (
	MethodRuntimeEnable      = "Runtime.enable"
	MethodRuntimeDisable     = "Runtime.disable"
	MethodRuntimeEvaluate    = "Runtime.evaluate"
	MethodContextCreated     = "Runtime.executionContextCreated"
	MethodConsoleAPICalled   = "Runtime.consoleAPICalled"
	MethodSetDiscoverTargets = "Target.setDiscoverTargets"
	MethodGetTargets         = "Target.getTargets"
	MethodAttachToTarget     = "Target.attachToTarget"
	MethodDetachFromTarget   = "Target.detachFromTarget"
	MethodTargetCreated      = "Target.targetCreated"
	MethodBrowserGetVersion  = "Browser.getVersion"
)

// Console event type values (Runtime.consoleAPICalled "type" field)
const (
	ConsoleTypeLog     = "log"
	ConsoleTypeDebug   = "debug"
	ConsoleTypeInfo    = "info"
	ConsoleTypeError   = "error"
	ConsoleTypeWarning = "warning"
	ConsoleTypeTrace   = "trace"
	ConsoleTypeAssert  = "assert"
	ConsoleTypeVerbose = "verbose"
)

// Target types we care about
const (
	TargetTypePage = "page"
)

// LogSource identifies which side of the application a log record came from.
type LogSource string

const (
	SourceMain     LogSource = "main"
	SourceRenderer LogSource = "renderer"
)

// Message is the wire envelope for both commands and events. Commands carry
// ID/Method/Params, responses carry ID/Result/Error, events carry
// Method/Params. SessionID scopes a message to an attached target when the
// protocol is multiplexed over one socket.
type Message struct {
	ID        int64           `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the protocol-level error attached to a command response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RemoteObject is the tagged union the protocol uses to describe a value
// passed to a console call. Only the fields the parser consumes are modeled.
type RemoteObject struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
	ObjectID    string          `json:"objectId,omitempty"`
}

// CallFrame is a single stack frame attached to a console event.
type CallFrame struct {
	FunctionName string `json:"functionName"`
	ScriptID     string `json:"scriptId"`
	URL          string `json:"url"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

// StackTrace is an ordered list of call frames, optionally chained to the
// async parent that scheduled it.
type StackTrace struct {
	Description string      `json:"description,omitempty"`
	CallFrames  []CallFrame `json:"callFrames"`
	Parent      *StackTrace `json:"parent,omitempty"`
}

// ConsoleAPICalledEvent is the payload of Runtime.consoleAPICalled.
type ConsoleAPICalledEvent struct {
	Type               string         `json:"type"`
	Args               []RemoteObject `json:"args"`
	ExecutionContextID int64          `json:"executionContextId"`
	Timestamp          float64        `json:"timestamp"` // ms since epoch
	StackTrace         *StackTrace    `json:"stackTrace,omitempty"`
}

// ExecutionContextDescription is the payload of
// Runtime.executionContextCreated. AuxData.IsDefault marks the context the
// page considers its primary one.
type ExecutionContextDescription struct {
	ID      int64  `json:"id"`
	Origin  string `json:"origin"`
	Name    string `json:"name"`
	AuxData struct {
		IsDefault bool   `json:"isDefault"`
		Type      string `json:"type,omitempty"`
		FrameID   string `json:"frameId,omitempty"`
	} `json:"auxData"`
}

// ContextCreatedEvent wraps the context description the way the event
// delivers it.
type ContextCreatedEvent struct {
	Context ExecutionContextDescription `json:"context"`
}

// TargetInfo describes one attachable target (window/page).
type TargetInfo struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Attached bool   `json:"attached"`
}

// TargetCreatedEvent is the payload of Target.targetCreated.
type TargetCreatedEvent struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

// GetTargetsResult is the response payload of Target.getTargets.
type GetTargetsResult struct {
	TargetInfos []TargetInfo `json:"targetInfos"`
}

// AttachToTargetParams requests a multiplexed session for one target.
// Flatten is always true in this engine; non-flattened sessions are legacy.
type AttachToTargetParams struct {
	TargetID string `json:"targetId"`
	Flatten  bool   `json:"flatten"`
}

// AttachToTargetResult carries the session id scoping further commands and
// events to the attached target.
type AttachToTargetResult struct {
	SessionID string `json:"sessionId"`
}

// DetachFromTargetParams names the session to detach.
type DetachFromTargetParams struct {
	SessionID string `json:"sessionId"`
}

// SetDiscoverTargetsParams toggles Target.targetCreated notifications.
type SetDiscoverTargetsParams struct {
	Discover bool `json:"discover"`
}

// EvaluateParams runs an expression inside a specific execution context.
type EvaluateParams struct {
	Expression    string `json:"expression"`
	ContextID     int64  `json:"contextId,omitempty"`
	ReturnByValue bool   `json:"returnByValue,omitempty"`
}

// EvaluateResult is the response payload of Runtime.evaluate.
type EvaluateResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

// ExceptionDetails reports a script evaluation failure.
type ExceptionDetails struct {
	Text      string        `json:"text"`
	Exception *RemoteObject `json:"exception,omitempty"`
}

// BrowserVersionResult is the response payload of Browser.getVersion.
type BrowserVersionResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	Revision        string `json:"revision,omitempty"`
	UserAgent       string `json:"userAgent,omitempty"`
	JSVersion       string `json:"jsVersion,omitempty"`
}
