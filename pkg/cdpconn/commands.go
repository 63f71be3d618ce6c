// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package cdpconn

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
)

// RuntimeEnable enables console/context events, optionally for one session.
func (c *Conn) RuntimeEnable(sessionID string) error {
	_, err := c.Command(cdptypes.MethodRuntimeEnable, nil, sessionID)
	return err
}

// RuntimeDisable disables console/context events.
func (c *Conn) RuntimeDisable(sessionID string) error {
	_, err := c.Command(cdptypes.MethodRuntimeDisable, nil, sessionID)
	return err
}

// Evaluate runs an expression, typically inside a specific context.
func (c *Conn) Evaluate(params cdptypes.EvaluateParams) (*cdptypes.EvaluateResult, error) {
	raw, err := c.Command(cdptypes.MethodRuntimeEvaluate, params, "")
	if err != nil {
		return nil, err
	}
	var result cdptypes.EvaluateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("cannot decode evaluate result: %w", err)
	}
	return &result, nil
}

// SetDiscoverTargets toggles Target.targetCreated notifications.
func (c *Conn) SetDiscoverTargets(discover bool) error {
	_, err := c.Command(cdptypes.MethodSetDiscoverTargets, cdptypes.SetDiscoverTargetsParams{Discover: discover}, "")
	return err
}

// GetTargets lists the currently existing targets.
func (c *Conn) GetTargets() ([]cdptypes.TargetInfo, error) {
	raw, err := c.Command(cdptypes.MethodGetTargets, nil, "")
	if err != nil {
		return nil, err
	}
	var result cdptypes.GetTargetsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("cannot decode target list: %w", err)
	}
	return result.TargetInfos, nil
}

// AttachToTarget requests a flattened session for one target and returns its
// session id.
func (c *Conn) AttachToTarget(targetID string) (string, error) {
	raw, err := c.Command(cdptypes.MethodAttachToTarget, cdptypes.AttachToTargetParams{TargetID: targetID, Flatten: true}, "")
	if err != nil {
		return "", err
	}
	var result cdptypes.AttachToTargetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("cannot decode attach result: %w", err)
	}
	return result.SessionID, nil
}

// DetachFromTarget ends an attached session.
func (c *Conn) DetachFromTarget(sessionID string) error {
	_, err := c.Command(cdptypes.MethodDetachFromTarget, cdptypes.DetachFromTargetParams{SessionID: sessionID}, "")
	return err
}

// BrowserVersion queries the debuggee's product/protocol version.
func (c *Conn) BrowserVersion() (*cdptypes.BrowserVersionResult, error) {
	raw, err := c.Command(cdptypes.MethodBrowserGetVersion, nil, "")
	if err != nil {
		return nil, err
	}
	var result cdptypes.BrowserVersionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("cannot decode browser version: %w", err)
	}
	return &result, nil
}

// CheckMinBrowserVersion verifies the debuggee's product version against a
// minimum. Unparseable versions pass: an unknown runtime is not grounds to
// skip capture.
func (c *Conn) CheckMinBrowserVersion(minVersion string) error {
	info, err := c.BrowserVersion()
	if err != nil {
		return fmt.Errorf("cannot query browser version: %w", err)
	}
	min, err := semver.NewVersion(strings.TrimPrefix(minVersion, "v"))
	if err != nil {
		return nil
	}
	// Product looks like "Chrome/119.0.6045.105"; truncate the 4-part
	// build version to the three segments semver understands.
	parts := strings.SplitN(info.Product, "/", 2)
	if len(parts) != 2 {
		return nil
	}
	segments := strings.Split(parts[1], ".")
	if len(segments) > 3 {
		segments = segments[:3]
	}
	got, err := semver.NewVersion(strings.Join(segments, "."))
	if err != nil {
		return nil
	}
	if got.LessThan(min) {
		return fmt.Errorf("browser version %s below minimum %s for target discovery", parts[1], min)
	}
	return nil
}
