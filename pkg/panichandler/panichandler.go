// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package panichandler

import (
	"fmt"
	"log"
	"runtime/debug"
)

// PanicHandler converts a recovered panic into an error and logs it. A panic
// inside an event-listener callback must never take down the test session,
// so every dispatch goroutine defers through here.
func PanicHandler(debugStr string, recoverVal any) error {
	if recoverVal == nil {
		return nil
	}
	log.Printf("[panic] in %s: %v\n", debugStr, recoverVal)
	log.Printf("[panic] stack trace:\n%s", string(debug.Stack()))
	if err, ok := recoverVal.(error); ok {
		return fmt.Errorf("panic in %s: %w", debugStr, err)
	}
	return fmt.Errorf("panic in %s: %v", debugStr, recoverVal)
}
