// Package policy enforces pre-execution safety checks on tool dispatch.
//
// The one non-negotiable rule: a destructive tool (send, create, delete)
// is never auto-dispatched from the deterministic fallback path unless the
// rules recognized explicit parameters for it. Keyword matching alone must
// not send an email.
package policy

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/inboxpilot/inboxpilot/internal/tools"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// ErrDestructiveBlocked reports a destructive tool stopped at the gate.
var ErrDestructiveBlocked = errors.New("policy: destructive tool blocked")

// CheckFallbackDispatch decides whether a tool selected or parameterized
// by the deterministic path may run. Read-only tools always pass.
// Destructive tools pass only when params carry explicit recognized values
// beyond the schema defaults.
func CheckFallbackDispatch(tool tools.Tool, params, defaults models.Params) error {
	if !tool.Destructive() {
		return nil
	}
	if hasExplicitParams(params, defaults) {
		return nil
	}
	return fmt.Errorf("%w: %s requires explicit parameters and none were recognized in the goal",
		ErrDestructiveBlocked, tool.Name())
}

// hasExplicitParams reports whether params contain any value that is not
// simply a schema default.
func hasExplicitParams(params, defaults models.Params) bool {
	for k, v := range params {
		def, ok := defaults[k]
		if !ok || !reflect.DeepEqual(def, v) {
			return true
		}
	}
	return false
}
