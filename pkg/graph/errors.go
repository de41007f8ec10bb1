// Package graph models the workflow node/edge/handle graph and enforces its
// structural and schema invariants before a workflow may go live.
package graph

import (
	"errors"
	"fmt"
)

// Stage identifies the validation pipeline stage that rejected a workflow.
type Stage string

const (
	StageSchema     Stage = "schema"
	StageStructural Stage = "structural"
	StageHandles    Stage = "handles"
	StageTraversal  Stage = "traversal"
	StageChannels   Stage = "channels"
	StageRules      Stage = "rules"
)

// Reason is the discriminated failure reason surfaced to callers.
type Reason string

const (
	ReasonSchemaMissing   Reason = "schema_missing"
	ReasonSchemaInvalid   Reason = "schema_invalid"
	ReasonNoTrigger       Reason = "no_trigger_node"
	ReasonNoEnd           Reason = "no_end_node"
	ReasonUnknownHandle   Reason = "unknown_handle"
	ReasonUnusedHandle    Reason = "unused_handle"
	ReasonDuplicateHandle Reason = "duplicate_handle"
	ReasonDeadEnd         Reason = "dead_end"
	ReasonCycle           Reason = "cycle"
	ReasonChannelMismatch Reason = "channel_mismatch"
	ReasonRulesNotMatched Reason = "rules_not_matched"
	ReasonResolution      Reason = "resolution_failed"
)

// ValidationError reports the first failing stage of the pipeline.
type ValidationError struct {
	Stage  Stage
	Reason Reason
	NodeID string
	Handle string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("workflow validation failed at stage %s: %s", e.Stage, e.Reason)

	if e.NodeID != "" {
		msg += fmt.Sprintf(" (node %s", e.NodeID)
		if e.Handle != "" {
			msg += fmt.Sprintf(", handle %s", e.Handle)
		}

		msg += ")"
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	ok := errors.As(err, &vErr)

	return vErr, ok
}

// IsStructuralFailure reports whether the error came from a build-time stage
// (schema, structural minimum, handle coverage, traversal). A live workflow
// must never be in such a state.
func IsStructuralFailure(err error) bool {
	vErr, ok := AsValidationError(err)
	if !ok {
		return false
	}

	switch vErr.Stage {
	case StageSchema, StageStructural, StageHandles, StageTraversal:
		return true
	default:
		return false
	}
}
