// Package models defines node and edge models for the workflow graph.
package models

// Built-in node types. Trigger types carry the domain event kind they react
// to; the remaining types are action nodes executed by the external engine.
const (
	NodeTypeTriggerTicketCreated    = "trigger:ticket_created"
	NodeTypeTriggerDataChanged      = "trigger:data_changed"
	NodeTypeTriggerCustomerMessage  = "trigger:customer_message"
	NodeTypeTriggerUnresponsiveness = "trigger:unresponsiveness"

	NodeTypeEnd         = "end"
	NodeTypeSendMessage = "send_message"
	NodeTypeChoice      = "choice"
	NodeTypeWait        = "wait"
	NodeTypeAssignTeam  = "assign_team"
)

// Well-known handle names.
const (
	HandleEntry = "entry"
	HandleExit  = "exit"
)

// WorkflowNode is a node instance inside a workflow graph. Config is opaque
// here; it must validate against the JSON schema registered for the node's
// type and schema version.
type WorkflowNode struct {
	ID            string         `json:"id"             validate:"required"`
	Type          string         `json:"type"           validate:"required"`
	IsTrigger     bool           `json:"is_trigger"`
	Config        map[string]any `json:"config"`
	SchemaVersion int            `json:"schema_version"`
	PositionX     int            `json:"position_x"`
	PositionY     int            `json:"position_y"`
}

// Edge connects a source handle to a target handle. Post-validation, every
// handle produced by every node is referenced by exactly one edge endpoint,
// except end-node entry handles which may only be targets.
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	SourceHandle string `json:"source_handle"  validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	TargetHandle string `json:"target_handle"  validate:"required"`
}

// Handle is a named connection point on a node. Handles are never persisted;
// they are recomputed from node type and config on every validation pass.
type Handle struct {
	NodeID string `json:"node_id"`
	Name   string `json:"name"`
}

// MakeHandleID creates a handle ID from node ID and handle name.
func MakeHandleID(nodeID, name string) string {
	return nodeID + ":" + name
}

// ParseHandleID parses a handle ID in format "{node_id}:{name}".
func ParseHandleID(handleID string) (string, string, bool) {
	for i := range len(handleID) {
		if handleID[i] == ':' {
			return handleID[:i], handleID[i+1:], true
		}
	}

	return "", "", false
}
