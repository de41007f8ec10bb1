// Package registry holds the node kinds known to the engine and validates
// node configurations against their registered JSON schemas.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/protocol"
)

// Registry maps node type identifiers to their kind implementations.
type Registry struct {
	logger *slog.Logger
	kinds  map[string]protocol.NodeKind
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With("module", "registry"),
		kinds:  make(map[string]protocol.NodeKind),
	}
}

// Register adds a node kind. Registering the same ID twice replaces the
// earlier kind.
func (r *Registry) Register(kind protocol.NodeKind) {
	r.kinds[kind.ID()] = kind
}

// Kind returns the kind registered for a node type.
func (r *Registry) Kind(nodeType string) (protocol.NodeKind, bool) {
	kind, ok := r.kinds[nodeType]

	return kind, ok
}

// TriggerKind returns the trigger kind registered for a node type, or false
// when the type is unknown or not a trigger.
func (r *Registry) TriggerKind(nodeType string) (protocol.TriggerKind, bool) {
	kind, ok := r.kinds[nodeType]
	if !ok {
		return nil, false
	}

	trigger, ok := kind.(protocol.TriggerKind)

	return trigger, ok
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.kinds) == 0 {
		return "No node kinds registered", false
	}

	return fmt.Sprintf("%d node kinds registered", len(r.kinds)), true
}

// SchemaFor returns the JSON schema registered for (type, schemaVersion).
func (r *Registry) SchemaFor(nodeType string, schemaVersion int) (map[string]any, error) {
	kind, ok := r.kinds[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	schema, ok := kind.Schemas()[schemaVersion]
	if !ok {
		return nil, fmt.Errorf("node type %q has no schema version %d", nodeType, schemaVersion)
	}

	return schema, nil
}

// ValidateNodeConfig validates a node's config against the schema registered
// for its type and schema version.
func (r *Registry) ValidateNodeConfig(node *models.WorkflowNode) error {
	schema, err := r.SchemaFor(node.Type, node.SchemaVersion)
	if err != nil {
		return err
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation for node %s: %w", node.ID, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("node %s config invalid: %s", node.ID, strings.Join(details, "; "))
	}

	return nil
}

// Handles computes the handle set for a node from its registered kind.
func (r *Registry) Handles(node *models.WorkflowNode) ([]models.Handle, error) {
	kind, ok := r.kinds[node.Type]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", node.Type)
	}

	names := kind.Handles(node.Config)

	handles := make([]models.Handle, 0, len(names))
	for _, name := range names {
		handles = append(handles, models.Handle{NodeID: node.ID, Name: name})
	}

	return handles, nil
}
