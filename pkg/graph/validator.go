package graph

import (
	"context"
	"log/slog"

	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/registry"
	"github.com/deskflow/deskflow/pkg/rules"
)

// Options controls the dispatch-time stages. The build-time stages (schema,
// structural minimum, handle coverage, traversal) always run.
type Options struct {
	// CheckChannels enables the channel filter stage using the triggering
	// ticket's channel.
	CheckChannels bool
	ChannelKind   models.ChannelKind
	ChannelID     string

	// CheckRules enables rule evaluation using root identifiers derived from
	// the triggering event.
	CheckRules bool
	Roots      facts.RootIDs
}

// Validator runs the ordered validation pipeline. The first failing stage
// aborts; later stages never observe a workflow the earlier stages rejected.
type Validator struct {
	registry *registry.Registry
	resolver *facts.Resolver
	logger   *slog.Logger
}

func NewValidator(reg *registry.Registry, resolver *facts.Resolver, logger *slog.Logger) *Validator {
	return &Validator{
		registry: reg,
		resolver: resolver,
		logger:   logger.With("module", "graph_validator"),
	}
}

// ValidateStructure runs the build-time stages only. This is the authoritative
// check at the draft-to-live transition.
func (v *Validator) ValidateStructure(ctx context.Context, workflow *models.Workflow) error {
	return v.Validate(ctx, workflow, Options{})
}

// Validate runs the full pipeline: schema, structural minimum, handle
// coverage, reachability/termination, then the dispatch-time channel and rule
// stages when requested.
func (v *Validator) Validate(ctx context.Context, workflow *models.Workflow, opts Options) error {
	if err := v.validateSchemas(workflow); err != nil {
		return err
	}

	if err := v.validateStructuralMinimum(workflow); err != nil {
		return err
	}

	handles, err := v.computeHandles(workflow)
	if err != nil {
		return err
	}

	if err := v.validateHandleCoverage(workflow, handles); err != nil {
		return err
	}

	if err := v.validateTraversal(workflow, handles); err != nil {
		return err
	}

	if opts.CheckChannels {
		if err := v.validateChannels(workflow, opts); err != nil {
			return err
		}
	}

	if opts.CheckRules {
		if err := v.validateRules(ctx, workflow, opts); err != nil {
			return err
		}
	}

	return nil
}

// Stage 1: every node's config must validate against the schema registered
// for its type and schema version. A type with no registered schema is a hard
// failure.
func (v *Validator) validateSchemas(workflow *models.Workflow) error {
	for _, node := range workflow.Nodes {
		if _, err := v.registry.SchemaFor(node.Type, node.SchemaVersion); err != nil {
			return &ValidationError{
				Stage:  StageSchema,
				Reason: ReasonSchemaMissing,
				NodeID: node.ID,
				Err:    err,
			}
		}

		if err := v.registry.ValidateNodeConfig(node); err != nil {
			return &ValidationError{
				Stage:  StageSchema,
				Reason: ReasonSchemaInvalid,
				NodeID: node.ID,
				Err:    err,
			}
		}
	}

	return nil
}

// Stage 2: the graph needs at least one trigger node and one end node.
func (v *Validator) validateStructuralMinimum(workflow *models.Workflow) error {
	if len(workflow.TriggerNodes()) == 0 {
		return &ValidationError{Stage: StageStructural, Reason: ReasonNoTrigger}
	}

	for _, node := range workflow.Nodes {
		if node.Type == models.NodeTypeEnd {
			return nil
		}
	}

	return &ValidationError{Stage: StageStructural, Reason: ReasonNoEnd}
}

func (v *Validator) computeHandles(workflow *models.Workflow) (map[string][]models.Handle, error) {
	handles := make(map[string][]models.Handle, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		nodeHandles, err := v.registry.Handles(node)
		if err != nil {
			return nil, &ValidationError{
				Stage:  StageSchema,
				Reason: ReasonSchemaMissing,
				NodeID: node.ID,
				Err:    err,
			}
		}

		handles[node.ID] = nodeHandles
	}

	return handles, nil
}

// Stage 3: every produced handle must be referenced by exactly one edge
// endpoint. End-node entry handles are exempt; they may be targets of any
// number of edges, but never sources. An unwired entry handle is an unused
// handle; an unwired source-side handle is a dead end.
func (v *Validator) validateHandleCoverage(workflow *models.Workflow, handles map[string][]models.Handle) error {
	known := make(map[string]bool)
	for _, nodeHandles := range handles {
		for _, h := range nodeHandles {
			known[models.MakeHandleID(h.NodeID, h.Name)] = true
		}
	}

	refs := make(map[string]int)

	for _, edge := range workflow.Edges {
		for _, endpoint := range []string{
			models.MakeHandleID(edge.SourceNodeID, edge.SourceHandle),
			models.MakeHandleID(edge.TargetNodeID, edge.TargetHandle),
		} {
			if !known[endpoint] {
				nodeID, handle, _ := models.ParseHandleID(endpoint)

				return &ValidationError{
					Stage:  StageHandles,
					Reason: ReasonUnknownHandle,
					NodeID: nodeID,
					Handle: handle,
					Detail: "edge " + edge.ID + " references a handle no node produces",
				}
			}

			refs[endpoint]++
		}

		if sourceNode := workflow.NodeByID(edge.SourceNodeID); sourceNode != nil &&
			sourceNode.Type == models.NodeTypeEnd {
			return &ValidationError{
				Stage:  StageHandles,
				Reason: ReasonUnknownHandle,
				NodeID: edge.SourceNodeID,
				Handle: edge.SourceHandle,
				Detail: "end node handles may only be edge targets",
			}
		}
	}

	for _, node := range workflow.Nodes {
		for _, h := range handles[node.ID] {
			if node.Type == models.NodeTypeEnd && h.Name == models.HandleEntry {
				continue
			}

			id := models.MakeHandleID(h.NodeID, h.Name)

			switch count := refs[id]; {
			case count == 0 && h.Name == models.HandleEntry:
				return &ValidationError{
					Stage:  StageHandles,
					Reason: ReasonUnusedHandle,
					NodeID: h.NodeID,
					Handle: h.Name,
				}
			case count == 0:
				return &ValidationError{
					Stage:  StageHandles,
					Reason: ReasonDeadEnd,
					NodeID: h.NodeID,
					Handle: h.Name,
					Detail: "handle has no outgoing edge",
				}
			case count > 1:
				return &ValidationError{
					Stage:  StageHandles,
					Reason: ReasonDuplicateHandle,
					NodeID: h.NodeID,
					Handle: h.Name,
				}
			}
		}
	}

	return nil
}

// Stage 4: depth-first traversal from every exit handle of every trigger.
// The path set of visited (node, handle) pairs is scoped to the current DFS
// stack and backtracked on return, so sibling branches sharing a downstream
// node are not falsely flagged as cycles. Revisiting a pair on the current
// path is a cycle; reaching a handle with no outgoing edge on a non-end node
// is a dead end; every path must terminate at an end node.
func (v *Validator) validateTraversal(workflow *models.Workflow, handles map[string][]models.Handle) error {
	edgeBySource := make(map[string]*models.Edge, len(workflow.Edges))
	for _, edge := range workflow.Edges {
		edgeBySource[models.MakeHandleID(edge.SourceNodeID, edge.SourceHandle)] = edge
	}

	for _, trigger := range workflow.TriggerNodes() {
		for _, h := range handles[trigger.ID] {
			path := make(map[string]bool)

			if err := v.walk(workflow, handles, edgeBySource, trigger.ID, h.Name, path); err != nil {
				return err
			}
		}
	}

	return nil
}

func (v *Validator) walk(
	workflow *models.Workflow,
	handles map[string][]models.Handle,
	edgeBySource map[string]*models.Edge,
	nodeID, handleName string,
	path map[string]bool,
) error {
	key := models.MakeHandleID(nodeID, handleName)
	if path[key] {
		return &ValidationError{
			Stage:  StageTraversal,
			Reason: ReasonCycle,
			NodeID: nodeID,
			Handle: handleName,
		}
	}

	path[key] = true
	defer delete(path, key)

	edge, ok := edgeBySource[key]
	if !ok {
		return &ValidationError{
			Stage:  StageTraversal,
			Reason: ReasonDeadEnd,
			NodeID: nodeID,
			Handle: handleName,
			Detail: "no outgoing edge for handle",
		}
	}

	target := workflow.NodeByID(edge.TargetNodeID)
	if target == nil {
		return &ValidationError{
			Stage:  StageTraversal,
			Reason: ReasonUnknownHandle,
			NodeID: edge.TargetNodeID,
			Handle: edge.TargetHandle,
			Detail: "edge " + edge.ID + " targets a missing node",
		}
	}

	if target.Type == models.NodeTypeEnd {
		return nil
	}

	for _, h := range handles[target.ID] {
		if h.Name == models.HandleEntry {
			continue
		}

		if err := v.walk(workflow, handles, edgeBySource, target.ID, h.Name, path); err != nil {
			return err
		}
	}

	return nil
}

// Stage 5 (dispatch-time): a workflow restricted to channels only fires for
// tickets whose specific inbound channel matches one of its filters.
func (v *Validator) validateChannels(workflow *models.Workflow, opts Options) error {
	if len(workflow.Channels) == 0 {
		return nil
	}

	for _, filter := range workflow.Channels {
		if filter.Matches(opts.ChannelKind, opts.ChannelID) {
			return nil
		}
	}

	return &ValidationError{
		Stage:  StageChannels,
		Reason: ReasonChannelMismatch,
		Detail: string(opts.ChannelKind) + "/" + opts.ChannelID,
	}
}

// Stage 6 (dispatch-time): resolve the workflow's fact references and
// evaluate its rule tree. A resolution failure means the workflow is not
// eligible this event, not that its rules evaluated false.
func (v *Validator) validateRules(ctx context.Context, workflow *models.Workflow, opts Options) error {
	resolved, err := v.resolver.Resolve(ctx, workflow.RuleRoot.References(), opts.Roots)
	if err != nil {
		return &ValidationError{
			Stage:  StageRules,
			Reason: ReasonResolution,
			Err:    err,
		}
	}

	if !rules.Evaluate(workflow.RuleRoot, resolved) {
		return &ValidationError{
			Stage:  StageRules,
			Reason: ReasonRulesNotMatched,
		}
	}

	return nil
}
