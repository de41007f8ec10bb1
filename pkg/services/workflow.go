package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow manages workflow definitions and their draft/live lifecycle.
type Workflow struct {
	persistence persistence.Persistence
	validator   *graph.Validator
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, validator *graph.Validator) *Workflow {
	return &Workflow{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves workflows, optionally narrowed to one tenant and status.
func (w *Workflow) List(
	ctx context.Context,
	tenantID string,
	status *models.WorkflowStatus,
) ([]*models.Workflow, error) {
	if tenantID != "" && status != nil {
		return w.persistence.WorkflowRepository().ListByStatus(ctx, tenantID, *status)
	}

	all, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if tenantID != "" && workflow.TenantID != tenantID {
			continue
		}

		if status != nil && workflow.Status != *status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	return filtered, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create adds a new workflow. New workflows always start as drafts; nothing
// dispatches until activation validates the graph.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.Name == "" {
		return nil, ErrNameRequired
	}

	if workflow.TenantID == "" {
		return nil, ErrTenantRequired
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.Status = models.WorkflowStatusDraft
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update modifies an existing workflow. A structural edit (nodes, edges, rule
// tree or channels) to a live workflow reverts it to draft; it must pass
// activation again before dispatching.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
	structuralEdit bool,
) (*models.Workflow, error) {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.TenantID = existing.TenantID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()
	workflow.Status = existing.Status

	if structuralEdit && existing.Status == models.WorkflowStatusLive {
		workflow.Status = models.WorkflowStatusDraft
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	return w.persistence.WorkflowRepository().Delete(ctx, workflowID)
}

// Validate runs the build-time validation pipeline without changing status.
func (w *Workflow) Validate(ctx context.Context, workflowID string) error {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	return w.validator.ValidateStructure(ctx, workflow)
}

// Activate transitions a draft workflow to live. The build-time pipeline is
// the gate; a workflow that fails any stage stays draft.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusLive {
		return nil, ErrAlreadyLive
	}

	if err := w.validator.ValidateStructure(ctx, workflow); err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().UpdateStatus(ctx, workflowID, models.WorkflowStatusLive)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatusLive

	return workflow, nil
}

// Deactivate reverts a live workflow to draft.
func (w *Workflow) Deactivate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusLive {
		return nil, ErrNotLive
	}

	err = w.persistence.WorkflowRepository().UpdateStatus(ctx, workflowID, models.WorkflowStatusDraft)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatusDraft

	return workflow, nil
}
