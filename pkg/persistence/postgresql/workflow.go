package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence"
)

// WorkflowRepository stores workflow definitions with the graph and rule tree
// as JSONB columns.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger.With("module", "workflow_repository"),
	}
}

const workflowColumns = `id, tenant_id, name, status, channels, nodes, edges, rule_root,
	created_at, updated_at, deleted_at`

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE deleted_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	return scanWorkflows(rows)
}

func (r *WorkflowRepository) ListByStatus(
	ctx context.Context,
	tenantID string,
	status models.WorkflowStatus,
) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows
		WHERE tenant_id = $1 AND status = $2 AND deleted_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query, tenantID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by status: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	return scanWorkflows(rows)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 AND deleted_at IS NULL`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	channels, err := json.Marshal(workflow.Channels)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	nodes, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	edges, err := json.Marshal(workflow.Edges)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	var ruleRoot any
	if workflow.RuleRoot != nil {
		ruleRoot, err = json.Marshal(workflow.RuleRoot)
		if err != nil {
			return persistence.NewWorkflowError("Save", workflow.ID, err)
		}
	}

	query := `
		INSERT INTO workflows (id, tenant_id, name, status, channels, nodes, edges, rule_root, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			channels = EXCLUDED.channels,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			rule_root = EXCLUDED.rule_root,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		string(workflow.Status),
		channels,
		nodes,
		edges,
		ruleRoot,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, string(status))
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("UpdateStatus", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	// Soft delete; in-flight executions in the external engine may still
	// reference the row.
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow models.Workflow
		status   string
		channels []byte
		nodes    []byte
		edges    []byte
		ruleRoot []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.Name,
		&status,
		&channels,
		&nodes,
		&edges,
		&ruleRoot,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&workflow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatus(status)

	if err := json.Unmarshal(channels, &workflow.Channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}

	if err := json.Unmarshal(nodes, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode edges: %w", err)
	}

	if len(ruleRoot) > 0 {
		if err := json.Unmarshal(ruleRoot, &workflow.RuleRoot); err != nil {
			return nil, fmt.Errorf("failed to decode rule tree: %w", err)
		}
	}

	return &workflow, nil
}

func scanWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflows: %w", err)
	}

	return workflows, nil
}
