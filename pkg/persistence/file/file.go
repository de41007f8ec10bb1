// Package file provides a JSON-file workflow store for development and
// tests. Entity and routing lookups are not supported; fact resolution and
// fallback routing need a real database.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"

	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence"
)

type Persistence struct {
	root string
}

func NewPersistence(root string) *Persistence {
	return &Persistence{root: root}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return &workflowRepository{root: p.root}
}

func (p *Persistence) EntityRepository() persistence.EntityRepository {
	return unsupportedEntityRepository{}
}

func (p *Persistence) RoutingRepository() persistence.RoutingRepository {
	return unsupportedRoutingRepository{}
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	_, err := os.Stat(p.root)

	return err
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

type workflowRepository struct {
	root string
}

func (r *workflowRepository) dir() string {
	return path.Join(r.root, "workflows")
}

func (r *workflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(r.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := r.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *workflowRepository) ListByStatus(
	ctx context.Context,
	tenantID string,
	status models.WorkflowStatus,
) ([]*models.Workflow, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.TenantID == tenantID && workflow.Status == status {
			matching = append(matching, workflow)
		}
	}

	return matching, nil
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	body, err := os.ReadFile(path.Join(r.dir(), id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	body, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	err = os.WriteFile(path.Join(r.dir(), workflow.ID+".json"), body, 0o644)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *workflowRepository) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	workflow, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	workflow.Status = status

	return r.Save(ctx, workflow)
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(r.dir(), id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return err
}

type unsupportedEntityRepository struct{}

func (unsupportedEntityRepository) TicketByID(context.Context, string) (*models.Ticket, error) {
	return nil, persistence.ErrNotSupported
}

func (unsupportedEntityRepository) ContactByID(context.Context, string) (*models.Contact, error) {
	return nil, persistence.ErrNotSupported
}

func (unsupportedEntityRepository) CompanyByID(context.Context, string) (*models.Company, error) {
	return nil, persistence.ErrNotSupported
}

func (unsupportedEntityRepository) CustomFieldValues(context.Context, string, []string) (map[string]any, error) {
	return nil, persistence.ErrNotSupported
}

func (unsupportedEntityRepository) CustomObjectFieldValues(
	context.Context, string, string, []string,
) (map[string]any, error) {
	return nil, persistence.ErrNotSupported
}

type unsupportedRoutingRepository struct{}

func (unsupportedRoutingRepository) TicketAIEnabled(context.Context, string) (bool, error) {
	return false, persistence.ErrNotSupported
}

func (unsupportedRoutingRepository) ChatbotsByTenant(context.Context, string) ([]*models.Chatbot, error) {
	return nil, persistence.ErrNotSupported
}

func (unsupportedRoutingRepository) AssignChatbot(context.Context, string, string) error {
	return persistence.ErrNotSupported
}

func (unsupportedRoutingRepository) TeamsForChannel(
	context.Context, models.ChannelKind, string,
) ([]*models.Team, error) {
	return nil, persistence.ErrNotSupported
}

func (unsupportedRoutingRepository) TeamAssociationExists(context.Context, string, string) (bool, error) {
	return false, persistence.ErrNotSupported
}

func (unsupportedRoutingRepository) CreateTeamAssociation(context.Context, *models.TeamAssociation) error {
	return persistence.ErrNotSupported
}

// facts.EntityStore conformance is what EntityRepository adds over the raw
// store; keep the compile-time check close to the stub.
var _ facts.EntityStore = unsupportedEntityRepository{}
