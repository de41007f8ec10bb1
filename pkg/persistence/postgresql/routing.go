package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deskflow/deskflow/pkg/models"
)

// RoutingRepository stores fallback-routing configuration: tenant AI
// settings, chatbots and their audience rules, and team/channel bindings.
type RoutingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRoutingRepository(db *sql.DB, logger *slog.Logger) *RoutingRepository {
	return &RoutingRepository{
		db:     db,
		logger: logger.With("module", "routing_repository"),
	}
}

func (r *RoutingRepository) TicketAIEnabled(ctx context.Context, tenantID string) (bool, error) {
	var enabled bool

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(
			(SELECT ticket_ai_enabled FROM tenant_settings WHERE tenant_id = $1), FALSE)`,
		tenantID).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("failed to query tenant settings for %s: %w", tenantID, err)
	}

	return enabled, nil
}

func (r *RoutingRepository) ChatbotsByTenant(ctx context.Context, tenantID string) ([]*models.Chatbot, error) {
	query := `SELECT id, tenant_id, name, audience_root, position, enabled
		FROM chatbots WHERE tenant_id = $1 AND enabled ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chatbots: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	chatbots := make([]*models.Chatbot, 0)

	for rows.Next() {
		var (
			chatbot      models.Chatbot
			audienceRoot []byte
		)

		err := rows.Scan(
			&chatbot.ID,
			&chatbot.TenantID,
			&chatbot.Name,
			&audienceRoot,
			&chatbot.Position,
			&chatbot.Enabled,
		)
		if err != nil {
			return nil, err
		}

		if len(audienceRoot) > 0 {
			if err := json.Unmarshal(audienceRoot, &chatbot.AudienceRoot); err != nil {
				return nil, fmt.Errorf("failed to decode audience rules for chatbot %s: %w", chatbot.ID, err)
			}
		}

		chatbots = append(chatbots, &chatbot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chatbots: %w", err)
	}

	return chatbots, nil
}

func (r *RoutingRepository) AssignChatbot(ctx context.Context, ticketID, chatbotID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET assignee_id = $2 WHERE id = $1 AND deleted_at IS NULL`,
		ticketID, chatbotID)
	if err != nil {
		return fmt.Errorf("failed to assign chatbot %s to ticket %s: %w", chatbotID, ticketID, err)
	}

	return nil
}

func (r *RoutingRepository) TeamsForChannel(
	ctx context.Context,
	kind models.ChannelKind,
	channelID string,
) ([]*models.Team, error) {
	query := `SELECT t.id, t.tenant_id, t.name
		FROM teams t
		JOIN team_routes tr ON tr.team_id = t.id
		WHERE tr.channel_kind = $1 AND tr.channel_id = $2`

	rows, err := r.db.QueryContext(ctx, query, string(kind), channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for channel: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	teams := make([]*models.Team, 0)

	for rows.Next() {
		var team models.Team

		if err := rows.Scan(&team.ID, &team.TenantID, &team.Name); err != nil {
			return nil, err
		}

		teams = append(teams, &team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

func (r *RoutingRepository) TeamAssociationExists(ctx context.Context, ticketID, teamID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_associations WHERE ticket_id = $1 AND team_id = $2)`,
		ticketID, teamID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team association: %w", err)
	}

	return exists, nil
}

func (r *RoutingRepository) CreateTeamAssociation(ctx context.Context, association *models.TeamAssociation) error {
	createdAt := association.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_associations (id, ticket_id, team_id, created_at) VALUES ($1, $2, $3, $4)`,
		association.ID, association.TicketID, association.TeamID, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create team association: %w", err)
	}

	return nil
}
