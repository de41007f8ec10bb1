package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence"
	"github.com/deskflow/deskflow/pkg/rules"
)

// FallbackRouter handles new tickets no workflow claimed. Assigned chat
// tickets on AI-enabled tenants go to the first chatbot whose audience rules
// match the contact; unassigned chat tickets and email tickets are associated
// with the teams routed to their inbound channel. The two branches are
// mutually exclusive.
type FallbackRouter struct {
	routing  persistence.RoutingRepository
	resolver *facts.Resolver
	notifier *engine.ChatbotNotifier
	logger   *slog.Logger
}

func NewFallbackRouter(
	routing persistence.RoutingRepository,
	resolver *facts.Resolver,
	notifier *engine.ChatbotNotifier,
	logger *slog.Logger,
) *FallbackRouter {
	return &FallbackRouter{
		routing:  routing,
		resolver: resolver,
		notifier: notifier,
		logger:   logger.With("module", "fallback_router"),
	}
}

// Route applies fallback routing for one unclaimed new ticket. It reports
// whether any assignment or association was made. Chat tickets with an
// assignee only ever go through chatbot assignment; when no chatbot's
// audience matches, the ticket stays with its assignee and no teams are
// associated.
func (r *FallbackRouter) Route(ctx context.Context, ticket *models.Ticket) (bool, error) {
	if ticket.ChannelKind == models.ChannelKindChat && ticket.AssigneeID != "" {
		return r.assignChatbot(ctx, ticket)
	}

	return r.associateTeams(ctx, ticket)
}

// assignChatbot walks the tenant's enabled chatbots in position order and
// assigns the first one whose audience rules match. A resolution failure for
// one chatbot skips it rather than aborting the whole fallback.
func (r *FallbackRouter) assignChatbot(ctx context.Context, ticket *models.Ticket) (bool, error) {
	enabled, err := r.routing.TicketAIEnabled(ctx, ticket.TenantID)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket AI setting: %w", err)
	}

	if !enabled {
		return false, nil
	}

	chatbots, err := r.routing.ChatbotsByTenant(ctx, ticket.TenantID)
	if err != nil {
		return false, fmt.Errorf("failed to list chatbots: %w", err)
	}

	roots := facts.RootIDs{TicketID: ticket.ID, ContactID: ticket.ContactID}

	for _, chatbot := range chatbots {
		if !r.audienceMatches(ctx, chatbot, roots) {
			continue
		}

		if err := r.routing.AssignChatbot(ctx, ticket.ID, chatbot.ID); err != nil {
			return false, fmt.Errorf("failed to assign chatbot: %w", err)
		}

		r.notifier.Notify(chatbot.ID, ticket.ID, "assigned")

		r.logger.Info("Assigned chatbot to unclaimed ticket",
			"ticket_id", ticket.ID, "chatbot_id", chatbot.ID)

		return true, nil
	}

	return false, nil
}

func (r *FallbackRouter) audienceMatches(
	ctx context.Context,
	chatbot *models.Chatbot,
	roots facts.RootIDs,
) bool {
	if chatbot.AudienceRoot == nil {
		return true
	}

	resolved, err := r.resolver.Resolve(ctx, chatbot.AudienceRoot.References(), roots)
	if err != nil {
		r.logger.Warn("Skipping chatbot, audience facts unresolvable",
			"chatbot_id", chatbot.ID, "error", err)

		return false
	}

	return rules.Evaluate(chatbot.AudienceRoot, resolved)
}

// associateTeams links the ticket to every team routed to its channel. The
// existence check makes redelivered events idempotent.
func (r *FallbackRouter) associateTeams(ctx context.Context, ticket *models.Ticket) (bool, error) {
	teams, err := r.routing.TeamsForChannel(ctx, ticket.ChannelKind, ticket.ChannelID)
	if err != nil {
		return false, fmt.Errorf("failed to list teams for channel: %w", err)
	}

	associated := false

	for _, team := range teams {
		exists, err := r.routing.TeamAssociationExists(ctx, ticket.ID, team.ID)
		if err != nil {
			return associated, fmt.Errorf("failed to check team association: %w", err)
		}

		if exists {
			associated = true

			continue
		}

		err = r.routing.CreateTeamAssociation(ctx, &models.TeamAssociation{
			ID:        uuid.New().String(),
			TicketID:  ticket.ID,
			TeamID:    team.ID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return associated, fmt.Errorf("failed to create team association: %w", err)
		}

		r.logger.Info("Associated team with unclaimed ticket",
			"ticket_id", ticket.ID, "team_id", team.ID)

		associated = true
	}

	return associated, nil
}
