// Package main provides the Deskflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/deskflow/deskflow/pkg/dispatch"
	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/eventbus"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/persistence"
	"github.com/deskflow/deskflow/pkg/registry"
	"github.com/deskflow/deskflow/pkg/services"
	"github.com/deskflow/deskflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate

	engineURL    string
	engineAPIKey string
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	engineURL, engineAPIKey string,
) *API {
	return &API{
		logger:       logger,
		persistence:  persist,
		registry:     reg,
		eventBus:     eventBus,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		engineURL:    engineURL,
		engineAPIKey: engineAPIKey,
	}
}

func (a *API) App() *fiber.App {
	resolver := facts.NewResolver(a.persistence.EntityRepository(), a.logger)
	graphValidator := graph.NewValidator(a.registry, resolver, a.logger)
	workflowService := services.NewWorkflow(a.persistence, graphValidator)

	credentials := engine.NewAPICredentialProvider(a.engineURL+"/auth/token", a.engineAPIKey, nil)
	client := engine.NewClient(a.engineURL, credentials, a.logger)
	notifier := engine.NewChatbotNotifier("", a.logger)
	fallback := dispatch.NewFallbackRouter(a.persistence.RoutingRepository(), resolver, notifier, a.logger)

	dispatcher := dispatch.NewDispatcher(
		a.persistence.WorkflowRepository(),
		a.persistence.EntityRepository(),
		a.registry,
		graphValidator,
		client,
		fallback,
		a.logger,
	)

	handlers := web.NewAPIHandlers(workflowService, dispatcher, a.eventBus, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Deskflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/deactivate", handlers.DeactivateWorkflow)
	w.Post("/:id/dispatch", handlers.DispatchWorkflow)

	app.Post("/events", handlers.InjectEvent)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
