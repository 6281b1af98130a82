package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "crm-workflow/internal/common/api"
	"crm-workflow/internal/config"
	"crm-workflow/internal/database"
	"crm-workflow/internal/features/audit"
	"crm-workflow/internal/features/entity"
	"crm-workflow/internal/features/matcher"
	"crm-workflow/internal/features/ownership"
	"crm-workflow/internal/features/processor"
	"crm-workflow/internal/features/snapshot"
	"crm-workflow/internal/features/system"
	"crm-workflow/internal/features/transition"
	"crm-workflow/internal/features/workflow"
	"crm-workflow/internal/logger"
	"crm-workflow/internal/middleware"
	"crm-workflow/pkg/utils"

	_ "crm-workflow/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	for _, route := range routes {
		logger.Debug("Setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	logger.Info("All routes registered", zap.Int("count", len(routes)))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// NewTransitionRepository picks the queue store from QUEUE_BACKEND.
func NewTransitionRepository(cfg *config.Config, mongodb *database.MongodbDB) transition.TransitionRepository {
	if cfg.QueueBackend == "memory" {
		return transition.NewMemoryTransitionRepository()
	}
	return transition.NewTransitionRepository(mongodb)
}

// NewSnapshotRepository keeps snapshots next to the queue they justify.
func NewSnapshotRepository(cfg *config.Config, mongodb *database.MongodbDB) snapshot.SnapshotRepository {
	if cfg.QueueBackend == "memory" {
		return snapshot.NewMemorySnapshotRepository()
	}
	return snapshot.NewSnapshotRepository(mongodb)
}

type indexed interface {
	EnsureIndexes(ctx context.Context) error
}

// InitializeIndexes creates indexes before the processor starts leasing; the
// open-transition uniqueness depends on them.
func InitializeIndexes(lc fx.Lifecycle, logger *zap.Logger,
	workflows workflow.WorkflowRepository,
	transitions transition.TransitionRepository,
	snapshots snapshot.SnapshotRepository,
	entities entity.EntityRepository,
	audits audit.AuditRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			for name, repo := range map[string]indexed{
				"workflows":   workflows,
				"transitions": transitions,
				"snapshots":   snapshots,
				"entities":    entities,
				"audit":       audits,
			} {
				if err := repo.EnsureIndexes(ctx); err != nil {
					return fmt.Errorf("ensure %s indexes: %w", name, err)
				}
			}
			logger.Info("Database indexes ensured")
			return nil
		},
	})
}

// StartProcessor runs the queue workers for the lifetime of the app.
func StartProcessor(lc fx.Lifecycle, p *processor.Processor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			p.Stop()
			return nil
		},
	})
}

// @title           CRM Workflow Routing API
// @version         1.0
// @description     Rule-based routing of CRM entities between user groups.
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			workflow.NewWorkflowRepository,
			entity.NewEntityRepository,
			NewTransitionRepository,
			NewSnapshotRepository,
			ownership.NewStore,

			transition.NewHub,
			processor.NewConfig,

			audit.NewAuditService,
			workflow.NewWorkflowService,
			transition.NewTransitionService,
			matcher.NewMatcher,
			entity.NewEntityService,
			processor.NewProcessor,

			// Interface Adapters
			func(r transition.TransitionRepository) workflow.TransitionCounter { return r },
			func(r workflow.WorkflowRepository) matcher.WorkflowSource { return r },
			func(s ownership.Store) ownership.Mutator { return s },
			func(s ownership.Store) entity.OwnerSource { return s },

			// Initialize Controller
			audit.NewAuditController,
			workflow.NewWorkflowController,
			transition.NewTransitionController,
			entity.NewEntityController,
			system.NewDebugController,
			system.NewHealthController,
			system.NewWebSocketController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(transition.NewTransitionApi),
			AsRoute(entity.NewEntityApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			InitializeIndexes,
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartProcessor,
		),
	)

	app.Run()
}
