package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"crm-workflow/internal/config"
	"crm-workflow/internal/database"
	"crm-workflow/internal/features/audit"
	"crm-workflow/internal/features/entity"
	"crm-workflow/internal/features/matcher"
	"crm-workflow/internal/features/ownership"
	"crm-workflow/internal/features/snapshot"
	"crm-workflow/internal/features/transition"
	"crm-workflow/internal/features/workflow"
	"crm-workflow/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Data paths, relative to the repository root
const (
	workflowsPath = "cmd/seed/data/workflows.json"
	entitiesPath  = "cmd/seed/data/entities.json"
)

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Seed loads demo workflows, then saves demo entities so the matcher admits
// their transitions. Running it twice creates nothing new.
func Seed(
	lc fx.Lifecycle,
	workflowRepo workflow.WorkflowRepository,
	workflowService workflow.WorkflowService,
	transitionRepo transition.TransitionRepository,
	snapshotRepo snapshot.SnapshotRepository,
	entityRepo entity.EntityRepository,
	entityService entity.EntityService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()

				logger.Info("Starting database seeding")

				for _, repo := range []interface {
					EnsureIndexes(ctx context.Context) error
				}{workflowRepo, transitionRepo, snapshotRepo, entityRepo} {
					if err := repo.EnsureIndexes(ctx); err != nil {
						logger.Error("Failed to ensure indexes", zap.Error(err))
						return
					}
				}

				// 1. Workflows
				var workflows []workflow.Workflow
				if err := readJSON(workflowsPath, &workflows); err != nil {
					logger.Error("Failed to read workflows.json", zap.Error(err))
					return
				}

				existing := map[string]map[string]bool{}
				for _, wf := range workflows {
					names, ok := existing[wf.EntityType]
					if !ok {
						names = map[string]bool{}
						current, err := workflowService.ListWorkflows(ctx, wf.EntityType)
						if err != nil {
							logger.Error("Failed to list workflows", zap.String("entity_type", wf.EntityType), zap.Error(err))
							return
						}
						for _, c := range current {
							names[c.Name] = true
						}
						existing[wf.EntityType] = names
					}
					if names[wf.Name] {
						logger.Info("Workflow exists, skipping", zap.String("workflow", wf.Name))
						continue
					}

					wf := wf
					if err := workflowService.CreateWorkflow(ctx, &wf); err != nil {
						logger.Error("Failed to create workflow", zap.String("workflow", wf.Name), zap.Error(err))
						continue
					}
					names[wf.Name] = true
					logger.Info("Workflow created",
						zap.String("workflow", wf.Name),
						zap.String("entity_type", wf.EntityType),
						zap.Int("priority", wf.Priority))
				}

				// 2. Entities
				var records []entity.Record
				if err := readJSON(entitiesPath, &records); err != nil {
					logger.Warn("Failed to read entities.json, skipping entity seeding", zap.Error(err))
					return
				}

				admitted := 0
				for _, rec := range records {
					rec := rec
					t, err := entityService.Save(ctx, &rec)
					if err != nil {
						logger.Error("Failed to save entity",
							zap.String("entity_type", rec.EntityType),
							zap.String("entity_id", rec.EntityID),
							zap.Error(err))
						continue
					}
					if t == nil {
						logger.Info("Entity saved, no workflow matched", zap.String("entity_id", rec.EntityID))
						continue
					}
					admitted++
					logger.Info("Entity saved, transition queued",
						zap.String("entity_id", rec.EntityID),
						zap.String("transition_id", t.ID.Hex()),
						zap.String("target_group", t.TargetUserGroupID))
				}

				logger.Info("Seeding complete", zap.Int("entities", len(records)), zap.Int("transitions", admitted))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			audit.NewAuditRepository,
			audit.NewAuditService,
			workflow.NewWorkflowRepository,
			transition.NewTransitionRepository,
			snapshot.NewSnapshotRepository,
			entity.NewEntityRepository,
			ownership.NewStore,
			transition.NewHub,
			func(r transition.TransitionRepository) workflow.TransitionCounter { return r },
			func(r workflow.WorkflowRepository) matcher.WorkflowSource { return r },
			func(s ownership.Store) entity.OwnerSource { return s },
			workflow.NewWorkflowService,
			matcher.NewMatcher,
			entity.NewEntityService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
