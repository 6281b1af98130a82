package cli

import (
	"context"

	"crm-workflow/internal/config"
	"crm-workflow/internal/database"
	"crm-workflow/internal/features/audit"
	"crm-workflow/internal/features/snapshot"
	"crm-workflow/internal/features/transition"

	"go.uber.org/zap"
)

// Env is what a command needs to act on the queue.
type Env struct {
	Config      *config.Config
	Repo        transition.TransitionRepository
	Transitions transition.TransitionService
	Logger      *zap.Logger

	Close func(ctx context.Context) error
}

// Opener builds an Env. Commands call it lazily so --help never dials a database.
type Opener func(ctx context.Context, verbose bool) (*Env, error)

// OpenMongo connects with the same environment variables as the API server.
// Requeues made here publish to a local hub with no subscribers; API clients
// see them on their next list call.
func OpenMongo(ctx context.Context, verbose bool) (*Env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			_ = db.Client.Disconnect(ctx)
			return nil, err
		}
	}

	repo := transition.NewTransitionRepository(db)
	svc := transition.NewTransitionService(
		repo,
		snapshot.NewSnapshotRepository(db),
		audit.NewAuditService(audit.NewAuditRepository(db)),
		transition.NewHub(),
		logger,
	)

	return &Env{
		Config:      cfg,
		Repo:        repo,
		Transitions: svc,
		Logger:      logger,
		Close: func(ctx context.Context) error {
			_ = logger.Sync()
			return db.Client.Disconnect(ctx)
		},
	}, nil
}

func (o *RootOptions) env(ctx context.Context) (*Env, error) {
	env, err := o.open(ctx, o.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return env, nil
}
