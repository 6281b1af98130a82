package ownership

import (
	"context"
	"fmt"

	"crm-workflow/internal/config"
	"crm-workflow/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStore picks the ownership store from OWNERSHIP_BACKEND. The processor
// writes through it and the matcher reads owners from it.
func NewStore(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB, logger *zap.Logger) (Store, error) {
	switch cfg.OwnershipBackend {
	case "", "mongo":
		return NewMongoMutator(mongodb), nil
	case "postgres", "postgresql", "mysql":
		if cfg.OwnershipDSN == "" {
			return nil, fmt.Errorf("OWNERSHIP_DSN is required for backend %q", cfg.OwnershipBackend)
		}
		m, err := OpenSQLMutator(context.Background(), cfg.OwnershipBackend, cfg.OwnershipDSN, cfg.OwnershipTable)
		if err != nil {
			return nil, err
		}
		logger.Info("Ownership store connected",
			zap.String("backend", cfg.OwnershipBackend),
			zap.String("table", cfg.OwnershipTable))
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return m.Close()
			},
		})
		return m, nil
	}
	return nil, fmt.Errorf("unknown OWNERSHIP_BACKEND %q", cfg.OwnershipBackend)
}
