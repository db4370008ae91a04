package builders

import (
	"context"
	"fmt"

	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/aatumaykin/quotebot/internal/tracking"
)

type StoreBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewStoreBuilder(cfg *config.Config, log *logger.Logger) *StoreBuilder {
	return &StoreBuilder{
		config: cfg,
		logger: log,
	}
}

// Build opens the quote store and the tracking log selected by tracking.driver.
func (b *StoreBuilder) Build(ctx context.Context) (*store.SQLite, tracking.Log, error) {
	st, err := store.Open(ctx, b.config.StorePath(), b.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	switch b.config.Tracking.Driver {
	case config.TrackingDriverSQLite:
		b.logger.Info("tracking records kept in store",
			logger.Field{Key: "path", Value: b.config.StorePath()})
		return st, st, nil
	case config.TrackingDriverFile, "":
		fileLog, err := tracking.NewFileLog(b.config.TrackingDir())
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		b.logger.Info("tracking records kept in files",
			logger.Field{Key: "dir", Value: b.config.TrackingDir()})
		return st, fileLog, nil
	default:
		_ = st.Close()
		return nil, nil, fmt.Errorf("unsupported tracking driver: %s", b.config.Tracking.Driver)
	}
}
