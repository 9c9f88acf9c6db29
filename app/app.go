// Package app wires configuration, logging, storage and the Library together
// for the command-line entry points.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"library-tracker/config"
	"library-tracker/library"
	"library-tracker/logging"
)

// App holds everything a command needs for one run.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Library *library.Library

	flush func() error
}

// Open sets up logging, opens the configured store and loads the library.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, flush, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := library.OpenStore(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.Timeout)
	if err != nil {
		flush()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	ids, err := library.NewIDGenerator(cfg.Members.IDScheme, cfg.Members.IDPrefix)
	if err != nil {
		store.Close()
		flush()
		return nil, err
	}

	lib, err := library.New(ctx, store, library.Options{
		LoanPeriod: cfg.Loans.LoanPeriod(),
		DailyFine:  library.Cents(cfg.Loans.DailyFineCents),
		IDs:        ids,
		Logger:     logger,
	})
	if err != nil {
		store.Close()
		flush()
		return nil, err
	}

	logger.Info("library opened", zap.String("driver", cfg.Storage.Driver), zap.String("path", cfg.Storage.Path))
	return &App{Config: cfg, Logger: logger, Library: lib, flush: flush}, nil
}

// Close closes the store and flushes the logs.
func (a *App) Close() error {
	return errors.Join(a.Library.Close(), a.flush())
}
