package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	remotemem "budget/internal/remote/memory"
	"budget/internal/remote/postgres"
	gsheet "budget/internal/sheets/google"
	sheetsmem "budget/internal/sheets/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create opens every configured backend. AMQP is optional: a failed dial
// is logged and the process continues with polling sync only.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Backends, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b        Backends
		cleanups []func() error
	)

	switch config.RemoteType {
	case RemoteMemory:
		b.Remote = remotemem.NewStore()
		f.logger.Info("Initialized in-memory remote store")
	case RemotePostgres:
		store, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres remote store: %w", err)
		}
		b.Remote = store
		cleanups = append(cleanups, func() error { store.Close(); return nil })
		f.logger.Info("Initialized postgres remote store")
	case RemoteNone:
		f.logger.Info("Remote store disabled")
	}

	switch config.SheetsType {
	case SheetsGoogle:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			TabBase:            config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			OAuthClientJSON:    config.GoogleOAuthClientJSON,
			OAuthClientFile:    config.GoogleOAuthClientFile,
			OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
			OAuthTokenFile:     config.GoogleOAuthTokenFile,
		})
		if err != nil {
			runCleanups(cleanups)
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		b.Reports = cli
		f.logger.Info("Initialized Google Sheets report mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	case SheetsMemory:
		b.Reports = sheetsmem.New()
		f.logger.Info("Initialized in-memory report mirror")
	case SheetsNone:
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync messages", "error", err)
		} else {
			b.AMQP = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	b.Cleanup = func() error { return runCleanups(cleanups) }
	return &b, nil
}

// runCleanups runs fns in reverse order and joins their errors.
func runCleanups(fns []func() error) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
