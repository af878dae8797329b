package backend

import (
	"context"

	"budget/internal/amqp"
	"budget/internal/remote"
	"budget/internal/sheets"
)

type CleanupFunc func() error

// Backends bundles the outbound stores a process talks to. Any of them may
// be nil when the matching backend is "none" or unconfigured.
type Backends struct {
	Remote  remote.BudgetStore
	Reports sheets.ReportWriter
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// HasRemote reports whether a hosted store is configured.
func (b *Backends) HasRemote() bool { return b.Remote != nil }

// Ping checks every backend that can report its health.
func (b *Backends) Ping(ctx context.Context) error {
	if p, ok := b.Remote.(remote.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type Factory interface {
	Create(ctx context.Context, config Config) (*Backends, error)
}

type Config struct {
	RemoteType  RemoteType
	DatabaseURL string

	SheetsType               SheetsType
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type RemoteType string

const (
	RemoteMemory   RemoteType = "memory"
	RemotePostgres RemoteType = "postgres"
	RemoteNone     RemoteType = "none"
)

func (t RemoteType) IsValid() bool {
	switch t {
	case RemoteMemory, RemotePostgres, RemoteNone:
		return true
	}
	return false
}

type SheetsType string

const (
	SheetsGoogle SheetsType = "google"
	SheetsMemory SheetsType = "memory"
	SheetsNone   SheetsType = "none"
)

func (t SheetsType) IsValid() bool {
	switch t {
	case SheetsGoogle, SheetsMemory, SheetsNone:
		return true
	}
	return false
}
