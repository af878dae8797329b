package sheets

import "context"

// Ports for outbound adapters.
type (
	// ReportWriter replaces the content of a tab with the given table.
	// The first row is the header. TabName picks the tab for a plan year
	// and a per-user label.
	ReportWriter interface {
		TabName(year int, label string) string
		WriteReport(ctx context.Context, tab string, table [][]string) error
	}

	// ReportReader reads a tab back, mostly for verification.
	ReportReader interface {
		ReadReport(ctx context.Context, tab string) ([][]string, error)
	}
)
