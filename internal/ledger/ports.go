package ledger

import (
	"context"

	"autonomos/internal/core"
)

// HistoryLimit caps how many rows a history query returns.
const HistoryLimit = 50

// Ports for storage adapters. Every operation is scoped by the tenant, the
// phone number of the sender that owns the data.
type (
	ClientResolver interface {
		// ResolveOrCreateClient returns the id of the client named exactly
		// name for tenant, creating it when missing. Concurrent calls for the
		// same pair return the same id.
		ResolveOrCreateClient(ctx context.Context, tenant, name string) (int64, error)
	}

	EntryWriter interface {
		// AppendEntry stores an immutable entry stamped with the current time.
		AppendEntry(ctx context.Context, clientID int64, item string, amountCents int64, source core.Source) (int64, error)
	}

	// HistoryReader lists a tenant's entries, newest first.
	HistoryReader interface {
		// QueryHistory returns at most HistoryLimit rows. A non-empty filter
		// keeps clients whose name contains it, ignoring case.
		QueryHistory(ctx context.Context, tenant, filter string) ([]core.HistoryRow, error)
	}

	Store interface {
		ClientResolver
		EntryWriter
		HistoryReader
	}
)
