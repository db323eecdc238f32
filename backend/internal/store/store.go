// Package store holds the clients that carry statements to the graph store.
package store

import (
	"context"
	"errors"

	"socialgraph/backend/internal/query"
)

// ErrClientClosed is wrapped into StoreUnavailable once Close has run
var ErrClientClosed = errors.New("store client closed")

// Client submits statements to a graph store. Implementations are safe for
// concurrent use and never retry a failed statement.
type Client interface {
	// Submit runs one statement and returns its rows. Failures are
	// *errors.ErrStoreUnavailable or *errors.ErrQueryFailed.
	Submit(ctx context.Context, stmt query.Statement) ([]Row, error)
	// Ping checks the store can be reached
	Ping(ctx context.Context) error
	// Close releases the connection. Calls after the first are no-ops.
	Close() error
}
