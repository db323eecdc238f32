package graph

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"socialgraph/backend/internal/query"
	"socialgraph/backend/internal/store"
)

// Manager owns the follows graph: it maps profile ids to vertices, builds
// statements and runs them against the store. It holds no mutable state of
// its own, so one Manager serves any number of concurrent callers.
type Manager struct {
	client  store.Client
	builder query.Builder
	logger  *zap.Logger
	now     func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// NewManager creates a manager. The manager takes ownership of the client
// and releases it in Close.
func NewManager(client store.Client, builder query.Builder, logger *zap.Logger) *Manager {
	return &Manager{
		client:  client,
		builder: builder,
		logger:  logger,
		now:     time.Now,
	}
}

// Ping reports whether the store answers
func (m *Manager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx)
}

// Close releases the store client. Only the first call has any effect.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.client.Close()
		m.logger.Info("Graph store client closed")
	})
	return m.closeErr
}
