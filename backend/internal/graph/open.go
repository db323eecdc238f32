package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"socialgraph/backend/internal/constants"
	"socialgraph/backend/internal/query"
	"socialgraph/backend/internal/store"
	"socialgraph/backend/pkg/config"
)

// Open connects to the configured backend and returns a Manager that owns
// the client. Startup fails fast when the store cannot be reached.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	switch cfg.GraphBackend {
	case constants.BackendNeo4j:
		builder := query.NewCypher()
		client, err := store.DialNeo4j(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, logger)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureSchema(ctx, builder.Schema()); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		return NewManager(client, builder, logger), nil

	case constants.BackendGremlin:
		client := store.NewGremlinClient(store.GremlinConfig{
			Endpoint:       cfg.Gremlin.Endpoint(),
			Username:       cfg.Gremlin.Username(),
			Password:       cfg.Gremlin.AuthKey,
			RequestTimeout: cfg.Gremlin.RequestTimeout,
		}, logger)
		if err := client.Connect(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return NewManager(client, query.NewGremlin(), logger), nil
	}

	return nil, fmt.Errorf("unknown graph backend: %q", cfg.GraphBackend)
}
