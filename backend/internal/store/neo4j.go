package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"socialgraph/backend/internal/query"
	apperrors "socialgraph/backend/pkg/errors"
)

const neo4jConstraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

// Neo4jClient runs Cypher statements through the Neo4j driver. Every
// statement is an auto-commit query, so the driver never replays it.
type Neo4jClient struct {
	driver    neo4j.DriverWithContext
	uri       string
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewNeo4jClient wraps an existing driver; the client takes ownership of it
func NewNeo4jClient(driver neo4j.DriverWithContext, uri string, logger *zap.Logger) *Neo4jClient {
	return &Neo4jClient{
		driver: driver,
		uri:    uri,
		logger: logger,
	}
}

// DialNeo4j creates a driver and verifies the server answers
func DialNeo4j(ctx context.Context, uri, user, password string, logger *zap.Logger) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(uri, fmt.Errorf("failed to create driver: %w", err))
	}

	client := NewNeo4jClient(driver, uri, logger)
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("Connected to Neo4j", zap.String("uri", uri))
	return client, nil
}

// EnsureSchema runs the dialect's schema statements. They are idempotent.
func (c *Neo4jClient) EnsureSchema(ctx context.Context, stmts []query.Statement) error {
	for _, stmt := range stmts {
		if _, err := c.Submit(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Submit runs one statement in its own session
func (c *Neo4jClient) Submit(ctx context.Context, stmt query.Statement) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable(c.uri, err)
	}

	mode := neo4j.AccessModeRead
	if stmt.Write {
		mode = neo4j.AccessModeWrite
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer session.Close(ctx)

	result, err := session.Run(ctx, stmt.Text, stmt.Params)
	if err != nil {
		return nil, c.classify(ctx, stmt.Op, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, c.classify(ctx, stmt.Op, err)
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, NewRow(record.AsMap()))
	}
	return rows, nil
}

// Ping verifies connectivity to the server
func (c *Neo4jClient) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewStoreUnavailable(c.uri, err)
	}
	return nil
}

// Close closes the driver once
func (c *Neo4jClient) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.driver.Close(context.Background())
	})
	return c.closeErr
}

func (c *Neo4jClient) classify(ctx context.Context, op query.Operation, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewStoreUnavailable(c.uri, err)
	}
	if neo4j.IsConnectivityError(err) {
		return apperrors.NewStoreUnavailable(c.uri, err)
	}

	var dbErr *neo4j.Neo4jError
	if errors.As(err, &dbErr) {
		if dbErr.Code == neo4jConstraintViolation {
			return apperrors.NewQueryConflict(string(op), 409, err)
		}
		if strings.HasPrefix(dbErr.Code, "Neo.TransientError") {
			return apperrors.NewQueryFailed(string(op), 503, err)
		}
		return apperrors.NewQueryFailed(string(op), 400, err)
	}

	return apperrors.NewQueryFailed(string(op), 500, err)
}
