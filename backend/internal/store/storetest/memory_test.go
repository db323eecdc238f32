package storetest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/backend/internal/identity"
	"socialgraph/backend/internal/query"
	apperrors "socialgraph/backend/pkg/errors"
)

func escaped(t *testing.T, profileID string) query.Vertex {
	t.Helper()
	v, err := identity.Resolve(profileID)
	require.NoError(t, err)
	return query.EscapeVertex(v)
}

func TestMemory_AcceptsWellFormedScripts(t *testing.T) {
	g := query.NewGremlin()
	mem := NewMemory()
	ctx := context.Background()
	odd, bob := escaped(t, `o'brien\test`), escaped(t, "bob")

	for _, stmt := range []query.Statement{
		g.EnsureProfile(odd),
		g.EnsureProfile(bob),
		g.UpsertFollow(odd, bob, time.Now()),
		g.Followers(bob),
		g.IsFollowing(odd, bob),
		g.DeleteFollow(odd, bob),
	} {
		_, err := mem.Submit(ctx, stmt)
		assert.NoError(t, err, stmt.Op)
	}
}

func TestMemory_RejectsScriptWithBrokenLiteral(t *testing.T) {
	mem := NewMemory()
	odd := escaped(t, "o'brien")

	stmt := query.NewGremlin().EnsureProfile(odd)
	// Undo the escaping of the quote, as a template that skipped Escape would
	stmt.Text = strings.ReplaceAll(stmt.Text, `\'`, `'`)

	_, err := mem.Submit(context.Background(), stmt)
	require.Error(t, err)
	assert.True(t, apperrors.IsQueryFailed(err))
	assert.False(t, mem.HasProfile("o'brien"))
}

func TestMemory_EdgeWithoutTimestampReportsStatementTime(t *testing.T) {
	mem := NewMemory()
	mem.AddEdgeWithoutTimestamp("alice", "bob")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows, err := mem.Submit(context.Background(),
		query.NewGremlin().UpsertFollow(escaped(t, "alice"), escaped(t, "bob"), at))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	createdAt, err := rows[0].CreatedAt()
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(at))
}
