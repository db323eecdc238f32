package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"socialgraph/backend/internal/identity"
	"socialgraph/backend/internal/query"
	"socialgraph/backend/internal/store/storetest"
	apperrors "socialgraph/backend/pkg/errors"
)

func newTestManager(t *testing.T, builder query.Builder) (*Manager, *storetest.Memory) {
	t.Helper()
	mem := storetest.NewMemory()
	m := NewManager(mem, builder, zap.NewNop())
	return m, mem
}

func builders() map[string]query.Builder {
	return map[string]query.Builder{
		"gremlin": query.NewGremlin(),
		"cypher":  query.NewCypher(),
	}
}

func ids(profiles []Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ProfileID)
	}
	sort.Strings(out)
	return out
}

func TestManager_AliceFollowsBob(t *testing.T) {
	for name, builder := range builders() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m, _ := newTestManager(t, builder)

			rel, err := m.Follow(ctx, "alice", "bob")
			require.NoError(t, err)
			assert.Equal(t, "alice", rel.FollowerID)
			assert.Equal(t, "bob", rel.FolloweeID)
			assert.True(t, rel.IsActive)

			following, err := m.IsFollowing(ctx, "alice", "bob")
			require.NoError(t, err)
			assert.True(t, following)

			count, err := m.CountFollowers(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			require.NoError(t, m.Unfollow(ctx, "alice", "bob"))

			count, err = m.CountFollowers(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})
	}
}

func TestManager_FollowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, mem := newTestManager(t, query.NewGremlin())

	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return first }
	rel1, err := m.Follow(ctx, "alice", "bob")
	require.NoError(t, err)

	m.now = func() time.Time { return first.Add(time.Hour) }
	rel2, err := m.Follow(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.True(t, rel1.CreatedAtUTC.Equal(first))
	assert.True(t, rel2.CreatedAtUTC.Equal(rel1.CreatedAtUTC), "createdAtUtc must not change on repeat follow")
	assert.Equal(t, 1, mem.EdgeCount("alice", "bob"))
}

func TestManager_FollowOverEdgeWithoutTimestamp(t *testing.T) {
	for name, builder := range builders() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m, mem := newTestManager(t, builder)
			mem.AddEdgeWithoutTimestamp("alice", "bob")

			now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			m.now = func() time.Time { return now }

			rel, err := m.Follow(ctx, "alice", "bob")
			require.NoError(t, err)
			assert.True(t, rel.CreatedAtUTC.Equal(now))
			assert.Equal(t, 1, mem.EdgeCount("alice", "bob"))
		})
	}
}

func TestManager_FollowCreatesProfileVertices(t *testing.T) {
	m, mem := newTestManager(t, query.NewGremlin())

	_, err := m.Follow(context.Background(), "alice", "bob")
	require.NoError(t, err)

	assert.True(t, mem.HasProfile("alice"))
	assert.True(t, mem.HasProfile("bob"))
	assert.Equal(t, 2, mem.Calls(query.OpEnsureProfile))
	assert.Equal(t, 1, mem.Calls(query.OpUpsertFollow))
}

func TestManager_SelfFollowRejectedWithoutStoreCall(t *testing.T) {
	m := NewManager(storetest.Unreachable{T: t}, query.NewGremlin(), zap.NewNop())

	for _, id := range []string{"alice", "o'brien\\test", "x"} {
		_, err := m.Follow(context.Background(), id, id)
		require.Error(t, err)
		assert.True(t, apperrors.IsSelfRelationship(err), "Follow(%q, %q): %v", id, id, err)
	}
}

func TestManager_BlankIDsRejectedWithoutStoreCall(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storetest.Unreachable{T: t}, query.NewGremlin(), zap.NewNop())

	cases := []struct {
		follower, followee, field string
	}{
		{"", "bob", "followerId"},
		{"  ", "bob", "followerId"},
		{"alice", "", "followeeId"},
		{"", "", "followerId"},
	}
	for _, tc := range cases {
		_, err := m.Follow(ctx, tc.follower, tc.followee)
		var invalid *apperrors.ErrInvalidIdentity
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, tc.field, invalid.Field)

		err = m.Unfollow(ctx, tc.follower, tc.followee)
		assert.True(t, apperrors.IsInvalidIdentity(err))
	}
}

func TestManager_BlankReadsAreZeroCost(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storetest.Unreachable{T: t}, query.NewGremlin(), zap.NewNop())

	followers, err := m.ListFollowers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, followers)
	assert.NotNil(t, followers)

	following, err := m.ListFollowing(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, following)

	n, err := m.CountFollowers(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = m.CountFollowing(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := m.IsFollowing(ctx, "", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.IsFollowing(ctx, "alice", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_UnfollowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, mem := newTestManager(t, query.NewGremlin())

	require.NoError(t, m.Unfollow(ctx, "alice", "bob"))
	require.NoError(t, m.Unfollow(ctx, "alice", "bob"))
	assert.Equal(t, 0, mem.EdgeCount("alice", "bob"))
	assert.False(t, mem.HasProfile("alice"), "unfollow must not create vertices")
}

func TestManager_FollowUnfollowRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, query.NewGremlin())

	_, err := m.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, m.Unfollow(ctx, "alice", "bob"))

	following, err := m.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, following)

	followers, err := m.ListFollowers(ctx, "bob")
	require.NoError(t, err)
	assert.NotContains(t, ids(followers), "alice")
}

func TestManager_ListingsAreSymmetric(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, query.NewGremlin())

	edges := [][2]string{
		{"alice", "bob"},
		{"carol", "bob"},
		{"bob", "alice"},
		{"alice", "dave"},
	}
	for _, e := range edges {
		_, err := m.Follow(ctx, e[0], e[1])
		require.NoError(t, err)
	}

	for _, e := range edges {
		followers, err := m.ListFollowers(ctx, e[1])
		require.NoError(t, err)
		assert.Contains(t, ids(followers), e[0])

		following, err := m.ListFollowing(ctx, e[0])
		require.NoError(t, err)
		assert.Contains(t, ids(following), e[1])
	}

	for _, p := range []string{"alice", "bob", "carol", "dave", "nobody"} {
		followers, err := m.ListFollowers(ctx, p)
		require.NoError(t, err)
		nFollowers, err := m.CountFollowers(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(len(followers)), nFollowers, "followers of %s", p)

		following, err := m.ListFollowing(ctx, p)
		require.NoError(t, err)
		nFollowing, err := m.CountFollowing(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(len(following)), nFollowing, "following of %s", p)
	}

	followers, err := m.ListFollowers(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, ids(followers))
}

func TestManager_SpecialCharacterIDsBehaveLikePlainIDs(t *testing.T) {
	ctx := context.Background()

	run := func(a, b string) (followers []string, count int64, following bool) {
		m, _ := newTestManager(t, query.NewGremlin())
		_, err := m.Follow(ctx, a, b)
		require.NoError(t, err)
		list, err := m.ListFollowers(ctx, b)
		require.NoError(t, err)
		count, err = m.CountFollowers(ctx, b)
		require.NoError(t, err)
		following, err = m.IsFollowing(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, m.Unfollow(ctx, a, b))
		after, err := m.IsFollowing(ctx, a, b)
		require.NoError(t, err)
		assert.False(t, after)
		return ids(list), count, following
	}

	plainList, plainCount, plainFollowing := run("obrientest", "bob")
	oddList, oddCount, oddFollowing := run("o'brien\\test", "bob")

	assert.Equal(t, []string{"obrientest"}, plainList)
	assert.Equal(t, []string{"o'brien\\test"}, oddList)
	assert.Equal(t, plainCount, oddCount)
	assert.Equal(t, plainFollowing, oddFollowing)
}

func TestManager_VertexCreationConflictIsSuccess(t *testing.T) {
	ctx := context.Background()
	m, mem := newTestManager(t, query.NewGremlin())

	// another writer created both vertices first
	for _, id := range []string{"alice", "bob"} {
		v, err := identity.Resolve(id)
		require.NoError(t, err)
		_, err = mem.Submit(ctx, query.NewGremlin().EnsureProfile(query.EscapeVertex(v)))
		require.NoError(t, err)
	}
	mem.FailOn[query.OpEnsureProfile] = apperrors.NewQueryConflict(string(query.OpEnsureProfile), 409, fmt.Errorf("resource already exists"))

	rel, err := m.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, rel.IsActive)
	assert.Equal(t, 1, mem.EdgeCount("alice", "bob"))
}

func TestManager_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	unavailable := apperrors.NewStoreUnavailable("test", context.DeadlineExceeded)
	failed := apperrors.NewQueryFailed("x", 597, fmt.Errorf("script error"))

	t.Run("ensure profile", func(t *testing.T) {
		m, mem := newTestManager(t, query.NewGremlin())
		mem.FailOn[query.OpEnsureProfile] = failed
		_, err := m.Follow(ctx, "alice", "bob")
		assert.True(t, apperrors.IsQueryFailed(err))
		assert.Equal(t, 0, mem.Calls(query.OpUpsertFollow))
	})

	t.Run("upsert", func(t *testing.T) {
		m, mem := newTestManager(t, query.NewGremlin())
		mem.FailOn[query.OpUpsertFollow] = unavailable
		_, err := m.Follow(ctx, "alice", "bob")
		assert.True(t, apperrors.IsStoreUnavailable(err))
	})

	t.Run("unfollow", func(t *testing.T) {
		m, mem := newTestManager(t, query.NewGremlin())
		mem.FailOn[query.OpDeleteFollow] = failed
		assert.True(t, apperrors.IsQueryFailed(m.Unfollow(ctx, "alice", "bob")))
	})

	t.Run("reads", func(t *testing.T) {
		m, mem := newTestManager(t, query.NewGremlin())
		for _, op := range []query.Operation{query.OpFollowers, query.OpFollowing, query.OpCountFollowers, query.OpCountFollowing, query.OpIsFollowing} {
			mem.FailOn[op] = unavailable
		}
		_, err := m.ListFollowers(ctx, "bob")
		assert.True(t, apperrors.IsStoreUnavailable(err))
		_, err = m.ListFollowing(ctx, "bob")
		assert.True(t, apperrors.IsStoreUnavailable(err))
		_, err = m.CountFollowers(ctx, "bob")
		assert.True(t, apperrors.IsStoreUnavailable(err))
		_, err = m.CountFollowing(ctx, "bob")
		assert.True(t, apperrors.IsStoreUnavailable(err))
		_, err = m.IsFollowing(ctx, "alice", "bob")
		assert.True(t, apperrors.IsStoreUnavailable(err))
	})
}

func TestManager_CancelledContextIsStoreUnavailable(t *testing.T) {
	m, _ := newTestManager(t, query.NewGremlin())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Follow(ctx, "alice", "bob")
	assert.True(t, apperrors.IsStoreUnavailable(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestManager_ConcurrentFollowsCreateOneEdge(t *testing.T) {
	ctx := context.Background()
	m, mem := newTestManager(t, query.NewGremlin())

	const callers = 32
	var wg sync.WaitGroup
	results := make([]*Relationship, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Follow(ctx, "alice", "bob")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].CreatedAtUTC.Equal(results[0].CreatedAtUTC))
	}
	assert.Equal(t, 1, mem.EdgeCount("alice", "bob"))
}

func TestManager_CloseReleasesClientOnce(t *testing.T) {
	m, mem := newTestManager(t, query.NewGremlin())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, mem.Closes())
}
