package graph

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialgraph/backend/internal/identity"
	"socialgraph/backend/internal/query"
	apperrors "socialgraph/backend/pkg/errors"
)

// ============================================================================
// Follow / Unfollow
// ============================================================================

// Follow makes followerID follow followeeID. Calling it again for the same
// pair changes nothing and returns the original createdAtUtc.
func (m *Manager) Follow(ctx context.Context, followerID, followeeID string) (*Relationship, error) {
	follower, followee, err := resolvePair(followerID, "followerId", followeeID, "followeeId")
	if err != nil {
		return nil, err
	}
	if followerID == followeeID {
		return nil, apperrors.NewSelfRelationship(followerID)
	}

	// Both vertices must exist before the edge upsert can find them
	g, gctx := errgroup.WithContext(ctx)
	for _, v := range []query.Vertex{follower, followee} {
		g.Go(func() error {
			return m.ensureProfile(gctx, v)
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error("Failed to ensure profile vertices",
			zap.String("follower_id", followerID),
			zap.String("followee_id", followeeID),
			zap.Error(err),
		)
		return nil, err
	}

	stmt := m.builder.UpsertFollow(follower, followee, m.now().UTC())
	rows, err := m.client.Submit(ctx, stmt)
	if err != nil {
		m.logger.Error("Error following user",
			zap.String("follower_id", followerID),
			zap.String("followee_id", followeeID),
			zap.Error(err),
		)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewQueryFailed(string(stmt.Op), 0, errors.New("edge upsert returned no rows"))
	}

	createdAt, err := rows[0].CreatedAt()
	if err != nil {
		return nil, apperrors.NewQueryFailed(string(stmt.Op), 0, err)
	}

	m.logger.Info("Follow recorded",
		zap.String("follower_id", followerID),
		zap.String("followee_id", followeeID),
		zap.Time("created_at_utc", createdAt),
	)

	return &Relationship{
		FollowerID:   followerID,
		FolloweeID:   followeeID,
		CreatedAtUTC: createdAt,
		IsActive:     true,
	}, nil
}

// Unfollow deletes the follows edge. A missing edge is not an error.
func (m *Manager) Unfollow(ctx context.Context, followerID, followeeID string) error {
	follower, followee, err := resolvePair(followerID, "followerId", followeeID, "followeeId")
	if err != nil {
		return err
	}

	if _, err := m.client.Submit(ctx, m.builder.DeleteFollow(follower, followee)); err != nil {
		m.logger.Error("Error unfollowing user",
			zap.String("follower_id", followerID),
			zap.String("followee_id", followeeID),
			zap.Error(err),
		)
		return err
	}

	m.logger.Info("Unfollow recorded",
		zap.String("follower_id", followerID),
		zap.String("followee_id", followeeID),
	)
	return nil
}

// ensureProfile creates the vertex if it is absent. Losing a creation race
// to another writer surfaces as a conflict and counts as success.
func (m *Manager) ensureProfile(ctx context.Context, v query.Vertex) error {
	_, err := m.client.Submit(ctx, m.builder.EnsureProfile(v))
	if apperrors.IsConflict(err) {
		m.logger.Debug("Profile vertex created concurrently",
			zap.String("profile_id", v.ProfileID.Raw()),
		)
		return nil
	}
	return err
}

// resolvePair validates two ids and maps them to escaped vertices
func resolvePair(a, aField, b, bField string) (query.Vertex, query.Vertex, error) {
	if identity.IsBlank(a) {
		return query.Vertex{}, query.Vertex{}, apperrors.NewInvalidIdentity(aField)
	}
	if identity.IsBlank(b) {
		return query.Vertex{}, query.Vertex{}, apperrors.NewInvalidIdentity(bField)
	}

	av, err := identity.Resolve(a)
	if err != nil {
		return query.Vertex{}, query.Vertex{}, err
	}
	bv, err := identity.Resolve(b)
	if err != nil {
		return query.Vertex{}, query.Vertex{}, err
	}
	return query.EscapeVertex(av), query.EscapeVertex(bv), nil
}
