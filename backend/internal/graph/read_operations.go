package graph

import (
	"context"

	"go.uber.org/zap"

	"socialgraph/backend/internal/identity"
	"socialgraph/backend/internal/query"
)

// ============================================================================
// Read Operations
// ============================================================================
//
// A blank profile id has no relationships: reads return an empty or zero
// result without contacting the store.

// ListFollowers returns the profiles following profileID
func (m *Manager) ListFollowers(ctx context.Context, profileID string) ([]Profile, error) {
	return m.list(ctx, profileID, m.builder.Followers)
}

// ListFollowing returns the profiles profileID follows
func (m *Manager) ListFollowing(ctx context.Context, profileID string) ([]Profile, error) {
	return m.list(ctx, profileID, m.builder.Following)
}

// CountFollowers returns the number of profiles following profileID
func (m *Manager) CountFollowers(ctx context.Context, profileID string) (int64, error) {
	return m.count(ctx, profileID, m.builder.CountFollowers)
}

// CountFollowing returns the number of profiles profileID follows
func (m *Manager) CountFollowing(ctx context.Context, profileID string) (int64, error) {
	return m.count(ctx, profileID, m.builder.CountFollowing)
}

// IsFollowing reports whether followerID follows targetID
func (m *Manager) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	if identity.IsBlank(followerID) || identity.IsBlank(targetID) {
		return false, nil
	}
	follower, target, err := resolvePair(followerID, "followerId", targetID, "targetId")
	if err != nil {
		return false, err
	}

	stmt := m.builder.IsFollowing(follower, target)
	rows, err := m.client.Submit(ctx, stmt)
	if err != nil {
		m.logger.Error("Error checking follow relation",
			zap.String("follower_id", followerID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return false, err
	}

	n, err := singleCount(stmt, rows)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *Manager) list(ctx context.Context, profileID string, build func(query.Vertex) query.Statement) ([]Profile, error) {
	if identity.IsBlank(profileID) {
		return []Profile{}, nil
	}
	v, err := identity.Resolve(profileID)
	if err != nil {
		return nil, err
	}

	stmt := build(query.EscapeVertex(v))
	rows, err := m.client.Submit(ctx, stmt)
	if err != nil {
		m.logger.Error("Error listing relations",
			zap.String("operation", string(stmt.Op)),
			zap.String("profile_id", profileID),
			zap.Error(err),
		)
		return nil, err
	}

	profiles, err := profilesFromRows(stmt, rows)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Relations listed",
		zap.String("operation", string(stmt.Op)),
		zap.String("profile_id", profileID),
		zap.Int("count", len(profiles)),
	)
	return profiles, nil
}

func (m *Manager) count(ctx context.Context, profileID string, build func(query.Vertex) query.Statement) (int64, error) {
	if identity.IsBlank(profileID) {
		return 0, nil
	}
	v, err := identity.Resolve(profileID)
	if err != nil {
		return 0, err
	}

	stmt := build(query.EscapeVertex(v))
	rows, err := m.client.Submit(ctx, stmt)
	if err != nil {
		m.logger.Error("Error counting relations",
			zap.String("operation", string(stmt.Op)),
			zap.String("profile_id", profileID),
			zap.Error(err),
		)
		return 0, err
	}
	return singleCount(stmt, rows)
}
