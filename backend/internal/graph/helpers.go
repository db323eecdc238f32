package graph

import (
	"socialgraph/backend/internal/query"
	"socialgraph/backend/internal/store"
	apperrors "socialgraph/backend/pkg/errors"
)

// ============================================================================
// Row Decoding
// ============================================================================

// profilesFromRows decodes ShapeProfileID rows, dropping duplicates
func profilesFromRows(stmt query.Statement, rows []store.Row) ([]Profile, error) {
	profiles := make([]Profile, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id, err := row.ProfileID()
		if err != nil {
			return nil, apperrors.NewQueryFailed(string(stmt.Op), 0, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		profiles = append(profiles, Profile{ProfileID: id})
	}
	return profiles, nil
}

// singleCount decodes a ShapeCount result. No rows means zero.
func singleCount(stmt query.Statement, rows []store.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := rows[0].Count()
	if err != nil {
		return 0, apperrors.NewQueryFailed(string(stmt.Op), 0, err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
