package store

import (
	"encoding/json"
	"fmt"
	"time"

	"socialgraph/backend/internal/constants"
	"socialgraph/backend/internal/identity"
)

// Row is one result returned by the store: either a scalar (Gremlin
// projections) or a record of named columns (Cypher RETURN, element maps).
// Callers read it through the accessor matching the statement's Shape.
type Row struct {
	value any
}

// NewRow wraps a decoded result value
func NewRow(value any) Row {
	return Row{value: value}
}

func (r Row) column(key string) (any, bool) {
	m, ok := r.value.(map[string]any)
	if !ok {
		return r.value, true
	}
	v, ok := m[key]
	return v, ok
}

// ProfileID reads a profileId projection. Whole vertex elements are accepted
// too, either through their profileId property or by reversing the vertex id.
func (r Row) ProfileID() (string, error) {
	m, isMap := r.value.(map[string]any)
	if !isMap {
		if s, ok := r.value.(string); ok {
			return s, nil
		}
		return "", r.shapeError("profileId")
	}

	if s, ok := m[constants.PropertyProfileID].(string); ok {
		return s, nil
	}
	if props, ok := m["properties"].(map[string]any); ok {
		if s, ok := vertexProperty(props, constants.PropertyProfileID); ok {
			return s, nil
		}
	}
	if id, ok := m[constants.PropertyID].(string); ok {
		if profileID, ok := identity.ProfileID(id); ok {
			return profileID, nil
		}
	}
	return "", r.shapeError("profileId")
}

// Count reads a count aggregation
func (r Row) Count() (int64, error) {
	v, ok := r.column("count")
	if !ok {
		return 0, r.shapeError("count")
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	}
	return 0, r.shapeError("count")
}

// CreatedAt reads the createdAtUtc of an edge
func (r Row) CreatedAt() (time.Time, error) {
	v, ok := r.column(constants.PropertyCreatedAtUTC)
	if !ok {
		return time.Time{}, r.shapeError(constants.PropertyCreatedAtUTC)
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s %q: %w", constants.PropertyCreatedAtUTC, t, err)
		}
		return parsed.UTC(), nil
	}
	return time.Time{}, r.shapeError(constants.PropertyCreatedAtUTC)
}

func (r Row) shapeError(want string) error {
	return fmt.Errorf("unexpected row for %s: %T", want, r.value)
}

// vertexProperty reads a GraphSON vertex property: a list of {id, value}
func vertexProperty(props map[string]any, key string) (string, bool) {
	list, ok := props[key].([]any)
	if !ok || len(list) == 0 {
		return "", false
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := entry["value"].(string)
	return s, ok
}
