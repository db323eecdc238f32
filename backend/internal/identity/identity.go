// Package identity maps opaque profile ids to graph vertices and back.
package identity

import (
	"strings"

	"socialgraph/backend/internal/constants"
	apperrors "socialgraph/backend/pkg/errors"
)

// Vertex is the graph-side identity of a profile
type Vertex struct {
	ID           string
	PartitionKey string
	ProfileID    string
}

// IsBlank reports whether a profile id is empty or whitespace only
func IsBlank(profileID string) bool {
	return strings.TrimSpace(profileID) == ""
}

// VertexID derives the namespaced vertex id for a profile
func VertexID(profileID string) (string, error) {
	if IsBlank(profileID) {
		return "", apperrors.NewInvalidIdentity("profileId")
	}
	return constants.ProfileVertexPrefix + profileID, nil
}

// PartitionKey returns the partition key for a profile, which is the raw id
func PartitionKey(profileID string) (string, error) {
	if IsBlank(profileID) {
		return "", apperrors.NewInvalidIdentity("profileId")
	}
	return profileID, nil
}

// Resolve maps a profile id to its full vertex identity
func Resolve(profileID string) (Vertex, error) {
	id, err := VertexID(profileID)
	if err != nil {
		return Vertex{}, err
	}
	return Vertex{
		ID:           id,
		PartitionKey: profileID,
		ProfileID:    profileID,
	}, nil
}

// ProfileID reverses VertexID. ok is false for vertices outside the
// profile namespace.
func ProfileID(vertexID string) (string, bool) {
	profileID, ok := strings.CutPrefix(vertexID, constants.ProfileVertexPrefix)
	if !ok || IsBlank(profileID) {
		return "", false
	}
	return profileID, true
}
