// Package query builds graph store statements for the follow relation.
package query

import "time"

// Operation names a statement template
type Operation string

const (
	OpSchema         Operation = "schema"
	OpEnsureProfile  Operation = "ensure_profile"
	OpUpsertFollow   Operation = "upsert_follow"
	OpDeleteFollow   Operation = "delete_follow"
	OpFollowers      Operation = "followers"
	OpFollowing      Operation = "following"
	OpCountFollowers Operation = "count_followers"
	OpCountFollowing Operation = "count_following"
	OpIsFollowing    Operation = "is_following"
	OpPing           Operation = "ping"
)

// Shape declares what every row returned for a statement looks like
type Shape int

const (
	// ShapeNone statements return nothing the caller reads
	ShapeNone Shape = iota
	// ShapeProfileID rows carry a neighbouring profile's id
	ShapeProfileID
	// ShapeCount returns a single integer row
	ShapeCount
	// ShapeCreatedAt returns the createdAtUtc of one edge
	ShapeCreatedAt
)

func (s Shape) String() string {
	switch s {
	case ShapeProfileID:
		return "profileId"
	case ShapeCount:
		return "count"
	case ShapeCreatedAt:
		return "createdAtUtc"
	default:
		return "none"
	}
}

// Statement is a single store request
type Statement struct {
	Op    Operation
	Text  string
	Shape Shape
	Write bool

	// Params are bound by stores that support parameters. Gremlin statements
	// carry everything inline and leave this nil.
	Params map[string]any

	// Source and Target identify the vertices the statement touches.
	// Target is zero for single-vertex statements.
	Source Vertex
	Target Vertex

	// CreatedAt is the timestamp an upsert writes when it creates the edge
	CreatedAt time.Time
}

// Builder produces the statements of one query dialect
type Builder interface {
	Dialect() string
	// Schema returns statements to run once at startup, if any
	Schema() []Statement
	EnsureProfile(p Vertex) Statement
	UpsertFollow(follower, followee Vertex, at time.Time) Statement
	DeleteFollow(follower, followee Vertex) Statement
	Followers(p Vertex) Statement
	Following(p Vertex) Statement
	CountFollowers(p Vertex) Statement
	CountFollowing(p Vertex) Statement
	IsFollowing(follower, target Vertex) Statement
}

// FormatTime is the wire format of createdAtUtc
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
