package query

import (
	"fmt"
	"time"

	"socialgraph/backend/internal/constants"
)

// Gremlin builds Gremlin-Groovy scripts for Cosmos DB style servers. Every
// identity value is inlined as an escaped single-quoted literal.
type Gremlin struct{}

// NewGremlin creates a Gremlin builder
func NewGremlin() *Gremlin {
	return &Gremlin{}
}

func (Gremlin) Dialect() string { return constants.BackendGremlin }

// Schema is empty; Cosmos DB graphs have no server-side schema
func (Gremlin) Schema() []Statement { return nil }

// vertex selects a profile vertex inside its partition
func (Gremlin) vertex(p Vertex) string {
	return fmt.Sprintf("V(%s).has(%s, %s)",
		p.ID, Escape(constants.PropertyPartitionKey), p.PartitionKey)
}

// EnsureProfile finds the vertex or creates it in the same request
func (g Gremlin) EnsureProfile(p Vertex) Statement {
	text := fmt.Sprintf(
		"g.%s.fold().coalesce(unfold(), addV(%s).property(%s, %s).property(%s, %s).property(%s, %s))",
		g.vertex(p),
		Escape(constants.ProfileLabel),
		Escape(constants.PropertyID), p.ID,
		Escape(constants.PropertyPartitionKey), p.PartitionKey,
		Escape(constants.PropertyProfileID), p.ProfileID,
	)
	return Statement{Op: OpEnsureProfile, Text: text, Shape: ShapeNone, Write: true, Source: p}
}

// UpsertFollow returns createdAtUtc of the existing edge, or creates the edge
// and returns the new value. Properties of an existing edge are not touched.
// The edge lookup starts from the follower, whose partition holds the edge.
// An edge written without createdAtUtc reports the supplied time instead.
func (g Gremlin) UpsertFollow(follower, followee Vertex, at time.Time) Statement {
	createdAt := Escape(FormatTime(at))
	text := fmt.Sprintf(
		"g.%s.as('t').%s.coalesce(outE(%s).where(inV().as('t')), addE(%s).to('t').property(%s, %s).property(%s, %s).property(%s, %s)).coalesce(values(%s), constant(%s))",
		g.vertex(followee),
		g.vertex(follower),
		Escape(constants.FollowsLabel),
		Escape(constants.FollowsLabel),
		Escape(constants.PropertyPartitionKey), follower.PartitionKey,
		Escape(constants.PropertyCreatedAtUTC), createdAt,
		Escape(constants.PropertyCreatedBy), follower.ProfileID,
		Escape(constants.PropertyCreatedAtUTC), createdAt,
	)
	return Statement{
		Op:        OpUpsertFollow,
		Text:      text,
		Shape:     ShapeCreatedAt,
		Write:     true,
		Source:    follower,
		Target:    followee,
		CreatedAt: at,
	}
}

// DeleteFollow drops every follows edge from follower to followee
func (g Gremlin) DeleteFollow(follower, followee Vertex) Statement {
	text := fmt.Sprintf("g.%s.outE(%s).where(inV().hasId(%s)).drop()",
		g.vertex(follower), Escape(constants.FollowsLabel), followee.ID)
	return Statement{Op: OpDeleteFollow, Text: text, Shape: ShapeNone, Write: true, Source: follower, Target: followee}
}

func (g Gremlin) neighbours(p Vertex, direction string) string {
	return fmt.Sprintf("g.%s.%s(%s).hasLabel(%s).dedup()",
		g.vertex(p), direction, Escape(constants.FollowsLabel), Escape(constants.ProfileLabel))
}

func (g Gremlin) Followers(p Vertex) Statement {
	text := g.neighbours(p, "in") + fmt.Sprintf(".values(%s)", Escape(constants.PropertyProfileID))
	return Statement{Op: OpFollowers, Text: text, Shape: ShapeProfileID, Source: p}
}

func (g Gremlin) Following(p Vertex) Statement {
	text := g.neighbours(p, "out") + fmt.Sprintf(".values(%s)", Escape(constants.PropertyProfileID))
	return Statement{Op: OpFollowing, Text: text, Shape: ShapeProfileID, Source: p}
}

func (g Gremlin) CountFollowers(p Vertex) Statement {
	return Statement{Op: OpCountFollowers, Text: g.neighbours(p, "in") + ".count()", Shape: ShapeCount, Source: p}
}

func (g Gremlin) CountFollowing(p Vertex) Statement {
	return Statement{Op: OpCountFollowing, Text: g.neighbours(p, "out") + ".count()", Shape: ShapeCount, Source: p}
}

// IsFollowing stops at the first matching edge
func (g Gremlin) IsFollowing(follower, target Vertex) Statement {
	text := fmt.Sprintf("g.%s.outE(%s).where(inV().hasId(%s)).limit(1).count()",
		g.vertex(follower), Escape(constants.FollowsLabel), target.ID)
	return Statement{Op: OpIsFollowing, Text: text, Shape: ShapeCount, Source: follower, Target: target}
}
