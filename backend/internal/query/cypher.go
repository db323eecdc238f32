package query

import (
	"time"

	"socialgraph/backend/internal/constants"
)

// Cypher builds parameterised Cypher for Neo4j. Identity values are never
// inlined; they travel as bound parameters.
type Cypher struct{}

// NewCypher creates a Cypher builder
func NewCypher() *Cypher {
	return &Cypher{}
}

func (Cypher) Dialect() string { return constants.BackendNeo4j }

// Schema adds the uniqueness constraint that makes concurrent MERGEs of the
// same profile fail loudly instead of creating two nodes
func (Cypher) Schema() []Statement {
	return []Statement{{
		Op:    OpSchema,
		Text:  `CREATE CONSTRAINT profile_id_unique IF NOT EXISTS FOR (p:Profile) REQUIRE p.id IS UNIQUE`,
		Write: true,
	}}
}

func (Cypher) EnsureProfile(p Vertex) Statement {
	return Statement{
		Op: OpEnsureProfile,
		Text: `
			MERGE (p:Profile {id: $id})
			ON CREATE SET p.pk = $pk, p.profileId = $profileId
		`,
		Params: map[string]any{
			"id":        p.ID.Raw(),
			"pk":        p.PartitionKey.Raw(),
			"profileId": p.ProfileID.Raw(),
		},
		Shape:  ShapeNone,
		Write:  true,
		Source: p,
	}
}

func (Cypher) UpsertFollow(follower, followee Vertex, at time.Time) Statement {
	return Statement{
		Op: OpUpsertFollow,
		Text: `
			MATCH (f:Profile {id: $followerId})
			MATCH (t:Profile {id: $followeeId})
			MERGE (f)-[r:FOLLOWS]->(t)
			ON CREATE SET r.createdAtUtc = $createdAtUtc,
			              r.createdBy = $createdBy,
			              r.pk = $pk
			RETURN coalesce(r.createdAtUtc, $createdAtUtc) AS createdAtUtc
		`,
		Params: map[string]any{
			"followerId":   follower.ID.Raw(),
			"followeeId":   followee.ID.Raw(),
			"createdAtUtc": FormatTime(at),
			"createdBy":    follower.ProfileID.Raw(),
			"pk":           follower.PartitionKey.Raw(),
		},
		Shape:     ShapeCreatedAt,
		Write:     true,
		Source:    follower,
		Target:    followee,
		CreatedAt: at,
	}
}

func (Cypher) DeleteFollow(follower, followee Vertex) Statement {
	return Statement{
		Op: OpDeleteFollow,
		Text: `
			MATCH (:Profile {id: $followerId})-[r:FOLLOWS]->(:Profile {id: $followeeId})
			DELETE r
		`,
		Params: map[string]any{
			"followerId": follower.ID.Raw(),
			"followeeId": followee.ID.Raw(),
		},
		Shape:  ShapeNone,
		Write:  true,
		Source: follower,
		Target: followee,
	}
}

func (Cypher) Followers(p Vertex) Statement {
	return Statement{
		Op: OpFollowers,
		Text: `
			MATCH (:Profile {id: $id})<-[:FOLLOWS]-(f:Profile)
			RETURN DISTINCT f.profileId AS profileId
		`,
		Params: map[string]any{"id": p.ID.Raw()},
		Shape:  ShapeProfileID,
		Source: p,
	}
}

func (Cypher) Following(p Vertex) Statement {
	return Statement{
		Op: OpFollowing,
		Text: `
			MATCH (:Profile {id: $id})-[:FOLLOWS]->(f:Profile)
			RETURN DISTINCT f.profileId AS profileId
		`,
		Params: map[string]any{"id": p.ID.Raw()},
		Shape:  ShapeProfileID,
		Source: p,
	}
}

func (Cypher) CountFollowers(p Vertex) Statement {
	return Statement{
		Op: OpCountFollowers,
		Text: `
			MATCH (:Profile {id: $id})<-[:FOLLOWS]-(f:Profile)
			RETURN count(DISTINCT f) AS count
		`,
		Params: map[string]any{"id": p.ID.Raw()},
		Shape:  ShapeCount,
		Source: p,
	}
}

func (Cypher) CountFollowing(p Vertex) Statement {
	return Statement{
		Op: OpCountFollowing,
		Text: `
			MATCH (:Profile {id: $id})-[:FOLLOWS]->(f:Profile)
			RETURN count(DISTINCT f) AS count
		`,
		Params: map[string]any{"id": p.ID.Raw()},
		Shape:  ShapeCount,
		Source: p,
	}
}

func (Cypher) IsFollowing(follower, target Vertex) Statement {
	return Statement{
		Op: OpIsFollowing,
		Text: `
			MATCH (:Profile {id: $followerId})-[r:FOLLOWS]->(:Profile {id: $targetId})
			WITH r LIMIT 1
			RETURN count(r) AS count
		`,
		Params: map[string]any{
			"followerId": follower.ID.Raw(),
			"targetId":   target.ID.Raw(),
		},
		Shape:  ShapeCount,
		Source: follower,
		Target: target,
	}
}
