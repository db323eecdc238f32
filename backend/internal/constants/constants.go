package constants

// Graph schema constants
const (
	// ProfileLabel is the vertex label for profiles
	ProfileLabel = "profile"
	// FollowsLabel is the only edge label the service writes
	FollowsLabel = "follows"
	// ProfileVertexPrefix namespaces profile vertex ids so they cannot collide
	// with other vertex kinds sharing the same graph
	ProfileVertexPrefix = "profile:"
)

// Property names
const (
	PropertyID           = "id"
	PropertyPartitionKey = "pk"
	PropertyProfileID    = "profileId"
	PropertyCreatedAtUTC = "createdAtUtc"
	PropertyCreatedBy    = "createdBy"
)

// Graph backends
const (
	BackendGremlin = "gremlin"
	BackendNeo4j   = "neo4j"
)
