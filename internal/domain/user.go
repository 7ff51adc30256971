package domain

// Identity is the authoritative credential record held in the relational
// store. A userId is considered real only if an Identity exists for it.
type Identity struct {
	UserID       string
	Email        string
	PasswordHash string
}

// Profile holds the schemaless demographic attributes kept in the document
// store. Every field except UserID is optional; a missing profile is legal.
type Profile struct {
	UserID           string
	Age              *int
	Country          string
	SubscriptionType string
	Device           string
	Genres           []string
	Gender           string
	MonthlyRevenue   *float64
}

// GraphNode is a user's node in the follows graph. Only outgoing edges are
// stored; followers are derived by reverse traversal.
type GraphNode struct {
	UserID    string
	Following []string
}

// Session states tracked in the counter store.
const (
	SessionActive  = "ACTIVE"
	SessionOffline = "OFFLINE"
)

// Counters are the best-effort per-user values in the key-value store.
// Absent keys read as the zero values below, never as errors.
type Counters struct {
	LoginCount int64
	Session    string
	LastLogin  string
}

// Relations is the derived follower/following view for one user.
type Relations struct {
	Followers []string
	Following []string
}

// AggregatedUser is the on-demand merge of the four per-store partial
// records. It is rebuilt on every read and never persisted; PresentIn names
// the stores that actually answered for this userId.
type AggregatedUser struct {
	UserID    string
	Identity  *Identity
	Profile   *Profile
	Relations *Relations
	Counters  Counters
	PresentIn []string
}

// NetworkView is the one-hop serialization of a graph node. It carries ids
// only, never nested node references, so cyclic follow relationships always
// flatten to one edge per direction.
type NetworkView struct {
	UserID         string
	Followers      []string
	Following      []string
	FollowersCount int
	FollowingCount int
}

// NetworkEdge is a single directed follow edge in a graph snapshot.
type NetworkEdge struct {
	FollowerID string
	FollowedID string
}

// NetworkSnapshot is a flat node/edge listing for visualization payloads.
type NetworkSnapshot struct {
	Nodes []string
	Edges []NetworkEdge
}
