package room

// TierSummary is one room's slice of the global rooms summary broadcast.
type TierSummary struct {
	Total  int    `json:"total"`
	Ready  int    `json:"ready"`
	Status string `json:"status"`
}

// Registry owns the fixed set of rooms, keyed by stake tier. It is built
// once at startup and the key set never changes afterwards, so lookups need
// no locking; each room guards its own state.
type Registry struct {
	rooms map[string]*Room
	order []string
}

// NewRegistry indexes the given rooms by tier, preserving their order for
// summaries.
func NewRegistry(rooms []*Room) *Registry {
	reg := &Registry{rooms: make(map[string]*Room, len(rooms))}
	for _, r := range rooms {
		reg.rooms[r.Tier()] = r
		reg.order = append(reg.order, r.Tier())
	}
	return reg
}

// Get returns the room for tier, or nil for an unknown key. Unknown tiers
// are ignored by callers per the error taxonomy.
func (reg *Registry) Get(tier string) *Room {
	return reg.rooms[tier]
}

// Tiers returns the tier keys in configuration order.
func (reg *Registry) Tiers() []string {
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

// Disconnect fans a connection loss out across every room the identity may
// participate in.
func (reg *Registry) Disconnect(identity, connID string) {
	for _, tier := range reg.order {
		reg.rooms[tier].Disconnect(identity, connID)
	}
}

// Summary collects the per-tier aggregate broadcast to all subscribers.
func (reg *Registry) Summary() map[string]TierSummary {
	out := make(map[string]TierSummary, len(reg.order))
	for _, tier := range reg.order {
		out[tier] = reg.rooms[tier].Summary()
	}
	return out
}
