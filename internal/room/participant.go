package room

// Participant is one admitted identity in a room. The connection reference
// is only used for addressing and liveness; a ready participant outlives a
// dropped connection until the next reset wipes the room.
type Participant struct {
	Identity    string
	DisplayName string
	Ready       bool
	Proof       string // opaque settlement proof, set on readiness
	ConnID      string // empty when the connection is gone
}

// Directory is an insertion-ordered identity -> participant map. It is not
// safe for concurrent use; the owning room serializes access.
type Directory struct {
	byIdentity map[string]*Participant
	order      []string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{byIdentity: make(map[string]*Participant)}
}

// Upsert admits identity or, if already present, refreshes its display name
// and connection reference. Returns the participant and whether it was
// newly added. Identity uniqueness is the invariant: re-admission never
// duplicates an entry.
func (d *Directory) Upsert(identity, displayName, connID string) (*Participant, bool) {
	if p, ok := d.byIdentity[identity]; ok {
		p.DisplayName = displayName
		p.ConnID = connID
		return p, false
	}
	p := &Participant{Identity: identity, DisplayName: displayName, ConnID: connID}
	d.byIdentity[identity] = p
	d.order = append(d.order, identity)
	return p, true
}

// Get returns the participant for identity, or nil.
func (d *Directory) Get(identity string) *Participant {
	return d.byIdentity[identity]
}

// Remove deletes identity, preserving the order of the rest.
func (d *Directory) Remove(identity string) bool {
	if _, ok := d.byIdentity[identity]; !ok {
		return false
	}
	delete(d.byIdentity, identity)
	for i, id := range d.order {
		if id == identity {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Wipe removes every participant, ready or not.
func (d *Directory) Wipe() {
	d.byIdentity = make(map[string]*Participant)
	d.order = nil
}

// Len returns the participant count.
func (d *Directory) Len() int {
	return len(d.order)
}

// All returns participants in insertion order.
func (d *Directory) All() []*Participant {
	out := make([]*Participant, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byIdentity[id])
	}
	return out
}

// Ready returns the ready subset in insertion order.
func (d *Directory) Ready() []*Participant {
	var out []*Participant
	for _, id := range d.order {
		if p := d.byIdentity[id]; p.Ready {
			out = append(out, p)
		}
	}
	return out
}

// ReadyCount returns how many participants are ready.
func (d *Directory) ReadyCount() int {
	n := 0
	for _, id := range d.order {
		if d.byIdentity[id].Ready {
			n++
		}
	}
	return n
}

// Infos returns the broadcast view of all participants in insertion order.
func (d *Directory) Infos() []ParticipantInfo {
	out := make([]ParticipantInfo, 0, len(d.order))
	for _, id := range d.order {
		p := d.byIdentity[id]
		out = append(out, ParticipantInfo{
			Identity:    p.Identity,
			DisplayName: p.DisplayName,
			Ready:       p.Ready,
		})
	}
	return out
}
