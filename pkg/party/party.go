// Package party holds player identities, the ordered ID space used as
// Shamir x-coordinates, and the per-subset PRSS key material each player's
// own config carries for itself.
package party

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ID identifies a player by its Shamir x-coordinate label (1..n). The zero
// value is never a valid player ID.
type ID uint32

// String renders the ID as a decimal string, matching the ASCII handshake
// frame and INI section naming ("Player N").
func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseID parses a decimal player ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("party: invalid id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("party: id 0 is reserved (x-coordinates start at 1)")
	}
	return ID(v), nil
}

// IDSlice is a sortable collection of player IDs; it does not remove
// duplicates.
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sorted returns a sorted copy of s.
func (s IDSlice) Sorted() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id appears in s.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Key renders a canonical, order-independent identifier for a subset of IDs,
// suitable as a map key (e.g. for PRSS key lookup or weight-vector caching).
func (s IDSlice) Key() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = id.String()
	}
	return strings.Join(parts, " ")
}

// Player is one participant's network identity plus, for the owning
// player's own record only, its PRSS key material.
type Player struct {
	ID   ID
	Host string
	Port string

	// PRSSKeys maps a maximal unqualified subset (by IDSlice.Key) to the raw
	// key bytes this player holds for it. Populated only on the local
	// player's own record.
	PRSSKeys map[string][]byte
}

// Endpoint returns the "host:port" dial/listen address for this player.
func (p Player) Endpoint() string {
	return fmt.Sprintf("%s:%s", p.Host, p.Port)
}

// Registry is the set of all players in a run, keyed by ID.
type Registry struct {
	Self    ID
	Players map[ID]Player
}

// IDs returns the sorted list of all player IDs in the registry.
func (r Registry) IDs() IDSlice {
	ids := make(IDSlice, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	return ids.Sorted()
}

// N returns the number of players.
func (r Registry) N() int { return len(r.Players) }

// Other returns every player ID except Self.
func (r Registry) Other() IDSlice {
	out := make(IDSlice, 0, len(r.Players)-1)
	for _, id := range r.IDs() {
		if id != r.Self {
			out = append(out, id)
		}
	}
	return out
}
