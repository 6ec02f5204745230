package runtime

import (
	"contact-relay/domain"
	"contact-relay/errors"

	"github.com/samber/lo"
)

// ContactGraph holds, per username, the ordered list of accepted contacts.
// Symmetry is kept by AddEdge appending on both sides.
//
// Remove only drops the username's own list: neighbors keep a stale
// reference until they disconnect themselves.
type ContactGraph struct {
	contacts map[domain.Username][]domain.Username
}

func NewContactGraph() *ContactGraph {
	return &ContactGraph{contacts: make(map[domain.Username][]domain.Username)}
}

// CreateEmpty starts an empty list for username, keeping any existing one.
func (g *ContactGraph) CreateEmpty(username domain.Username) {
	if _, ok := g.contacts[username]; ok {
		return
	}
	g.contacts[username] = []domain.Username{}
}

// AddEdge appends b to a's contacts and a to b's contacts.
// Both usernames must already be registered.
func (g *ContactGraph) AddEdge(a, b domain.Username) error {
	if a == b {
		return errors.ErrSelfRequest
	}
	g.appendContact(a, b)
	g.appendContact(b, a)
	return nil
}

func (g *ContactGraph) appendContact(owner, contact domain.Username) {
	if lo.Contains(g.contacts[owner], contact) {
		return
	}
	g.contacts[owner] = append(g.contacts[owner], contact)
}

// Neighbors returns a copy of username's contacts; empty when unknown.
func (g *ContactGraph) Neighbors(username domain.Username) []domain.Username {
	contacts := g.contacts[username]
	out := make([]domain.Username, len(contacts))
	copy(out, contacts)
	return out
}

func (g *ContactGraph) Has(username domain.Username) bool {
	_, ok := g.contacts[username]
	return ok
}

func (g *ContactGraph) Remove(username domain.Username) {
	delete(g.contacts, username)
}

func (g *ContactGraph) Len() int {
	return len(g.contacts)
}

// All returns a deep copy of every contact list.
func (g *ContactGraph) All() map[domain.Username][]domain.Username {
	return lo.MapValues(g.contacts, func(contacts []domain.Username, _ domain.Username) []domain.Username {
		out := make([]domain.Username, len(contacts))
		copy(out, contacts)
		return out
	})
}
