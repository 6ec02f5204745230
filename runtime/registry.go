package runtime

import (
	"contact-relay/domain"
	"slices"

	"github.com/samber/lo"
)

// Registry is the bidirectional connection-id <-> username map.
// It is the single source of truth for who is online as whom.
//
// Registry is not safe for concurrent use; it is owned by a Relay and
// only mutated from the Engine loop.
type Registry struct {
	usernames   map[domain.ConnectionID]domain.Username // connection -> username
	connections map[domain.Username]domain.ConnectionID // username -> connection
}

func NewRegistry() *Registry {
	return &Registry{
		usernames:   make(map[domain.ConnectionID]domain.Username),
		connections: make(map[domain.Username]domain.ConnectionID),
	}
}

// Register maps id to username. Any mapping held by id or by username
// is evicted first so that the map stays one-to-one.
func (r *Registry) Register(id domain.ConnectionID, username domain.Username) {
	r.Remove(id)
	r.removeUsername(username)
	r.usernames[id] = username
	r.connections[username] = id
}

func (r *Registry) LookupUsername(id domain.ConnectionID) (domain.Username, bool) {
	username, ok := r.usernames[id]
	return username, ok
}

func (r *Registry) LookupConnection(username domain.Username) (domain.ConnectionID, bool) {
	id, ok := r.connections[username]
	return id, ok
}

func (r *Registry) IsUsernameTaken(username domain.Username) bool {
	_, ok := r.connections[username]
	return ok
}

// Remove drops both sides of the mapping held by id and returns the freed username.
func (r *Registry) Remove(id domain.ConnectionID) (domain.Username, bool) {
	username, ok := r.usernames[id]
	if !ok {
		return "", false
	}
	delete(r.usernames, id)
	delete(r.connections, username)
	return username, true
}

func (r *Registry) removeUsername(username domain.Username) {
	if id, ok := r.connections[username]; ok {
		delete(r.connections, username)
		delete(r.usernames, id)
	}
}

func (r *Registry) Len() int {
	return len(r.usernames)
}

// Usernames returns the registered usernames in lexical order.
func (r *Registry) Usernames() []domain.Username {
	usernames := lo.Keys(r.connections)
	slices.Sort(usernames)
	return usernames
}
