package runtime

import (
	"contact-relay/domain"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := domain.ConnectionID(uuid.NewString())

	// Given nobody is registered
	req.False(registry.IsUsernameTaken("alice"))
	req.Zero(registry.Len())

	// When a connection registers a username
	registry.Register(id, "alice")

	// Then both directions resolve
	username, ok := registry.LookupUsername(id)
	req.True(ok)
	req.Equal(domain.Username("alice"), username)

	connID, ok := registry.LookupConnection("alice")
	req.True(ok)
	req.Equal(id, connID)

	req.True(registry.IsUsernameTaken("alice"))
	req.Equal(1, registry.Len())
}

func TestRegistry_Register_Evicts_Previous_Username_Of_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given a connection registered as alice
	registry.Register("c1", "alice")

	// When the same connection registers as bob
	registry.Register("c1", "bob")

	// Then alice is freed
	req.False(registry.IsUsernameTaken("alice"))
	username, _ := registry.LookupUsername("c1")
	req.Equal(domain.Username("bob"), username)
	req.Equal(1, registry.Len())
}

func TestRegistry_Register_Evicts_Previous_Connection_Of_Username(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given alice registered from c1
	registry.Register("c1", "alice")

	// When alice is registered from a new connection
	registry.Register("c2", "alice")

	// Then c1 no longer resolves
	_, ok := registry.LookupUsername("c1")
	req.False(ok)
	connID, _ := registry.LookupConnection("alice")
	req.Equal(domain.ConnectionID("c2"), connID)
	req.Equal(1, registry.Len())
}

func TestRegistry_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", "alice")
	registry.Register("c2", "bob")

	// When alice's connection is removed
	username, ok := registry.Remove("c1")

	// Then the freed username is returned and both sides are gone
	req.True(ok)
	req.Equal(domain.Username("alice"), username)
	req.False(registry.IsUsernameTaken("alice"))
	_, ok = registry.LookupUsername("c1")
	req.False(ok)

	// And removing again is a no-op
	_, ok = registry.Remove("c1")
	req.False(ok)
	req.Equal([]domain.Username{"bob"}, registry.Usernames())
}

func TestRegistry_Remove_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	username, ok := registry.Remove("nobody")

	req.False(ok)
	req.Empty(username)
}

// Any sequence of Register/Remove keeps the map one-to-one.
func TestRegistry_Stays_One_To_One(t *testing.T) {
	req := require.New(t)
	rng := rand.New(rand.NewSource(42))
	registry := NewRegistry()

	ids := []domain.ConnectionID{"c1", "c2", "c3", "c4", "c5"}
	names := []domain.Username{"alice", "bob", "carol", "dave"}

	for step := 0; step < 5000; step++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(3) == 0 {
			registry.Remove(id)
		} else {
			registry.Register(id, names[rng.Intn(len(names))])
		}

		req.Len(registry.connections, len(registry.usernames), "step %d", step)
		for connID, username := range registry.usernames {
			back, ok := registry.connections[username]
			req.True(ok, fmt.Sprintf("step %d: %s missing reverse entry", step, username))
			req.Equal(connID, back, "step %d", step)
		}
	}
}
