// Package domain contains core concepts of the contact relay.
// This file defines participant identities.
// No runtime, network, or UI logic should be added here.
package domain

// ConnectionID identifies one live duplex-channel session.
type ConnectionID string

// Username is the user-chosen identity, unique among currently registered sessions.
type Username string

func (u Username) String() string {
	return string(u)
}

// Status is the answer given to a friend request.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

func (s Status) IsValid() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// Presence is a read-only view of who is online and how they are connected.
type Presence struct {
	Online   []Username
	Contacts map[Username][]Username
}
