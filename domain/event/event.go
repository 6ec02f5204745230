package event

import (
	"contact-relay/domain"
)

// Wire names of the duplex-channel events.
const (
	NameID       = "id"
	NameMessage  = "message"
	NameLeave    = "leave"
	NameRequest  = "request"
	NameResponse = "response"
)

// Event is pushed by the relay to a single connection.
type Event interface {
	Name() string
	Payload() any
}

// Identified carries the connection-id assigned on connect.
type Identified struct {
	ConnectionID domain.ConnectionID
}

func (e Identified) Name() string { return NameID }
func (e Identified) Payload() any { return string(e.ConnectionID) }

// MessagePayload is the JSON shape of a relayed message.
type MessagePayload struct {
	From        string `json:"from"`
	MessageText string `json:"messageText"`
}

// MessageRelayed carries a text message to its recipient.
type MessageRelayed struct {
	From domain.Username
	Text string
}

func (e MessageRelayed) Name() string { return NameMessage }
func (e MessageRelayed) Payload() any {
	return MessagePayload{From: string(e.From), MessageText: e.Text}
}

// ContactLeft tells a contact that Username disconnected.
type ContactLeft struct {
	Username domain.Username
}

func (e ContactLeft) Name() string { return NameLeave }
func (e ContactLeft) Payload() any { return string(e.Username) }

// FriendRequested tells the target that From wants to be a contact.
type FriendRequested struct {
	From domain.Username
}

func (e FriendRequested) Name() string { return NameRequest }
func (e FriendRequested) Payload() any { return string(e.From) }

// ResponsePayload is the JSON shape of a friend response.
type ResponsePayload struct {
	From   string `json:"from"`
	Status string `json:"status"`
}

// FriendResponded tells the original requester how From answered.
type FriendResponded struct {
	From   domain.Username
	Status domain.Status
}

func (e FriendResponded) Name() string { return NameResponse }
func (e FriendResponded) Payload() any {
	return ResponsePayload{From: string(e.From), Status: string(e.Status)}
}
