// Package domain contains core concepts of the contact relay.
// This file defines Message values.
// Messages are never stored; the relay only routes them.
package domain

// Message is an ephemeral text sent from one username to another.
type Message struct {
	From Username
	To   Username
	Text string
}
