package event

import (
	"encoding/json"
)

// Frame is the JSON envelope written on the duplex channel.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// InboundFrame is a frame read from a client; Data is decoded by event name.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutgoingMessage is the payload of a client "message" frame.
type OutgoingMessage struct {
	From    string `json:"from"`
	For     string `json:"for"`
	Message string `json:"message"`
}

func ToFrame(e Event) Frame {
	return Frame{Event: e.Name(), Data: e.Payload()}
}
