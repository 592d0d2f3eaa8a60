package ws

import "encoding/json"

// Inbound is a client frame. Data is decoded per Type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound mirrors dispatch.Envelope for clients written in Go.
type Outbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
