package game

import "encoding/json"

// Envelope is the websocket frame: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinPayload must be the first envelope on a connection. Token is optional;
// when present it pins the join to the token's registered display name.
type JoinPayload struct {
	Name  string `json:"name"`
	Role  string `json:"role"` // "player" | "observer"
	Token string `json:"token,omitempty"`
}

type GuessPayload struct {
	Number string `json:"number"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
