package client

import (
	"encoding/json"

	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
)

// SubscriptionEvent is the wrapper object received from the server.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// clientFullPayload mirrors the server's full event payload.
type clientFullPayload struct {
	Schema string           `json:"schema"`
	View   poolfactory.View `json:"view"`
}

// clientDiffPayload mirrors the server's diff event payload.
type clientDiffPayload struct {
	Schema string           `json:"schema"`
	Diff   poolfactory.Diff `json:"diff"`
}
