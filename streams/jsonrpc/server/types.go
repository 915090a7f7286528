package server

import (
	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
)

const (
	// RpcNamespace is the namespace under which the factory API is registered.
	RpcNamespace                     = "factory"
	RegistryStreamSubscriptionMethod = "subscribeRegistryStream"
	PoolCreatedSubscriptionMethod    = "subscribePoolCreated"

	EventTypeFull = "full"
	EventTypeDiff = "diff"
)

// SubscriptionEvent is the wrapper object sent on the registry stream.
type SubscriptionEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	SentAt  int64  `json:"sentAt"`
}

// FullPayload carries a complete registry view.
type FullPayload struct {
	Schema string           `json:"schema"`
	View   poolfactory.View `json:"view"`
}

// DiffPayload carries the diff of one committed mutation.
type DiffPayload struct {
	Schema string           `json:"schema"`
	Diff   poolfactory.Diff `json:"diff"`
}
