package types

// Event represents a typed event emitted during state transitions. Attributes
// carry the rendered payload for downstream consumers (RPC, indexers).
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
