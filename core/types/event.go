package types

// Event represents a typed event emitted by a committed vault call.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
