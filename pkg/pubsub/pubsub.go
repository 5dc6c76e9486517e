package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "view", "notifications")
	Type    string          `json:"type"`    // Event type (e.g., "rebuild", "update", "show", "clear")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// GraphStatus summarizes the session after every change to the graph,
// the reference node or the score table.
type GraphStatus struct {
	Version   uint64 `json:"version"`   // Graph version counter
	Reference string `json:"reference"` // Current reference node, empty if unset
	NodeCount int    `json:"nodeCount"`
	EdgeCount int    `json:"edgeCount"`
	Scored    int    `json:"scored"`   // Number of entries in the score table
	Decision  string `json:"decision"` // "rebuild" or "update"
}
