package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the analysis runner
const (
	TopicAnalysisStatus = "analysis_status"
	TopicGraph          = "graph"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`         // Subscription topic (e.g., "analysis_status", "graph")
	Type    string          `json:"type"`          // Event type (e.g., "parsing", "ready", "graph_diff")
	Key     string          `json:"key,omitempty"` // Project id the event belongs to
	Data    json.RawMessage `json:"data"`          // Event payload
	Version int             `json:"version"`       // Version number for ordering
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

	// Publish sends an event for a project to all subscribers of a topic
	Publish(topic, key, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Analysis states in the order a successful run passes through them
const (
	StateStarted    = "started"
	StateFetching   = "fetching"
	StateCollecting = "collecting"
	StateParsing    = "parsing"
	StateResolving  = "resolving"
	StateScoring    = "scoring"
	StatePersisting = "persisting"
	StateExporting  = "exporting"
	StateReady      = "ready"
	StateFailed     = "failed"
)

// AnalysisStatus represents the progress of one analysis run
type AnalysisStatus struct {
	ProjectID string `json:"project_id"`
	State     string `json:"state"`           // One of the State constants
	Message   string `json:"message"`         // Human-readable status message
	Step      int    `json:"step"`            // Current step number (1-based)
	Total     int    `json:"total"`           // Total number of steps
	Error     string `json:"error,omitempty"` // Set when State is failed
}
