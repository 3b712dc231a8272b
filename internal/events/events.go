// Package events mirrors vigilance broadcasts onto an external message bus.
package events

import (
	"context"

	"github.com/alfredjeanlab/praevisio/internal/model"
)

// Event topic constants
const (
	TopicVigilanceUpdate  = "praevisio.vigilance.update"
	TopicVigilanceCleared = "praevisio.vigilance.cleared"
	TopicFlowsStarted     = "praevisio.flows.started"
	TopicFlowsStopped     = "praevisio.flows.stopped"

	// TopicAll matches every topic published by a praevisio server.
	TopicAll = "praevisio.>"
)

// Event names carried in the "event" field of a Vigilance payload.
const (
	EventInit    = "init"
	EventUpdate  = "update"
	EventCleared = "cleared"
)

// Vigilance is the payload written to stream subscribers and mirrored to
// the external bus. The first payload on every stream has Event == "init".
type Vigilance struct {
	Event   string      `json:"event"`
	Message string      `json:"message,omitempty"`
	State   model.State `json:"state"`
}

// FlowsToggled is published when the flow scheduler starts or stops.
type FlowsToggled struct {
	Running bool `json:"running"`
}

// TopicFor maps an event name to its bus topic.
func TopicFor(event string) string {
	if event == EventCleared {
		return TopicVigilanceCleared
	}
	return TopicVigilanceUpdate
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
