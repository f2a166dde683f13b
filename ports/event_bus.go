package ports

import "gridprep/models"

// EventBus decouples the wizard from sibling panels that need to react to
// saves and stage changes. Injectable so tests can substitute a fake bus and
// assert on emitted events.
type EventBus interface {
	// Publish delivers an event to all current subscribers. Never blocks on
	// a slow subscriber.
	Publish(event models.FlowEvent)

	// Subscribe registers a listener for one session's events (empty
	// sessionID subscribes to all). The returned cancel func must be called
	// to release the subscription.
	Subscribe(sessionID string) (<-chan models.FlowEvent, func())
}
