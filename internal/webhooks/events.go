package webhooks

// Event names delivered to subscribers.
type Event string

const (
	EventStageUnlocked             Event = "stage.unlocked"
	EventStageCompleted            Event = "stage.completed"
	EventDocumentGenerated         Event = "document.generated"
	EventDocumentApproved          Event = "document.approved"
	EventDocumentRevisionRequested Event = "document.revision_requested"
	EventHealthChanged             Event = "health.changed"
)

// Payload carries the event-specific fields serialized into the delivery
// body's data object.
type Payload map[string]any
