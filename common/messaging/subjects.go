package messaging

// Subjects follow the pattern {domain}.{resource}.{event}.
const (
	// SubjectMessagesStored carries one persisted document per message.
	SubjectMessagesStored = "relay.messages.stored"
)
