package ir

// Record is the single persisted entity: one counter slot per owner.
type Record struct {
	Address    Address  `json:"address"`     // Derived location
	Owner      Identity `json:"owner"`       // Fixed at creation
	Bump       uint8    `json:"bump"`        // Derivation nonce that produced Address
	Value      uint8    `json:"value"`       // Counter value
	CreatedSeq int64    `json:"created_seq"` // Logical clock at Initialize
	UpdatedSeq int64    `json:"updated_seq"` // Logical clock at last transition
}

// EventKind identifies the state transition an Event describes.
type EventKind string

const (
	// EventInitialized is emitted when a record moves Absent -> Active.
	EventInitialized EventKind = "initialized"

	// EventUpdated is emitted on every value overwrite.
	EventUpdated EventKind = "updated"
)

// Notification messages carried by events.
const (
	MessageInitialized = "counter initialized"
	MessageUpdated     = "counter updated"
)

// MessageFor returns the literal notification message for a kind.
func MessageFor(kind EventKind) string {
	switch kind {
	case EventInitialized:
		return MessageInitialized
	case EventUpdated:
		return MessageUpdated
	default:
		return ""
	}
}

// Event is a notification describing one committed transition.
type Event struct {
	ID      string    `json:"id"`  // Content-addressed hash
	Seq     int64     `json:"seq"` // Logical clock
	Kind    EventKind `json:"kind"`
	Address Address   `json:"address"`
	Owner   Identity  `json:"owner"`
	Value   uint8     `json:"value"`   // Value after the transition
	Message string    `json:"message"` // Human-readable message
}
