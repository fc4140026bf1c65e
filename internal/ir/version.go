package ir

// Version constants for the persisted layout and the program.
const (
	// LayoutVersion is the account/event schema version.
	LayoutVersion = "1"

	// ProgramVersion is the counterslot program version.
	ProgramVersion = "0.1.0"
)
