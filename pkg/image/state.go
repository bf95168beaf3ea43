package image

// State is the lifecycle position of a request descriptor.
type State string

// Lifecycle states
const (
	StateCreated           State = "created"
	StateParsed            State = "parsed"
	StateModifiersResolved State = "modifiers_resolved"
	StateStreaming         State = "streaming"
	StateFailed            State = "failed"
	StateContentReceived   State = "content_received"
	StateNormalized        State = "normalized"
	StateValid             State = "valid"
	StateInvalid           State = "invalid"
)

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateInvalid
}
