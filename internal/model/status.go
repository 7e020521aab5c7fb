package model

// SessionState represents where a single identity's request is in its lifecycle
type SessionState string

const (
	// StateAwaitingSource means the session waits for a source link
	StateAwaitingSource SessionState = "AwaitingSource"

	// StateAwaitingFormat means a link was probed and the user must pick a format
	StateAwaitingFormat SessionState = "AwaitingFormat"

	// StateFetching means the external tool is producing the artifact
	StateFetching SessionState = "Fetching"
)

// String returns the string representation of SessionState
func (s SessionState) String() string {
	return string(s)
}

// OwnsWorkDir returns true if a session in this state holds a work directory
func (s SessionState) OwnsWorkDir() bool {
	return s == StateFetching
}

// Format is the output encoding chosen by the user
type Format string

const (
	FormatVideo Format = "video"
	FormatAudio Format = "audio"
)

// Choice tag prefix used by format selection buttons
const FormatChoicePrefix = "format_"

// ParseFormatChoice maps a button tag such as "format_audio" to a Format
func ParseFormatChoice(tag string) (Format, bool) {
	switch tag {
	case FormatChoicePrefix + string(FormatVideo):
		return FormatVideo, true
	case FormatChoicePrefix + string(FormatAudio):
		return FormatAudio, true
	default:
		return "", false
	}
}

// ChoiceTag returns the button tag for the format
func (f Format) ChoiceTag() string {
	return FormatChoicePrefix + string(f)
}

// DeliveryKind is the rendering hint handed to the transport
type DeliveryKind string

const (
	DeliveryVideo    DeliveryKind = "video"
	DeliveryAudio    DeliveryKind = "audio"
	DeliveryDocument DeliveryKind = "document"
)
