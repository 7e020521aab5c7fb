package session

// Event is an inbound user action. The set is closed: TextSubmission,
// ButtonChoice and SessionReset.
type Event interface {
	Identity() string
	ChatID() int64
	event()
}

// TextSubmission is free text sent by the user
type TextSubmission struct {
	From string
	Chat int64
	Text string
}

// ButtonChoice is a press on one of the bot's inline buttons
type ButtonChoice struct {
	From    string
	Chat    int64
	Message MessageRef
	Tag     string
}

// SessionReset restarts the conversation, e.g. /start
type SessionReset struct {
	From string
	Chat int64
}

func (e TextSubmission) Identity() string { return e.From }
func (e TextSubmission) ChatID() int64    { return e.Chat }
func (TextSubmission) event()             {}

func (e ButtonChoice) Identity() string { return e.From }
func (e ButtonChoice) ChatID() int64    { return e.Chat }
func (ButtonChoice) event()             {}

func (e SessionReset) Identity() string { return e.From }
func (e SessionReset) ChatID() int64    { return e.Chat }
func (SessionReset) event()             {}
