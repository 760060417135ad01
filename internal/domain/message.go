package domain

// Message is a unit of data produced upstream. Its String form is what gets
// accumulated into a batch, so it must be stable for the lifetime of the
// message.
type Message interface {
	String() string
}

// Text is a Message backed by a plain string.
type Text string

// String returns the message text.
func (t Text) String() string {
	return string(t)
}
