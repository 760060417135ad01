package domain

import "time"

// Batch is a compressed group of accumulated messages.
// The Payload is opaque to everything except the codec that produced it.
type Batch struct {
	// ID uniquely identifies the batch across retries.
	ID string `json:"id"`

	// Payload is the compressed, newline-joined message data.
	Payload []byte `json:"payload"`

	// Messages is the number of messages sealed into Payload.
	Messages int `json:"messages"`

	// CreatedAt is when the batch was sealed.
	CreatedAt time.Time `json:"created_at"`

	// Attempts counts failed delivery attempts.
	Attempts int `json:"attempts"`
}

// Empty returns true if there is nothing to deliver.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Payload) == 0
}

// Size returns the compressed payload length in bytes.
func (b *Batch) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Payload)
}
