package accumulator

import (
	"bytes"
	"time"
)

// batcher accumulates newline-joined message text until a threshold is hit.
type batcher struct {
	buf         bytes.Buffer
	count       int
	opened      time.Time
	maxBytes    int
	maxMessages int
	maxAge      time.Duration
}

func newBatcher(cfg Config) *batcher {
	return &batcher{
		maxBytes:    cfg.MaxBatchBytes,
		maxMessages: cfg.MaxBatchMessages,
		maxAge:      cfg.MaxBatchAge,
	}
}

// fits reports whether text can join the current batch without exceeding
// the byte threshold. An empty batch accepts any message.
func (b *batcher) fits(text string) bool {
	if b.count == 0 {
		return true
	}
	return b.buf.Len()+1+len(text) <= b.maxBytes
}

func (b *batcher) add(text string, now time.Time) {
	if b.count == 0 {
		b.opened = now
	} else {
		b.buf.WriteByte('\n')
	}
	b.buf.WriteString(text)
	b.count++
}

// full reports whether a size or count threshold has been reached.
func (b *batcher) full() bool {
	return b.count >= b.maxMessages || b.buf.Len() >= b.maxBytes
}

// expired reports whether a non-empty batch has reached its maximum age.
func (b *batcher) expired(now time.Time) bool {
	return b.count > 0 && now.Sub(b.opened) >= b.maxAge
}

func (b *batcher) empty() bool {
	return b.count == 0
}

func (b *batcher) data() []byte {
	return b.buf.Bytes()
}

func (b *batcher) reset() {
	b.buf.Reset()
	b.count = 0
	b.opened = time.Time{}
}
