package accumulator

import (
	"testing"
	"time"
)

func TestBatcher(t *testing.T) {
	b := newBatcher(Config{MaxBatchBytes: 10, MaxBatchMessages: 3, MaxBatchAge: time.Second})
	now := time.Unix(0, 0)

	if !b.fits("a very long message") {
		t.Error("empty batcher refused a message")
	}
	b.add("abcd", now)
	if b.fits("efghij") {
		t.Error("fits() = true for a message that would exceed the byte threshold")
	}
	if !b.fits("efgh") {
		t.Error("fits() = false for a message at the threshold")
	}
	b.add("efgh", now)
	if b.full() {
		t.Error("full() = true below both thresholds")
	}
	if string(b.data()) != "abcd\nefgh" {
		t.Errorf("data() = %q", b.data())
	}
	if b.expired(now.Add(999 * time.Millisecond)) {
		t.Error("expired() before max age")
	}
	if !b.expired(now.Add(time.Second)) {
		t.Error("expired() = false at max age")
	}
	b.add("i", now)
	if !b.full() {
		t.Error("full() = false at the message threshold")
	}

	b.reset()
	if !b.empty() || b.expired(now.Add(time.Hour)) {
		t.Error("reset batcher is not empty")
	}
}
