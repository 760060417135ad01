package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// mockLogger records log lines for assertions.
type mockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (m *mockLogger) Debug(msg string, fields ...ports.Field) { m.record("DEBUG", msg, fields) }
func (m *mockLogger) Info(msg string, fields ...ports.Field)  { m.record("INFO", msg, fields) }
func (m *mockLogger) Warn(msg string, fields ...ports.Field)  { m.record("WARN", msg, fields) }
func (m *mockLogger) Error(msg string, fields ...ports.Field) { m.record("ERROR", msg, fields) }

func (m *mockLogger) record(level, msg string, fields []ports.Field) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	m.mu.Lock()
	m.lines = append(m.lines, b.String())
	m.mu.Unlock()
}

func (m *mockLogger) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// fakeCodec "compresses" by prefixing the payload.
type fakeCodec struct {
	failDecompress bool
}

var codecPrefix = []byte("z:")

func (fakeCodec) Name() string            { return "fake" }
func (fakeCodec) ContentEncoding() string { return "fake" }

func (fakeCodec) Compress(data []byte) ([]byte, error) {
	return append(append([]byte{}, codecPrefix...), data...), nil
}

func (c fakeCodec) Decompress(data []byte) ([]byte, error) {
	if c.failDecompress || !bytes.HasPrefix(data, codecPrefix) {
		return nil, errors.New("corrupt input")
	}
	return bytes.TrimPrefix(data, codecPrefix), nil
}

// fakeStore is a scripted accumulation store.
type fakeStore struct {
	mu       sync.Mutex
	added    []string
	ready    []*domain.Batch
	unsent   []*domain.Batch
	addErr   error
	pollErr  error
	polls    int
	closed   bool
	closeErr error
	onPoll   func()
}

func (s *fakeStore) AddMessage(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, text)
	return nil
}

func (s *fakeStore) PollReadyBatch() (*domain.Batch, error) {
	s.mu.Lock()
	s.polls++
	onPoll := s.onPoll
	if s.pollErr != nil {
		err := s.pollErr
		s.mu.Unlock()
		return nil, err
	}
	var b *domain.Batch
	if len(s.ready) > 0 {
		b = s.ready[0]
		s.ready = s.ready[1:]
	}
	s.mu.Unlock()
	if onPoll != nil {
		onPoll()
	}
	return b, nil
}

func (s *fakeStore) HandleUnsentBatch(b *domain.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsent = append(s.unsent, b)
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *fakeStore) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func (s *fakeStore) unsentBatches() []*domain.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Batch{}, s.unsent...)
}

func (s *fakeStore) push(b *domain.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, b)
}

type publishCall struct {
	topic   string
	payload []byte
}

// fakeTransport records publishes and tracks concurrent entry.
type fakeTransport struct {
	mu       sync.Mutex
	calls    []publishCall
	err      error
	panicMsg string
	delay    time.Duration

	active  atomic.Int32
	overlap atomic.Bool
}

func (f *fakeTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{topic: topic, payload: append([]byte{}, payload...)})
	return f.err
}

func (f *fakeTransport) published() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishCall{}, f.calls...)
}

// recordingObserver collects notifications.
type recordingObserver struct {
	mu       sync.Mutex
	accepted int
	rejected int
	cycles   []domain.Outcome
}

func (r *recordingObserver) OnSubmit(accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if accepted {
		r.accepted++
	} else {
		r.rejected++
	}
}

func (r *recordingObserver) OnCycle(out domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, out)
}

func compressedBatch(id string, msgs ...string) *domain.Batch {
	payload, _ := fakeCodec{}.Compress([]byte(strings.Join(msgs, "\n")))
	return &domain.Batch{
		ID:        id,
		Payload:   payload,
		Messages:  len(msgs),
		CreatedAt: time.Now(),
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
