package app

import (
	"errors"
	"testing"

	"github.com/bft-labs/batchship/internal/domain"
)

func TestIngestPort_Submit(t *testing.T) {
	tests := []struct {
		name    string
		msg     domain.Message
		addErr  error
		want    bool
		wantAdd int
	}{
		{"accepted", domain.Text("hello"), nil, true, 1},
		{"nil message", nil, nil, false, 0},
		{"typed nil message", (*pointerMessage)(nil), nil, false, 0},
		{"panicking message", panicMessage{}, nil, false, 0},
		{"store rejects", domain.Text("hello"), domain.ErrMessageTooLarge, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{addErr: tt.addErr}
			obs := &recordingObserver{}
			logger := &mockLogger{}
			p := NewIngestPort(store, logger, obs)

			if got := p.Submit(tt.msg); got != tt.want {
				t.Errorf("Submit() = %v, want %v", got, tt.want)
			}
			if len(store.added) != tt.wantAdd {
				t.Errorf("store received %d messages, want %d", len(store.added), tt.wantAdd)
			}
			if tt.want && obs.accepted != 1 || !tt.want && obs.rejected != 1 {
				t.Errorf("observer accepted=%d rejected=%d", obs.accepted, obs.rejected)
			}
			if tt.addErr != nil && !logger.contains(tt.addErr.Error()) {
				t.Error("store rejection was not logged")
			}
		})
	}
}

type pointerMessage struct{ text string }

func (m *pointerMessage) String() string { return m.text }

type panicMessage struct{}

func (panicMessage) String() string { panic("no text") }

func TestIngestPort_SubmitsTextVerbatim(t *testing.T) {
	store := &fakeStore{}
	p := NewIngestPort(store, nil, nil)

	p.Submit(domain.Text(" spaced\tvalue "))

	if len(store.added) != 1 || store.added[0] != " spaced\tvalue " {
		t.Errorf("added = %q", store.added)
	}
}

func TestIngestPort_ErrorsAreNotReturned(t *testing.T) {
	store := &fakeStore{addErr: errors.New("disk full")}
	p := NewIngestPort(store, nil, Observers{nil, &recordingObserver{}})

	if p.Submit(domain.Text("x")) {
		t.Error("Submit() = true on store failure")
	}
}
