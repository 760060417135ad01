package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bft-labs/batchship/internal/domain"
)

type transition struct {
	from, to State
	reason   string
}

type recordingEmitter struct {
	mu   sync.Mutex
	seen []transition
}

func (r *recordingEmitter) OnStateChange(previous, current State, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, transition{previous, current, reason})
}

func (r *recordingEmitter) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.seen))
	for i, t := range r.seen {
		out[i] = t.to
	}
	return out
}

func walk(t *testing.T, l *Lifecycle, path ...State) {
	t.Helper()
	for _, next := range path {
		if err := l.TransitionTo(next, next.String()); err != nil {
			t.Fatalf("TransitionTo(%v) from %v: %v", next, l.State(), err)
		}
	}
}

// Each case is a path an instance takes through Start and Stop.
func TestLifecycle_Paths(t *testing.T) {
	tests := []struct {
		name      string
		path      []State
		canStart  bool
		canStop   bool
		wantFinal State
	}{
		{
			name:      "start and stop",
			path:      []State{StateStarting, StateRunning, StateStopping, StateStopped},
			canStart:  true,
			wantFinal: StateStopped,
		},
		{
			name:      "plugin fails to initialize",
			path:      []State{StateStarting, StateCrashed},
			canStart:  true,
			wantFinal: StateCrashed,
		},
		{
			name:      "stop times out",
			path:      []State{StateStarting, StateRunning, StateStopping, StateCrashed},
			canStart:  true,
			wantFinal: StateCrashed,
		},
		{
			name:      "stopped while starting",
			path:      []State{StateStarting, StateStopping, StateStopped},
			canStart:  true,
			wantFinal: StateStopped,
		},
		{
			name:      "running",
			path:      []State{StateStarting, StateRunning},
			canStop:   true,
			wantFinal: StateRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter := &recordingEmitter{}
			l := NewLifecycle(&mockLogger{}, emitter)

			walk(t, l, tt.path...)

			if l.State() != tt.wantFinal {
				t.Errorf("state = %v, want %v", l.State(), tt.wantFinal)
			}
			if l.CanStart() != tt.canStart || l.CanStop() != tt.canStop {
				t.Errorf("CanStart/CanStop = %v/%v, want %v/%v",
					l.CanStart(), l.CanStop(), tt.canStart, tt.canStop)
			}
			got := emitter.states()
			if len(got) != len(tt.path) {
				t.Fatalf("emitted %v, want %v", got, tt.path)
			}
			for i := range got {
				if got[i] != tt.path[i] {
					t.Errorf("event %d = %v, want %v", i, got[i], tt.path[i])
				}
			}
		})
	}
}

func TestLifecycle_RejectedTransitions(t *testing.T) {
	tests := []struct {
		name    string
		reach   []State
		to      State
		wantErr error
	}{
		{"stop before start", nil, StateStopping, domain.ErrNotRunning},
		{"run without starting", nil, StateRunning, domain.ErrNotRunning},
		{"stop a crashed instance", []State{StateStarting, StateCrashed}, StateStopping, domain.ErrNotRunning},
		{"start twice", []State{StateStarting}, StateStarting, domain.ErrAlreadyRunning},
		{"start while running", []State{StateStarting, StateRunning}, StateStarting, domain.ErrAlreadyRunning},
		{"skip stopping", []State{StateStarting, StateRunning}, StateStopped, domain.ErrAlreadyRunning},
		{"stop twice", []State{StateStarting, StateRunning, StateStopping}, StateStopping, domain.ErrAlreadyRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter := &recordingEmitter{}
			l := NewLifecycle(&mockLogger{}, emitter)
			walk(t, l, tt.reach...)
			before := l.State()

			err := l.TransitionTo(tt.to, "rejected")

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("TransitionTo(%v) error = %v, want %v", tt.to, err, tt.wantErr)
			}
			if l.State() != before {
				t.Errorf("state moved to %v on a rejected transition", l.State())
			}
			if n := len(emitter.states()); n != len(tt.reach) {
				t.Errorf("rejected transition emitted an event (%d events)", n)
			}
		})
	}
}

func TestLifecycle_ReasonReachesEmitterAndLog(t *testing.T) {
	emitter := &recordingEmitter{}
	logger := &mockLogger{}
	l := NewLifecycle(logger, emitter)

	walk(t, l, StateStarting)
	if err := l.TransitionTo(StateCrashed, "plugin httpingest: bind failed"); err != nil {
		t.Fatal(err)
	}

	if got := emitter.seen[1].reason; got != "plugin httpingest: bind failed" {
		t.Errorf("reason = %q", got)
	}
	if !logger.contains("state transition") {
		t.Error("transition not logged")
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		StateStopped:  "Stopped",
		StateStarting: "Starting",
		StateRunning:  "Running",
		StateStopping: "Stopping",
		StateCrashed:  "Crashed",
		State(99):     "Unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %s, want %s", state, got, want)
		}
	}
}

func TestLifecycle_SingleStarter(t *testing.T) {
	l := NewLifecycle(nil, nil)

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TransitionTo(StateStarting, "start") == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := started.Load(); got != 1 {
		t.Errorf("%d goroutines entered Starting, want 1", got)
	}
}
