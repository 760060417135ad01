package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

type mockLogger struct{ warns int }

func (*mockLogger) Debug(string, ...ports.Field)  {}
func (*mockLogger) Info(string, ...ports.Field)   {}
func (m *mockLogger) Warn(string, ...ports.Field) { m.warns++ }
func (*mockLogger) Error(string, ...ports.Field)  {}

func TestStatusFileRepository_LoadMissing(t *testing.T) {
	repo := NewStatusFileRepository(t.TempDir())

	status, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !status.IsEmpty() {
		t.Errorf("Load() = %+v, want empty", status)
	}
}

func TestStatusFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	repo := NewStatusFileRepository(dir)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := domain.Status{
		LastBatchID:     "b7",
		LastOutcome:     "delivered",
		Delivered:       7,
		Deferred:        2,
		LastDeliveredAt: at,
	}

	if err := repo.Save(context.Background(), want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.LastBatchID != want.LastBatchID || got.Delivered != 7 || got.Deferred != 2 || !got.LastDeliveredAt.Equal(at) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestStatusFileRepository_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(dir)
	if err := os.WriteFile(repo.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("Load() accepted corrupt file")
	}
}

func TestStatusObserver(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(dir)
	logger := &mockLogger{}
	obs := NewStatusObserver(context.Background(), repo, logger)

	obs.OnSubmit(true)
	obs.OnCycle(domain.Outcome{Kind: domain.OutcomeIdle})
	if _, err := os.Stat(repo.Path()); !os.IsNotExist(err) {
		t.Fatal("idle cycle wrote a status file")
	}

	obs.OnCycle(domain.Outcome{Kind: domain.OutcomeDelivered, BatchID: "b1"})
	obs.OnCycle(domain.Outcome{Kind: domain.OutcomeDeferred, BatchID: "b2", Err: errors.New("broker down")})

	saved, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if saved.Delivered != 1 || saved.Deferred != 1 || saved.LastBatchID != "b2" || saved.LastError != "broker down" {
		t.Errorf("saved status = %+v", saved)
	}

	// A new observer resumes the counters.
	resumed := NewStatusObserver(context.Background(), repo, logger)
	if resumed.Status().Delivered != 1 {
		t.Errorf("resumed Delivered = %d, want 1", resumed.Status().Delivered)
	}
	if logger.warns != 0 {
		t.Errorf("got %d warnings", logger.warns)
	}
}

func TestStatusObserver_CorruptFileIsReplaced(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(dir)
	_ = os.WriteFile(repo.Path(), []byte("garbage"), 0o600)
	logger := &mockLogger{}

	obs := NewStatusObserver(context.Background(), repo, logger)
	if logger.warns != 1 {
		t.Errorf("got %d warnings, want 1", logger.warns)
	}
	obs.OnCycle(domain.Outcome{Kind: domain.OutcomeLogged, BatchID: "b1"})

	saved, err := repo.Load(context.Background())
	if err != nil || saved.Logged != 1 {
		t.Errorf("Load() = %+v, %v", saved, err)
	}
}
