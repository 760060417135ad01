// Package dirwatch ingests files dropped into an inbox directory. Each
// non-empty line of a file becomes one message. A fully accepted file is
// removed; rejected lines are kept next to it in a ".rejected" file.
//
// Producers should write files elsewhere (or under a dot-prefixed name) and
// rename them into the inbox, so a file is never read half-written.
package dirwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/batchship/internal/ports"
	"github.com/bft-labs/batchship/pkg/batchship"
)

// RejectedSuffix is appended to the name of a file holding rejected lines.
const RejectedSuffix = ".rejected"

// Plugin implements inbox directory ingestion.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	dir           string
	debounceDelay time.Duration

	// Runtime state
	ingest batchship.Submitter
	logger batchship.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the dirwatch plugin.
type Config struct {
	// Dir is the inbox directory. It is created if missing. Required.
	Dir string

	// DebounceDelay is the delay to wait after a file event before reading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// New creates a new dirwatch plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		dir:           cfg.Dir,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "dirwatch"
}

// Initialize ingests files already in the inbox and starts watching it.
func (p *Plugin) Initialize(ctx context.Context, cfg batchship.PluginConfig) error {
	if p.dir == "" {
		return errors.New("dirwatch: inbox directory is required")
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("dirwatch: create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dirwatch: create watcher: %w", err)
	}
	if err := watcher.Add(p.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("dirwatch: watch %s: %w", p.dir, err)
	}

	p.mu.Lock()
	p.ingest = cfg.Ingest
	p.logger = cfg.Logger
	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("Inbox watcher initialized", ports.String("dir", p.dir))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher. Files not yet read stay in the inbox and are
// picked up on the next start.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchLoop collects file events and ingests the touched files once no
// event has arrived for the debounce delay.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	p.scan()

	pending := make(map[string]struct{})
	debounce := time.NewTimer(p.debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !eligible(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			debounce.Reset(p.debounceDelay)

		case <-debounce.C:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				delete(pending, name)
				p.ingestFile(name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Inbox watcher: watcher error", ports.Err(err))
		}
	}
}

// scan ingests every eligible file present in the inbox, oldest name first.
func (p *Plugin) scan() {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		p.logger.Error("Inbox watcher: failed to list inbox", ports.Err(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(p.dir, e.Name())
		if eligible(path) {
			p.ingestFile(path)
		}
	}
}

// eligible skips hidden files and files holding rejected lines.
func eligible(path string) bool {
	name := filepath.Base(path)
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, RejectedSuffix)
}

// ingestFile submits each line of path and removes it. Rejected lines are
// written to path+RejectedSuffix first, or logged if that write fails; the
// source is removed either way so no line is submitted twice.
func (p *Plugin) ingestFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Already consumed, or not a regular file.
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Error("Inbox watcher: read failed", ports.String("file", path), ports.Err(err))
		return
	}

	var accepted int
	var rejected []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if p.ingest.Submit(batchship.Text(line)) {
			accepted++
		} else {
			rejected = append(rejected, line)
		}
	}

	if len(rejected) > 0 {
		out := strings.Join(rejected, "\n") + "\n"
		if err := os.WriteFile(path+RejectedSuffix, []byte(out), 0o644); err != nil {
			// Accepted lines are already submitted; keeping the file would
			// submit them again on the next scan.
			p.logger.Error("Inbox watcher: failed to save rejected lines",
				ports.String("file", path),
				ports.String("lines", out),
				ports.Err(err))
		} else {
			p.logger.Warn("Inbox watcher: lines rejected",
				ports.String("file", path),
				ports.Int("rejected", len(rejected)))
		}
	}

	if err := os.Remove(path); err != nil {
		p.logger.Error("Inbox watcher: failed to remove ingested file",
			ports.String("file", path), ports.Err(err))
		return
	}
	p.logger.Debug("Inbox watcher: file ingested",
		ports.String("file", path),
		ports.Int("accepted", accepted))
}
