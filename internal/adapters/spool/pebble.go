package spool

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/bft-labs/batchship/internal/domain"
)

// ErrNotFound is returned by Update for a sequence not in the spool.
var ErrNotFound = errors.New("spool: entry not found")

var (
	keyPrefix = []byte("spool/")
	keyEnd    = []byte("spool0") // '0' sorts right after '/'
)

// Pebble is a durable spool. Entries are keyed by big-endian sequence so
// iteration order is arrival order; every write is synced.
type Pebble struct {
	mu      sync.Mutex
	db      *pebble.DB
	lastSeq uint64
	count   int
}

// OpenPebble opens or creates a spool in dir and recovers its sequence
// counter and entry count.
func OpenPebble(dir string) (*Pebble, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}

	p := &Pebble{db: db}
	if err := p.recover(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pebble) recover() error {
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyEnd})
	if err != nil {
		return fmt.Errorf("scan spool: %w", err)
	}
	defer it.Close()

	for ok := it.First(); ok; ok = it.Next() {
		p.count++
	}
	if it.Last() {
		p.lastSeq = decodeKey(it.Key())
	}
	return it.Error()
}

func (p *Pebble) Append(b domain.Batch) (uint64, error) {
	value, err := json.Marshal(b)
	if err != nil {
		return 0, fmt.Errorf("encode batch: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seq := p.lastSeq + 1
	if err := p.db.Set(encodeKey(seq), value, pebble.Sync); err != nil {
		return 0, fmt.Errorf("write batch: %w", err)
	}
	p.lastSeq = seq
	p.count++
	return seq, nil
}

func (p *Pebble) Oldest() (uint64, domain.Batch, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyEnd})
	if err != nil {
		return 0, domain.Batch{}, false, err
	}
	defer it.Close()

	if !it.First() {
		return 0, domain.Batch{}, false, it.Error()
	}

	var b domain.Batch
	if err := json.Unmarshal(it.Value(), &b); err != nil {
		return 0, domain.Batch{}, false, fmt.Errorf("decode batch: %w", err)
	}
	return decodeKey(it.Key()), b, true, nil
}

func (p *Pebble) Update(seq uint64, b domain.Batch) error {
	value, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := encodeKey(seq)
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	closer.Close()

	return p.db.Set(key, value, pebble.Sync)
}

func (p *Pebble) Remove(seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := encodeKey(seq)
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	closer.Close()

	if err := p.db.Delete(key, pebble.Sync); err != nil {
		return err
	}
	p.count--
	return nil
}

func (p *Pebble) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func encodeKey(seq uint64) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], seq)
	return k
}

func decodeKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(keyPrefix):])
}
