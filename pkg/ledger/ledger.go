// Package ledger implements the WORM (write-once-read-many) append-only
// event log described in spec 4.E: every promotion-orchestrator
// transition and PCAg emission is recorded here as a hash-chained event,
// one per line of canonical JSON, so that any later tamper attempt breaks
// the chain and is detected on read.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/hashchain"
)

// Ledger is a single append-only event log backed by one file. Only one
// process may hold the write lock at a time; Open makes one non-blocking
// attempt to acquire it and returns ErrLocked if it cannot.
//
// CONCURRENCY: a Ledger is safe for concurrent use by multiple goroutines
// in this process — Append and VerifyChain take an internal mutex — but
// cross-process safety is provided only by the advisory flock, which
// excludes other processes entirely rather than interleaving them.
type Ledger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	lock   *flock.Flock
	header Header
	events []Event
	tamperSuspected bool
	closed bool
}

// Open opens (creating if absent) the ledger file at path, acquires its
// advisory write lock, and replays existing events to rebuild in-memory
// state and verify the hash chain. A pre-existing file whose chain does
// not verify is opened in tamper-suspected mode: Open still succeeds (so
// the caller can inspect what is there) but Append will refuse to write
// until the caller explicitly acknowledges by starting a fresh ledger.
func Open(path string) (*Ledger, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring lock: %v", ErrIO, err)
	}
	if !locked {
		return nil, ErrLocked
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}

	l := &Ledger{path: path, file: f, lock: lock}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		lock.Unlock()
		return nil, fmt.Errorf("%w: stat: %v", ErrIO, err)
	}

	if info.Size() == 0 {
		l.header = Header{
			FormatVersion: CurrentFormatVersion,
			GenesisHash:   hashchain.ZeroHash,
			CreatedUTC:    time.Now().UTC(),
			HashAlgorithm: string(hashchain.AlgoBLAKE2b256),
		}
		if err := l.writeHeader(); err != nil {
			f.Close()
			lock.Unlock()
			return nil, err
		}
		return l, nil
	}

	if err := l.replay(); err != nil {
		if err == ErrTamperSuspected {
			l.tamperSuspected = true
			return l, nil
		}
		f.Close()
		lock.Unlock()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) writeHeader() error {
	b, err := hashchain.Canonicalize(l.header)
	if err != nil {
		return fmt.Errorf("%w: encoding header: %v", ErrIO, err)
	}
	if _, err := l.file.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}
	return l.file.Sync()
}

// replay reads every line of the ledger file, reconstructs the header
// and event list, and verifies the hash chain as it goes.
func (l *Ledger) replay() error {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %v", ErrIO, err)
	}
	scanner := bufio.NewScanner(l.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return fmt.Errorf("%w: missing header line", ErrIO)
	}
	var header Header
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return fmt.Errorf("%w: decoding header: %v", ErrIO, err)
	}
	l.header = header

	algo := hashchain.Algorithm(header.HashAlgorithm)
	prevHash := header.GenesisHash
	var events []Event
	var wantSeq uint64

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// A half-written trailing record (process crash mid-append)
			// is treated as "nothing happened" rather than tamper: it
			// simply never committed, so we stop replay here.
			break
		}
		if ev.Sequence != wantSeq {
			return ErrTamperSuspected
		}
		if ev.PrevHash != prevHash {
			return ErrTamperSuspected
		}
		recomputed, err := eventHash(algo, ev)
		if err != nil {
			return fmt.Errorf("%w: recomputing event hash: %v", ErrIO, err)
		}
		if recomputed != ev.EventHash {
			return ErrTamperSuspected
		}
		events = append(events, ev)
		prevHash = ev.EventHash
		wantSeq++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: scanning: %v", ErrIO, err)
	}

	l.events = events
	return nil
}

// eventHash computes the hash that event_hash must equal: the canonical
// hash of sequence, event_type, event_id, timestamp_utc, payload and
// prev_hash together, per spec 3 — the payload itself is folded in
// directly (not the payload_hash field alone), so that changing any one
// byte of a stored payload detectably breaks the chain even if
// payload_hash were left untouched.
func eventHash(algo hashchain.Algorithm, ev Event) (string, error) {
	linkage := struct {
		Sequence     uint64    `json:"sequence"`
		Type         EventType `json:"event_type"`
		EventID      string    `json:"event_id"`
		TimestampUTC time.Time `json:"timestamp_utc"`
		Payload      any       `json:"payload"`
		PrevHash     string    `json:"prev_hash"`
	}{ev.Sequence, ev.Type, ev.EventID, ev.TimestampUTC, ev.Payload, ev.PrevHash}

	b, err := hashchain.Canonicalize(linkage)
	if err != nil {
		return "", err
	}
	return hashchain.Sum(algo, b)
}

// Append writes one new event to the ledger, computing its payload_hash,
// prev_hash (the previous event's event_hash, or the genesis hash for
// sequence 0) and event_hash, then flushing to disk before returning.
// Append refuses to run once the ledger is tamper-suspected or closed.
func (l *Ledger) Append(eventType EventType, payload any, now time.Time) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Event{}, ErrClosed
	}
	if l.tamperSuspected {
		return Event{}, ErrTamperSuspected
	}

	algo := hashchain.Algorithm(l.header.HashAlgorithm)

	payloadHash, err := hashchain.HashCanonical(payload)
	if err != nil {
		return Event{}, fmt.Errorf("ledger: hashing payload: %w", err)
	}

	prevHash := l.header.GenesisHash
	var seq uint64
	if n := len(l.events); n > 0 {
		prevHash = l.events[n-1].EventHash
		seq = uint64(n)
	}

	ev := Event{
		Sequence:     seq,
		Type:         eventType,
		EventID:      uuid.New().String(),
		TimestampUTC: now.UTC(),
		Payload:      payload,
		PayloadHash:  payloadHash,
		PrevHash:     prevHash,
	}
	eventHashVal, err := eventHash(algo, ev)
	if err != nil {
		return Event{}, fmt.Errorf("ledger: computing event hash: %w", err)
	}
	ev.EventHash = eventHashVal

	line, err := hashchain.Canonicalize(ev)
	if err != nil {
		return Event{}, fmt.Errorf("ledger: encoding event: %w", err)
	}
	if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
		return Event{}, fmt.Errorf("%w: seek: %v", ErrIO, err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return Event{}, fmt.Errorf("%w: writing event: %v", ErrIO, err)
	}
	if err := l.file.Sync(); err != nil {
		return Event{}, fmt.Errorf("%w: syncing: %v", ErrIO, err)
	}

	l.events = append(l.events, ev)
	return ev, nil
}

// VerifyChain re-verifies every stored event's linkage and hash from
// scratch (independent of what replay found at Open time) and latches
// tamper-suspected mode on the Ledger if it fails.
func (l *Ledger) VerifyChain() ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	algo := hashchain.Algorithm(l.header.HashAlgorithm)
	prevHash := l.header.GenesisHash
	for i, ev := range l.events {
		if ev.Sequence != uint64(i) || ev.PrevHash != prevHash {
			l.tamperSuspected = true
			return nil, ErrTamperSuspected
		}
		recomputed, err := eventHash(algo, ev)
		if err != nil {
			return nil, fmt.Errorf("ledger: recomputing event hash: %w", err)
		}
		if recomputed != ev.EventHash {
			l.tamperSuspected = true
			return nil, ErrTamperSuspected
		}
		prevHash = ev.EventHash
	}
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out, nil
}

// MerkleRoot computes the Merkle root over every event's event_hash, in
// sequence order. Returns hashchain.ZeroHash for an empty ledger.
func (l *Ledger) MerkleRoot() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) == 0 {
		return hashchain.ZeroHash, nil
	}
	leaves := make([]string, len(l.events))
	for i, ev := range l.events {
		leaves[i] = ev.EventHash
	}
	return merkleRoot(hashchain.Algorithm(l.header.HashAlgorithm), leaves)
}

// Events returns a defensive copy of every event currently held in
// memory, in sequence order.
func (l *Ledger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// TamperSuspected reports whether this ledger has latched tamper-suspected
// mode, either at Open or from a later VerifyChain call.
func (l *Ledger) TamperSuspected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tamperSuspected
}

// ExportAudit writes the header and every in-memory event to w, one JSON
// object per line, for handing to an external audit sink. The lines are
// re-encoded with encoding/json in struct field order, so they are not
// byte-identical to the sorted-key canonical lines stored on disk.
func (l *Ledger) ExportAudit(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	enc := json.NewEncoder(w)
	if err := enc.Encode(l.header); err != nil {
		return fmt.Errorf("ledger: exporting header: %w", err)
	}
	for _, ev := range l.events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("ledger: exporting event %d: %w", ev.Sequence, err)
		}
	}
	return nil
}

// Close releases the write lock and closes the backing file. A Ledger
// must not be used after Close.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	closeErr := l.file.Close()
	unlockErr := l.lock.Unlock()
	if closeErr != nil {
		return fmt.Errorf("%w: closing file: %v", ErrIO, closeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("%w: releasing lock: %v", ErrIO, unlockErr)
	}
	return nil
}
