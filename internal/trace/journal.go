// Package trace writes a compressed JSON-lines journal of window activity.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	KindShift = "shift"
	KindSweep = "sweep"
	KindTick  = "tick"
)

// Event is one journal line.
type Event struct {
	RunID       string  `json:"run_id"`
	Tick        uint64  `json:"tick"`
	Kind        string  `json:"kind"`
	Observer    float64 `json:"observer"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Created     int     `json:"created,omitempty"`
	Destroyed   int     `json:"destroyed,omitempty"`
	Transitions int     `json:"transitions,omitempty"`
	Live        int     `json:"live,omitempty"`
}

// Journal appends events to a zstd-compressed stream. Every event carries
// the journal's run id.
type Journal struct {
	runID string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// Open creates (or truncates) the journal file at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j, err := NewJournal(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	j.f = f
	return j, nil
}

// NewJournal writes to an existing stream. Close flushes the encoder but
// does not close w.
func NewJournal(w io.Writer) (*Journal, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &Journal{
		runID: uuid.NewString(),
		enc:   enc,
		w:     bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

func (j *Journal) RunID() string { return j.runID }

// Record appends one event.
func (j *Journal) Record(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return errors.New("journal closed")
	}
	ev.RunID = j.runID
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return nil
	}
	var errs []error
	if err := j.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := j.enc.Close(); err != nil {
		errs = append(errs, err)
	}
	if j.f != nil {
		if err := j.f.Close(); err != nil {
			errs = append(errs, err)
		}
		j.f = nil
	}
	j.w = nil
	j.enc = nil
	return errors.Join(errs...)
}

// Read decodes every event from a compressed journal stream.
func Read(r io.Reader) ([]Event, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var events []Event
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return events, nil
}

// ReadFile is Read for a journal on disk.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	return Read(f)
}
