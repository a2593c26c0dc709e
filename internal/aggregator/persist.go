package aggregator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// metaKey is the reserved snapshot key for batch metadata. Item keys are
// always "name|sport" so they can never collide with it.
const metaKey = "_meta"

// Meta describes the batch that produced a snapshot.
type Meta struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	BatchDate     string    `json:"batchDate"`
	Currency      string    `json:"currency"`
	TrimPercent   float64   `json:"trimPercent"`
	MinSampleSize int       `json:"minSampleSize"`
	FXAsOf        string    `json:"fxAsOf,omitempty"`
	Sources       []string  `json:"sources"`
	MergePolicy   string    `json:"mergePolicy"`
	ItemCount     int       `json:"itemCount"`
}

// Snapshot is the persisted output of one aggregation batch: price records
// keyed by item key plus a _meta block, serialized as a single flat JSON
// object so consumers can index it by item key directly.
type Snapshot struct {
	Meta    Meta
	Records map[string]*PriceRecord
}

// NewSnapshot returns an empty snapshot carrying the batch metadata.
func NewSnapshot(meta Meta) *Snapshot {
	return &Snapshot{
		Meta:    meta,
		Records: make(map[string]*PriceRecord),
	}
}

// MarshalJSON flattens the snapshot into one object: the _meta block next
// to one entry per item key.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Records)+1)

	meta, err := json.Marshal(s.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot meta: %w", err)
	}
	out[metaKey] = meta

	for key, rec := range s.Records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", key, err)
		}
		out[key] = raw
	}

	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if meta, ok := raw[metaKey]; ok {
		if err := json.Unmarshal(meta, &s.Meta); err != nil {
			return fmt.Errorf("unmarshal snapshot meta: %w", err)
		}
		delete(raw, metaKey)
	}

	s.Records = make(map[string]*PriceRecord, len(raw))
	for key, blob := range raw {
		var rec PriceRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return fmt.Errorf("unmarshal record %s: %w", key, err)
		}
		s.Records[key] = &rec
	}
	return nil
}

// Store persists snapshots to a JSON file. Saves are atomic: written to a
// temp file in the same directory, then renamed over the target, so an
// interrupted batch never leaves a half-written snapshot behind.
type Store struct {
	path string
}

// NewStore creates a store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (st *Store) Path() string { return st.path }

// Load reads the snapshot from disk. A missing file is not an error: it
// returns (nil, nil) so callers can start a fresh batch.
func (st *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", st.path, err)
	}
	return &snap, nil
}

// Save atomically writes the snapshot.
func (st *Store) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(st.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, st.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
