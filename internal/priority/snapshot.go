package priority

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SnapshotVersion is the current on-disk format version.
const SnapshotVersion = 1

type snapshot struct {
	Version int            `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	Weights map[string]int `json:"weights"`
}

// DefaultStatePath returns the default snapshot path: ~/.lexloop/weights.json
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".lexloop", "weights.json"), nil
}

// Load reads the snapshot at path. It returns a nil table and nil error when
// no snapshot exists, so the caller can initialise a fresh one.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (Table, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptState, snap.Version)
	}
	if snap.Weights == nil {
		return nil, fmt.Errorf("%w: missing weights", ErrCorruptState)
	}

	t := make(Table, len(snap.Weights))
	for k, w := range snap.Weights {
		if k == "" {
			return nil, fmt.Errorf("%w: empty item key", ErrCorruptState)
		}
		if w < 0 || w > int(MaxWeight) {
			return nil, fmt.Errorf("%w: weight %d for %q out of range [0, %d]", ErrCorruptState, w, k, MaxWeight)
		}
		t[Item(k)] = Weight(w)
	}
	return t, nil
}

// Persist writes the whole table to path. The write goes to a temp file in
// the same directory and is renamed over path, so a crash mid-write leaves
// the previous snapshot intact. Items that are not valid UTF-8 are refused
// since JSON would rewrite them.
func Persist(t Table, path string) error {
	if err := validate(t.keys()); err != nil {
		return err
	}
	snap := snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now().UTC(),
		Weights: make(map[string]int, len(t)),
	}
	for k, w := range t {
		snap.Weights[string(k)] = int(w)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return atomicWriteFile(path, data, 0644)
}

func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".weights-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	success = true

	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("sync state dir: %w", err)
	}
	return nil
}

// syncDir flushes a directory entry so a completed rename survives power loss.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
