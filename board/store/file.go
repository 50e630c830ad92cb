package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wricardo/telemetry-dashboard/board/counter"
)

// DefaultFileName is the snapshot file written inside the store directory.
const DefaultFileName = "dashboard.json"

// FileStore implements SnapshotStore using a JSON file
type FileStore struct {
	dir      string
	fileName string
}

// NewFileStore creates the directory if needed and returns a store writing
// DefaultFileName inside it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &FileStore{dir: dir, fileName: DefaultFileName}, nil
}

// Path returns the snapshot file path.
func (fs *FileStore) Path() string {
	return filepath.Join(fs.dir, fs.fileName)
}

// Save writes the snapshot atomically through a temporary file.
func (fs *FileStore) Save(ctx context.Context, snapshot *counter.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal to JSON with indentation for readability
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(fs.dir, fs.fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fs.Path()); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot file.
func (fs *FileStore) Load(ctx context.Context) (*counter.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadSnapshotFile(fs.Path())
}

// ReadSnapshotFile decodes a snapshot file written by FileStore.
func ReadSnapshotFile(path string) (*counter.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	return DecodeSnapshot(data)
}

// DecodeSnapshot decodes the JSON form written by every store.
func DecodeSnapshot(data []byte) (*counter.Snapshot, error) {
	var snapshot counter.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
