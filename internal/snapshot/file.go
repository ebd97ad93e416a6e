package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Decode reads a YAML-formatted snapshot.
func Decode(r io.Reader) (*ProjectSnapshot, error) {
	var snap ProjectSnapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("snapshot is empty")
		}
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}

// ReadFile reads a YAML-formatted snapshot from disk.
func ReadFile(path string) (*ProjectSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return Decode(f)
}

// FileLoader serves snapshots from YAML files. Root is either a single
// snapshot file or a directory holding one <projectID>.yaml per project.
type FileLoader struct {
	Root string
}

// NewFileLoader creates a FileLoader reading from root.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{Root: root}
}

// Load implements Loader. Files are read whole, so every snapshot is
// consistent as of the moment it was written.
func (l *FileLoader) Load(ctx context.Context, projectID string, includePending bool) (*ProjectSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := l.Root
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot source %s: %w", path, ErrProjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat snapshot source: %w", err)
	}
	if info.IsDir() {
		if projectID == "" || filepath.Base(projectID) != projectID {
			return nil, fmt.Errorf("invalid project id %q", projectID)
		}
		path = filepath.Join(l.Root, projectID+".yaml")
	}

	snap, err := ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project %s: %w", projectID, ErrProjectNotFound)
		}
		return nil, err
	}

	if snap.ProjectID == "" {
		snap.ProjectID = projectID
	}
	if projectID != "" && snap.ProjectID != projectID {
		return nil, fmt.Errorf("snapshot %s holds project %s: %w", path, snap.ProjectID, ErrProjectNotFound)
	}
	return snap, nil
}
