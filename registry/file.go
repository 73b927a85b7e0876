package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sc1-labs/vaultops/types"
)

var _ Registry = (*FileStore)(nil)

// FileStore keeps one JSON file per record under <dir>/<network>/<name>.json, the layout
// hardhat-deploy uses.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore for network rooted at dir.
func NewFileStore(dir, network string) (*FileStore, error) {
	if network == "" {
		return nil, errors.New("network name is required")
	}
	path := filepath.Join(dir, network)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create deployments dir: %w", err)
	}

	return &FileStore{dir: path}, nil
}

// Get reads the record stored under name.
func (s *FileStore) Get(_ context.Context, name string) (types.DeploymentRecord, error) {
	path, err := s.path(name)
	if err != nil {
		return types.DeploymentRecord{}, err
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.DeploymentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return types.DeploymentRecord{}, fmt.Errorf("read deployment %s: %w", name, err)
	}

	var record types.DeploymentRecord
	if err := json.Unmarshal(b, &record); err != nil {
		return types.DeploymentRecord{}, fmt.Errorf("decode deployment %s: %w", name, err)
	}
	// hardhat-deploy files do not carry their own name
	record.Name = name

	return record, nil
}

// Save writes record, replacing any record of the same name. The file is written to a
// temporary path first and renamed into place.
func (s *FileStore) Save(_ context.Context, record types.DeploymentRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	path, err := s.path(record.Name)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode deployment %s: %w", record.Name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+record.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write deployment %s: %w", record.Name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write deployment %s: %w", record.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write deployment %s: %w", record.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write deployment %s: %w", record.Name, err)
	}

	return nil
}

// Exists reports whether a record is stored under name.
func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, s, name)
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid deployment name %q", name)
	}

	return filepath.Join(s.dir, name+".json"), nil
}
