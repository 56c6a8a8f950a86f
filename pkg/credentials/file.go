package credentials

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/adrg/xdg"
	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
)

// File stores secrets in a YAML file readable only by the owner. Writes go
// through a temp file and rename so a crash never leaves a torn file.
type File struct {
	path string
	mu   sync.Mutex
}

type fileEntry struct {
	Key       string   `yaml:"key"`
	UpdatedAt utc.Time `yaml:"updated_at"`
}

// NewFile creates a file store at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath returns $XDG_DATA_HOME/modelpick/credentials.yaml.
func DefaultFilePath() (string, error) {
	path, err := xdg.DataFile(filepath.Join(constants.AppName, "credentials.yaml"))
	if err != nil {
		return "", errors.WrapIO("resolve", "credentials.yaml", err)
	}
	return path, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// List implements Store.
func (f *File) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get implements Store.
func (f *File) Get(providerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return "", err
	}
	entry, ok := entries[providerID]
	if !ok {
		return "", errors.NewNotFoundError("credential", providerID)
	}
	return entry.Key, nil
}

// Set implements Store.
func (f *File) Set(providerID, secret string) error {
	if providerID == "" {
		return errors.NewValidationError("provider_id", "", "must not be empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[providerID] = fileEntry{Key: secret, UpdatedAt: utc.Now()}
	return f.write(entries)
}

// Delete implements Store.
func (f *File) Delete(providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := entries[providerID]; !ok {
		return nil
	}
	delete(entries, providerID)
	return f.write(entries)
}

func (f *File) read() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", f.path, err)
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.WrapParse("yaml", f.path, err)
	}
	if entries == nil {
		entries = make(map[string]fileEntry)
	}
	return entries, nil
}

func (f *File) write(entries map[string]fileEntry) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return errors.WrapParse("yaml", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), constants.SecureDirPermissions); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(f.path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*.yaml")
	if err != nil {
		return errors.WrapIO("write", f.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(constants.SecureFilePermissions); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("chmod", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.WrapIO("rename", f.path, err)
	}
	return nil
}
