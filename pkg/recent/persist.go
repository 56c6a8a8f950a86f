package recent

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/utc"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
)

type fileFormat struct {
	Recent []fileRecord `yaml:"recent"`
}

// fileRecord is a Record on disk. Timestamps are stored to the second, so
// Seq keeps the order of records used within the same second.
type fileRecord struct {
	ProviderID catalogs.ProviderID `yaml:"provider_id"`
	ModelID    string              `yaml:"model_id"`
	LastUsed   utc.Time            `yaml:"last_used"`
	Seq        uint64              `yaml:"seq,omitempty"`
}

// DefaultPath returns $XDG_STATE_HOME/modelpick/recent.yaml.
func DefaultPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join(constants.AppName, "recent.yaml"))
	if err != nil {
		return "", errors.WrapIO("resolve", "recent.yaml", err)
	}
	return path, nil
}

// Load replaces the tracker's records with those in path. A missing file
// leaves the tracker empty.
func (t *Tracker) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.WrapIO("read", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errors.WrapParse("yaml", path, err)
	}

	// Files are written newest first. Reverse, then sort oldest first so the
	// renumbered sequence follows usage order; files without seq keep their
	// written order for ties.
	entries := f.Recent
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastUsed.Time.Equal(b.LastUsed.Time) {
			return a.LastUsed.Time.Before(b.LastUsed.Time)
		}
		return a.Seq < b.Seq
	})

	t.records = make(map[Key]Record, len(entries))
	t.seq = 0
	for _, e := range entries {
		if e.ProviderID == "" || e.ModelID == "" {
			continue
		}
		t.seq++
		r := Record{ProviderID: e.ProviderID, ModelID: e.ModelID, LastUsed: e.LastUsed, seq: t.seq}
		t.records[r.Key()] = r
	}
	return nil
}

// Save writes every record to path, newest first.
func (t *Tracker) Save(path string) error {
	records := t.List(0)
	f := fileFormat{Recent: make([]fileRecord, len(records))}
	for i, r := range records {
		f.Recent[i] = fileRecord{ProviderID: r.ProviderID, ModelID: r.ModelID, LastUsed: r.LastUsed, Seq: r.seq}
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
