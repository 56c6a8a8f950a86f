package catalogs

import (
	"time"
)

// Model represents a model offered by a provider.
type Model struct {
	ID          string `json:"id" yaml:"id"`                                         // Unique model identifier within its provider
	Name        string `json:"name" yaml:"name"`                                     // Display name
	ReleaseDate string `json:"release_date,omitempty" yaml:"release_date,omitempty"` // YYYY-MM-DD, YYYY-MM or YYYY
}

var releaseLayouts = []string{"2006-01-02", "2006-01", "2006"}

// Released parses ReleaseDate. Unset or malformed dates report false.
func (m *Model) Released() (time.Time, bool) {
	if m.ReleaseDate == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseLayouts {
		if t, err := time.Parse(layout, m.ReleaseDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayName returns the model name, or its id when the name is empty.
func (m *Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
