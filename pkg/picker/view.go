package picker

import (
	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/catalogs"
)

// Marker summarizes a provider's status on its group header.
type Marker string

// Group header markers.
const (
	MarkerHealthy  Marker = "healthy"
	MarkerDegraded Marker = "degraded"
	MarkerDown     Marker = "down"
	MarkerUnknown  Marker = "unknown"
	MarkerLocked   Marker = "locked"
)

// String returns the string representation of a Marker.
func (m Marker) String() string {
	return string(m)
}

// markerFor derives a marker from a cached status.
func markerFor(status auth.Status, ok bool) Marker {
	if !ok || !status.Authenticated {
		return MarkerLocked
	}
	switch status.Health {
	case auth.HealthHealthy:
		return MarkerHealthy
	case auth.HealthDegraded:
		return MarkerDegraded
	case auth.HealthDown:
		return MarkerDown
	default:
		return MarkerUnknown
	}
}

// Item is one model as presented to the user. Non-selectable items are
// fully populated so the auth prompt can be opened from them.
type Item struct {
	ProviderID   catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	ProviderName string              `json:"provider_name" yaml:"provider_name"`
	ModelID      string              `json:"model_id" yaml:"model_id"`
	ModelName    string              `json:"model_name" yaml:"model_name"`
	ReleaseDate  string              `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	Selectable   bool                `json:"selectable" yaml:"selectable"`
	Recent       bool                `json:"recent,omitempty" yaml:"recent,omitempty"`
	Score        int                 `json:"score,omitempty" yaml:"score,omitempty"`
}

// key is the display de-duplication key.
func (i Item) key() itemKey {
	return itemKey{i.ProviderID, i.ModelID, i.ModelName}
}

type itemKey struct {
	providerID catalogs.ProviderID
	modelID    string
	name       string
}

// Group is one provider's section in grouped mode.
type Group struct {
	ProviderID    catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	ProviderName  string              `json:"provider_name" yaml:"provider_name"`
	Marker        Marker              `json:"marker" yaml:"marker"`
	Authenticated bool                `json:"authenticated" yaml:"authenticated"`
	Items         []Item              `json:"items" yaml:"items"`
}

// View is the output of a build: Recent and Groups in grouped mode, or
// Results when a query is present.
type View struct {
	Query   string  `json:"query,omitempty" yaml:"query,omitempty"`
	Recent  []Item  `json:"recent,omitempty" yaml:"recent,omitempty"`
	Groups  []Group `json:"groups,omitempty" yaml:"groups,omitempty"`
	Results []Item  `json:"results,omitempty" yaml:"results,omitempty"`
}

// Searching reports whether the view is in search mode.
func (v View) Searching() bool {
	return v.Query != ""
}

// Items flattens the view in display order.
func (v View) Items() []Item {
	if v.Searching() {
		return v.Results
	}
	out := append([]Item(nil), v.Recent...)
	for _, g := range v.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// Len returns the number of items in the view.
func (v View) Len() int {
	if v.Searching() {
		return len(v.Results)
	}
	n := len(v.Recent)
	for _, g := range v.Groups {
		n += len(g.Items)
	}
	return n
}
