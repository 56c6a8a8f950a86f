package output

import (
	"strconv"
	"time"

	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/picker"
	"github.com/agentstation/modelpick/pkg/recent"
)

// StatusRow is one provider's auth status as printed by `auth status`.
type StatusRow struct {
	ProviderID    catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	Name          string              `json:"name" yaml:"name"`
	Authenticated bool                `json:"authenticated" yaml:"authenticated"`
	Health        auth.Health         `json:"health" yaml:"health"`
	ModelCount    int                 `json:"model_count" yaml:"model_count"`
	Source        auth.Source         `json:"source,omitempty" yaml:"source,omitempty"`
	Error         string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// Statuses is the `auth status` result.
type Statuses []StatusRow

// Table implements Tabular.
func (s Statuses) Table() Data {
	data := Data{
		Headers:         []string{"Provider", "Name", "Auth", "Health", "Models", "Source"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignCenter, AlignLeft, AlignRight, AlignLeft},
	}
	for _, r := range s {
		authed := "no"
		if r.Authenticated {
			authed = "yes"
		}
		health := r.Health.String()
		if r.Error != "" {
			health += " (" + r.Error + ")"
		}
		data.Rows = append(data.Rows, []string{
			string(r.ProviderID), r.Name, authed, health, strconv.Itoa(r.ModelCount), string(r.Source),
		})
	}
	return data
}

// Models is the `models list` result.
type Models struct {
	picker.View `yaml:",inline"`
}

// Table implements Tabular. Grouped views list Recent first, then each
// provider group with its marker.
func (m Models) Table() Data {
	data := Data{Headers: []string{"Section", "Provider", "Model", "Name", "Released", "Status"}}
	add := func(section string, it picker.Item, status string) {
		data.Rows = append(data.Rows, []string{
			section, string(it.ProviderID), it.ModelID, it.ModelName, it.ReleaseDate, status,
		})
	}
	selectable := func(it picker.Item) string {
		if it.Selectable {
			return "available"
		}
		return picker.MarkerLocked.String()
	}

	if m.Searching() {
		for _, it := range m.Results {
			add("match "+strconv.Itoa(it.Score), it, selectable(it))
		}
		return data
	}
	for _, it := range m.Recent {
		add("recent", it, selectable(it))
	}
	for _, g := range m.Groups {
		for _, it := range g.Items {
			add(g.ProviderName, it, g.Marker.String())
		}
	}
	return data
}

// Recent is the `models recent` result.
type Recent []recent.Record

// Table implements Tabular.
func (r Recent) Table() Data {
	data := Data{Headers: []string{"Provider", "Model", "Last Used"}}
	for _, rec := range r {
		data.Rows = append(data.Rows, []string{
			string(rec.ProviderID), rec.ModelID, rec.LastUsed.Time.Local().Format(time.DateTime),
		})
	}
	return data
}
