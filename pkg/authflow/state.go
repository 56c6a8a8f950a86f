// Package authflow is the interactive flow for supplying a credential,
// manually or by auto-detection, with retry on failure.
//
// The machine follows the bubbletea command model: Update handles one
// message and returns the command that performs any gateway call off the
// event loop. Results come back as messages tagged with the request token
// they answer, and results for superseded requests are dropped.
package authflow

import (
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/events"
)

// State is either Browsing or Prompting.
type State interface {
	state()
}

// Browsing is the idle state: the model list has focus.
type Browsing struct {
	// Detecting is set while an auto-detect started from the list runs.
	Detecting bool
}

// Prompting collects a credential for one provider.
type Prompting struct {
	ProviderID   catalogs.ProviderID
	ProviderName string
	Draft        string
	Failure      *events.AuthFailure
	Submitting   bool
	Detecting    bool
}

func (Browsing) state()  {}
func (Prompting) state() {}

// Busy reports whether a gateway request is in flight.
func Busy(s State) bool {
	switch s := s.(type) {
	case Browsing:
		return s.Detecting
	case Prompting:
		return s.Submitting || s.Detecting
	}
	return false
}
