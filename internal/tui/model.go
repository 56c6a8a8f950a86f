// Package tui is the interactive model picker.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentstation/modelpick"
	"github.com/agentstation/modelpick/internal/cmd/output"
	"github.com/agentstation/modelpick/pkg/authflow"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/events"
	"github.com/agentstation/modelpick/pkg/picker"
	"github.com/agentstation/modelpick/pkg/prober"
)

// refreshed carries the results of a background status refresh.
type refreshed struct {
	results prober.Results
}

// checked is the reply to a status refresh started by a pick.
type checked struct {
	item picker.Item
	err  error
}

// Model is the bubbletea model for the picker. The list has focus while the
// auth machine is browsing; the prompt takes the keyboard otherwise.
type Model struct {
	ctx     context.Context
	engine  modelpick.Engine
	machine *authflow.Machine

	view   picker.View
	items  []picker.Item
	cursor int
	query  string

	notice  string
	problem string
	pending int // background status requests in flight
	chosen  *picker.Item

	width  int
	height int
}

// New creates a picker over engine. The view starts from cached statuses;
// Init refreshes them.
func New(ctx context.Context, engine modelpick.Engine) *Model {
	m := &Model{
		ctx:     ctx,
		engine:  engine,
		machine: engine.Machine(),
	}
	m.rebuild()
	return m
}

// Chosen returns the selected model, or nil if the user quit.
func (m *Model) Chosen() *picker.Item {
	return m.chosen
}

// Init refreshes every provider's status.
func (m *Model) Init() tea.Cmd {
	return m.refresh()
}

// refresh checks statuses in the background. Only the cache is touched off
// the loop; the catalog view is rebuilt when the reply arrives.
func (m *Model) refresh(providerIDs ...catalogs.ProviderID) tea.Cmd {
	m.pending++
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		return refreshed{results: engine.Refresh(ctx, providerIDs...)}
	}
}

// rebuild recomputes the view for the current query and keeps the cursor
// on the same model when it is still listed.
func (m *Model) rebuild() {
	var current *picker.Item
	if m.cursor < len(m.items) {
		it := m.items[m.cursor]
		current = &it
	}

	m.view = m.engine.View(m.query)
	m.items = m.view.Items()
	m.cursor = 0
	if current == nil {
		return
	}
	for i, it := range m.items {
		if it.ProviderID == current.ProviderID && it.ModelID == current.ModelID {
			m.cursor = i
			return
		}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if _, ok := m.machine.State().(authflow.Prompting); ok {
			return m, m.promptKey(msg)
		}
		return m, m.listKey(msg)

	case refreshed:
		m.pending--
		m.engine.Refreshed(msg.results)
		m.rebuild()
		return m, nil

	case checked:
		m.pending--
		if msg.err != nil {
			m.problem = output.Guidance(events.Failure(msg.item.ProviderID, "auth_status", msg.err))
			m.rebuild()
			return m, nil
		}
		return m, m.choose(msg.item)

	case events.AuthSuccess:
		m.problem = ""
		m.notice = fmt.Sprintf("%s unlocked, %d models available", m.providerName(msg.ProviderID), msg.ModelCount)
		return m, m.refresh(msg.ProviderID)

	case events.CredentialsDetected:
		m.problem = ""
		m.notice = fmt.Sprintf("Found credentials for %d providers", len(msg.ProviderIDs))
		return m, nil

	case events.AuthStatusRefreshed:
		return m, m.refresh(msg.ProviderIDs...)

	case events.NoCredentialsFound:
		m.notice = "No credentials found"
		return m, nil

	case events.AuthFailure:
		if _, ok := m.machine.State().(authflow.Prompting); !ok {
			m.problem = output.Guidance(msg)
		}
		return m, nil
	}

	// Replies to requests the auth machine started.
	return m, m.machine.Update(msg)
}

func (m *Model) listKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyUp, tea.KeyCtrlP:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown, tea.KeyCtrlN:
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		return m.pick()
	case tea.KeyCtrlA:
		if it, ok := m.current(); ok {
			return m.machine.Update(authflow.OpenPrompt{ProviderID: it.ProviderID})
		}
	case tea.KeyCtrlD:
		m.notice = "Looking for credentials..."
		return m.machine.Update(authflow.AutoDetect{})
	case tea.KeyEsc:
		if m.query == "" {
			return tea.Quit
		}
		m.setQuery("")
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.setQuery(string(r[:len(r)-1]))
		}
	case tea.KeyRunes, tea.KeySpace:
		m.setQuery(m.query + string(msg.Runes))
	}
	return nil
}

func (m *Model) promptKey(msg tea.KeyMsg) tea.Cmd {
	p := m.machine.State().(authflow.Prompting)
	switch msg.Type {
	case tea.KeyEnter:
		return m.machine.Update(authflow.Submit{})
	case tea.KeyEsc:
		return m.machine.Update(authflow.Cancel{})
	case tea.KeyCtrlD:
		return m.machine.Update(authflow.AutoDetect{})
	case tea.KeyBackspace:
		if r := []rune(p.Draft); len(r) > 0 {
			return m.machine.Update(authflow.EditDraft{Draft: string(r[:len(r)-1])})
		}
	case tea.KeyRunes:
		return m.machine.Update(authflow.EditDraft{Draft: p.Draft + string(msg.Runes)})
	}
	return nil
}

// pick selects the highlighted model, or opens the prompt for a locked one.
// A stale status is refreshed in the background before the pick completes.
func (m *Model) pick() tea.Cmd {
	it, ok := m.current()
	if !ok {
		return nil
	}
	if !it.Selectable {
		return m.machine.Update(authflow.OpenPrompt{ProviderID: it.ProviderID})
	}
	if m.pending > 0 {
		m.notice = "Refreshing providers..."
		return nil
	}
	if e, ok := m.engine.Cache().Peek(it.ProviderID); !ok || !e.Fresh {
		m.pending++
		ctx, engine := m.ctx, m.engine
		return func() tea.Msg {
			_, err := engine.Status(ctx, it.ProviderID)
			return checked{item: it, err: err}
		}
	}
	return m.choose(it)
}

// choose records a pick whose status is fresh, so Select answers from the
// cache.
func (m *Model) choose(it picker.Item) tea.Cmd {
	chosen, err := m.engine.Select(m.ctx, it.ProviderID, it.ModelID)
	if err != nil {
		m.problem = err.Error()
		m.rebuild()
		return nil
	}
	m.chosen = &chosen
	return tea.Quit
}

func (m *Model) setQuery(q string) {
	m.query = q
	m.cursor = 0
	m.view = m.engine.View(q)
	m.items = m.view.Items()
}

func (m *Model) current() (picker.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return picker.Item{}, false
	}
	return m.items[m.cursor], true
}

func (m *Model) providerName(id catalogs.ProviderID) string {
	if p, err := m.engine.Catalog().Provider(id); err == nil {
		return p.DisplayName()
	}
	return string(id)
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Select a model"))
	if m.pending > 0 {
		b.WriteString(styleHelp.Render("  checking providers..."))
	}
	b.WriteString("\n")
	b.WriteString(styleHelp.Render("search: ") + styleNormal.Render(m.query) + "\n\n")

	if p, ok := m.machine.State().(authflow.Prompting); ok {
		b.WriteString(renderPrompt(p))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderList())
	}

	switch {
	case m.problem != "":
		b.WriteString("\n" + styleError.Render(m.problem) + "\n")
	case m.notice != "":
		b.WriteString("\n" + styleNotice.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + styleHelp.Render(m.help()))
	return b.String()
}

func (m *Model) renderList() string {
	if len(m.items) == 0 {
		return styleHelp.Render("No models match") + "\n"
	}

	var b strings.Builder
	idx := 0
	line := func(it picker.Item) {
		b.WriteString(renderItem(it, idx == m.cursor))
		b.WriteString("\n")
		idx++
	}

	if m.view.Searching() {
		for _, it := range m.view.Results {
			line(it)
		}
		return b.String()
	}

	if len(m.view.Recent) > 0 {
		b.WriteString(styleGroup.Render("Recent") + "\n")
		for _, it := range m.view.Recent {
			line(it)
		}
	}
	for _, g := range m.view.Groups {
		b.WriteString(markerGlyph(g.Marker) + " " + styleGroup.Render(g.ProviderName) + "\n")
		for _, it := range g.Items {
			line(it)
		}
	}
	return b.String()
}

func renderItem(it picker.Item, highlighted bool) string {
	marker, style := "  ", styleNormal
	if !it.Selectable {
		style = styleLocked
	}
	if highlighted {
		marker, style = "> ", styleSelected
	}
	label := it.ModelName
	if label == "" {
		label = it.ModelID
	}
	return marker + style.Render(label) + styleHelp.Render("  "+it.ProviderName)
}

func renderPrompt(p authflow.Prompting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Enter an API key for %s\n\n", p.ProviderName)
	b.WriteString(strings.Repeat("•", len([]rune(p.Draft))))
	switch {
	case p.Submitting:
		b.WriteString("\n\n" + styleHelp.Render("Verifying..."))
	case p.Detecting:
		b.WriteString("\n\n" + styleHelp.Render("Looking for credentials..."))
	case p.Failure != nil:
		b.WriteString("\n\n" + styleError.Render(output.Guidance(*p.Failure)))
	}
	return stylePrompt.Render(b.String())
}

func (m *Model) help() string {
	if _, ok := m.machine.State().(authflow.Prompting); ok {
		return "enter submit • esc cancel • ctrl+d detect"
	}
	return "↑/↓ move • enter select • ctrl+a add key • ctrl+d detect • esc quit"
}

// Run shows the picker and returns the chosen model, or nil if the user
// quit without choosing.
func Run(ctx context.Context, engine modelpick.Engine, in io.Reader, out io.Writer) (*picker.Item, error) {
	m := New(ctx, engine)
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("model picker: %w", err)
	}
	return m.Chosen(), nil
}
