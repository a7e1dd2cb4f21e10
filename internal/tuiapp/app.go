// Package tuiapp wires internal/tuistate.State into a bubbletea program.
// Per spec.md §1, widget rendering/layout stays out of core scope; this
// package is kept intentionally thin — it maps tea.Msg onto State's
// key/event API and proves the alt-screen/raw-mode lifecycle, grounded on
// the pack's one TUI stack user (dsmmcken-dh-cli's internal/tui.App).
package tuiapp

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/symbols/loader"
	"github.com/rogercoll/eprofiler-tui/internal/tuistate"
)

// busEventMsg wraps one bus event so it travels through bubbletea's Update.
type busEventMsg struct {
	ev  eventbus.Event
	err error
}

// Model is the top-level bubbletea model. It owns no rendering state beyond
// what View needs to prove the wiring; tuistate.State is the source of truth.
type Model struct {
	state  *tuistate.State
	bus    *eventbus.Bus
	loader *loader.Loader
	ctx    context.Context
}

// New returns a Model over an already-constructed State, reading further
// events from bus and dispatching LoadSymbols/RemoveSymbols actions to ld.
func New(ctx context.Context, state *tuistate.State, bus *eventbus.Bus, ld *loader.Loader) Model {
	return Model{state: state, bus: bus, loader: ld, ctx: ctx}
}

// Init starts the bus-draining loop alongside bubbletea's own input polling.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.ctx, m.bus)
}

func waitForEvent(ctx context.Context, bus *eventbus.Bus) tea.Cmd {
	return func() tea.Msg {
		ev, err := bus.Next(ctx)
		return busEventMsg{ev: ev, err: err}
	}
}

// Update translates terminal input into eventbus.Key and folds bus events
// into state, per spec.md §5's "input goroutine posts Key/Resize/Tick".
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		action := m.state.HandleKey(toKey(msg))
		m.dispatch(action)
		if !m.state.Running {
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.state.Apply(eventbus.Resize{Width: msg.Width, Height: msg.Height})
		return m, nil

	case busEventMsg:
		if msg.err != nil {
			return m, tea.Quit
		}
		m.state.Apply(msg.ev)
		if !m.state.Running {
			return m, tea.Quit
		}
		return m, waitForEvent(m.ctx, m.bus)
	}
	return m, nil
}

// dispatch routes a tab's returned Action onto the symbol loader, per
// spec.md §5's "one ad-hoc thread per LoadSymbols/RemoveSymbols action".
func (m Model) dispatch(action tuistate.Action) {
	switch a := action.(type) {
	case tuistate.LoadSymbolsAction:
		m.loader.LoadSymbols(a.Path, a.Target)
	case tuistate.RemoveSymbolsAction:
		m.loader.RemoveSymbols(a.Name, a.FileID)
	}
}

// View renders just enough to prove the wiring; full widget layout is out
// of scope per spec.md §1.
func (m Model) View() string {
	if !m.state.Running {
		return ""
	}
	return statusLine(m.state)
}

var tabStyle = lipgloss.NewStyle().Bold(true)

func statusLine(s *tuistate.State) string {
	names := [...]string{"flamegraph", "flamescope", "executables"}
	tab := "flamegraph"
	if int(s.ActiveTab) < len(names) {
		tab = names[s.ActiveTab]
	}
	return "eprofiler-tui — listening on " + s.ListenAddr + " — tab: " + tabStyle.Render(tab) + "\n"
}

// toKey adapts a bubbletea key event onto eventbus.Key. For printable runes
// Name is left empty and Rune carries the character; every other key is
// represented by tea's own name string (e.g. "enter", "esc", "ctrl+c"),
// which is exactly what tuistate.HandleKey already expects.
func toKey(msg tea.KeyMsg) eventbus.Key {
	if msg.Type == tea.KeySpace {
		return eventbus.Key{Rune: ' '}
	}
	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		return eventbus.Key{Rune: msg.Runes[0]}
	}
	return eventbus.Key{Name: msg.String()}
}
