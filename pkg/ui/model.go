// Package ui implements the terminal dashboard: the relationship table,
// filter and visibility controls, and the status surfaces fed by the
// session event bus.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vhp4safety/aopgraph/pkg/aop"
	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/export"
	"github.com/vhp4safety/aopgraph/pkg/model"
	"github.com/vhp4safety/aopgraph/pkg/selection"
	"github.com/vhp4safety/aopgraph/pkg/session"
	"github.com/vhp4safety/aopgraph/pkg/visibility"
)

// busEventMsg wraps a session event for the bubbletea update loop.
type busEventMsg events.Event

// Model is the dashboard's bubbletea model.
type Model struct {
	sess *session.Session
	keys keyMap

	table    table.Model
	help     viewport.Model
	showHelp bool

	width  int
	height int

	savePath     string
	snapshotPath string
	scope        visibility.Scope

	flash    string
	flashErr bool

	eventCh chan events.Event
}

// New builds the dashboard model around a wired session. savePath is
// where the save key writes the network document; empty disables it.
func New(sess *session.Session, savePath string) Model {
	columns := []table.Column{
		{Title: " ", Width: 2},
		{Title: "Source", Width: 28},
		{Title: "Relationship", Width: 16},
		{Title: "Target", Width: 28},
		{Title: "AOPs", Width: 20},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Bold(true).Foreground(ColorPrimary).BorderBottom(true)
	ts.Selected = ts.Selected.Foreground(ColorText).Background(ColorBgHighlight).Bold(false)
	t.SetStyles(ts)

	m := Model{
		sess:         sess,
		keys:         defaultKeyMap(),
		table:        t,
		savePath:     savePath,
		snapshotPath: "aopgraph-snapshot.svg",
		eventCh:      make(chan events.Event, 64),
	}

	// The scheduler publishes from its own goroutines; forwarding into a
	// buffered channel keeps bus handlers non-blocking.
	forward := func(e events.Event) {
		select {
		case m.eventCh <- e:
		default:
		}
	}
	for _, k := range []events.Kind{
		events.TableRefreshed, events.SelectionChanged, events.FilterChanged,
		events.VisibilityChanged, events.MergeWarning, events.RefreshFailed,
	} {
		sess.Bus.Subscribe(k, forward)
	}

	m.reloadRows()
	return m
}

// Run starts the dashboard event loop in the alternate screen.
func Run(sess *session.Session, savePath string) error {
	_, err := tea.NewProgram(New(sess, savePath), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	ch := m.eventCh
	return func() tea.Msg {
		return busEventMsg(<-ch)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(3, msg.Height-5))
		m.help = viewport.New(msg.Width, max(3, msg.Height-2))
		m.help.SetContent(renderHelp(msg.Width - 2))
		return m, nil

	case busEventMsg:
		m.applyBusEvent(events.Event(msg))
		return m, m.waitForEvent()

	case tea.KeyMsg:
		if m.showHelp {
			switch {
			case key.Matches(msg, m.keys.Up):
				m.help.LineUp(1)
			case key.Matches(msg, m.keys.Down):
				m.help.LineDown(1)
			default:
				m.showHelp = false
			}
			return m, nil
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) applyBusEvent(e events.Event) {
	switch e.Kind {
	case events.MergeWarning, events.RefreshFailed:
		m.flash = e.Message
		m.flashErr = e.Kind == events.RefreshFailed
		if e.Warning != nil {
			m.flash = fmt.Sprintf("incomplete AOP structure: edge %s is missing %s",
				e.Warning.EdgeID, e.Warning.MissingEndpoint)
			m.flashErr = false
		}
	default:
		m.reloadRows()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, keys.Select):
		m.sess.Sync.ClickRow(m.table.Cursor(), selection.ModNone)
		m.reloadRows()
		return m, nil

	case key.Matches(msg, keys.Toggle):
		m.sess.Sync.ClickRow(m.table.Cursor(), selection.ModToggle)
		m.reloadRows()
		return m, nil

	case key.Matches(msg, keys.Range):
		m.sess.Sync.ClickRow(m.table.Cursor(), selection.ModRange)
		m.reloadRows()
		return m, nil

	case key.Matches(msg, keys.Filter):
		if ref, ok := m.cursorAOP(); ok {
			m.reportFilter(m.sess.Filter.ToggleFilter(ref), ref)
		} else {
			m.setFlash("current row has no AOP reference", true)
		}
		return m, nil

	case key.Matches(msg, keys.Group):
		if ref, ok := m.cursorAOP(); ok {
			m.reportFilter(m.sess.Filter.ToggleGroup(ref), ref)
		} else {
			m.setFlash("current row has no AOP reference", true)
		}
		return m, nil

	case key.Matches(msg, keys.GroupAll):
		m.reportFilter(m.sess.GroupByAllAops(), "all AOPs")
		return m, nil

	case key.Matches(msg, keys.Clear):
		m.sess.Filter.Clear()
		m.setFlash("filter cleared", false)
		return m, nil

	case key.Matches(msg, keys.ToggleChemicals):
		m.toggleType(model.NodeTypeChemical)
		return m, nil

	case key.Matches(msg, keys.ToggleGenes):
		m.toggleType(model.NodeTypeUniProt)
		m.toggleType(model.NodeTypeEnsembl)
		return m, nil

	case key.Matches(msg, keys.ToggleProcesses):
		m.toggleType(model.NodeTypeGOProcess)
		return m, nil

	case key.Matches(msg, keys.ToggleOrgans):
		m.toggleType(model.NodeTypeOrgan)
		return m, nil

	case key.Matches(msg, keys.ScopeSelection):
		if m.scope == visibility.ScopeAll {
			m.scope = visibility.ScopeSelection
			m.setFlash("visibility scope: selection", false)
		} else {
			m.scope = visibility.ScopeAll
			m.setFlash("visibility scope: whole network", false)
		}
		return m, nil

	case key.Matches(msg, keys.Delete):
		removed := m.sess.DeleteSelected()
		m.setFlash(fmt.Sprintf("deleted %d element(s)", len(removed)), false)
		m.reloadRows()
		return m, nil

	case key.Matches(msg, keys.Yank):
		ids := m.sess.Store.Selected()
		if len(ids) == 0 {
			m.setFlash("nothing selected", true)
			return m, nil
		}
		if err := clipboard.WriteAll(strings.Join(ids, "\n")); err != nil {
			m.setFlash(fmt.Sprintf("clipboard: %v", err), true)
			return m, nil
		}
		m.setFlash(fmt.Sprintf("copied %d id(s)", len(ids)), false)
		return m, nil

	case key.Matches(msg, keys.Save):
		if m.savePath == "" {
			m.setFlash("no save path configured (start with --load or --save)", true)
			return m, nil
		}
		if err := m.sess.Save(m.savePath); err != nil {
			m.setFlash(fmt.Sprintf("save: %v", err), true)
			return m, nil
		}
		m.setFlash(fmt.Sprintf("saved %s", m.savePath), false)
		return m, nil

	case key.Matches(msg, keys.Snapshot):
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:  m.snapshotPath,
			Store: m.sess.Store,
		})
		if err != nil {
			m.setFlash(fmt.Sprintf("snapshot: %v", err), true)
			return m, nil
		}
		m.setFlash(fmt.Sprintf("snapshot written to %s", m.snapshotPath), false)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// cursorAOP returns the normalized first AOP reference of the cursor row.
func (m *Model) cursorAOP() (string, bool) {
	rows := m.sess.Sync.Rows()
	i := m.table.Cursor()
	if i < 0 || i >= len(rows) || len(rows[i].AOPs) == 0 {
		return "", false
	}
	return aop.Normalize(rows[i].AOPs[0])
}

func (m *Model) toggleType(t model.NodeType) {
	if err := m.sess.Vis.Toggle(context.Background(), t, m.scope); err != nil {
		m.setFlash(fmt.Sprintf("toggle %s: %v", t, err), true)
		return
	}
	m.reloadRows()
}

func (m *Model) reportFilter(st aop.Status, ref string) {
	switch st {
	case aop.StatusApplied:
		m.setFlash(fmt.Sprintf("filter: %s", ref), false)
	case aop.StatusCleared:
		m.setFlash("filter cleared", false)
	case aop.StatusNoMatches:
		m.setFlash(fmt.Sprintf("no elements match %s", ref), true)
	}
}

func (m *Model) setFlash(msg string, isErr bool) {
	m.flash = msg
	m.flashErr = isErr
}

// reloadRows rebuilds the table rows from the synchronizer, preserving
// the cursor where possible.
func (m *Model) reloadRows() {
	rows := m.sess.Sync.Rows()
	selected := make(map[int]struct{})
	for _, i := range m.sess.Sync.SelectedRows() {
		selected[i] = struct{}{}
	}

	out := make([]table.Row, len(rows))
	for i, r := range rows {
		mark := " "
		if _, ok := selected[i]; ok {
			mark = "●"
		}
		out[i] = table.Row{
			mark,
			runewidth.Truncate(cell(r.SourceLabel, r.SourceID), 28, "…"),
			runewidth.Truncate(r.Relationship, 16, "…"),
			runewidth.Truncate(cell(r.TargetLabel, r.TargetID), 28, "…"),
			runewidth.Truncate(strings.Join(r.AOPs, ","), 20, "…"),
		}
	}

	cursor := m.table.Cursor()
	m.table.SetRows(out)
	if cursor >= len(out) {
		cursor = len(out) - 1
	}
	if cursor >= 0 {
		m.table.SetCursor(cursor)
	}
}

// cell prefers the label and falls back to the id (or the sentinel).
func cell(label, id string) string {
	if label != "" {
		return label
	}
	return id
}

func (m Model) View() string {
	if m.showHelp {
		return m.help.View() + "\n" + mutedStyle.Render(" any key to close, ↑/↓ to scroll")
	}

	title := titleStyle.Render("aopgraph")
	status := m.statusBar()

	flash := ""
	if m.flash != "" {
		if m.flashErr {
			flash = errorStyle.Render(m.flash)
		} else {
			flash = infoStyle.Render(m.flash)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.table.View(),
		status,
		flash,
	)
}

func (m Model) statusBar() string {
	store := m.sess.Store
	parts := []string{
		fmt.Sprintf("%d nodes, %d edges", store.NodeCount(), store.EdgeCount()),
	}
	if n := len(store.Selected()); n > 0 {
		parts = append(parts, selectedCountStyle.Render(fmt.Sprintf("%d selected", n)))
	}
	switch m.sess.Filter.Mode() {
	case aop.SingleFilter:
		parts = append(parts, filterBadgeStyle.Render("filter "+m.sess.Filter.Single()))
	case aop.Grouped:
		parts = append(parts, filterBadgeStyle.Render(
			fmt.Sprintf("grouped ×%d", len(m.sess.Filter.GroupedIDs()))))
	}
	if m.scope == visibility.ScopeSelection {
		parts = append(parts, mutedStyle.Render("scope: selection"))
	}
	parts = append(parts, mutedStyle.Render("? help"))
	return statusBarStyle.Render(strings.Join(parts, "  │  "))
}
