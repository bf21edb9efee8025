package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/hello-element/abi"
	"github.com/wippyai/hello-element/errors"
	"github.com/wippyai/hello-element/guest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	attrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Click  key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Click, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
	Click:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "click")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "render")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// row is one line of the rendered tree.
type row struct {
	node  *abi.Node
	depth int
}

type interactiveModel struct {
	ctx      context.Context
	comp     *guest.Component
	module   string
	err      error
	rows     []row
	clicks   []int // indices into rows of clickable elements
	selected int
	status   string
	renders  int
	loaded   bool
	busy     bool // a guest call is in flight
	quitting bool
	help     help.Model
}

type treeMsg struct {
	err    error
	tree   *abi.Node
	status string
}

func newInteractiveModel(ctx context.Context, a *app) *interactiveModel {
	return &interactiveModel{
		ctx:    ctx,
		comp:   a.eng.Component(a.fs, a.cfg.Module, guest.WithLogger(a.log.Named("guest"))),
		module: a.cfg.Module,
		busy:   true,
		help:   help.New(),
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return loadCmd(m.ctx, m.comp)
}

// The commands below run on their own goroutines and only touch the
// component, never the model.

func loadCmd(ctx context.Context, comp *guest.Component) tea.Cmd {
	return func() tea.Msg {
		if err := comp.Init(ctx); err != nil {
			return treeMsg{err: err}
		}
		tree, err := comp.Tree(ctx)
		return treeMsg{tree: tree, err: err, status: "initialized"}
	}
}

func renderCmd(ctx context.Context, comp *guest.Component) tea.Cmd {
	return func() tea.Msg {
		tree, err := comp.Tree(ctx)
		return treeMsg{tree: tree, err: err, status: "rendered"}
	}
}

func clickCmd(ctx context.Context, comp *guest.Component, tag string, index uint32) tea.Cmd {
	return func() tea.Msg {
		rerender, err := comp.Click(ctx, index)
		if err != nil {
			return treeMsg{err: err}
		}
		tree, err := comp.Tree(ctx)
		status := fmt.Sprintf("clicked <%s> #%d", tag, index)
		if rerender {
			status += ", guest requested rerender"
		}
		return treeMsg{tree: tree, err: err, status: status}
	}
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	_ = m.comp.Close(context.Background())
	return m, tea.Quit
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.busy {
				m.quitting = true
				return m, nil
			}
			return m.quit()
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.clicks)-1 {
				m.selected++
			}
		case key.Matches(msg, keys.Click):
			if !m.loaded || m.busy {
				return m, nil
			}
			if len(m.clicks) == 0 {
				m.err = errors.NotFound(errors.PhaseRuntime, "clickable element", "any")
				return m, nil
			}
			n := m.rows[m.clicks[m.selected]].node
			m.busy = true
			return m, clickCmd(m.ctx, m.comp, n.Tag, n.Index)
		case key.Matches(msg, keys.Reload):
			if !m.loaded || m.busy {
				return m, nil
			}
			m.busy = true
			return m, renderCmd(m.ctx, m.comp)
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case treeMsg:
		m.busy = false
		if m.quitting {
			return m.quit()
		}
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.loaded = true
		m.renders++
		m.status = msg.status
		m.setTree(msg.tree)
	}

	return m, nil
}

func (m *interactiveModel) setTree(tree *abi.Node) {
	m.rows = m.rows[:0]
	m.clicks = m.clicks[:0]
	tree.Walk(func(n *abi.Node, depth int) bool {
		if n.Clickable {
			m.clicks = append(m.clicks, len(m.rows))
		}
		m.rows = append(m.rows, row{node: n, depth: depth})
		return true
	})
	if m.selected >= len(m.clicks) {
		m.selected = max(len(m.clicks)-1, 0)
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hello-world"))
	b.WriteString(" ")
	b.WriteString(m.module)
	b.WriteString("\n\n")

	if !m.loaded && m.err == nil {
		b.WriteString("Loading guest...")
		return b.String()
	}

	selectedRow := -1
	if len(m.clicks) > 0 {
		selectedRow = m.clicks[m.selected]
	}
	for i, r := range m.rows {
		line := strings.Repeat("  ", r.depth) + formatNode(r.node)
		if i == selectedRow {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s (render %d)", m.status, m.renders)))
		b.WriteString("\n")
	}

	if out := m.comp.Output(); out != "" {
		b.WriteString("\n")
		b.WriteString(outputStyle.Render(strings.TrimRight(out, "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func formatNode(n *abi.Node) string {
	var b strings.Builder
	b.WriteString(tagStyle.Render("<" + n.Tag))
	for _, a := range n.Attributes {
		b.WriteString(" ")
		b.WriteString(attrStyle.Render(fmt.Sprintf("%s=%q", a.Name, a.Value)))
	}
	b.WriteString(tagStyle.Render(">"))
	if n.Text != "" {
		b.WriteString(" ")
		b.WriteString(n.Text)
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  #%d", n.Index)))
	if n.Clickable {
		b.WriteString(dimStyle.Render(" [click]"))
	}
	return b.String()
}

func runInteractive(ctx context.Context, a *app) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.Unsupported(errors.PhaseConfig, "interactive mode needs a terminal on stdout")
	}
	p := tea.NewProgram(newInteractiveModel(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
