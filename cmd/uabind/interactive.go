package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/opcua-bridge/datasource"
	"github.com/wippyai/opcua-bridge/metrics"
	"github.com/wippyai/opcua-bridge/uasim"
)

type monitorModel struct {
	ctx      context.Context
	err      error
	src      *datasource.Source
	sim      *uasim.Server
	status   string
	table    table.Model
	spinner  spinner.Model
	interval time.Duration
	cycles   int
	failures int
	paused   bool
}

type tickMsg time.Time

type transferMsg struct {
	err error
}

func newMonitorModel(ctx context.Context, src *datasource.Source, sim *uasim.Server, interval time.Duration) *monitorModel {
	columns := []table.Column{
		{Title: "signal", Width: 28},
		{Title: "type", Width: 14},
		{Title: "value", Width: 48},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(16),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(styles)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := &monitorModel{
		ctx:      ctx,
		src:      src,
		sim:      sim,
		table:    t,
		spinner:  sp,
		interval: interval,
		status:   "starting",
	}
	m.refresh()
	return m
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m *monitorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *monitorModel) transfer() tea.Msg {
	return transferMsg{err: m.src.Transfer(m.ctx)}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			if !m.paused {
				return m, m.tick()
			}
			return m, nil
		case "d":
			m.sim.Drop()
			return m, nil
		}

	case tickMsg:
		if m.paused {
			return m, nil
		}
		return m, m.transfer

	case transferMsg:
		m.cycles++
		m.err = msg.err
		m.status = metrics.Status(msg.err)
		if msg.err != nil {
			m.failures++
		}
		m.refresh()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh rebuilds the table rows from bound memory.
func (m *monitorModel) refresh() {
	session := m.src.Session()
	var rows []table.Row
	for _, name := range m.src.Signals() {
		h, _ := m.src.Handle(name)
		b, ok := session.Binding(h)
		if !ok {
			continue
		}
		if !b.Structured {
			rows = append(rows, table.Row{name, scalarType(b.Scalar, b.Elements), formatBinding(b, session)})
			continue
		}
		rows = append(rows, table.Row{name, b.TypeName, fmt.Sprintf("%d bytes", len(b.Memory))})
		if l := session.Layout(); l != nil {
			leaves := session.Leaves()
			for i, r := range l.LeafRows() {
				rows = append(rows, table.Row{"  " + r.Path, r.Kind.String(), formatLeaf(r, leaves[i])})
			}
		}
	}
	m.table.SetRows(rows)
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("OPC UA Bridge"))
	b.WriteString(" ")
	b.WriteString(m.src.Session().ID())
	b.WriteString("\n\n")

	if m.paused {
		b.WriteString("  paused")
	} else {
		b.WriteString(m.spinner.View())
		b.WriteString(" running")
	}
	fmt.Fprintf(&b, "  cycles=%d failures=%d  last=", m.cycles, m.failures)
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(okStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll • space pause • d drop connection • q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, src *datasource.Source, sim *uasim.Server, interval time.Duration) error {
	p := tea.NewProgram(newMonitorModel(ctx, src, sim, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
