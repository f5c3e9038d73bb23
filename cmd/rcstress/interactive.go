package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	ctx      context.Context
	opts     options
	spinner  spinner.Model
	selected []workload
	results  []result
	done     *atomic.Int64
	current  int
	finished bool
}

type workloadDoneMsg struct {
	res result
}

type tickMsg time.Time

func newInteractiveModel(ctx context.Context, selected []workload, opts options) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		opts:     opts,
		selected: selected,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(countStyle),
		),
		done: &atomic.Int64{},
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCurrent(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *interactiveModel) runCurrent() tea.Cmd {
	if m.current >= len(m.selected) {
		return nil
	}
	w := m.selected[m.current]
	done := m.done
	return func() tea.Msg {
		return workloadDoneMsg{res: execute(m.ctx, w, m.opts, done)}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case workloadDoneMsg:
		m.results = append(m.results, msg.res)
		m.current++
		m.done = &atomic.Int64{}
		if m.current >= len(m.selected) {
			m.finished = true
			return m, nil
		}
		return m, m.runCurrent()

	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("refcount stress"))
	b.WriteString(fmt.Sprintf(" %d workers, %d iterations\n\n", m.opts.workers, m.opts.iterations))

	for _, r := range m.results {
		b.WriteString("  ")
		b.WriteString(nameStyle.Render(fmt.Sprintf("%-8s", r.name)))
		if r.err != nil {
			b.WriteString(errorStyle.Render(" FAIL " + r.err.Error()))
		} else {
			b.WriteString(resultStyle.Render(" ok"))
		}
		b.WriteString(countStyle.Render(fmt.Sprintf("  %d ops in %s, %d destroyed, %d upgrades lost",
			r.ops, r.elapsed.Round(time.Millisecond), r.stats.Destroyed, r.stats.UpgradeFailed)))
		b.WriteString("\n")
	}

	if !m.finished && m.current < len(m.selected) {
		w := m.selected[m.current]
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(nameStyle.Render(fmt.Sprintf("%-8s", w.name)))
		b.WriteString(fmt.Sprintf(" %s  %s\n", w.desc, countStyle.Render(fmt.Sprintf("%d", m.done.Load()))))
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(helpStyle.Render("done • q quit"))
	} else {
		b.WriteString(helpStyle.Render("q quit"))
	}
	return b.String()
}

func runInteractive(ctx context.Context, selected []workload, opts options) error {
	p := tea.NewProgram(newInteractiveModel(ctx, selected, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
