// Package progress shows a materialization pass in the terminal.
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Event reports that Done of Total items of a stage are finished.
type Event struct {
	Stage string
	Done  int
	Total int
	Item  string
}

type doneMsg struct{ err error }

type Model struct {
	bar      progress.Model
	stage    string
	done     int
	total    int
	item     string
	finished bool
	err      error
}

func New() Model {
	return Model{bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Event:
		m.stage, m.done, m.total, m.item = msg.Stage, msg.Done, msg.Total, msg.Item
		return m, nil
	case doneMsg:
		m.finished, m.err = true, msg.err
		return m, tea.Quit
	case tea.WindowSizeMsg:
		if w := msg.Width - 20; w > 10 && w < 80 {
			m.bar.Width = w
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

// Percent is the completed fraction of the current stage.
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n")
	switch {
	case m.finished && m.err != nil:
		b.WriteString("  " + red.Render("failed: "+m.err.Error()) + "\n")
		return b.String()
	case m.finished:
		b.WriteString("  " + green.Render("done") + "\n")
		return b.String()
	}

	stage := m.stage
	if stage == "" {
		stage = "starting"
	}
	b.WriteString("  " + cyan.Render(stage) + "\n")
	b.WriteString("  " + m.bar.ViewAs(m.Percent()) + " " + dim.Render(fmt.Sprintf("%d/%d", m.done, m.total)) + "\n")
	if m.item != "" {
		b.WriteString("  " + dim.Render(m.item) + "\n")
	}
	return b.String()
}

// Run shows the view while work runs. work reports through the function it
// is given; the error of work is returned once the view has closed.
func Run(out io.Writer, work func(report func(Event)) error) error {
	p := tea.NewProgram(New(), tea.WithOutput(out), tea.WithInput(nil))

	errc := make(chan error, 1)
	go func() {
		err := work(func(e Event) { p.Send(e) })
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return <-errc
}
