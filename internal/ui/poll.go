package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sparkify/dwh/internal/aws"
)

// StatusMsg carries a freshly polled cluster state.
type StatusMsg struct {
	State aws.ClusterState
	At    time.Time
}

// FinishedMsg ends the poll view.
type FinishedMsg struct {
	Err error
}

// PollModel shows a spinner and the latest cluster status while waiting
// for a cluster to become available.
type PollModel struct {
	spinner  spinner.Model
	cluster  string
	status   string
	endpoint string
	polls    int
	started  time.Time
	last     time.Time
	done     bool
	err      error
}

// NewPollModel creates a poll view for the named cluster.
func NewPollModel(cluster string, started time.Time) PollModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return PollModel{
		spinner: s,
		cluster: cluster,
		status:  "requested",
		started: started,
		last:    started,
	}
}

func (m PollModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m PollModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		m.status = msg.State.Status
		m.endpoint = msg.State.Endpoint
		m.polls++
		if !msg.At.IsZero() {
			m.last = msg.At
		}
		return m, nil

	case FinishedMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m PollModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Provisioning " + m.cluster))
	b.WriteString("\n\n")

	elapsed := formatElapsed(m.last.Sub(m.started))
	switch {
	case m.err != nil:
		b.WriteString(fmt.Sprintf("  %s %v\n", ErrStyle.Render("Failed:"), m.err))
	case m.done:
		b.WriteString(fmt.Sprintf("  %s %s\n", SuccessStyle.Render("Available at"), m.endpoint))
	default:
		b.WriteString(fmt.Sprintf("  %s Waiting for cluster: %s\n",
			m.spinner.View(), StatusStyle(m.status).Render(m.status)))
	}
	b.WriteString(DimStyle.Render(fmt.Sprintf("  polls: %d  elapsed: %s", m.polls, elapsed)))
	b.WriteString("\n")

	return b.String()
}

// Done returns true once the poll has finished.
func (m PollModel) Done() bool { return m.done }

// Err returns the error the poll finished with, if any.
func (m PollModel) Err() error { return m.err }

// Tracker runs a PollModel in the background and feeds it poll results.
type Tracker struct {
	program *tea.Program
	done    chan struct{}
}

// StartTracker starts the poll view on out. Input and signal handling stay
// with the caller so Ctrl+C cancels the command context.
func StartTracker(out io.Writer, cluster string) *Tracker {
	p := tea.NewProgram(
		NewPollModel(cluster, time.Now()),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	t := &Tracker{program: p, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		_, _ = p.Run()
	}()
	return t
}

// Observe forwards a polled state to the view.
func (t *Tracker) Observe(state aws.ClusterState) {
	t.program.Send(StatusMsg{State: state, At: time.Now()})
}

// Stop ends the view and waits for it to restore the terminal.
func (t *Tracker) Stop(err error) {
	t.program.Send(FinishedMsg{Err: err})
	<-t.done
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
