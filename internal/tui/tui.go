// Package tui is the terminal front end: a registration form, a coverage
// dashboard, and a chat pane, all rendered from session store snapshots.
// Every key action maps to one engine call run as a bubbletea command; the
// store's watch channel drives re-renders, so a snapshot is re-read whenever
// any operation settles.
package tui

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/medisecure/medisecure/internal/engine"
	"github.com/medisecure/medisecure/internal/session"
)

// focus targets, cycled with tab.
const (
	focusName = iota
	focusDOB
	focusAmount
	focusChat
	focusCount
)

type (
	// storeChangedMsg arrives after any session store mutation.
	storeChangedMsg struct{}
	// opDoneMsg marks an engine command goroutine finishing. The result is
	// already in the store; this only stops the spinner when nothing is
	// in flight anymore.
	opDoneMsg struct{}
	// downloadDoneMsg carries the outcome of a letter download.
	downloadDoneMsg struct {
		path string
		err  error
	}
)

// Model is the bubbletea model for the whole client.
type Model struct {
	eng   *engine.Engine
	snap  session.Snapshot
	watch <-chan struct{}

	inputs [3]textinput.Model // name, date of birth, billing amount
	chat   textinput.Model
	spin   spinner.Model
	focus  int

	width  int
	height int
	status string
}

func New(eng *engine.Engine) Model {
	name := textinput.New()
	name.Placeholder = "Full name"
	name.CharLimit = 64
	name.Width = 32
	name.Focus()

	dob := textinput.New()
	dob.Placeholder = "Date of birth (YYYY-MM-DD)"
	dob.CharLimit = 10
	dob.Width = 32

	amount := textinput.New()
	amount.Placeholder = "Billing amount"
	amount.CharLimit = 12
	amount.Width = 32

	chat := textinput.New()
	chat.Placeholder = "Ask about your coverage…"
	chat.CharLimit = 280
	chat.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		eng:    eng,
		snap:   eng.Store().Snapshot(),
		watch:  eng.Store().Watch(),
		inputs: [3]textinput.Model{name, dob, amount},
		chat:   chat,
		spin:   sp,
	}
}

// Run starts the program and blocks until the user quits.
func Run(eng *engine.Engine) error {
	_, err := tea.NewProgram(New(eng), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, waitForChange(m.watch))
}

// waitForChange blocks on the store's watch channel and converts the signal
// into a message. Re-issued after every storeChangedMsg.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case storeChangedMsg:
		m.snap = m.eng.Store().Snapshot()
		return m, waitForChange(m.watch)

	case opDoneMsg:
		return m, nil

	case downloadDoneMsg:
		if msg.err != nil {
			m.status = "download failed: " + msg.err.Error()
		} else {
			m.status = "letter saved to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab", "shift+tab":
		if msg.String() == "tab" {
			m.focus = (m.focus + 1) % focusCount
		} else {
			m.focus = (m.focus + focusCount - 1) % focusCount
		}
		return m.applyFocus(), nil

	case "enter":
		if m.focus == focusChat {
			return m.submitChat()
		}
		return m.submitRegistration()

	case "ctrl+r":
		m.status = ""
		return m, runOp(func() { m.eng.Refresh(context.Background()) })

	case "ctrl+g":
		m.status = ""
		return m, runOp(func() { m.eng.GenerateLetter(context.Background(), "") })

	case "ctrl+d":
		return m.downloadLetter()
	}

	return m.updateInputs(msg)
}

func (m Model) applyFocus() Model {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	if m.focus == focusChat {
		m.chat.Focus()
	} else {
		m.chat.Blur()
	}
	return m
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for i := range m.inputs {
		var cmd tea.Cmd
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// runOp executes one engine call off the UI goroutine. The engine resolves
// every outcome into the store, so the command itself has nothing to report.
func runOp(op func()) tea.Cmd {
	return func() tea.Msg {
		op()
		return opDoneMsg{}
	}
}

func (m Model) submitRegistration() (tea.Model, tea.Cmd) {
	in := engine.RegistrationInput{
		Name:          m.inputs[focusName].Value(),
		DateOfBirth:   m.inputs[focusDOB].Value(),
		BillingAmount: m.inputs[focusAmount].Value(),
	}
	m.status = ""
	return m, runOp(func() { m.eng.Register(context.Background(), in) })
}

func (m Model) submitChat() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.chat.Value())
	if text == "" {
		return m, nil
	}
	m.chat.Reset()
	return m, runOp(func() { m.eng.SendChat(context.Background(), text) })
}

func (m Model) downloadLetter() (tea.Model, tea.Cmd) {
	eng := m.eng
	return m, func() tea.Msg {
		file, err := eng.DownloadLetter(context.Background())
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		if err := os.WriteFile(file.Filename, []byte(file.Content), 0o644); err != nil {
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: file.Filename}
	}
}

// regionLine renders one region's status for the dashboard footer.
func (m Model) regionLine(r session.Region) string {
	st := m.snap.Regions[r]
	switch st.State {
	case session.StateInFlight:
		return m.spin.View() + " working"
	case session.StateFailed:
		return errorStyle.Render("failed: " + st.Reason)
	default:
		return ""
	}
}

var _ tea.Model = Model{}

func clampLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[len(lines)-max:], "\n")
}
