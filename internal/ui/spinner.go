package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames is the shared animation (◐ ◓ ◑ ◒).
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// spinnerDoneMsg stops the program, carrying the final line to print.
type spinnerDoneMsg struct {
	final string
}

type spinnerModel struct {
	sp    spinner.Model
	label string
	final string
}

func (m spinnerModel) Init() tea.Cmd {
	return m.sp.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.final = msg.final
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.final != "" {
		return m.final + "\n"
	}
	return m.sp.View() + " " + m.label + "\n"
}

// Spinner shows an animated indicator for a long-running operation.
// On non-terminal output it degrades to a single printed line.
type Spinner struct {
	label string
	prog  *tea.Program
	done  chan struct{}
}

// NewSpinner creates a spinner with the given label.
func NewSpinner(label string) *Spinner {
	return &Spinner{label: label}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !IsTerminal() {
		fmt.Fprintf(os.Stderr, "%s...\n", s.label)
		return
	}

	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	s.prog = tea.NewProgram(spinnerModel{sp: sp, label: s.label},
		tea.WithOutput(os.Stderr))
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		_, _ = s.prog.Run()
	}()
}

// Stop ends the animation with a final status line.
func (s *Spinner) Stop(ok bool, message string) {
	final := StatusSymbol(ok) + " " + message
	if s.prog == nil {
		fmt.Fprintln(os.Stderr, final)
		return
	}
	s.prog.Send(spinnerDoneMsg{final: final})
	<-s.done
	s.prog = nil
}
