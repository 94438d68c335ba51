package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// doneMsg reports that the work behind a spinner finished
type doneMsg struct{ err error }

// SpinnerModel is a Bubble Tea model that shows a spinner until the work it
// waits for reports back, then exits.
type SpinnerModel struct {
	spinner     spinner.Model
	label       string
	cancel      context.CancelFunc
	done        bool
	interrupted bool
	err         error
}

// NewSpinnerModel creates a spinner labelled label. cancel is invoked when the
// user interrupts with ctrl+c or esc.
func NewSpinnerModel(label string, cancel context.CancelFunc) SpinnerModel {
	return SpinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		label:   label,
		cancel:  cancel,
	}
}

// Init implements tea.Model
func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m SpinnerModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	return fmt.Sprintf(" %s %s\n", m.spinner.View(), m.label)
}

// Done reports whether the work finished, and its error
func (m SpinnerModel) Done() (bool, error) {
	return m.done, m.err
}

// RunWithSpinner runs fn while a spinner labelled label is shown on out.
// When out is not a terminal fn simply runs. The spinner never hides fn's
// error, and an interrupt cancels the context passed to fn.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, fn func(context.Context) error) error {
	f, ok := out.(*os.File)
	if !ok || !IsTerminal(f) {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewSpinnerModel(label, cancel), tea.WithOutput(out))

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("spinner: %w", err)
	}
	return <-result
}

// Printer writes UI components to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintTable prints a table of rows under columns with an optional total
func (p *Printer) PrintTable(columns []string, rows [][]string, total int64) {
	p.Println((&Table{Columns: columns, Rows: rows, Total: total}).Render())
}
