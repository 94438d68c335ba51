package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTable_Render(t *testing.T) {
	tbl := &Table{
		Columns: []string{"ID", "Name"},
		Rows: [][]string{
			{"1", "Shenzhen"},
			{"2", "Dongguan"},
		},
		Total: 12,
	}

	out := tbl.Render()
	for _, want := range []string{"ID", "Name", "Shenzhen", "Dongguan", "2 of 12"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestTable_RenderEmpty(t *testing.T) {
	out := (&Table{Columns: []string{"ID"}}).Render()
	if !strings.Contains(out, "No results") {
		t.Errorf("Render() = %q", out)
	}
}

func TestTable_ColumnWidthsCapped(t *testing.T) {
	tbl := &Table{
		Columns: []string{"ID", "Commands"},
		Rows:    [][]string{{"1", strings.Repeat("x", 100)}, {"22"}},
	}

	widths := tbl.columnWidths()
	if widths[0] != 2 {
		t.Errorf("ID width = %d, want 2", widths[0])
	}
	if widths[1] != MaxColumnWidth {
		t.Errorf("Commands width = %d, want %d", widths[1], MaxColumnWidth)
	}
}

func TestResult_Render(t *testing.T) {
	out := NewSuccessResult("Factory created", map[string]string{"Name": "Shenzhen", "ID": "6"}).
		SetWidth(80).
		Render()

	if !strings.Contains(out, "SUCCESS") || !strings.Contains(out, "Factory created") {
		t.Errorf("missing title:\n%s", out)
	}
	if strings.Index(out, "ID:") > strings.Index(out, "Name:") {
		t.Error("details should be rendered in key order")
	}

	fail := NewFailureResult("Request failed", errors.New("connection refused"), []string{"Check the service URL"}).
		SetWidth(80).
		Render()
	for _, want := range []string{"FAILED", "connection refused", "Troubleshooting:", "Check the service URL"} {
		if !strings.Contains(fail, want) {
			t.Errorf("failure box missing %q", want)
		}
	}

	warn := NewWarningResult("Window exceeded", map[string]string{"Retries": "7"}).SetWidth(80).Render()
	if !strings.Contains(warn, "WARNING") || !strings.Contains(warn, "Retries:") {
		t.Errorf("warning box:\n%s", warn)
	}
}

func TestHeader_Render(t *testing.T) {
	out := NewHeader("Batch preview", "devmgr batches preview", map[string]string{
		"Service": "http://10.0.0.2:8002/xiaozhi",
		"Factory": "6",
	}).SetWidth(80).Render()

	for _, want := range []string{"BATCH PREVIEW", "devmgr batches preview", "Factory:", "http://10.0.0.2:8002/xiaozhi"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q:\n%s", want, out)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"y\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Delete car model", []string{"This cannot be undone"})
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "This cannot be undone") {
			t.Error("warnings should be shown")
		}
	}
}

func TestSpinnerModel_Update(t *testing.T) {
	m := NewSpinnerModel("Fetching factories", nil)
	if !strings.Contains(m.View(), "Fetching factories") {
		t.Errorf("View() = %q", m.View())
	}

	wantErr := errors.New("boom")
	next, cmd := m.Update(doneMsg{err: wantErr})
	if cmd == nil {
		t.Fatal("doneMsg should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("doneMsg should return tea.Quit")
	}

	done, err := next.(SpinnerModel).Done()
	if !done || !errors.Is(err, wantErr) {
		t.Errorf("Done() = %v, %v", done, err)
	}
	if next.View() != "" {
		t.Error("finished spinner should render nothing")
	}
}

func TestSpinnerModel_Interrupt(t *testing.T) {
	cancelled := false
	m := NewSpinnerModel("Working", func() { cancelled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled {
		t.Error("ctrl+c should cancel the work")
	}
	if cmd == nil {
		t.Error("ctrl+c should quit")
	}
}

func TestRunWithSpinner_NotTerminal(t *testing.T) {
	var out bytes.Buffer
	ran := false

	err := RunWithSpinner(context.Background(), &out, "Working", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Errorf("RunWithSpinner() = %v, ran = %v", err, ran)
	}
	if out.Len() != 0 {
		t.Errorf("no spinner output expected off-terminal, got %q", out.String())
	}
}

func TestPrinter_Output(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintWarning("Backend discovery failed", map[string]string{"Using": "http://localhost:8002/xiaozhi"})
	p.Newline()
	p.Print("done")

	out := buf.String()
	if !strings.Contains(out, "WARNING") || !strings.Contains(out, "http://localhost:8002/xiaozhi") {
		t.Errorf("warning box missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n\ndone") {
		t.Errorf("output should end with an empty line before %q, got %q", "done", out)
	}
}
