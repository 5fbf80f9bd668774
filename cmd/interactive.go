package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Beastly713/steg/pkg/stego"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Styles
var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	cursorStyle  = focusedStyle
	carrierStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // Green
	payloadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // Orange
	docStyle     = lipgloss.NewStyle().Margin(1, 2)
)

const helpLine = "↑/↓ move | Enter open dir | c carrier | p payload | h hide | x extract | o output dir | q quit"

type fileItem struct {
	path  string
	name  string
	isDir bool
}

type model struct {
	path      string
	files     []fileItem
	cursor    int
	carrier   string
	payload   string
	status    string
	outDir    textinput.Model
	editing   bool
	quitting  bool
	isWorking bool
}

func initialModel(dir string) model {
	ti := textinput.New()
	ti.Placeholder = "output directory"
	ti.SetValue(dir)
	ti.CharLimit = 256

	cwd, _ := os.Getwd()
	m := model{
		path:   cwd,
		status: helpLine,
		outDir: ti,
	}
	m.loadFiles()
	return m
}

func (m *model) loadFiles() {
	entries, err := os.ReadDir(m.path)
	if err != nil {
		m.status = "Error reading directory"
		return
	}

	m.files = []fileItem{}
	// Parent directory
	m.files = append(m.files, fileItem{name: "..", isDir: true, path: filepath.Dir(m.path)})

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		m.files = append(m.files, fileItem{
			name:  e.Name(),
			isDir: e.IsDir(),
			path:  filepath.Join(m.path, e.Name()),
		})
	}
	m.cursor = 0
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.updateOutDir(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.isWorking {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}

		case "enter":
			selected := m.files[m.cursor]
			if selected.isDir {
				m.path = selected.path
				m.loadFiles()
			}

		case "c":
			if f := m.files[m.cursor]; !f.isDir {
				m.carrier = toggle(m.carrier, f.path)
			}

		case "p":
			if f := m.files[m.cursor]; !f.isDir {
				m.payload = toggle(m.payload, f.path)
			}

		case "o":
			m.editing = true
			m.outDir.Focus()
			return m, textinput.Blink

		case "h":
			if m.carrier == "" || m.payload == "" {
				m.status = "Select a carrier (c) and a payload (p) first"
				return m, nil
			}
			m.isWorking = true
			m.status = "Hiding..."
			return m, runOperation(m.carrier, m.payload, m.outDir.Value())

		case "x":
			if m.carrier == "" {
				m.status = "Select a carrier (c) first"
				return m, nil
			}
			m.isWorking = true
			m.status = "Extracting..."
			return m, runOperation(m.carrier, "", m.outDir.Value())
		}

	case statusMsg:
		m.isWorking = false
		m.status = string(msg)
		m.loadFiles()
	}

	return m, nil
}

func (m model) updateOutDir(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.editing = false
			m.outDir.Blur()
			m.status = helpLine
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.outDir, cmd = m.outDir.Update(msg)
	return m, cmd
}

func toggle(current, path string) string {
	if current == path {
		return ""
	}
	return path
}

type statusMsg string

// runOperation hides when payload is set and extracts otherwise.
func runOperation(carrier, payload, dir string) tea.Cmd {
	return func() tea.Msg {
		engine := stego.New(stego.Options{OutputDir: dir, Logger: logger})

		if payload == "" {
			res, err := engine.Extract(carrier)
			if err != nil {
				return statusMsg(fmt.Sprintf("Error: %v", err))
			}
			return statusMsg(fmt.Sprintf("Success! Extracted %s", res.OutputPath))
		}

		res, err := engine.Hide(carrier, payload)
		if err != nil {
			return statusMsg(fmt.Sprintf("Error: %v", err))
		}
		return statusMsg(fmt.Sprintf("Success! Created %s (PSNR %.2f dB)", res.OutputPath, res.PSNR))
	}
}

func (m model) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	s := fmt.Sprintf("Directory: %s\n\n", m.path)

	for i, file := range m.files {
		cursor := " " // no cursor
		if m.cursor == i {
			cursor = ">"
			s += cursorStyle.Render(cursor)
		} else {
			s += cursor
		}

		var line string
		switch {
		case file.isDir:
			line = fmt.Sprintf("[DIR] %s", file.name)
		case file.path == m.carrier:
			line = carrierStyle.Render(fmt.Sprintf("[C] %s", file.name))
		case file.path == m.payload:
			line = payloadStyle.Render(fmt.Sprintf("[P] %s", file.name))
		default:
			line = fmt.Sprintf("[ ] %s", file.name)
		}

		s += " " + line + "\n"
	}

	s += fmt.Sprintf("\nCarrier: %s\nPayload: %s\nOutput:  %s\n", orNone(m.carrier), orNone(m.payload), m.outDir.View())
	s += fmt.Sprintf("\n%s\n", m.status)
	return docStyle.Render(s)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// Cobra command setup
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Interactive terminal UI for hiding and extracting",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(initialModel(outputDir))
		if _, err := p.Run(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
