// gruesome is a terminal Z-Machine interpreter for version 3 and 4 story
// files, built on Bubble Tea for the display and charmbracelet/log for
// diagnostics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/wordwrap"

	"github.com/skeptomai/gruesome/internal/zcore"
	"github.com/skeptomai/gruesome/internal/zdisplay"
	"github.com/skeptomai/gruesome/internal/zinput"
	"github.com/skeptomai/gruesome/internal/zmachine"
)

var (
	storyPath string
	saveDir   string
	logLevel  string
)

func init() {
	flag.StringVar(&storyPath, "story", "", "path to a .z3/.z4 story file")
	flag.StringVar(&saveDir, "save-dir", ".", "directory to read/write .sav files in")
	flag.StringVar(&logLevel, "log", "warn", "log level: debug, info, warn, error")
}

type appState int

const (
	running appState = iota
	waitingForLine
	waitingForChar
)

// fileSaveIO implements zmachine.SaveIO against a single fixed path derived
// from the story filename, matching the convention the teacher's save/
// restore handlers used (romName with .z* replaced by .sav).
type fileSaveIO struct{ path string }

func (f fileSaveIO) WriteSave(data []byte) error { return os.WriteFile(f.path, data, 0o644) }
func (f fileSaveIO) ReadSave() ([]byte, error)   { return os.ReadFile(f.path) }

func defaultSavePath(dir, storyPath string) string {
	base := filepath.Base(storyPath)
	ext := filepath.Ext(base)
	if len(ext) >= 2 && (ext[1] == 'z' || ext[1] == 'Z') {
		base = base[:len(base)-len(ext)]
	}
	return filepath.Join(dir, base+".sav")
}

type engineDoneMsg struct{ err error }

type model struct {
	logger *log.Logger
	cancel context.CancelFunc
	ctx    context.Context
	engine *zmachine.Engine

	events chan any
	respCh chan zinput.Response

	state appState

	lowerText  string
	upperLines []string
	upperWidth int
	curWindow  zmachine.Window
	curStyle   zmachine.TextStyle
	cursorRow  int
	cursorCol  int
	buffered   bool

	status struct {
		location  string
		first     int
		second    int
		timeBased bool
	}

	inputBox   textinput.Model
	width      int
	height     int
	runtimeErr string
}

func waitForEvent(events chan any) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tea.WindowSize(), runEngine(m.ctx, m.engine))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeUpper()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case engineDoneMsg:
		if msg.err != nil && msg.err != context.Canceled {
			m.runtimeErr = msg.err.Error()
		}
		return m, tea.Quit

	case zdisplay.TextMsg:
		m.appendText(msg.Text)
		return m, waitForEvent(m.events)

	case zdisplay.StatusMsg:
		m.status.location = msg.Location
		m.status.first = msg.First
		m.status.second = msg.Second
		m.status.timeBased = msg.IsTimeBased
		return m, waitForEvent(m.events)

	case zdisplay.SplitWindowMsg:
		m.resizeUpperTo(int(msg.Lines))
		return m, waitForEvent(m.events)

	case zdisplay.SetWindowMsg:
		m.curWindow = msg.Window
		if msg.Window == zmachine.UpperWindow {
			m.cursorRow, m.cursorCol = 0, 0
		}
		return m, waitForEvent(m.events)

	case zdisplay.SetCursorMsg:
		m.cursorRow, m.cursorCol = int(msg.Row)-1, int(msg.Col)-1
		return m, waitForEvent(m.events)

	case zdisplay.SetStyleMsg:
		m.curStyle = msg.Style
		return m, waitForEvent(m.events)

	case zdisplay.EraseWindowMsg:
		m.eraseWindow(int(msg.Window))
		return m, waitForEvent(m.events)

	case zdisplay.BufferModeMsg:
		m.buffered = msg.On
		return m, waitForEvent(m.events)

	case zinput.Request:
		if msg.CharOnly {
			m.state = waitingForChar
		} else {
			m.state = waitingForLine
			m.inputBox.SetValue("")
			m.inputBox.Focus()
		}
		return m, waitForEvent(m.events)
	}

	var cmd tea.Cmd
	if m.state == waitingForLine {
		m.inputBox, cmd = m.inputBox.Update(msg)
	}
	return m, cmd
}

func (m *model) resizeUpper() {
	m.upperWidth = m.width
	for i := range m.upperLines {
		m.upperLines[i] = padTo(m.upperLines[i], m.width)
	}
}

func (m *model) resizeUpperTo(lines int) {
	for len(m.upperLines) < lines {
		m.upperLines = append(m.upperLines, strings.Repeat(" ", m.width))
	}
	if len(m.upperLines) > lines {
		m.upperLines = m.upperLines[:lines]
	}
}

func padTo(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func (m *model) appendText(text string) {
	if m.curWindow == zmachine.UpperWindow {
		m.writeUpper(text)
		return
	}
	m.lowerText += text
}

func (m *model) writeUpper(text string) {
	for _, line := range strings.Split(text, "\n") {
		if m.cursorRow < 0 || m.cursorRow >= len(m.upperLines) {
			return
		}
		row := m.upperLines[m.cursorRow]
		col := m.cursorCol
		if col < 0 {
			col = 0
		}
		end := col + len(line)
		if end > len(row) {
			end = len(row)
			line = line[:end-col]
		}
		m.upperLines[m.cursorRow] = row[:col] + line + row[end:]
		m.cursorCol = end
	}
}

func (m *model) eraseWindow(w int) {
	switch w {
	case -2, -1:
		m.lowerText = ""
		for i := range m.upperLines {
			m.upperLines[i] = strings.Repeat(" ", m.width)
		}
	case 0:
		m.lowerText = ""
	case 1:
		for i := range m.upperLines {
			m.upperLines[i] = strings.Repeat(" ", m.width)
		}
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case waitingForChar:
		m.state = running
		ch := keyToZChar(msg)
		m.respCh <- zinput.Response{Char: ch}
		return m, waitForEvent(m.events)
	case waitingForLine:
		if msg.Type == tea.KeyEnter {
			m.state = running
			line := m.inputBox.Value()
			m.lowerText += line + "\n"
			m.respCh <- zinput.Response{Line: line}
			return m, waitForEvent(m.events)
		}
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}
	return m, nil
}

func keyToZChar(msg tea.KeyMsg) byte {
	switch msg.Type {
	case tea.KeyUp:
		return 129
	case tea.KeyDown:
		return 130
	case tea.KeyLeft:
		return 131
	case tea.KeyRight:
		return 132
	case tea.KeyEnter:
		return 13
	case tea.KeyDelete, tea.KeyBackspace:
		return 8
	default:
		if len(msg.Runes) > 0 {
			return byte(msg.Runes[0])
		}
		return 0
	}
}

var statusBarStyle = lipgloss.NewStyle().Reverse(true)

func (m model) View() string {
	if m.runtimeErr != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true).Render("Z-Machine error: " + m.runtimeErr)
	}
	if m.width == 0 {
		return "Initializing..."
	}

	var b strings.Builder
	lowerHeight := m.height

	if m.status.location != "" {
		b.WriteString(statusBarStyle.Render(statusLine(m.width, m.status.location, m.status.first, m.status.second, m.status.timeBased)))
		b.WriteString("\n")
		lowerHeight -= 2
	} else if len(m.upperLines) > 0 {
		b.WriteString(strings.Join(m.upperLines, "\n"))
		b.WriteString("\n")
		lowerHeight -= len(m.upperLines)
	}

	body := wordwrap.String(m.lowerText, m.width)
	lines := strings.Split(body, "\n")
	if len(lines) > lowerHeight-1 {
		lines = lines[len(lines)-(lowerHeight-1):]
	}
	b.WriteString(strings.Join(lines, "\n"))

	if m.state == waitingForLine {
		b.WriteString("\n" + m.inputBox.View())
	}

	return b.String()
}

func statusLine(width int, location string, first, second int, timeBased bool) string {
	right := fmt.Sprintf("Score: %d  Moves: %d", first, second)
	if timeBased {
		right = fmt.Sprintf("Time: %02d:%02d", first, second)
	}
	if len(location)+len(right)+1 >= width {
		if len(right) >= width {
			return right[:width]
		}
		return location[:width-len(right)-1] + " " + right
	}
	return location + strings.Repeat(" ", width-len(location)-len(right)) + right
}

func runEngine(ctx context.Context, engine *zmachine.Engine) tea.Cmd {
	return func() tea.Msg {
		return engineDoneMsg{err: engine.Run(ctx)}
	}
}

func main() {
	flag.Parse()
	if storyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: gruesome -story <file.z3|file.z4>")
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	data, err := os.ReadFile(storyPath)
	if err != nil {
		logger.Fatal("reading story file", "err", err)
	}

	mem, err := zcore.Load(data)
	if err != nil {
		logger.Fatal("loading story file", "err", err)
	}

	events := make(chan any)
	respCh := make(chan zinput.Response)

	display := zdisplay.NewChannelDisplay(events)
	input := zinput.NewChannelInput(events, respCh)

	engine := zmachine.New(mem, display, input, logger)
	engine.SaveIO = fileSaveIO{path: defaultSavePath(saveDir, storyPath)}

	ctx, cancel := context.WithCancel(context.Background())

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := model{
		logger:   logger,
		cancel:   cancel,
		ctx:      ctx,
		engine:   engine,
		events:   events,
		respCh:   respCh,
		inputBox: ti,
		buffered: true,
	}

	program := tea.NewProgram(m)
	if _, err := program.Run(); err != nil {
		logger.Fatal("running program", "err", err)
	}
	cancel()
}
