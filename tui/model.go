package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"

	"go-pianoroll/audio"
	"go-pianoroll/midi"
	"go-pianoroll/sequencer"
	"go-pianoroll/theme"
	"go-pianoroll/timing"
	"go-pianoroll/widgets"
)

const (
	tempoStep   = 5
	loadTimeout = 15 * time.Second
)

// prompt is a one-line text input in the footer
type prompt int

const (
	promptNone prompt = iota
	promptTempo
	promptSample
)

type Model struct {
	Manager *sequencer.Manager
	Theme   *theme.Theme
	Piano   *audio.Piano // may be nil (audio disabled)
	Ports   <-chan midi.PortEvent

	midiPort string // connected MIDI out, "" when none
	prompt   prompt
	input    string
	message  string
	quitting bool
}

type UpdateMsg struct{}

type PortEventMsg midi.PortEvent

// portsClosedMsg ends the port listener
type portsClosedMsg struct{}

// SampleLoadedMsg reports the result of a sample load
type SampleLoadedMsg struct {
	Name string
	Err  error
}

func NewModel(manager *sequencer.Manager, th *theme.Theme, piano *audio.Piano) Model {
	return Model{
		Manager: manager,
		Theme:   th,
		Piano:   piano,
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(ports <-chan midi.PortEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ports
		if !ok {
			return portsClosedMsg{}
		}
		return PortEventMsg(event)
	}
}

// WithPorts shows MIDI output connection changes
func (m Model) WithPorts(ports <-chan midi.PortEvent) Model {
	m.Ports = ports
	return m
}

// loadSample fetches the configured piano sample in the background
func loadSample(s *audio.Sample) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		err := s.EnsureLoaded(ctx)
		return SampleLoadedMsg{Name: s.Name(), Err: err}
	}
}

// openSample replaces the piano sample with a file
func openSample(s *audio.Sample, path string) tea.Cmd {
	return func() tea.Msg {
		err := s.LoadFile(path)
		return SampleLoadedMsg{Name: s.Name(), Err: err}
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager)}
	if m.Piano != nil {
		cmds = append(cmds, loadSample(m.Piano.Sample()))
	}
	if m.Ports != nil {
		cmds = append(cmds, ListenForPorts(m.Ports))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Manager.Stop()
			return m, tea.Quit

		case " ", "p":
			m.Manager.TogglePlay()

		case "0":
			m.Manager.Stop()

		case "+", "=":
			m.Manager.NudgeTempo(tempoStep)

		case "-", "_":
			m.Manager.NudgeTempo(-tempoStep)

		case "t":
			m.prompt = promptTempo
			m.input = ""

		case "b":
			m.Manager.ToggleMetronome()

		case "[":
			m.seekBeats(-1)

		case "]":
			m.seekBeats(1)

		case "O":
			if m.Piano != nil {
				m.prompt = promptSample
				m.input = ""
			}

		case "r":
			if m.Piano != nil {
				m.message = "loading sample..."
				return m, loadSample(m.Piano.Sample())
			}

		default:
			m.Manager.HandleKey(msg.String())
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case PortEventMsg:
		event := midi.PortEvent(msg)
		switch event.Type {
		case midi.PortConnected:
			m.midiPort = event.Name
		case midi.PortDisconnected:
			m.midiPort = ""
		case midi.PortFailed:
			m.message = fmt.Sprintf("midi: %s: %v", event.Name, event.Err)
		}
		return m, ListenForPorts(m.Ports)

	case portsClosedMsg:
		m.midiPort = ""

	case SampleLoadedMsg:
		switch {
		case errors.Is(msg.Err, audio.ErrNoSource):
			m.message = "no sample configured (use --sample or O)"
		case msg.Err != nil:
			m.message = fmt.Sprintf("sample: %v", msg.Err)
		default:
			m.message = "sample: " + msg.Name
		}
	}

	return m, nil
}

// updatePrompt edits the footer input
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = promptNone
	case tea.KeyEnter:
		p := m.prompt
		m.prompt = promptNone
		switch p {
		case promptTempo:
			m.Manager.SetTempo(timing.ParseBPM(m.input))
		case promptSample:
			if m.input != "" {
				return m, openSample(m.Piano.Sample(), m.input)
			}
		}
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	case tea.KeySpace:
		m.input += " "
	case tea.KeyCtrlC:
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) seekBeats(beats int) {
	tr := m.Manager.Transport()
	res := m.Manager.Store().Resolution()
	tr.Seek(tr.State().Tick + beats*res.TicksPerBeat)
}

// patternLength is the loop duration at the current tempo
func (m Model) patternLength(bpm float64) string {
	if !timing.ValidBPM(bpm) {
		return "--"
	}
	res := m.Manager.Store().Resolution()
	ms := timing.ElapsedMs(res.TotalTicks(), bpm, res.TicksPerBeat)
	d := time.Duration(ms * float64(time.Millisecond))
	return durafmt.Parse(d).LimitFirstN(2).String()
}

// colorize styles the grid symbols of a plain editor view
func (m Model) colorize(view string) string {
	sym := m.Theme.Symbols
	var out strings.Builder
	for _, r := range view {
		switch r {
		case sym.Empty, sym.BarLine, sym.NoteStart, sym.NoteBody, sym.Selected, sym.Flash, sym.Playhead, sym.Cursor:
			out.WriteString(m.Theme.StyleFor(r).Render(string(r)))
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func (m Model) header() string {
	st := m.Manager.GetState()
	tick := m.Manager.LastTick()
	res := m.Manager.Store().Resolution()

	badge := widgets.RenderBadge("STOP", m.Theme.BG(), m.Theme.Muted())
	switch {
	case st.Suspended:
		badge = widgets.RenderBadge("HOLD", m.Theme.BG(), m.Theme.Warning())
	case st.Playing:
		badge = widgets.RenderBadge("PLAY", m.Theme.BG(), m.Theme.Success())
	}

	bar, beat, _ := res.BarBeat(st.Tick)
	metro := "off"
	if st.Metronome {
		metro = "on"
	}
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())

	line := fmt.Sprintf("  go-pianoroll  %gbpm  %s  bar %d.%d  pattern %s  metro:%s",
		st.BPM, tick.Elapsed, bar, beat, m.patternLength(st.BPM), metro)
	if m.Ports != nil {
		port := m.midiPort
		if port == "" {
			port = "--"
		}
		line += "  midi:" + port
	}
	return badge + headerStyle.Render(line)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	help := dimStyle.Render(widgets.RenderKeyLine([]widgets.KeyBinding{
		{Key: "space", Desc: "play/pause"},
		{Key: "0", Desc: "stop"},
		{Key: "[ ]", Desc: "seek"},
		{Key: "+/-", Desc: "tempo"},
		{Key: "t", Desc: "type tempo"},
		{Key: "b", Desc: "metronome"},
		{Key: "O", Desc: "open sample"},
		{Key: "q", Desc: "quit"},
	}))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(m.header())
	out.WriteString("\n\n")
	out.WriteString(m.colorize(m.Manager.View()))
	out.WriteString("\n\n")

	switch m.prompt {
	case promptTempo:
		out.WriteString(warnStyle.Render("tempo: " + m.input + "_"))
		out.WriteString("\n")
	case promptSample:
		out.WriteString(warnStyle.Render("sample file: " + m.input + "_"))
		out.WriteString("\n")
	default:
		if m.message != "" {
			out.WriteString(dimStyle.Render(m.message))
			out.WriteString("\n")
		}
	}
	out.WriteString(help)

	return out.String()
}
