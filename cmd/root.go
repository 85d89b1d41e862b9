package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-pianoroll/audio"
	"go-pianoroll/config"
	"go-pianoroll/debug"
	"go-pianoroll/midi"
	"go-pianoroll/sequencer"
	"go-pianoroll/theme"
	"go-pianoroll/tui"
)

const speakerLatency = 50 * time.Millisecond

var (
	flagBPM       float64
	flagBars      int
	flagSample    string
	flagClick     string
	flagMidiOut   string
	flagChannel   int
	flagMetronome bool
	flagNoAudio   bool
	flagDebug     bool
	flagDebugPath string
)

var rootCmd = &cobra.Command{
	Use:   "pianoroll",
	Short: "Terminal piano roll sequencer",
	Long: `A looping piano roll in the terminal. Notes play through a repitched
piano sample and, optionally, a MIDI output port.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.Float64Var(&flagBPM, "bpm", 0, "tempo in beats per minute (default from config)")
	f.IntVar(&flagBars, "bars", 0, "pattern length in bars (default from config)")
	f.StringVar(&flagSample, "sample", "", "piano sample recorded at C4 (.wav/.mp3 file or URL)")
	f.StringVar(&flagClick, "click", "", "metronome sample")
	f.StringVar(&flagMidiOut, "midi-out", "", "MIDI output port name (see 'pianoroll ports')")
	f.IntVar(&flagChannel, "midi-channel", 0, "MIDI channel 1-16")
	f.BoolVar(&flagMetronome, "metronome", false, "start with the metronome on")
	f.BoolVar(&flagNoAudio, "no-audio", false, "do not open the audio device")
	f.BoolVar(&flagDebug, "debug", false, "write a debug log")
	f.StringVar(&flagDebugPath, "debug-log", "", "debug log path (default ~/.config/go-pianoroll/debug.log)")
}

// Execute runs the CLI
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("bpm") {
		cfg.Tempo = flagBPM
	}
	if f.Changed("bars") {
		cfg.Bars = flagBars
	}
	if f.Changed("sample") {
		cfg.Audio.SamplePath = flagSample
	}
	if f.Changed("click") {
		cfg.Audio.ClickPath = flagClick
	}
	if f.Changed("midi-out") {
		cfg.MIDI.OutPort = flagMidiOut
	}
	if f.Changed("midi-channel") {
		cfg.MIDI.Channel = flagChannel
	}
	if f.Changed("metronome") {
		cfg.UI.Metronome = flagMetronome
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagDebug {
		if err := debug.Enable(flagDebugPath); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		defer debug.Disable()
	}

	fileCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := *fileCfg
	applyFlags(cmd, &cfg)

	res := cfg.Resolution()
	if err := res.Validate(); err != nil {
		return err
	}

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		debug.Log("theme", "palette: %v", err)
	}
	th := theme.New(palette)

	manager := sequencer.NewManager(res, sequencer.WithBPM(cfg.Tempo))
	defer manager.Close()
	manager.Transport().SetMetronome(cfg.UI.Metronome)
	if cfg.UI.Follow {
		manager.Editor().HandleKey("f")
	}

	// Tempo edits persist to the file config, not the flag-overridden copy
	saver := config.NewTempoSaver(fileCfg, config.DefaultTempoDelay)
	manager.SetOnTempo(saver.Set)
	defer func() {
		if err := saver.Flush(); err != nil {
			debug.Log("config", "save: %v", err)
		}
	}()

	var piano *audio.Piano
	if !flagNoAudio {
		out, err := audio.NewSpeaker(audio.DefaultSampleRate, speakerLatency)
		if err != nil {
			debug.Log("audio", "speaker: %v", err)
		} else {
			defer out.Close()
			piano = audio.NewPiano(audio.NewSample(cfg.Audio.SamplePath), out, res)
			manager.AddTriggerSink(piano)
			manager.SetOnPreview(func(row int) { piano.Preview(row) })

			var click *audio.Sample
			if cfg.Audio.ClickPath != "" {
				click = audio.NewSample(cfg.Audio.ClickPath)
				go click.EnsureLoaded(context.Background())
			}
			manager.SetClicker(audio.NewClick(click, out))
		}
	}

	m := tui.NewModel(manager, th, piano)

	// MIDI out follows the port across unplug/replug
	if cfg.MIDI.OutPort != "" {
		out := midi.NewOut(nil, cfg.MIDI.Channel)
		defer out.Close()
		manager.AddTriggerSink(out)

		watcher := midi.NewWatcher(cfg.MIDI.OutPort, out)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)
		m = m.WithPorts(watcher.Events())
	}

	manager.StartRuntime()
	debug.Log("app", "start bpm=%g bars=%d", cfg.Tempo, cfg.Bars)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
