package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go-pianoroll/midi"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := midi.OutPorts()
		if errors.Is(err, midi.ErrPortTimeout) {
			fmt.Fprintln(cmd.ErrOrStderr(), "CoreMIDI is hung. Fix: sudo killall coreaudiod midiserver")
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== MIDI Output Ports ===")
		if len(names) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for i, name := range names {
			fmt.Fprintf(out, "  %d: %s\n", i, name)
		}
		return nil
	},
}
