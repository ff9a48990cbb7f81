// replay.go replays recorded event streams through the filter stage.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Replay recorded events through the filter stage",
	Long: `Replay reads NDJSON events from a file (or stdin when omitted), runs each
through the configured inbound filter and scrubber, and writes kept events
as NDJSON to stdout.

Examples:
  faultline replay captures.ndjson --ignore-errors "Script error."
  cat captures.ndjson | faultline replay --deny-urls "glob:**/vendor/**"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	chain, err := buildChain()
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	kept, dropped, err := filterStream(in, os.Stdout, chain)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "replay: %d kept, %d dropped\n", kept, dropped)
	return nil
}
