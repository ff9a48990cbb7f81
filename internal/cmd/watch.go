// watch.go tails a growing capture file and filters appended events live.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Tail a capture file and filter appended events live",
	Long: `Watch tails an NDJSON capture file using OS-level file notifications and
runs every appended event through the configured filter stage, printing kept
events to stdout as they arrive.

Example:
  faultline watch /var/log/app/captures.ndjson --ignore-errors "re:^context canceled"`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	chain, err := buildChain()
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "faultline: shutting down")
		cancel()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	// Filter whatever the file already holds, then follow appends.
	if _, _, err := filterStream(f, os.Stdout, chain); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			// The file offset persists across reads, so each pass picks up
			// where the previous one stopped.
			if _, _, err := filterStream(f, os.Stdout, chain); err != nil {
				return err
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "faultline: watch error: %v\n", err)
		}
	}
}
