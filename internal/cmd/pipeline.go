// pipeline.go builds the shared filter pipeline from configuration.

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// buildChain assembles the inbound filter and optional scrubber from viper
// configuration, mirroring the stage order the SDK client uses.
func buildChain() (*faultline.ProcessorChain, error) {
	allow, err := faultline.ParsePatterns(viper.GetStringSlice("allow_urls"))
	if err != nil {
		return nil, fmt.Errorf("allow_urls: %w", err)
	}
	deny, err := faultline.ParsePatterns(viper.GetStringSlice("deny_urls"))
	if err != nil {
		return nil, fmt.Errorf("deny_urls: %w", err)
	}
	ignore, err := faultline.ParsePatterns(viper.GetStringSlice("ignore_errors"))
	if err != nil {
		return nil, fmt.Errorf("ignore_errors: %w", err)
	}
	ignoreInternal := viper.GetBool("ignore_internal")

	instance := faultline.FilterOptions{
		AllowURLs:      allow,
		DenyURLs:       deny,
		IgnoreErrors:   ignore,
		IgnoreInternal: &ignoreInternal,
	}

	chain := &faultline.ProcessorChain{}
	chain.Register(faultline.NewInboundFilter(instance).Processor(faultline.FilterOptions{}))
	if viper.GetBool("scrub") {
		chain.Register(faultline.NewScrubber(faultline.DefaultScrubConfig()).Processor())
	}
	return chain, nil
}

// filterStream decodes NDJSON events from r, runs each through the chain,
// and writes kept events as NDJSON to w. Malformed lines are logged and
// skipped. Returns kept and dropped counts.
func filterStream(r io.Reader, w io.Writer, chain *faultline.ProcessorChain) (kept, dropped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event faultline.Event
		if err := json.Unmarshal(line, &event); err != nil {
			slog.Warn("skipping malformed event", "error", err)
			continue
		}
		processed := chain.Run(&event)
		if processed == nil {
			dropped++
			continue
		}
		if err := enc.Encode(processed); err != nil {
			return kept, dropped, err
		}
		kept++
	}
	return kept, dropped, scanner.Err()
}
