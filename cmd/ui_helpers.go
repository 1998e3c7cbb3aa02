// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides CLI commands for the cosq Cosmos DB query tool.
// This file contains helper functions shared between the query-running commands.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cosq/cli/internal/auth"
	"cosq/cli/internal/config"
	"cosq/cli/internal/cosmos"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

// spinnerFrames are the animation frames used while a query is in flight.
var spinnerFrames = []string{"|", "/", "-", "\\"}

// startSpinner starts a single-line spinner animation in the terminal.
// It hides the cursor, creates an area for the spinner, and starts a goroutine
// that updates the animation at regular intervals until the returned stop
// function is called. In quiet mode it is a no-op.
func startSpinner(text string) func() {
	if quiet {
		return func() {}
	}
	cursor.Hide()
	area, aerr := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if aerr != nil {
		cursor.Show()
		return func() {}
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			case <-stop:
				return
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
		area.Stop()
		cursor.Show()
	}
}

// loadConfig loads the account config and maps a missing file to a
// friendlier message.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if strings.TrimSpace(cfg.Account.Endpoint) == "" {
		return config.Config{}, fmt.Errorf("no account endpoint configured, run `cosq init`")
	}
	return cfg, nil
}

// newClient builds the Cosmos client from the loaded config and the default
// token chain (environment variable, then OS keychain).
func newClient(cfg config.Config) *cosmos.Client {
	var opts []cosmos.Option
	if cfg.Concurrency > 0 {
		opts = append(opts, cosmos.WithConcurrency(cfg.Concurrency))
	}
	return cosmos.New(cfg.Account.Endpoint, auth.Default{}, opts...)
}

// parseParamFlags splits repeated --param key=value flags into a map.
func parseParamFlags(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", pair)
		}
		params[strings.TrimSpace(key)] = value
	}
	return params, nil
}

// printCharge reports the total request charge on stderr so it never mixes
// with piped result output. Suppressed in quiet mode.
func printCharge(charge float64) {
	if quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "Request charge: %.2f RU\n", charge)
}
