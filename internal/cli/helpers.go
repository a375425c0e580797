// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared dependency assembly for CLI command handlers.

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/sagedesk/sage-tui/internal/auth"
	"github.com/sagedesk/sage-tui/internal/chat"
	"github.com/sagedesk/sage-tui/internal/config"
	"github.com/sagedesk/sage-tui/internal/gateway"
)

// LoadConfig loads the configuration, applying the command line's
// overrides. A broken config file degrades to defaults with a warning
// rather than an abort, so a bad edit never locks the user out.
func LoadConfig(args Args) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	if args.BaseURL != "" {
		cfg.Server.BaseURL = args.BaseURL
	}
	if args.DataSource != "" {
		cfg.Chat.DefaultDataSource = args.DataSource
	}
	return cfg
}

// OpenTokenStore opens the credential store in its default location.
func OpenTokenStore() (*auth.Store, error) {
	dir, err := auth.DefaultDir()
	if err != nil {
		return nil, err
	}
	return auth.NewStore(dir), nil
}

// BuildGateway assembles the API client from config and the stored
// credentials.
func BuildGateway(cfg *config.Config) (*gateway.Client, error) {
	tokens, err := OpenTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	client := gateway.NewClient(cfg.Server.BaseURL, tokens).
		WithTimeout(time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second).
		WithRateLimit(cfg.Server.RequestsPerSecond)
	return client, nil
}

// CoreConfig maps the file configuration onto the state core's knobs.
func CoreConfig(cfg *config.Config) chat.Config {
	core := chat.DefaultConfig()
	core.PageSize = cfg.Chat.PageSize
	core.GracePeriod = time.Duration(cfg.Chat.GracePeriodSecs) * time.Second
	core.HistoryLimit = cfg.Chat.HistoryLimit
	core.ContextMessages = cfg.Chat.ContextMessages
	core.Temperature = cfg.Chat.Temperature
	core.DefaultDataSource = cfg.Chat.DefaultDataSource
	return core
}

// Fail prints an error and exits non-zero.
func Fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
	os.Exit(1)
}
