// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handlers.
//
// Command: config [show|path|init]

package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/sagedesk/sage-tui/internal/config"
)

// HandleConfig routes the config subcommands.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		cfg := LoadConfig(args)
		if args.JSON {
			if err := printJSON(cfg); err != nil {
				Fail(err)
			}
			return
		}
		if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
			Fail(err)
		}

	case "path":
		path, err := config.PathTOML()
		if err != nil {
			Fail(err)
		}
		fmt.Println(path)

	case "init":
		path, err := config.PathTOML()
		if err != nil {
			Fail(err)
		}
		if _, err := os.Stat(path); err == nil {
			Fail(fmt.Errorf("config already exists at %s", path))
		}
		if err := config.Save(config.Default()); err != nil {
			Fail(err)
		}
		fmt.Println("Wrote " + path)

	default:
		Fail(fmt.Errorf("unknown config subcommand: %s", args.Subcommand))
	}
}
