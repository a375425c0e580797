// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// incognito_cmd.go - Incognito housekeeping command handlers.
//
// Command: incognito [status|clear]

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const incognitoTimeout = 30 * time.Second

// HandleIncognito routes the incognito subcommands.
func HandleIncognito(args Args) {
	cfg := LoadConfig(args)
	gw, err := BuildGateway(cfg)
	if err != nil {
		Fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), incognitoTimeout)
	defer cancel()

	switch args.Subcommand {
	case "", "status":
		status, err := gw.GetModeStatus(ctx)
		if err != nil {
			Fail(err)
		}
		if args.JSON {
			if err := printJSON(status); err != nil {
				Fail(err)
			}
			return
		}
		fmt.Printf("Incognito chats on server: %d (of %d total)\n",
			status.IncognitoChatCount, status.TotalChats)
		if status.HasIncognitoChats {
			fmt.Println(infoStyle.Render("run \"sage incognito clear --confirm\" to purge them"))
		}

	case "clear":
		if !hasFlag(args.Raw, "confirm") {
			Fail(errors.New("clearing is permanent: add --confirm to proceed"))
		}
		result, err := gw.ClearIncognito(ctx)
		if err != nil {
			Fail(err)
		}
		fmt.Printf("Cleared %d incognito chat(s).\n", result.ClearedCount)

	default:
		Fail(fmt.Errorf("unknown incognito subcommand: %s", args.Subcommand))
	}
}
