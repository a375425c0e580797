// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Login and logout command handlers.
//
// SECURITY: Tokens are read without echo and stored encrypted at rest.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/sagedesk/sage-tui/internal/gateway"
)

// HandleLogin prompts for an API token, verifies it against the backend
// and stores it encrypted.
func HandleLogin(args Args) {
	store, err := OpenTokenStore()
	if err != nil {
		Fail(err)
	}

	if store.Exists() && !hasFlag(args.Raw, "force") {
		fmt.Println("A token is already stored. Use --force to replace it.")
		return
	}

	token, err := readToken()
	if err != nil {
		Fail(err)
	}

	// Verify before persisting so a typo is caught immediately.
	cfg := LoadConfig(args)
	client := gateway.NewClient(cfg.Server.BaseURL, gateway.StaticToken(token)).
		WithTimeout(15 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if _, err := client.GetModeStatus(ctx); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			Fail(errors.New("the backend rejected that token"))
		}
		fmt.Fprintf(os.Stderr, "Warning: could not verify token (%v); storing anyway\n", err)
	}

	if err := store.Save(token); err != nil {
		Fail(err)
	}
	fmt.Println("Token stored.")
}

// HandleLogout removes the stored token.
func HandleLogout(args Args) {
	store, err := OpenTokenStore()
	if err != nil {
		Fail(err)
	}
	if err := store.Clear(); err != nil {
		Fail(err)
	}
	fmt.Println("Logged out.")
}

// readToken reads the token without echoing it. Non-TTY stdin falls
// back to a plain line read so piping from a secret manager works.
func readToken() (string, error) {
	if !IsTTY() {
		var token string
		if _, err := fmt.Scanln(&token); err != nil {
			return "", errors.New("failed to read token from stdin")
		}
		return strings.TrimSpace(token), nil
	}

	fmt.Print("API token: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}
