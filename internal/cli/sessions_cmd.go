// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Session management command handlers.
//
// Command: sessions [list|show|delete|search]

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sagedesk/sage-tui/internal/gateway"
	"github.com/sagedesk/sage-tui/internal/model"
	"github.com/sagedesk/sage-tui/internal/util"
)

const sessionsTimeout = 30 * time.Second

// HandleSessions routes the sessions subcommands.
func HandleSessions(args Args) {
	cfg := LoadConfig(args)
	gw, err := BuildGateway(cfg)
	if err != nil {
		Fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionsTimeout)
	defer cancel()

	switch args.Subcommand {
	case "", "list", "ls", "l":
		err = listSessions(ctx, gw, cfg.Chat.PageSize, args)
	case "show":
		err = showSession(ctx, gw, cfg.Chat.HistoryLimit, args)
	case "delete", "rm":
		err = deleteSession(ctx, gw, args)
	case "search":
		err = searchSessions(ctx, gw, cfg.Chat.SearchLimit, args)
	default:
		err = fmt.Errorf("unknown sessions subcommand: %s", args.Subcommand)
	}
	if err != nil {
		Fail(err)
	}
}

func listSessions(ctx context.Context, gw *gateway.Client, pageSize int, args Args) error {
	page := 1
	if v := flagValue(args.Raw, "page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return fmt.Errorf("invalid page: %s", v)
		}
		page = p
	}

	list, err := gw.ListSessions(ctx, page, pageSize)
	if err != nil {
		return err
	}

	if args.JSON {
		return printJSON(list)
	}

	if len(list.Chats) == 0 {
		fmt.Println(infoStyle.Render("No sessions."))
		return nil
	}

	printSessionTable(list.Chats)
	fmt.Println(infoStyle.Render(fmt.Sprintf(
		"page %d of %d sessions total", list.Page, list.Total)))
	return nil
}

func showSession(ctx context.Context, gw *gateway.Client, limit int, args Args) error {
	id, err := parseSessionID(args.Raw)
	if err != nil {
		return err
	}

	detail, err := gw.GetSession(ctx, id, limit, 0)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return fmt.Errorf("session %d not found", id)
		}
		return err
	}

	if args.JSON {
		return printJSON(detail)
	}

	if detail.Chat != nil {
		fmt.Println(promptStyle.Render(detail.Chat.DisplayTitle()))
		fmt.Println()
	}
	for _, wire := range detail.Messages {
		msg := wire.ToMessage(id)
		label := msg.Role.DisplayName() + ": "
		if msg.Role == model.RoleAssistant {
			fmt.Println(assistantStyle.Render(label) + msg.Content)
		} else {
			fmt.Println(label + msg.Content)
		}
		fmt.Println()
	}
	if detail.HasMore {
		fmt.Println(infoStyle.Render(fmt.Sprintf(
			"showing %d of %d messages", len(detail.Messages), detail.TotalMessages)))
	}
	return nil
}

// deleteSession removes a session immediately. The interactive grace
// period only exists in the TUI and REPL; a scripted delete is final,
// hence the required --confirm flag.
func deleteSession(ctx context.Context, gw *gateway.Client, args Args) error {
	id, err := parseSessionID(args.Raw)
	if err != nil {
		return err
	}
	if !hasFlag(args.Raw, "confirm") {
		return errors.New("deletion is permanent: add --confirm to proceed")
	}

	if err := gw.DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Println("Deleted session " + util.Int64ToString(id))
	return nil
}

func searchSessions(ctx context.Context, gw *gateway.Client, limit int, args Args) error {
	query := ""
	if pos := positionalOf(args.Raw); len(pos) > 0 {
		query = pos[0]
	}
	if query == "" {
		return errors.New("usage: sage sessions search <text>")
	}

	resp, err := gw.SearchSessions(ctx, query, limit)
	if err != nil {
		return err
	}

	if args.JSON {
		return printJSON(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println(infoStyle.Render("No matches."))
		return nil
	}
	printSessionTable(resp.Results)
	return nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// printSessionTable renders sessions as fixed-width columns sized to
// the terminal.
func printSessionTable(sessions []*model.Session) {
	width := TerminalWidth()
	titleWidth := width - 30
	if titleWidth < 20 {
		titleWidth = 20
	}

	for _, sess := range sessions {
		marker := " "
		if sess.IsPinned {
			marker = "*"
		}
		title := util.PadWidth(util.TruncateWidth(sess.DisplayTitle(), titleWidth), titleWidth)
		line := fmt.Sprintf("%s %6d  %s  %s",
			marker, sess.ID, title, sess.UpdatedAt.Format("2006-01-02 15:04"))
		fmt.Println(line)
	}
}

func parseSessionID(raw []string) (int64, error) {
	pos := positionalOf(raw)
	if len(pos) == 0 {
		return 0, errors.New("missing session id")
	}
	id, err := strconv.ParseInt(pos[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id: %s", pos[0])
	}
	return id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
