// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/sagedesk/sage-tui/internal/model"
	"github.com/sagedesk/sage-tui/internal/ui/styles"
	"github.com/sagedesk/sage-tui/internal/util"
)

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// renderConversation produces the viewport content for the message log.
func renderConversation(msgs []*model.Message, width int, md *glamour.TermRenderer, th *styles.Theme) string {
	if len(msgs) == 0 {
		return th.SessionMeta.Render("No messages yet. Type below to start the conversation.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderMessage(msg, width, md, th))
	}
	return b.String()
}

// renderMessage renders a single message with its role label. Assistant
// replies go through the markdown renderer when one is available.
func renderMessage(msg *model.Message, width int, md *glamour.TermRenderer, th *styles.Theme) string {
	var b strings.Builder

	label := msg.Role.DisplayName()
	switch msg.Role {
	case model.RoleAssistant:
		b.WriteString(th.AssistantLabel.Render(label))
	case model.RoleSystem:
		b.WriteString(th.SystemLabel.Render(label))
	default:
		b.WriteString(th.UserLabel.Render(label))
	}
	if msg.Pending {
		b.WriteString(" " + th.PendingMarker.Render("(sending...)"))
	}
	b.WriteString("\n")

	body := msg.Content
	if msg.Role == model.RoleAssistant && md != nil {
		if rendered, err := md.Render(body); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	b.WriteString(th.MessageBody.Render(body))

	if refs := formatSources(msg.Sources); refs != "" {
		b.WriteString("\n" + th.SourceRef.Render(refs))
	}
	b.WriteString("\n")
	return b.String()
}

// formatSources condenses retrieval citations into one line. Sources
// are opaque maps; only well-known title keys are surfaced, the rest
// collapse into a count.
func formatSources(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var titles []string
	for _, src := range sources {
		for _, key := range []string{"title", "name", "document"} {
			if v, ok := src[key].(string); ok && v != "" {
				titles = append(titles, v)
				break
			}
		}
	}

	if len(titles) == 0 {
		return fmt.Sprintf("sources: %d", len(sources))
	}
	if len(titles) < len(sources) {
		return fmt.Sprintf("sources: %s (+%d)", strings.Join(titles, ", "), len(sources)-len(titles))
	}
	return "sources: " + strings.Join(titles, ", ")
}

// =============================================================================
// SIDEBAR RENDERING
// =============================================================================

// sessionLine renders one sidebar row: pin marker, truncated title and
// a relative timestamp right-aligned into the remaining width.
func sessionLine(sess *model.Session, selected bool, width int, th *styles.Theme) string {
	if width < 8 {
		width = 8
	}

	marker := "  "
	if sess.IsPinned {
		marker = th.SessionPinned.Render("* ")
	}

	stamp := relativeTime(sess.UpdatedAt, time.Now())
	titleWidth := width - 2 - len(stamp) - 1
	title := util.TruncateWidth(sess.DisplayTitle(), titleWidth)
	title = util.PadWidth(title, titleWidth)

	line := title + " " + stamp
	switch {
	case selected:
		return marker + th.SessionSelected.Render(line)
	case sess.IsIncognito:
		return marker + th.SessionIncognito.Render(line)
	default:
		return marker + th.SessionItem.Render(line)
	}
}

// relativeTime formats an age for the sidebar: sub-minute as "now",
// then minutes, hours and days, falling back to a short date.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return util.IntToString(int(age.Minutes())) + "m"
	case age < 24*time.Hour:
		return util.IntToString(int(age.Hours())) + "h"
	case age < 7*24*time.Hour:
		return util.IntToString(int(age.Hours()/24)) + "d"
	default:
		return t.Format("Jan 2")
	}
}
