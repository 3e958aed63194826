package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

func (h *Handler) handleShare(ctx context.Context, inv Invocation, r Responder) {
	sub := inv.Sub
	if sub == "" {
		sub = "list"
	}

	h.Log.Info("share command received",
		zap.String("subcommand", sub),
		zap.String("user", inv.UserID))

	switch sub {
	case "add":
		h.shareAdd(ctx, inv, r)
	case "remove":
		h.shareRemove(ctx, inv, r)
	case "list":
		h.shareList(ctx, inv, r)
	case "available":
		h.shareAvailable(ctx, inv, r)
	default:
		h.respond(r, "Unknown subcommand. Use `/share add`, `/share remove`, `/share list`, or `/share available`.", true)
	}
}

func (h *Handler) shareAdd(ctx context.Context, inv Invocation, r Responder) {
	target, ok := inv.user("user")
	if !ok {
		h.respond(r, "Please specify a user to share with.", true)
		return
	}

	// Self-share is always redundant; reject without a backend call.
	if target.ID == inv.UserID {
		h.respond(r, "You already have access to your own wrapper!", true)
		return
	}

	result, err := h.Client.ShareWrapper(ctx, inv.UserID, target.ID)
	if err != nil {
		h.Log.Error("failed to share wrapper", zap.Error(err))
		h.respond(r, fmt.Sprintf("Failed to share wrapper: %s", err), true)
		return
	}

	targetName := target.Name
	if targetName == "" {
		targetName = target.ID
	}
	h.respond(r, fmt.Sprintf(
		"**Wrapper Shared**\n\n<@%s> (`%s`) now has access to your wrapper.\n\nThey can use it with:\n`/task prompt:\"...\" target:@%s`\n\n**Currently shared with:** %d user(s)",
		target.ID, targetName, inv.UserName, len(result.SharedWith)), false)
}

func (h *Handler) shareRemove(ctx context.Context, inv Invocation, r Responder) {
	target, ok := inv.user("user")
	if !ok {
		h.respond(r, "Please specify a user to remove.", true)
		return
	}

	result, err := h.Client.UnshareWrapper(ctx, inv.UserID, target.ID)
	if err != nil {
		h.Log.Error("failed to unshare wrapper", zap.Error(err))
		h.respond(r, fmt.Sprintf("Failed to remove access: %s", err), true)
		return
	}

	targetName := target.Name
	if targetName == "" {
		targetName = target.ID
	}
	h.respond(r, fmt.Sprintf(
		"**Access Removed**\n\n<@%s> (`%s`) no longer has access to your wrapper.\n\n**Currently shared with:** %d user(s)",
		target.ID, targetName, len(result.SharedWith)), false)
}

func (h *Handler) shareList(ctx context.Context, inv Invocation, r Responder) {
	result, err := h.Client.ListShares(ctx, inv.UserID)
	if err != nil {
		h.Log.Error("failed to list shared users", zap.Error(err))
		h.respond(r, fmt.Sprintf("Failed to list shared users: %s", err), true)
		return
	}

	var content string
	if len(result.SharedWith) == 0 {
		content = "**Your Wrapper Sharing**\n\nYou haven't shared your wrapper with anyone.\n\nUse `/share add user:@someone` to grant access."
	} else {
		lines := make([]string, 0, len(result.SharedWith))
		for _, id := range result.SharedWith {
			lines = append(lines, fmt.Sprintf("- <@%s>", id))
		}
		content = fmt.Sprintf("**Your Wrapper Sharing**\n\nYour wrapper is shared with %d user(s):\n%s",
			len(result.SharedWith), strings.Join(lines, "\n"))
	}
	h.respond(r, content, false)
}

func (h *Handler) shareAvailable(ctx context.Context, inv Invocation, r Responder) {
	result, err := h.Client.AccessibleWrappers(ctx, inv.UserID)
	if err != nil {
		h.Log.Error("failed to list accessible wrappers", zap.Error(err))
		h.respond(r, fmt.Sprintf("Failed to list accessible wrappers: %s", err), true)
		return
	}

	var content string
	if len(result.Wrappers) == 0 {
		content = "**Available Wrappers**\n\nNo wrappers available.\n\nUse `/register local` to set up your own wrapper."
	} else {
		lines := []string{"**Available Wrappers**\n"}
		for _, w := range result.Wrappers {
			if w.IsOwn {
				lines = append(lines, fmt.Sprintf("- **Your wrapper** (<@%s>)", w.OwnerID))
			} else {
				name := w.OwnerName
				if name == "" {
					name = w.OwnerID
				}
				lines = append(lines, fmt.Sprintf("- <@%s> (`%s`)", w.OwnerID, name))
			}
		}
		lines = append(lines, "\nTo use someone else's wrapper:", "`/task prompt:\"...\" target:@username`")
		content = strings.Join(lines, "\n")
	}
	h.respond(r, content, false)
}
