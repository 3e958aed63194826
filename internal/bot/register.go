package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskrelay/internal/domain"
)

func (h *Handler) handleRegister(ctx context.Context, inv Invocation, r Responder) {
	sub := inv.Sub
	if sub == "" {
		sub = "status"
	}

	h.Log.Info("register command received",
		zap.String("subcommand", sub),
		zap.String("user", inv.UserID))

	switch sub {
	case "local":
		h.registerLocal(ctx, inv, r)
	case "unregister":
		h.registerUnregister(ctx, inv, r)
	case "mode":
		h.registerMode(ctx, inv, r)
	case "status":
		h.registerStatus(ctx, inv, r)
	default:
		h.respond(r, "Unknown subcommand.", true)
	}
}

func (h *Handler) registerLocal(ctx context.Context, inv Invocation, r Responder) {
	url := inv.option("url")
	if url == "" {
		h.respond(r, "❌ URL is required.", true)
		return
	}

	user, err := h.Client.RegisterLocal(ctx, domain.RegisterLocalRequest{
		DiscordID:   inv.UserID,
		DiscordName: inv.UserName,
		WrapperURL:  url,
	})
	if err != nil {
		h.Log.Error("failed to register local wrapper", zap.Error(err))
		h.respond(r, fmt.Sprintf("❌ Failed to register: %s", err), true)
		return
	}

	registeredURL := ""
	if user.LocalWrapperURL != nil {
		registeredURL = *user.LocalWrapperURL
	}
	h.respond(r, fmt.Sprintf(
		"✅ **Local Wrapper Registered**\n\n**URL:** `%s`\n**Default Mode:** %s\n\nNow run the wrapper on your machine:\n```bash\ntaskrelay serve --addr 0.0.0.0:8000\n```\n\nThen use `/task prompt:\"...\" project:my-project` to run tasks!",
		registeredURL, user.DefaultMode), false)
}

func (h *Handler) registerUnregister(ctx context.Context, inv Invocation, r Responder) {
	if err := h.Client.UnregisterLocal(ctx, inv.UserID); err != nil {
		h.Log.Error("failed to unregister", zap.Error(err))
		h.respond(r, fmt.Sprintf("❌ Failed to unregister: %s", err), true)
		return
	}
	h.respond(r, "✅ Local wrapper unregistered.", false)
}

func (h *Handler) registerMode(ctx context.Context, inv Invocation, r Responder) {
	mode := domain.ModeLocal
	if inv.option("default") == string(domain.ModeCluster) {
		mode = domain.ModeCluster
	}

	user, err := h.Client.SetDefaultMode(ctx, inv.UserID, mode)
	if err != nil {
		h.Log.Error("failed to set mode", zap.Error(err))
		h.respond(r, fmt.Sprintf("❌ Failed to set mode: %s\n\nYou may need to register first with `/register local url:<your-url>`", err), true)
		return
	}

	target := "your local machine"
	if user.DefaultMode == domain.ModeCluster {
		target = "the cluster"
	}
	h.respond(r, fmt.Sprintf("✅ Default mode set to **%s**\n\nYour tasks will now run on: %s", user.DefaultMode, target), false)
}

func (h *Handler) registerStatus(ctx context.Context, inv Invocation, r Responder) {
	user, err := h.Client.GetUser(ctx, inv.UserID)
	if err != nil {
		h.respond(r, "**Not Registered**\n\nYou haven't registered yet.\n\nTo use your local machine:\n`/register local url:http://your-ip:8000`\n\nTo use the cluster (if enabled by admin):\nContact an admin to enable cluster access.", true)
		return
	}

	localStatus := "❌ Not registered"
	if user.LocalWrapperURL != nil {
		localStatus = fmt.Sprintf("✅ Registered: `%s`", *user.LocalWrapperURL)
	}

	clusterStatus := "❌ Not enabled"
	if user.ClusterEnabled {
		storage := ""
		if user.ClusterStoragePath != nil {
			storage = *user.ClusterStoragePath
		}
		clusterStatus = fmt.Sprintf("✅ Enabled (storage: `%s`)", storage)
	}

	h.respond(r, fmt.Sprintf(
		"**Your Registration Status**\n\n**Discord ID:** `%s`\n**Local Wrapper:** %s\n**Cluster Access:** %s\n**Default Mode:** `%s`\n**Last Seen:** %s",
		user.DiscordID, localStatus, clusterStatus, user.DefaultMode, user.LastSeen), true)
}
