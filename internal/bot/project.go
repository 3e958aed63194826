package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskrelay/internal/domain"
)

func (h *Handler) handleProject(ctx context.Context, inv Invocation, r Responder) {
	sub := inv.Sub
	if sub == "" {
		sub = "list"
	}

	h.Log.Info("project command received",
		zap.String("subcommand", sub),
		zap.String("user", inv.UserID))

	switch sub {
	case "list":
		h.projectList(ctx, inv, r)
	case "add":
		h.projectAdd(ctx, inv, r)
	case "remove":
		h.projectRemove(ctx, inv, r)
	default:
		if err := r.Ack("Unknown subcommand. Use `/project list`, `/project add`, or `/project remove`.", true); err != nil {
			h.Log.Error("failed to send response", zap.Error(err))
		}
	}
}

func (h *Handler) projectList(ctx context.Context, inv Invocation, r Responder) {
	projects, err := h.Client.ListProjects(ctx, inv.UserID)
	if err != nil {
		h.Log.Error("failed to list projects", zap.Error(err))
		h.respond(r, fmt.Sprintf("❌ Failed to list projects: %s", err), true)
		return
	}

	var content string
	if len(projects) == 0 {
		content = "**Your Projects:**\n\nNo projects registered.\n\nUse `/project add name:<name> path:<path>` to add one."
	} else {
		lines := []string{"**Your Projects:**\n"}
		for _, p := range projects {
			desc := ""
			if p.Description != "" {
				desc = fmt.Sprintf(" - %s", p.Description)
			}
			lines = append(lines, fmt.Sprintf("`%s` → `%s`%s", p.Name, p.Path, desc))
		}
		content = strings.Join(lines, "\n")
	}
	h.respond(r, content, false)
}

func (h *Handler) projectAdd(ctx context.Context, inv Invocation, r Responder) {
	name := inv.option("name")
	path := inv.option("path")

	if name == "" || path == "" {
		h.respond(r, "❌ Both `name` and `path` are required.", true)
		return
	}

	var description *string
	if d := inv.option("description"); d != "" {
		description = &d
	}

	project, err := h.Client.CreateProject(ctx, domain.ProjectRequest{
		Name:        name,
		Path:        path,
		Description: description,
		UserID:      inv.UserID,
	})
	if err != nil {
		h.Log.Error("failed to add project", zap.Error(err))
		h.respond(r, fmt.Sprintf("❌ Failed to add project: %s", err), true)
		return
	}

	h.respond(r, fmt.Sprintf(
		"✅ **Project Added**\n\n**Name:** `%s`\n**Path:** `%s`\n\nUse `/task prompt:\"...\" project:%s` to work on this project.",
		project.Name, project.Path, project.Name), false)
}

func (h *Handler) projectRemove(ctx context.Context, inv Invocation, r Responder) {
	name := inv.option("name")
	if name == "" {
		h.respond(r, "❌ Project `name` is required.", true)
		return
	}

	if err := h.Client.DeleteProject(ctx, inv.UserID, name); err != nil {
		h.Log.Error("failed to remove project", zap.Error(err))
		h.respond(r, fmt.Sprintf("❌ Failed to remove project: %s", err), true)
		return
	}

	h.respond(r, fmt.Sprintf("✅ Project `%s` has been removed.", name), false)
}

func (h *Handler) respond(r Responder, content string, ephemeral bool) {
	if err := r.Ack(content, ephemeral); err != nil {
		h.Log.Error("failed to send response", zap.Error(err))
	}
}
