package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskrelay/internal/domain"
)

func (h *Handler) handleTask(ctx context.Context, inv Invocation, r Responder) {
	prompt := inv.option("prompt")

	var project, sessionID *string
	if p := inv.option("project"); p != "" {
		project = &p
	}
	if s := inv.option("session"); s != "" {
		sessionID = &s
	}

	var targetUserID *string
	if target, ok := inv.user("target"); ok {
		targetUserID = &target.ID
	}

	var mode *domain.ExecutionMode
	if m := inv.option("mode"); m != "" {
		resolved := domain.ModeLocal
		if m == string(domain.ModeCluster) {
			resolved = domain.ModeCluster
		}
		mode = &resolved
	}

	h.Log.Info("task command received",
		zap.String("user", inv.UserID),
		zap.String("prompt", prompt),
		zap.Stringp("project", project),
		zap.Stringp("target", targetUserID))

	var projectInfo, targetInfo, modeInfo string
	if project != nil {
		projectInfo = fmt.Sprintf(" on `%s`", *project)
	}
	if targetUserID != nil {
		targetInfo = fmt.Sprintf(" via <@%s>", *targetUserID)
	}
	if mode != nil {
		modeInfo = fmt.Sprintf(" (%s)", *mode)
	}

	ack := fmt.Sprintf("Processing your task%s%s%s...", projectInfo, targetInfo, modeInfo)
	if err := r.Ack(ack, false); err != nil {
		h.Log.Error("failed to send initial response", zap.Error(err))
		return
	}

	userID := inv.UserID
	req := domain.TaskRequest{
		Prompt:       prompt,
		SessionID:    sessionID,
		Project:      project,
		UserID:       &userID,
		TargetUserID: targetUserID,
		Mode:         mode,
	}

	resp, err := h.Client.SubmitTask(ctx, req)
	if err != nil {
		h.Log.Error("task submission failed", zap.Error(err))
		msg := err.Error()
		hint := ""
		if strings.Contains(msg, "not found") || strings.Contains(msg, "not registered") {
			hint = "\n\n**Hint:** You may need to register first with `/register local url:<your-wrapper-url>`"
		}
		if err := r.Edit(fmt.Sprintf("❌ **Task Failed**\n\n```\n%s\n```%s", msg, hint)); err != nil {
			h.Log.Error("failed to edit error response", zap.Error(err))
		}
		return
	}

	if err := r.Edit(renderSubmitResult(resp)); err != nil {
		h.Log.Error("failed to edit response", zap.Error(err))
	}
}
