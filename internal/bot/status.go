package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func (h *Handler) handleStatus(ctx context.Context, inv Invocation, r Responder) {
	taskID := inv.option("task_id")

	h.Log.Info("status command received",
		zap.String("task_id", taskID),
		zap.String("user", inv.UserID))

	task, err := h.Client.GetTask(ctx, taskID, inv.UserID)
	if err != nil {
		h.Log.Error("failed to get task status", zap.Error(err))
		if err := r.Ack(fmt.Sprintf("❌ **Failed to get task status**\n\n```\n%s\n```", err), true); err != nil {
			h.Log.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	content, followups := renderStatus(task)
	if err := r.Ack(content, false); err != nil {
		h.Log.Error("failed to send status response", zap.Error(err))
		return
	}

	// Follow-ups are best effort: a failed chunk is logged and skipped,
	// later chunks are still sent.
	for _, chunk := range followups {
		if err := r.Followup(chunk); err != nil {
			h.Log.Error("failed to send follow-up chunk", zap.Error(err))
		}
	}
}
