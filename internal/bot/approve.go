package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskrelay/internal/domain"
)

func (h *Handler) handleApprove(ctx context.Context, inv Invocation, r Responder) {
	taskID := inv.option("task_id")
	optionID := inv.option("option")

	var customResponse *string
	if c := inv.option("response"); c != "" {
		customResponse = &c
	}

	h.Log.Info("approve command received",
		zap.String("task_id", taskID),
		zap.String("option", optionID),
		zap.String("user", inv.UserID))

	if err := r.Ack("⏳ Processing approval...", false); err != nil {
		h.Log.Error("failed to send initial response", zap.Error(err))
		return
	}

	sub := domain.ApprovalSubmission{
		OptionID:       optionID,
		CustomResponse: customResponse,
	}

	task, err := h.Client.SubmitApproval(ctx, taskID, inv.UserID, sub)
	if err != nil {
		h.Log.Error("approval submission failed", zap.Error(err))
		if err := r.Edit(fmt.Sprintf("❌ **Approval Failed**\n\n```\n%s\n```", err)); err != nil {
			h.Log.Error("failed to edit error response", zap.Error(err))
		}
		return
	}

	if err := r.Edit(renderApprovalResult(task)); err != nil {
		h.Log.Error("failed to edit response", zap.Error(err))
	}
}
