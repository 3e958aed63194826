package bot

import (
	"fmt"
	"strings"

	"taskrelay/internal/domain"
)

func statusEmoji(s domain.TaskStatus) string {
	switch s {
	case domain.StatusCompleted:
		return "✅"
	case domain.StatusFailed:
		return "❌"
	case domain.StatusRunning:
		return "🔄"
	case domain.StatusPending:
		return "⏳"
	case domain.StatusNeedsApproval:
		return "⚠️"
	default:
		return "❓"
	}
}

// renderSubmitResult formats the edited reply for a submitted task. Long
// output is truncated with a pointer to /status; no follow-ups here.
func renderSubmitResult(t domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **Task %s**\n\n**Status:** %s\n**Task ID:** `%s`\n**Session:** `%s`",
		statusEmoji(t.Status), t.Status.Display(), t.Status.Display(), t.TaskID, t.SessionID)

	if t.Output != "" {
		output, cut := truncate(t.Output, submitOutputLimit)
		if cut {
			output = fmt.Sprintf("%s...\n\n>>> (truncated - %d chars total) <<<\nUse `/status task_id:%s` for full output",
				output, len(t.Output), t.TaskID)
		}
		fmt.Fprintf(&b, "\n\n**Output:**\n```\n%s\n```", output)
	}
	if t.Error != nil {
		fmt.Fprintf(&b, "\n\n**Error:**\n```\n%s\n```", *t.Error)
	}
	if a := t.ApprovalRequest; a != nil {
		fmt.Fprintf(&b, "\n\n**Approval Required:**\n%s\n\nUse `/approve task_id:%s option:<option>` to respond.",
			a.Description, t.TaskID)
	}
	return b.String()
}

// renderStatus formats the status view: the primary message plus ordered
// follow-up chunks when the output exceeds the initial limit.
func renderStatus(t domain.Task) (string, []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **Task Status**\n\n**Status:** %s\n**Task ID:** `%s`\n**Session:** `%s`\n**Created:** %s\n**Updated:** %s",
		statusEmoji(t.Status), t.Status.Display(), t.TaskID, t.SessionID, t.CreatedAt, t.UpdatedAt)

	var followups []string
	if t.Output != "" {
		set := splitOutput(t.Output, statusOutputLimit, followupChunkSize)
		if set.Total == 1 {
			fmt.Fprintf(&b, "\n\n**Output:**\n```\n%s\n```", set.First)
		} else {
			fmt.Fprintf(&b, "\n\n**Output (1/%d):**\n```\n%s\n```", set.Total, set.First)
			for i, chunk := range set.Followups {
				followups = append(followups, fmt.Sprintf("**Output (%d/%d):**\n```\n%s\n```", i+2, set.Total, chunk))
			}
		}
	}
	if t.Error != nil {
		fmt.Fprintf(&b, "\n\n**Error:**\n```\n%s\n```", *t.Error)
	}
	if a := t.ApprovalRequest; a != nil {
		lines := make([]string, 0, len(a.Options))
		for _, o := range a.Options {
			lines = append(lines, fmt.Sprintf("- `%s`: %s", o.ID, o.Label))
		}
		fmt.Fprintf(&b, "\n\n**Awaiting Approval:**\n%s\n\nOptions:\n%s", a.Description, strings.Join(lines, "\n"))
	}
	return b.String(), followups
}

// renderApprovalResult formats the edited reply after an approval
// submission. A fresh approval on the snapshot renders as additional,
// never as a continuation of the answered one.
func renderApprovalResult(t domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **Approval Processed**\n\n**Status:** %s\n**Task ID:** `%s`",
		statusEmoji(t.Status), t.Status.Display(), t.TaskID)

	if t.Output != "" {
		output, cut := truncate(t.Output, approveOutputLimit)
		if cut {
			output += "...\n(truncated)"
		}
		fmt.Fprintf(&b, "\n\n**Output:**\n```\n%s\n```", output)
	}
	if t.Error != nil {
		fmt.Fprintf(&b, "\n\n**Error:**\n```\n%s\n```", *t.Error)
	}
	if a := t.ApprovalRequest; a != nil {
		fmt.Fprintf(&b, "\n\n**Additional Approval Required:**\n%s\n\nUse `/approve task_id:%s option:<option>` to respond.",
			a.Description, t.TaskID)
	}
	return b.String()
}
