package bot

import (
	"context"

	"go.uber.org/zap"

	relaysdk "taskrelay/sdk/go"
)

// ResolvedUser is a user-typed option resolved by the platform.
type ResolvedUser struct {
	ID   string
	Name string
}

// Invocation is one structured command invocation. UserID and UserName
// come from the authenticated interaction context and are the only
// trusted identity fields; user-typed options are requests, not identity.
type Invocation struct {
	Command  string
	Sub      string
	UserID   string
	UserName string
	Options  map[string]string
	Users    map[string]ResolvedUser
}

func (inv Invocation) option(name string) string {
	return inv.Options[name]
}

func (inv Invocation) user(name string) (ResolvedUser, bool) {
	u, ok := inv.Users[name]
	return u, ok
}

// Handler routes invocations to command handlers.
type Handler struct {
	Client *relaysdk.Client
	Log    *zap.Logger
}

// Dispatch maps an invocation to exactly one handler.
func (h *Handler) Dispatch(ctx context.Context, inv Invocation, r Responder) {
	switch inv.Command {
	case "task":
		h.handleTask(ctx, inv, r)
	case "status":
		h.handleStatus(ctx, inv, r)
	case "approve":
		h.handleApprove(ctx, inv, r)
	case "project":
		h.handleProject(ctx, inv, r)
	case "register":
		h.handleRegister(ctx, inv, r)
	case "share":
		h.handleShare(ctx, inv, r)
	default:
		h.Log.Warn("unknown command", zap.String("command", inv.Command))
	}
}
