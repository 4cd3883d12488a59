package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/WaClaw/WaClaw/internal/bus"
	"github.com/WaClaw/WaClaw/internal/journal"
)

// Recorder is the journal subset the router writes to.
type Recorder interface {
	Record(*journal.Entry) error
}

// Publisher queues outbound replies. The event bus implements this.
type Publisher interface {
	PublishOutbound(msg *bus.OutboundMessage)
}

// Router parses inbound text and dispatches commands. It implements the
// session manager's MessageHandler.
type Router struct {
	Prefix    string
	Channel   string
	Registry  *Registry
	Evaluator *Evaluator
	Bus       Publisher
	Journal   Recorder // optional
	// UnknownReply selects between answering unknown commands and ignoring
	// them silently. Both are valid deployments.
	UnknownReply bool
}

// Handle routes one inbound message. Messages without the prefix are
// ignored; everything else resolves to exactly one handler invocation, a
// denial reply, or an unknown-command outcome.
func (r *Router) Handle(ctx context.Context, msg *bus.MessageEvent) {
	if msg.IsFromMe {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if r.Prefix == "" || !strings.HasPrefix(text, r.Prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(text, r.Prefix))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	cmd, ok := r.Registry.Lookup(name)
	if !ok {
		r.record(journal.KindCommand, fmt.Sprintf("unknown command %q", name), msg.TraceID)
		if r.UnknownReply {
			r.reply(msg, fmt.Sprintf("Unknown command %q. Send %smenu for the list.", name, r.Prefix))
		}
		return
	}

	cc := &Context{
		SenderID: msg.SenderID,
		ChatID:   msg.ChatID,
		TraceID:  msg.TraceID,
		IsGroup:  msg.IsGroup,
		Args:     args,
		Mentions: msg.Mentions,
		reply:    func(text string) { r.reply(msg, text) },
	}

	// Roster lookups are remote; only pay for them when the command needs
	// group-scoped authorization.
	needRoster := cmd.NeedsBotAdmin || cmd.Auth == AuthAdminOrOwner
	perms, err := r.Evaluator.Evaluate(ctx, msg.SenderID, msg.ChatID, msg.IsGroup, needRoster)
	if err != nil {
		slog.Warn("permission evaluation failed", "command", name, "error", err)
		r.record(journal.KindDenial, fmt.Sprintf("%s: roster fetch failed", name), msg.TraceID)
		cc.Reply("Sorry, I couldn't check group admins right now. Try again in a moment.")
		return
	}
	cc.IsSenderOwner = perms.IsSenderOwner
	cc.IsSenderAdmin = perms.IsSenderAdmin
	cc.IsBotAdmin = perms.IsBotAdmin

	if denial := r.authorize(cmd, cc); denial != "" {
		r.record(journal.KindDenial, fmt.Sprintf("%s by %s: %s", name, msg.SenderID, denial), msg.TraceID)
		cc.Reply(denial)
		return
	}

	r.record(journal.KindCommand, fmt.Sprintf("%s by %s", name, msg.SenderID), msg.TraceID)
	if err := cmd.Handler(ctx, cc); err != nil {
		slog.Warn("command failed", "command", name, "error", err)
		cc.Reply(fmt.Sprintf("❌ %s failed: %v", name, err))
	}
}

// authorize returns a denial message, or "" when the command may run.
func (r *Router) authorize(cmd *Command, cc *Context) string {
	switch cmd.Auth {
	case AuthOwner:
		if !cc.IsSenderOwner {
			return "⛔ Only my owner can use this command."
		}
	case AuthAdminOrOwner:
		if !cc.IsSenderAdmin && !cc.IsSenderOwner {
			return "⛔ You need to be a group admin to use this command."
		}
	}
	if cmd.NeedsBotAdmin {
		if !cc.IsGroup {
			return "This command only works in group chats."
		}
		if !cc.IsBotAdmin {
			return "⚠️ I need admin rights in this group to do that."
		}
	}
	return ""
}

func (r *Router) reply(msg *bus.MessageEvent, text string) {
	r.Bus.PublishOutbound(&bus.OutboundMessage{
		Channel: r.Channel,
		ChatID:  msg.ChatID,
		TraceID: msg.TraceID,
		Content: text,
	})
}

func (r *Router) record(kind, detail, traceID string) {
	if r.Journal == nil {
		return
	}
	if err := r.Journal.Record(&journal.Entry{Kind: kind, Detail: detail, TraceID: traceID}); err != nil {
		slog.Warn("journal write failed", "error", err)
	}
}
