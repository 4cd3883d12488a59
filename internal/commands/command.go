// Package commands parses inbound chat text against the configured prefix
// and dispatches to registered handlers with owner/admin permission gating.
package commands

import "context"

// AuthLevel is the authorization a command requires from the sender.
type AuthLevel int

const (
	// AuthNone: anyone may run the command.
	AuthNone AuthLevel = iota
	// AuthOwner: only the configured owner.
	AuthOwner
	// AuthAdminOrOwner: a group admin or the owner.
	AuthAdminOrOwner
)

// Context carries everything a handler may consult about one inbound
// command. It is constructed per message and discarded after dispatch.
type Context struct {
	SenderID      string
	ChatID        string
	TraceID       string
	IsGroup       bool
	IsSenderOwner bool
	IsSenderAdmin bool
	IsBotAdmin    bool
	Args          []string
	Mentions      []string

	reply func(text string)
}

// Reply sends a text response back to the chat the command came from.
func (c *Context) Reply(text string) {
	if c.reply != nil {
		c.reply(text)
	}
}

// HandlerFunc executes a command.
type HandlerFunc func(ctx context.Context, cc *Context) error

// Command is one registered command.
type Command struct {
	Name        string
	Description string
	Auth        AuthLevel
	// NeedsBotAdmin marks commands that mutate group membership: they are
	// group-only and refuse to run when the bot itself is not an admin.
	NeedsBotAdmin bool
	Handler       HandlerFunc
}
