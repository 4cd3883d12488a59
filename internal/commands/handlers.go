package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WaClaw/WaClaw/internal/conn"
)

const userSuffix = "@s.whatsapp.net"

// Deps are the capabilities the built-in handlers call back into.
type Deps struct {
	Provider  conn.Provider
	Prefix    string
	StartedAt time.Time
}

// Setup registers the built-in command set.
func Setup(reg *Registry, d Deps) {
	reg.Register(&Command{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Auth:        AuthNone,
		Handler: func(ctx context.Context, cc *Context) error {
			cc.Reply("✅ The bot is working!")
			return nil
		},
	})

	menuHandler := func(ctx context.Context, cc *Context) error {
		var b strings.Builder
		b.WriteString("🤖 Commands:\n")
		for _, cmd := range reg.List() {
			if cmd.Name == "help" {
				continue
			}
			fmt.Fprintf(&b, "%s%s - %s\n", d.Prefix, cmd.Name, cmd.Description)
		}
		cc.Reply(strings.TrimRight(b.String(), "\n"))
		return nil
	}

	reg.Register(&Command{
		Name:        "menu",
		Description: "List available commands",
		Auth:        AuthNone,
		Handler:     menuHandler,
	})

	reg.Register(&Command{
		Name:        "help",
		Description: "List available commands",
		Auth:        AuthNone,
		Handler:     menuHandler,
	})

	reg.Register(&Command{
		Name:        "status",
		Description: "Show bot status (owner only)",
		Auth:        AuthOwner,
		Handler: func(ctx context.Context, cc *Context) error {
			cc.Reply(fmt.Sprintf("✅ Online as %s, up %s.",
				d.Provider.Identity(), time.Since(d.StartedAt).Truncate(time.Second)))
			return nil
		},
	})

	reg.Register(&Command{
		Name:          "kick",
		Description:   "Remove a participant from the group",
		Auth:          AuthAdminOrOwner,
		NeedsBotAdmin: true,
		Handler:       mutationHandler(d, conn.ParticipantRemove, "Removed"),
	})

	reg.Register(&Command{
		Name:          "add",
		Description:   "Add a number to the group (owner only)",
		Auth:          AuthOwner,
		NeedsBotAdmin: true,
		Handler:       mutationHandler(d, conn.ParticipantAdd, "Added"),
	})

	reg.Register(&Command{
		Name:          "promote",
		Description:   "Make a participant a group admin",
		Auth:          AuthAdminOrOwner,
		NeedsBotAdmin: true,
		Handler:       mutationHandler(d, conn.ParticipantPromote, "Promoted"),
	})

	reg.Register(&Command{
		Name:          "demote",
		Description:   "Remove a participant's admin rights",
		Auth:          AuthAdminOrOwner,
		NeedsBotAdmin: true,
		Handler:       mutationHandler(d, conn.ParticipantDemote, "Demoted"),
	})
}

// mutationHandler builds a group membership handler for one action.
func mutationHandler(d Deps, action conn.ParticipantAction, done string) HandlerFunc {
	return func(ctx context.Context, cc *Context) error {
		target, err := targetJID(cc)
		if err != nil {
			return err
		}
		if err := d.Provider.UpdateParticipant(ctx, cc.ChatID, target, action); err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		cc.Reply(fmt.Sprintf("✅ %s %s.", done, displayID(target)))
		return nil
	}
}

// targetJID resolves the participant a mutation targets: the first mention
// when present, otherwise the first argument as a phone number.
func targetJID(cc *Context) (string, error) {
	if len(cc.Mentions) > 0 {
		return cc.Mentions[0], nil
	}
	if len(cc.Args) == 0 {
		return "", errors.New("mention a user or give a phone number")
	}
	arg := strings.TrimPrefix(cc.Args[0], "@")
	core := numericCore(arg)
	if core == "" {
		return "", fmt.Errorf("%q is not a phone number", cc.Args[0])
	}
	return core + userSuffix, nil
}

func displayID(jid string) string {
	return "@" + strings.SplitN(jid, "@", 2)[0]
}
