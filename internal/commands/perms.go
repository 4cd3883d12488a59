package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/WaClaw/WaClaw/internal/conn"
)

// RosterFetcher fetches a group's participant list. The connection provider
// implements this; the fetch is remote and may fail.
type RosterFetcher interface {
	GroupRoster(ctx context.Context, chatID string) ([]conn.RosterMember, error)
}

// Perms is the computed permission set for one sender in one chat.
type Perms struct {
	IsSenderOwner bool
	IsSenderAdmin bool
	IsBotAdmin    bool
}

// Evaluator resolves sender permissions. The roster is fetched lazily, only
// when a command declares it needs group-scoped authorization.
type Evaluator struct {
	Owner  string // configured owner identifier, with or without service suffix
	BotID  func() string
	Roster RosterFetcher
}

// IsOwner reports whether senderID is the configured owner. Matching is
// suffix tolerant: both sides are reduced to their numeric core before
// comparison, so "233248503631" matches "233248503631@s.whatsapp.net".
func (e *Evaluator) IsOwner(senderID string) bool {
	owner := numericCore(e.Owner)
	if owner == "" {
		return false
	}
	return numericCore(senderID) == owner
}

// Evaluate computes the permission set. needRoster controls the lazy group
// roster fetch; without it only the owner check is performed. Non-group
// chats never report admin flags.
func (e *Evaluator) Evaluate(ctx context.Context, senderID, chatID string, isGroup, needRoster bool) (Perms, error) {
	p := Perms{IsSenderOwner: e.IsOwner(senderID)}
	if !isGroup || !needRoster {
		return p, nil
	}

	roster, err := e.Roster.GroupRoster(ctx, chatID)
	if err != nil {
		return p, fmt.Errorf("roster fetch failed: %w", err)
	}

	sender := numericCore(senderID)
	bot := ""
	if e.BotID != nil {
		bot = numericCore(e.BotID())
	}
	for _, member := range roster {
		if !member.IsAdmin {
			continue
		}
		core := numericCore(member.JID)
		if core == sender {
			p.IsSenderAdmin = true
		}
		if bot != "" && core == bot {
			p.IsBotAdmin = true
		}
	}
	return p, nil
}

// numericCore reduces an identifier to its digits: the part before any
// service suffix ("@s.whatsapp.net") and device marker (":12"), with
// formatting characters stripped.
func numericCore(id string) string {
	id = strings.SplitN(id, "@", 2)[0]
	id = strings.SplitN(id, ":", 2)[0]
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
