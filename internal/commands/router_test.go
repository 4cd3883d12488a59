package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/WaClaw/WaClaw/internal/bus"
	"github.com/WaClaw/WaClaw/internal/conn"
)

// fakeCaps implements conn.Provider and the roster fetcher for tests.
type fakeCaps struct {
	roster    []conn.RosterMember
	rosterErr error
	mutations []string
	sent      int
}

func (f *fakeCaps) Connect(ctx context.Context) error { return nil }
func (f *fakeCaps) Disconnect()                       {}
func (f *fakeCaps) IsRegistered() bool                { return true }
func (f *fakeCaps) Identity() string                  { return "999888777@s.whatsapp.net" }

func (f *fakeCaps) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	return "", nil
}

func (f *fakeCaps) SendText(ctx context.Context, chatID, text string) error {
	f.sent++
	return nil
}

func (f *fakeCaps) GroupRoster(ctx context.Context, chatID string) ([]conn.RosterMember, error) {
	return f.roster, f.rosterErr
}

func (f *fakeCaps) UpdateParticipant(ctx context.Context, chatID, participantID string, action conn.ParticipantAction) error {
	f.mutations = append(f.mutations, string(action)+":"+participantID)
	return nil
}

func (f *fakeCaps) Logout(ctx context.Context) error { return nil }

type fakePublisher struct {
	replies []string
}

func (f *fakePublisher) PublishOutbound(msg *bus.OutboundMessage) {
	f.replies = append(f.replies, msg.Content)
}

const (
	ownerNumber = "233248503631"
	ownerJID    = "233248503631@s.whatsapp.net"
	adminJID    = "111222333@s.whatsapp.net"
	plebJID     = "444555666@s.whatsapp.net"
	groupJID    = "12036304@g.us"
)

func newTestRouter(t *testing.T, caps *fakeCaps) (*Router, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	reg := NewRegistry()
	Setup(reg, Deps{Provider: caps, Prefix: "!", StartedAt: time.Now()})
	router := &Router{
		Prefix:   "!",
		Channel:  "whatsapp",
		Registry: reg,
		Evaluator: &Evaluator{
			Owner:  ownerNumber,
			BotID:  caps.Identity,
			Roster: caps,
		},
		Bus: pub,
	}
	return router, pub
}

func groupMsg(sender, text string) *bus.MessageEvent {
	return &bus.MessageEvent{
		SenderID: sender,
		ChatID:   groupJID,
		IsGroup:  true,
		Text:     text,
	}
}

func TestNonPrefixedTextIsIgnored(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	router.Handle(context.Background(), groupMsg(plebJID, "hello everyone"))
	router.Handle(context.Background(), groupMsg(plebJID, "ping"))

	if len(pub.replies) != 0 {
		t.Fatalf("expected no replies, got %v", pub.replies)
	}
}

func TestOwnMessagesAreIgnored(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	msg := groupMsg(plebJID, "!ping")
	msg.IsFromMe = true
	router.Handle(context.Background(), msg)

	if len(pub.replies) != 0 {
		t.Fatalf("expected no reply to own message, got %v", pub.replies)
	}
}

func TestPingRepliesExactlyOnceForAnySender(t *testing.T) {
	for _, sender := range []string{ownerJID, adminJID, plebJID} {
		router, pub := newTestRouter(t, &fakeCaps{})
		router.Handle(context.Background(), groupMsg(sender, "!ping"))
		if len(pub.replies) != 1 {
			t.Fatalf("sender %s: expected exactly 1 reply, got %d", sender, len(pub.replies))
		}
	}
}

func TestCommandNameIsCaseInsensitive(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	router.Handle(context.Background(), groupMsg(plebJID, "!PiNg"))
	if len(pub.replies) != 1 {
		t.Fatalf("expected reply for mixed-case command, got %v", pub.replies)
	}
}

func TestKickDeniedForRegularSender(t *testing.T) {
	caps := &fakeCaps{roster: []conn.RosterMember{
		{JID: adminJID, IsAdmin: true},
		{JID: plebJID},
	}}
	router, pub := newTestRouter(t, caps)

	router.Handle(context.Background(), groupMsg(plebJID, "!kick @444555666"))

	if len(caps.mutations) != 0 {
		t.Fatalf("mutation must never be attempted, got %v", caps.mutations)
	}
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "group admin") {
		t.Fatalf("expected admin denial, got %v", pub.replies)
	}
}

func TestKickByAdminWithoutBotAdmin(t *testing.T) {
	caps := &fakeCaps{roster: []conn.RosterMember{
		{JID: adminJID, IsAdmin: true},
		{JID: plebJID},
		// bot (999888777) is a plain member
		{JID: "999888777@s.whatsapp.net"},
	}}
	router, pub := newTestRouter(t, caps)

	router.Handle(context.Background(), groupMsg(adminJID, "!kick @444555666"))

	if len(caps.mutations) != 0 {
		t.Fatalf("mutation must not be attempted without bot admin, got %v", caps.mutations)
	}
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "admin rights") {
		t.Fatalf("expected bot-admin denial, got %v", pub.replies)
	}
}

func TestKickByAdminSucceeds(t *testing.T) {
	caps := &fakeCaps{roster: []conn.RosterMember{
		{JID: adminJID, IsAdmin: true},
		{JID: "999888777@s.whatsapp.net", IsAdmin: true},
		{JID: plebJID},
	}}
	router, pub := newTestRouter(t, caps)

	router.Handle(context.Background(), groupMsg(adminJID, "!kick 444555666"))

	want := "remove:444555666@s.whatsapp.net"
	if len(caps.mutations) != 1 || caps.mutations[0] != want {
		t.Fatalf("expected mutation %q, got %v", want, caps.mutations)
	}
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "Removed") {
		t.Fatalf("expected confirmation, got %v", pub.replies)
	}
}

func TestOwnerMayKickWithoutAdminRole(t *testing.T) {
	caps := &fakeCaps{roster: []conn.RosterMember{
		{JID: "999888777@s.whatsapp.net", IsAdmin: true},
		{JID: ownerJID},
		{JID: plebJID},
	}}
	router, _ := newTestRouter(t, caps)

	router.Handle(context.Background(), groupMsg(ownerJID, "!kick 444555666"))

	if len(caps.mutations) != 1 {
		t.Fatalf("owner kick should run, got mutations %v", caps.mutations)
	}
}

func TestKickPrefersMentionOverArg(t *testing.T) {
	caps := &fakeCaps{roster: []conn.RosterMember{
		{JID: adminJID, IsAdmin: true},
		{JID: "999888777@s.whatsapp.net", IsAdmin: true},
	}}
	router, _ := newTestRouter(t, caps)

	msg := groupMsg(adminJID, "!kick @someone")
	msg.Mentions = []string{plebJID}
	router.Handle(context.Background(), msg)

	want := "remove:" + plebJID
	if len(caps.mutations) != 1 || caps.mutations[0] != want {
		t.Fatalf("expected mutation %q, got %v", want, caps.mutations)
	}
}

func TestMutationIsGroupOnly(t *testing.T) {
	caps := &fakeCaps{}
	router, pub := newTestRouter(t, caps)

	msg := &bus.MessageEvent{SenderID: ownerJID, ChatID: ownerJID, IsGroup: false, Text: "!kick 444555666"}
	router.Handle(context.Background(), msg)

	if len(caps.mutations) != 0 {
		t.Fatalf("mutation must not run outside groups, got %v", caps.mutations)
	}
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "group chats") {
		t.Fatalf("expected group-only notice, got %v", pub.replies)
	}
}

func TestRosterFetchFailureAbortsWithoutSideEffects(t *testing.T) {
	caps := &fakeCaps{rosterErr: errors.New("server 500")}
	router, pub := newTestRouter(t, caps)

	router.Handle(context.Background(), groupMsg(adminJID, "!kick 444555666"))

	if len(caps.mutations) != 0 {
		t.Fatalf("expected no side effects on roster failure, got %v", caps.mutations)
	}
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "couldn't check") {
		t.Fatalf("expected apology reply, got %v", pub.replies)
	}
}

func TestStatusIsOwnerOnly(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	router.Handle(context.Background(), groupMsg(plebJID, "!status"))
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "owner") {
		t.Fatalf("expected owner denial, got %v", pub.replies)
	}

	// Owner id arrives with a device suffix; match must still hold.
	pub.replies = nil
	router.Handle(context.Background(), groupMsg("233248503631:4@s.whatsapp.net", "!status"))
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "Online") {
		t.Fatalf("expected status reply for owner, got %v", pub.replies)
	}
}

func TestUnknownCommandSilentByDefault(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	router.Handle(context.Background(), groupMsg(plebJID, "!frobnicate"))
	if len(pub.replies) != 0 {
		t.Fatalf("expected silence for unknown command, got %v", pub.replies)
	}
}

func TestUnknownCommandReplyWhenConfigured(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})
	router.UnknownReply = true

	router.Handle(context.Background(), groupMsg(plebJID, "!frobnicate"))
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "Unknown command") {
		t.Fatalf("expected unknown-command reply, got %v", pub.replies)
	}
}

func TestMenuListsCommands(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	router.Handle(context.Background(), groupMsg(plebJID, "!menu"))
	if len(pub.replies) != 1 {
		t.Fatalf("expected one menu reply, got %v", pub.replies)
	}
	for _, name := range []string{"!ping", "!kick", "!promote", "!demote", "!add", "!status"} {
		if !strings.Contains(pub.replies[0], name) {
			t.Fatalf("menu missing %s: %s", name, pub.replies[0])
		}
	}
}

func TestHelpIsMenuAlias(t *testing.T) {
	router, pub := newTestRouter(t, &fakeCaps{})

	router.Handle(context.Background(), groupMsg(plebJID, "!help"))
	if len(pub.replies) != 1 || !strings.Contains(pub.replies[0], "!ping") {
		t.Fatalf("expected command listing, got %v", pub.replies)
	}
}
