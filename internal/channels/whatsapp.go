package channels

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/WaClaw/WaClaw/internal/bus"
	"github.com/WaClaw/WaClaw/internal/conn"

	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// WhatsAppOptions configures the native WhatsApp channel.
type WhatsAppOptions struct {
	// SessionDir is the directory holding the device credential database.
	SessionDir string
	// LogLevel is the whatsmeow client log level (INFO, WARN, ...).
	LogLevel string
}

// WhatsAppChannel is a native WhatsApp client. It translates the protocol
// client's callbacks into bus events and exposes the connection capabilities
// the session manager drives.
type WhatsAppChannel struct {
	BaseChannel
	opts      WhatsAppOptions
	client    *whatsmeow.Client
	container *sqlstore.Container
	sendFn    func(ctx context.Context, msg *bus.OutboundMessage) error
}

// NewWhatsAppChannel creates a new WhatsApp channel.
func NewWhatsAppChannel(opts WhatsAppOptions, messageBus *bus.EventBus) *WhatsAppChannel {
	if opts.LogLevel == "" {
		opts.LogLevel = "WARN"
	}
	return &WhatsAppChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		opts:        opts,
	}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

// Start opens the credential database, builds the protocol client and
// subscribes the channel to outbound messages. It does not connect; the
// session manager owns connection attempts.
func (c *WhatsAppChannel) Start(ctx context.Context) error {
	dbLog := waLog.Stdout("Database", "WARN", true)
	clientLog := waLog.Stdout("Client", c.opts.LogLevel, true)

	dbPath := filepath.Join(c.opts.SessionDir, "device.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbLog)
	if err != nil {
		return fmt.Errorf("failed to init whatsapp db: %w", err)
	}
	c.container = container

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	c.client = whatsmeow.NewClient(deviceStore, clientLog)
	// The session manager owns reconnection; with the client's own
	// auto-reconnect left on, two recovery engines would race over the
	// same socket.
	c.client.EnableAutoReconnect = false
	c.client.AddEventHandler(c.eventHandler)

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		go c.handleOutbound(msg)
	})

	return nil
}

func (c *WhatsAppChannel) Stop() error {
	if c.client != nil {
		c.client.Disconnect()
	}
	if c.container != nil {
		c.container.Close()
	}
	return nil
}

// Connect starts a connection attempt. The open/close outcome arrives
// asynchronously through the event handler.
func (c *WhatsAppChannel) Connect(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("channel not started")
	}
	if err := c.client.Connect(); err != nil {
		if errors.Is(err, whatsmeow.ErrAlreadyConnected) {
			return conn.ErrAlreadyConnected
		}
		return err
	}
	return nil
}

// Disconnect tears the socket down without touching credentials.
func (c *WhatsAppChannel) Disconnect() {
	if c.client != nil {
		c.client.Disconnect()
	}
}

// IsRegistered reports whether the stored device is linked to an account.
func (c *WhatsAppChannel) IsRegistered() bool {
	return c.client != nil && c.client.Store.ID != nil
}

// Identity returns the account JID, or "" before registration.
func (c *WhatsAppChannel) Identity() string {
	if c.client == nil || c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.String()
}

// RequestPairingCode asks the service for a one-time linking code for the
// given phone number. The client must already be connecting.
func (c *WhatsAppChannel) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("channel not started")
	}
	code, err := c.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		return "", fmt.Errorf("pair phone failed: %w", err)
	}
	return code, nil
}

// PairViaQR runs the QR login flow, writing each code to a PNG under the
// session directory. Used when no owner phone number is configured.
func (c *WhatsAppChannel) PairViaQR(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("channel not started")
	}
	if c.client.Store.ID != nil {
		return fmt.Errorf("device already registered")
	}

	qrChan, err := c.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	qrPath := filepath.Join(c.opts.SessionDir, "login-qr.png")
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 512, qrPath); err == nil {
				fmt.Printf("🖼️  Login QR code saved to: %s\n", qrPath)
				fmt.Println("Open this file and scan it with your phone.")
			}
		case "success":
			fmt.Println("✅ WhatsApp: device linked")
			return nil
		default:
			fmt.Println("WhatsApp: login event:", evt.Event)
		}
	}
	return fmt.Errorf("qr login ended without pairing")
}

// SendText sends a plain text message to a chat.
func (c *WhatsAppChannel) SendText(ctx context.Context, chatID, text string) error {
	if c.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("invalid JID: %w", err)
	}

	waMsg := &waE2E.Message{
		Conversation: proto.String(text),
	}

	_, err = c.client.SendMessage(ctx, jid, waMsg)
	return err
}

// GroupRoster fetches the participant list of a group chat.
func (c *WhatsAppChannel) GroupRoster(ctx context.Context, chatID string) ([]conn.RosterMember, error) {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return nil, fmt.Errorf("invalid JID: %w", err)
	}
	info, err := c.client.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("group info: %w", err)
	}
	roster := make([]conn.RosterMember, 0, len(info.Participants))
	for _, p := range info.Participants {
		roster = append(roster, conn.RosterMember{
			JID:     p.JID.String(),
			IsAdmin: p.IsAdmin || p.IsSuperAdmin,
		})
	}
	return roster, nil
}

// UpdateParticipant applies a group membership mutation.
func (c *WhatsAppChannel) UpdateParticipant(ctx context.Context, chatID, participantID string, action conn.ParticipantAction) error {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("invalid JID: %w", err)
	}
	target, err := types.ParseJID(participantID)
	if err != nil {
		return fmt.Errorf("invalid participant JID: %w", err)
	}

	var change whatsmeow.ParticipantChange
	switch action {
	case conn.ParticipantAdd:
		change = whatsmeow.ParticipantChangeAdd
	case conn.ParticipantRemove:
		change = whatsmeow.ParticipantChangeRemove
	case conn.ParticipantPromote:
		change = whatsmeow.ParticipantChangePromote
	case conn.ParticipantDemote:
		change = whatsmeow.ParticipantChangeDemote
	default:
		return fmt.Errorf("unknown participant action %q", action)
	}

	_, err = c.client.UpdateGroupParticipants(ctx, jid, []types.JID{target}, change)
	return err
}

// Logout unlinks the device and wipes its stored credential material.
func (c *WhatsAppChannel) Logout(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Logout(ctx)
}

// Send sends one outbound bus message.
func (c *WhatsAppChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	return c.SendText(ctx, msg.ChatID, msg.Content)
}

func (c *WhatsAppChannel) handleOutbound(msg *bus.OutboundMessage) {
	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.sendOutbound(sendCtx, msg); err != nil {
		fmt.Printf("❌ Error sending whatsapp message: %v\n", err)
		return
	}
	fmt.Printf("📤 Outbound WhatsApp to=%s\n", msg.ChatID)
}

func (c *WhatsAppChannel) sendOutbound(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.sendFn != nil {
		return c.sendFn(ctx, msg)
	}
	return c.Send(ctx, msg)
}

func (c *WhatsAppChannel) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		c.Bus.Publish(&bus.ConnectedEvent{Identity: c.Identity()})

	case *events.Disconnected:
		c.Bus.Publish(&bus.DisconnectedEvent{Code: conn.CodeTransportDrop})

	case *events.ConnectFailure:
		c.Bus.Publish(&bus.DisconnectedEvent{Code: int(v.Reason)})

	case *events.StreamReplaced:
		c.Bus.Publish(&bus.DisconnectedEvent{Code: conn.CodeReplaced})

	case *events.TemporaryBan:
		fmt.Printf("🚫 WhatsApp: temporary ban (%s), expires in %s\n", v.Code, v.Expire)
		c.Bus.Publish(&bus.DisconnectedEvent{Code: conn.CodeTempBanned})

	case *events.ClientOutdated:
		c.Bus.Publish(&bus.DisconnectedEvent{Code: conn.CodeClientOutdated})

	case *events.LoggedOut:
		c.Bus.Publish(&bus.LoggedOutEvent{Code: int(v.Reason)})

	case *events.PairSuccess:
		c.Bus.Publish(&bus.CredentialsEvent{
			Identity:   v.ID.String(),
			Registered: true,
		})

	case *events.Message:
		c.handleMessage(v)
	}
}

func (c *WhatsAppChannel) handleMessage(v *events.Message) {
	text, mentions := normalizeMessage(v.Message)
	if text == "" {
		return
	}

	fmt.Printf("📩 Message from %s (IsFromMe: %v)\n", v.Info.Sender, v.Info.IsFromMe)

	c.Bus.Publish(&bus.MessageEvent{
		MessageID: v.Info.ID,
		TraceID:   traceIDFromEvent(v.Info.ID),
		SenderID:  v.Info.Sender.String(),
		ChatID:    v.Info.Chat.String(),
		IsGroup:   v.Info.IsGroup,
		IsFromMe:  v.Info.IsFromMe,
		Text:      text,
		Mentions:  mentions,
		Timestamp: v.Info.Timestamp,
	})
}

// normalizeMessage reduces the protocol message to plain text plus mentioned
// JIDs, regardless of which variant carried the text.
func normalizeMessage(msg *waE2E.Message) (string, []string) {
	if msg == nil {
		return "", nil
	}
	if t := msg.GetConversation(); t != "" {
		return t, nil
	}
	if ext := msg.GetExtendedTextMessage(); ext.GetText() != "" {
		return ext.GetText(), ext.GetContextInfo().GetMentionedJID()
	}
	if img := msg.GetImageMessage(); img.GetCaption() != "" {
		return img.GetCaption(), img.GetContextInfo().GetMentionedJID()
	}
	if vid := msg.GetVideoMessage(); vid.GetCaption() != "" {
		return vid.GetCaption(), vid.GetContextInfo().GetMentionedJID()
	}
	return "", nil
}

func traceIDFromEvent(eventID string) string {
	if eventID != "" {
		return "wa-" + eventID
	}
	return uuid.NewString()
}
