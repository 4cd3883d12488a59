package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WaClaw/WaClaw/internal/bus"
	"github.com/WaClaw/WaClaw/internal/journal"
	"github.com/WaClaw/WaClaw/internal/session"
	"github.com/WaClaw/WaClaw/internal/status"
)

// DefaultReconnectDelay is the fixed delay between a close and the next
// connect attempt. Constant backoff, no exponential growth.
const DefaultReconnectDelay = 5 * time.Second

// SessionStore is the credential store consulted by the manager.
type SessionStore interface {
	Load() (session.Session, error)
	Persist(session.Session) error
	Wipe() error
}

// Recorder is the journal subset the manager writes to.
type Recorder interface {
	Record(*journal.Entry) error
	SetSetting(key, value string) error
}

// MessageHandler receives normalized inbound messages once the connection is
// open. The command router implements this.
type MessageHandler interface {
	Handle(ctx context.Context, msg *bus.MessageEvent)
}

// Params configures a Manager.
type Params struct {
	Provider Provider
	Store    SessionStore
	Journal  Recorder
	Bus      *bus.EventBus
	Surface  status.Surface
	Router   MessageHandler // optional
	Owner    string         // owner phone number; "" enables the provider's QR fallback
	Delay    time.Duration  // reconnect delay; DefaultReconnectDelay when zero
	Policy   Policy
}

// Manager owns the connection state machine. It is the single consumer of
// the inbound event stream, so no two transitions ever interleave.
type Manager struct {
	provider Provider
	store    SessionStore
	journal  Recorder
	bus      *bus.EventBus
	surface  status.Surface
	router   MessageHandler
	issuer   *Issuer
	policy   Policy
	owner    string
	delay    time.Duration

	state            State
	session          session.Session
	reconnectPending bool
	terminal         bool

	// test seams
	afterFunc func(d time.Duration, f func()) *time.Timer
	spawn     func(f func())
}

// NewManager creates a connection manager. The returned manager is inert
// until Run is called.
func NewManager(p Params) *Manager {
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	surface := p.Surface
	if surface == nil {
		surface = status.Nop{}
	}
	if p.Policy.ByCode == nil {
		p.Policy = DefaultPolicy()
	}
	return &Manager{
		provider:  p.Provider,
		store:     p.Store,
		journal:   p.Journal,
		bus:       p.Bus,
		surface:   surface,
		router:    p.Router,
		issuer:    NewIssuer(p.Provider),
		policy:    p.Policy,
		owner:     p.Owner,
		delay:     delay,
		state:     StateIdle,
		afterFunc: time.AfterFunc,
		spawn:     func(f func()) { go f() },
	}
}

// State returns the current connection state.
func (m *Manager) State() State { return m.state }

// Run drives the state machine until the context is cancelled or the
// recovery policy decides the session is unrecoverable (explicit logout).
// Run owns all state transitions; it must be the only goroutine consuming
// the bus.
func (m *Manager) Run(ctx context.Context) error {
	sess, err := m.store.Load()
	if errors.Is(err, session.ErrStoreCorrupt) {
		slog.Warn("session record corrupt, starting fresh", "error", err)
		m.record(journal.KindSystem, "corrupt session record wiped", 0)
		if werr := m.store.Wipe(); werr != nil {
			return fmt.Errorf("failed to wipe corrupt session: %w", werr)
		}
		sess = session.Session{}
	} else if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	m.session = sess

	m.connect(ctx)

	for !m.terminal {
		evt, err := m.bus.Consume(ctx)
		if err != nil {
			return err
		}
		switch e := evt.(type) {
		case *bus.ConnectedEvent:
			m.handleOpen(e)
		case *bus.DisconnectedEvent:
			m.handleClose(ctx, e.Code, "connection closed")
		case *bus.LoggedOutEvent:
			m.handleClose(ctx, e.Code, "logged out by service")
		case *bus.CredentialsEvent:
			m.handleCredentials(e)
		case *bus.MessageEvent:
			if m.router != nil && m.state == StateOpen {
				m.router.Handle(ctx, e)
			}
		case *bus.ReconnectDueEvent:
			m.reconnectPending = false
			m.connect(ctx)
		}
	}
	return nil
}

// connect performs one connect attempt: Idle/Closed -> Connecting, with a
// detour through AwaitingPairing when the session is unregistered.
func (m *Manager) connect(ctx context.Context) {
	m.transition(StateConnecting, "")

	if !m.provider.IsRegistered() {
		m.transition(StateAwaitingPairing, "session not registered")
		if err := m.provider.Connect(ctx); err != nil && !errors.Is(err, ErrAlreadyConnected) {
			m.handleClose(ctx, CodeTransportDrop, fmt.Sprintf("connect failed: %v", err))
			return
		}
		m.startPairing(ctx)
		// Issuance is fire-and-forget: the machine does not block on it.
		m.transition(StateConnecting, "pairing code requested")
		return
	}

	if err := m.provider.Connect(ctx); err != nil {
		// The link being up already is not a close. Settle back into Open
		// instead of recording a phantom Closed and arming another retry.
		if errors.Is(err, ErrAlreadyConnected) {
			slog.Info("connect skipped, link already up")
			m.handleOpen(&bus.ConnectedEvent{Identity: m.provider.Identity()})
			return
		}
		m.handleClose(ctx, CodeTransportDrop, fmt.Sprintf("connect failed: %v", err))
	}
}

// startPairing issues the pairing code request unless one was already made
// for this unregistered session. With no owner number configured the
// provider's own QR fallback handles linking instead.
func (m *Manager) startPairing(ctx context.Context) {
	if m.owner == "" {
		m.record(journal.KindPairing, "no owner number configured, relying on QR login", 0)
		return
	}
	if m.issuer.Requested() {
		return
	}
	owner := m.owner
	m.spawn(func() {
		code, err := m.issuer.Request(ctx, owner)
		if err != nil {
			slog.Warn("pairing code request failed", "error", err)
			m.record(journal.KindPairing, fmt.Sprintf("issuance failed: %v", err), 0)
			m.surface.PushPairingCode("error: pairing code request failed, will retry on next connect")
			return
		}
		if code == "" {
			return // request already satisfied by an earlier cycle
		}
		m.record(journal.KindPairing, "pairing code issued", 0)
		m.surface.PushPairingCode(code)
	})
}

func (m *Manager) handleOpen(e *bus.ConnectedEvent) {
	m.transition(StateOpen, "")

	identity := e.Identity
	if identity == "" {
		identity = m.provider.Identity()
	}
	m.session.Registered = true
	m.session.Identity = identity
	if err := m.store.Persist(m.session); err != nil {
		slog.Error("failed to persist session on open", "error", err)
	}
}

func (m *Manager) handleCredentials(e *bus.CredentialsEvent) {
	m.session.Registered = e.Registered
	if e.Identity != "" {
		m.session.Identity = e.Identity
	}
	if e.Blob != nil {
		m.session.Blob = e.Blob
	}
	if err := m.store.Persist(m.session); err != nil {
		slog.Error("failed to persist credentials", "error", err)
	}
}

// handleClose applies the recovery policy for a close reason code. Close
// signals are serialized by the run loop; the pending-reconnect flag keeps
// rapid repeated closes from stacking up timers.
func (m *Manager) handleClose(ctx context.Context, code int, detail string) {
	m.transitionWithCode(StateClosed, detail, code)

	action := m.policy.Lookup(code)
	switch action {
	case ActionLogout:
		m.wipeSession(ctx)
		m.terminal = true
		m.transitionWithCode(StateIdle, "logged out, must re-pair", code)
		slog.Info("session logged out, retry loop stopped", "code", code)

	case ActionResetSession:
		m.wipeSession(ctx)
		m.issuer.Reset()
		m.record(journal.KindSystem, "stale session wiped, re-pairing on next connect", code)
		m.scheduleReconnect(code)

	default: // ActionRetry
		m.scheduleReconnect(code)
	}
}

func (m *Manager) wipeSession(ctx context.Context) {
	if err := m.store.Wipe(); err != nil {
		slog.Error("failed to wipe session store", "error", err)
	}
	if err := m.provider.Logout(ctx); err != nil {
		slog.Warn("provider logout failed", "error", err)
	}
	m.session = session.Session{}
}

// scheduleReconnect arms the single reconnect timer. A close arriving while
// a reconnect is already pending must not schedule a second attempt.
func (m *Manager) scheduleReconnect(code int) {
	if m.reconnectPending {
		m.record(journal.KindRetry, "reconnect already pending, duplicate close ignored", code)
		return
	}
	m.reconnectPending = true
	m.record(journal.KindRetry, fmt.Sprintf("reconnect scheduled in %s", m.delay), code)
	slog.Info("reconnect scheduled", "delay", m.delay, "code", code)
	m.afterFunc(m.delay, func() {
		m.bus.Publish(&bus.ReconnectDueEvent{})
	})
}

func (m *Manager) transition(to State, detail string) {
	m.transitionWithCode(to, detail, 0)
}

func (m *Manager) transitionWithCode(to State, detail string, code int) {
	from := m.state
	m.state = to
	m.record(journal.KindTransition, fmt.Sprintf("%s -> %s", from, to), code)
	slog.Info("connection state", "from", from.String(), "to", to.String(), "detail", detail, "code", code)
	m.surface.PushState(to.String(), detail)
	if m.journal != nil {
		_ = m.journal.SetSetting("connection_state", to.String())
	}
}

func (m *Manager) record(kind, detail string, code int) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(&journal.Entry{Kind: kind, Detail: detail, Code: code}); err != nil {
		slog.Warn("journal write failed", "error", err)
	}
}
