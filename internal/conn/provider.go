// Package conn owns the session lifecycle: the connection state machine, the
// reason-code recovery policy and the pairing code issuer. The protocol
// client itself is consumed through the Provider capability and never
// reimplemented here.
package conn

import (
	"context"
	"errors"
)

// ErrAlreadyConnected is returned by Provider.Connect when the link is
// already up. The manager treats it as benign: the open event for the live
// link is already on the bus (or has been consumed), so no close is
// recorded and no retry is armed.
var ErrAlreadyConnected = errors.New("provider: already connected")

// ParticipantAction is a group membership mutation.
type ParticipantAction string

const (
	ParticipantAdd     ParticipantAction = "add"
	ParticipantRemove  ParticipantAction = "remove"
	ParticipantPromote ParticipantAction = "promote"
	ParticipantDemote  ParticipantAction = "demote"
)

// RosterMember is one participant of a group chat.
type RosterMember struct {
	JID     string
	IsAdmin bool
}

// Provider is the connection capability the manager drives. Events (open,
// close, credentials changed, inbound messages) arrive through the event
// bus, not through this interface.
type Provider interface {
	// Connect starts a connection attempt. The open/close outcome is
	// delivered asynchronously as bus events.
	Connect(ctx context.Context) error
	// Disconnect tears the connection down without touching credentials.
	Disconnect()
	// IsRegistered reports whether the stored credentials are linked to an
	// account.
	IsRegistered() bool
	// Identity returns the account JID, or "" before registration.
	Identity() string
	// RequestPairingCode asks the service for a one-time linking code for
	// the given phone number.
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	// SendText sends a plain text message to a chat.
	SendText(ctx context.Context, chatID, text string) error
	// GroupRoster fetches the participant list of a group chat.
	GroupRoster(ctx context.Context, chatID string) ([]RosterMember, error)
	// UpdateParticipant applies a group membership mutation.
	UpdateParticipant(ctx context.Context, chatID, participantID string, action ParticipantAction) error
	// Logout unlinks the device and wipes the provider-owned credential
	// material.
	Logout(ctx context.Context) error
}
