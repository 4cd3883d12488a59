package conn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrIssuanceFailed is returned when the service rejects the pairing code
// request or the request times out. The request lock is released so the
// operator can retry.
var ErrIssuanceFailed = errors.New("pairing code issuance failed")

// codeGroupSize is the block width used when formatting codes for human
// entry ("ABCD-EFGH" style).
const codeGroupSize = 4

// Issuer requests a one-time linking code from the connection provider. The
// one-shot lock guarantees at most one issuance per unregistered-session
// lifetime, even across repeated reconnect cycles.
type Issuer struct {
	provider Provider

	mu        sync.Mutex
	requested bool
}

// NewIssuer creates a pairing code issuer backed by the given provider.
func NewIssuer(provider Provider) *Issuer {
	return &Issuer{provider: provider}
}

// Request asks the service for a pairing code for the owner's number and
// returns it formatted for human entry. A second call while the lock is held
// (pending or already satisfied) returns ("", nil) without a remote request.
// On failure the lock is released and ErrIssuanceFailed is returned.
func (i *Issuer) Request(ctx context.Context, owner string) (string, error) {
	i.mu.Lock()
	if i.requested {
		i.mu.Unlock()
		return "", nil
	}
	i.requested = true
	i.mu.Unlock()

	raw, err := i.provider.RequestPairingCode(ctx, owner)
	if err != nil {
		i.mu.Lock()
		i.requested = false
		i.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}
	return FormatCode(raw), nil
}

// Requested reports whether a code was requested (or is in flight) for the
// current unregistered session.
func (i *Issuer) Requested() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.requested
}

// Reset clears the one-shot lock. Called when the session is wiped so the
// next unregistered connect may issue a fresh code.
func (i *Issuer) Reset() {
	i.mu.Lock()
	i.requested = false
	i.mu.Unlock()
}

// FormatCode groups a raw linking code into fixed-width blocks joined by
// dashes. Existing separators and whitespace in the raw code are discarded
// first, so already-formatted codes pass through unchanged.
func FormatCode(raw string) string {
	var clean strings.Builder
	for _, r := range raw {
		if r == '-' || r == ' ' {
			continue
		}
		clean.WriteRune(r)
	}
	code := clean.String()
	if code == "" {
		return ""
	}

	var out strings.Builder
	for i, r := range code {
		if i > 0 && i%codeGroupSize == 0 {
			out.WriteByte('-')
		}
		out.WriteRune(r)
	}
	return out.String()
}
