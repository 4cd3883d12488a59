package conn

import (
	"fmt"
	"strings"
)

// Reason codes accompanying a connection close. These match the numeric
// stream-error codes of the service; 0 means a plain transport drop with no
// code attached.
const (
	CodeTransportDrop  = 0
	CodeLoggedOut      = 401
	CodeTempBanned     = 402
	CodeMainDeviceGone = 403
	CodeClientOutdated = 405
	CodeUnknownLogout  = 406
	CodeReplaced       = 440
	CodeRestartNeeded  = 515
)

// Action is what the recovery policy does after a close.
type Action int

const (
	// ActionRetry reconnects after the fixed delay, credentials untouched.
	ActionRetry Action = iota
	// ActionResetSession wipes credentials and the pairing request lock,
	// then reconnects after the fixed delay so a fresh code can be issued.
	ActionResetSession
	// ActionLogout wipes credentials and stops retrying. The operator must
	// re-pair.
	ActionLogout
)

func (a Action) String() string {
	switch a {
	case ActionResetSession:
		return "reset_session"
	case ActionLogout:
		return "logout"
	default:
		return "retry"
	}
}

// ParseAction parses a policy action name from configuration.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retry":
		return ActionRetry, nil
	case "reset", "reset_session":
		return ActionResetSession, nil
	case "logout":
		return ActionLogout, nil
	}
	return ActionRetry, fmt.Errorf("unknown recovery action %q", s)
}

// Policy maps close reason codes to recovery actions. It is plain data so
// deployments can override individual codes without new branching code.
type Policy struct {
	ByCode  map[int]Action
	Default Action
}

// DefaultPolicy returns the stock recovery table: explicit logout stops the
// loop, stale-session classes re-pair, everything else retries.
func DefaultPolicy() Policy {
	return Policy{
		ByCode: map[int]Action{
			CodeLoggedOut:      ActionLogout,
			CodeMainDeviceGone: ActionResetSession,
			CodeClientOutdated: ActionResetSession,
			CodeUnknownLogout:  ActionResetSession,
		},
		Default: ActionRetry,
	}
}

// Lookup returns the action for a reason code.
func (p Policy) Lookup(code int) Action {
	if a, ok := p.ByCode[code]; ok {
		return a
	}
	return p.Default
}

// Override applies configuration overrides of the form code -> action name.
func (p Policy) Override(overrides map[int]string) (Policy, error) {
	if len(overrides) == 0 {
		return p, nil
	}
	merged := Policy{ByCode: make(map[int]Action, len(p.ByCode)+len(overrides)), Default: p.Default}
	for c, a := range p.ByCode {
		merged.ByCode[c] = a
	}
	for c, name := range overrides {
		a, err := ParseAction(name)
		if err != nil {
			return p, fmt.Errorf("recovery override for code %d: %w", c, err)
		}
		merged.ByCode[c] = a
	}
	return merged, nil
}
