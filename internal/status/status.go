// Package status pushes operator-facing session updates: the current
// connection state and the pairing code, when one is outstanding.
package status

// Surface receives push updates from the session core. Implementations are
// read-only collaborators; the core never reads state back from them.
type Surface interface {
	// PushState reports a connection state change with a short detail line.
	PushState(state, detail string)
	// PushPairingCode reports a freshly issued pairing code, or an error
	// marker when issuance failed.
	PushPairingCode(code string)
}

// Multi fans updates out to several surfaces.
type Multi []Surface

func (m Multi) PushState(state, detail string) {
	for _, s := range m {
		s.PushState(state, detail)
	}
}

func (m Multi) PushPairingCode(code string) {
	for _, s := range m {
		s.PushPairingCode(code)
	}
}

// Nop discards all updates.
type Nop struct{}

func (Nop) PushState(state, detail string) {}
func (Nop) PushPairingCode(code string)    {}
