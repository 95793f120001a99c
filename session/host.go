package session

// NewSessionGrant is what a Host hands back when it accepts a new peer.
type NewSessionGrant struct {
	ID               SessionID
	PSK              [PSKSize]byte
	AssociatedObject any
}

// Host is the application side of Receive. Implementations must not call
// back into Receive or block.
type Host interface {
	// ExtractP384Static validates a peer's opaque identity blob and returns
	// the uncompressed P-384 public key it carries.
	ExtractP384Static(identity []byte) ([]byte, bool)

	// LookupSession resolves a local session id.
	LookupSession(id SessionID) (*Session, bool)

	// AcceptNewSession decides whether a previously unknown peer may open a
	// session, and if so allocates its local id and PSK. The returned
	// session is not registered by Receive; the caller stores it after
	// Receive reports ResultOkNewSession.
	AcceptNewSession(identity []byte) (NewSessionGrant, bool)
}

// HostFuncs adapts plain functions to Host. A nil function behaves as a
// negative answer.
type HostFuncs struct {
	Extract func(identity []byte) ([]byte, bool)
	Lookup  func(id SessionID) (*Session, bool)
	Accept  func(identity []byte) (NewSessionGrant, bool)
}

func (h HostFuncs) ExtractP384Static(identity []byte) ([]byte, bool) {
	if h.Extract == nil {
		return nil, false
	}
	return h.Extract(identity)
}

func (h HostFuncs) LookupSession(id SessionID) (*Session, bool) {
	if h.Lookup == nil {
		return nil, false
	}
	return h.Lookup(id)
}

func (h HostFuncs) AcceptNewSession(identity []byte) (NewSessionGrant, bool) {
	if h.Accept == nil {
		return NewSessionGrant{}, false
	}
	return h.Accept(identity)
}
