package session

import "errors"

var (
	// ErrUnknownLocalSessionID indicates a packet addressed to a session id
	// that the host does not know.
	ErrUnknownLocalSessionID = errors.New("unknown local session id")

	// ErrInvalidPacket indicates malformed framing or lengths.
	ErrInvalidPacket = errors.New("invalid packet")

	// ErrInvalidParameter indicates misuse by the caller, such as an unusable
	// static key or a buffer that is too small.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrFailedAuthentication covers every AEAD, transcript tag or identity
	// mismatch. Callers should treat it exactly like packet loss.
	ErrFailedAuthentication = errors.New("failed authentication")

	// ErrNewSessionRejected indicates the host declined a new peer.
	ErrNewSessionRejected = errors.New("new session rejected")

	// ErrMaxKeyLifetimeExceeded indicates an attempt to send under a key
	// that has reached its hard usage ceiling.
	ErrMaxKeyLifetimeExceeded = errors.New("max key lifetime exceeded")

	// ErrSessionNotEstablished indicates Send before the handshake finished.
	ErrSessionNotEstablished = errors.New("session not established")

	// ErrRateLimited indicates an offer dropped because another one was sent
	// on the same session less than OfferRateLimitMs ago.
	ErrRateLimited = errors.New("rate limited")
)
