// Package session implements a Noise_IK style secure session protocol for
// unreliable datagram transports.
//
// Two peers that know each other's static P-384 identity run a two packet
// handshake (KEY_OFFER from the initiator "Alice", KEY_COUNTER_OFFER from the
// responder "Bob") that mixes ephemeral-static, ephemeral-ephemeral and
// static-static ECDH secrets plus a 64-byte pre-shared key, and optionally a
// Kyber512 shared secret ("jedi" mode), into an AES-256-GCM session key.
// Data then flows as DATA packets whose first block is obfuscated with a key
// derived from the recipient's public identity.
//
// The package performs no I/O and owns no clocks or goroutines. Callers pass
// a random source, the current time in milliseconds and caller-owned buffers
// on every call, and implement Host to supply the session table and the
// policy for accepting new peers:
//
//	s, offer, err := session.New(rand.Reader, session.Config{
//	    Local:          local,
//	    RemoteIdentity: peerIdentity,
//	    RemoteP384:     peerStatic,
//	    LocalID:        id,
//	    Jedi:           true,
//	}, buf, nowMillis)
//
//	result, err := session.Receive(rand.Reader, local, host, datagram, out, true, nowMillis)
//
// Sessions are safe for concurrent use: Send and the DATA branch of Receive
// take only a read lock.
package session
