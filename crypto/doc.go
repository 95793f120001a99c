// Package crypto adapts the cryptographic primitives consumed by the
// session protocol: NIST P-384 key agreement exposed through the
// github.com/flynn/noise DHFunc interface, SHA-384/SHA-512 hashing, the
// HMAC-based key derivation chain and KBKDF, AES-256-GCM, the Kyber512 key
// encapsulation mechanism used by hybrid ("jedi") handshakes, and helpers
// for randomness, secret wiping and structured logging.
//
// It also provides EncryptedKeyStore, which keeps a node's long-lived static
// private key encrypted at rest.
//
// Example:
//
//	static, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer crypto.WipeKeyPair(&static)
//
//	secret, err := crypto.DeriveSharedSecret(peerPublic, static.Private)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	key := crypto.HMACSHA512(chainKey[:], secret)
//
// Nothing in this package performs network I/O.
package crypto
