package session

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
)

// FuzzReceive feeds arbitrary datagrams to a peer holding an established
// session and a pending offer. Receive must never panic and must only fail
// with the package's sentinel errors.
func FuzzReceive(f *testing.F) {
	alice, bob := newTestPeer(f), newTestPeer(f)
	as, _ := handshake(f, alice, bob, true, t0)
	data, _ := as.Send(packetBuf(), []byte("seed payload"))
	_, offer := startSession(f, alice, bob, true, t0)
	rekey, _ := as.RekeyCheck(rand.Reader, packetBuf(), t0, true)

	f.Add(bytes.Clone(data))
	f.Add(bytes.Clone(offer))
	f.Add(bytes.Clone(rekey))
	f.Add(make([]byte, MinPacketSize))

	f.Fuzz(func(t *testing.T, packet []byte) {
		out := make([]byte, limits.MaxPacketSize)
		res, err := Receive(rand.Reader, bob.identity, bob.host(), bytes.Clone(packet), out, true, t0)
		if err != nil {
			if !isDefinedError(err) {
				t.Fatalf("undefined error %v", err)
			}
			return
		}
		if res.Kind == ResultOkData && len(res.Data) > len(packet) {
			t.Fatalf("payload longer than packet")
		}
	})
}

func TestReceiveRandomBuffers(t *testing.T) {
	alice, bob := newTestPeer(t), newTestPeer(t)
	handshake(t, alice, bob, false, t0)
	out := make([]byte, limits.MaxPacketSize)

	for i := 0; i < 2000; i++ {
		n, err := crypto.RandomBelow(rand.Reader, limits.MaxPacketSize-MinPacketSize+1)
		if err != nil {
			t.Fatal(err)
		}
		packet, err := crypto.SecureRandom(rand.Reader, MinPacketSize+int(n))
		if err != nil {
			t.Fatal(err)
		}
		// steer a share of the buffers into the handshake branches
		if i%4 == 0 {
			packet[0] = byte(i/4) % 4
			if packet[0] == PacketTypeKeyOffer {
				clear(packet[1:7])
			}
			bob.identity.obfuscator.Obfuscate(packet, 1)
		}
		if _, err := Receive(rand.Reader, bob.identity, bob.host(), packet, out, false, t0); err != nil && !isDefinedError(err) {
			t.Fatalf("iteration %d: undefined error %v", i, err)
		}
	}
}
