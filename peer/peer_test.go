package peer

import (
	"net"
	"testing"

	"github.com/vl1mesh/overlay/identity"
	"github.com/vl1mesh/overlay/pathset"
	"github.com/vl1mesh/overlay/wire"
)

// fakeCaller records every datagram it is asked to send, keyed by
// destination address string, in send order.
type fakeCaller struct {
	sent map[string][][]byte
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{sent: make(map[string][][]byte)}
}

func (c *fakeCaller) WireSend(addr *net.UDPAddr, localSocket int, localInterface string, data []byte, ttl int) bool {
	c.sent[addr.String()] = append(c.sent[addr.String()], append([]byte(nil), data...))
	return true
}

// fakeNode implements NodeContext for one local endpoint in a test.
type fakeNode struct {
	local   *identity.Identity
	addr    identity.Address
	root    *Peer
	ticks   int64
	clock   int64
	fips    bool
	wimp    bool
}

func (n *fakeNode) LocalIdentity() *identity.Identity { return n.local }
func (n *fakeNode) LocalAddress() identity.Address    { return n.addr }
func (n *fakeNode) InstanceID() uint64                { return 1 }
func (n *fakeNode) NowTicks() int64                   { return n.ticks }
func (n *fakeNode) NowClock() int64                   { return n.clock }
func (n *fakeNode) ProtocolVersion() (uint16, uint16, uint16, uint16) {
	return 1, 0, 1, 0
}
func (n *fakeNode) FIPSMode() bool  { return n.fips }
func (n *fakeNode) WimpMode() bool  { return n.wimp }
func (n *fakeNode) RootPeer() *Peer { return n.root }

var loopbackAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9993}

// setupPair builds two identities and, from each one's perspective, a
// Peer representing the other side, with a direct path installed so
// Send can find a destination. Both peers share the same derived
// static secret, mirroring a real handshake's key agreement symmetry.
func setupPair(t *testing.T) (aliceNode *fakeNode, alicesViewOfBob *Peer, bobNode *fakeNode, bobsViewOfAlice *Peer) {
	t.Helper()

	alice, err := identity.GenerateLocal()
	if err != nil {
		t.Fatalf("GenerateLocal(alice): %v", err)
	}
	bob, err := identity.GenerateLocal()
	if err != nil {
		t.Fatalf("GenerateLocal(bob): %v", err)
	}

	aliceRemote, err := identity.NewRemote(alice.Curve25519Public(), alice.P521PublicBytes())
	if err != nil {
		t.Fatalf("NewRemote(alice): %v", err)
	}
	bobRemote, err := identity.NewRemote(bob.Curve25519Public(), bob.P521PublicBytes())
	if err != nil {
		t.Fatalf("NewRemote(bob): %v", err)
	}

	pBob, err := New(alice, bobRemote)
	if err != nil {
		t.Fatalf("New(alice's view of bob): %v", err)
	}
	pAlice, err := New(bob, aliceRemote)
	if err != nil {
		t.Fatalf("New(bob's view of alice): %v", err)
	}

	pBob.Paths.Insert(pathset.NewPath(pathset.Endpoint{Variant: pathset.EndpointIPUDP, UDPAddr: loopbackAddr}))
	pAlice.Paths.Insert(pathset.NewPath(pathset.Endpoint{Variant: pathset.EndpointIPUDP, UDPAddr: loopbackAddr}))

	aliceNode = &fakeNode{local: alice, addr: alice.Address}
	bobNode = &fakeNode{local: bob, addr: bob.Address}

	return aliceNode, pBob, bobNode, pAlice
}

// installSharedEphemeral derives one ephemeral secret from an
// EphemeralKeyPair agreement and installs the identical 48-byte secret
// on both peer objects, simulating a completed HELLO/OK(HELLO)
// ephemeral exchange without running the full verb flow.
func installSharedEphemeral(t *testing.T, a, b *Peer, nowTicks int64) {
	t.Helper()
	kp, err := NewEphemeralKeyPair(nowTicks)
	if err != nil {
		t.Fatalf("NewEphemeralKeyPair: %v", err)
	}
	other, err := NewEphemeralKeyPair(nowTicks)
	if err != nil {
		t.Fatalf("NewEphemeralKeyPair: %v", err)
	}

	secret, err := kp.Agree(other.Curve25519Public(), other.P521PublicBytes())
	if err != nil {
		t.Fatalf("Agree: %v", err)
	}
	secret2, err := other.Agree(kp.Curve25519Public(), kp.P521PublicBytes())
	if err != nil {
		t.Fatalf("Agree (reverse): %v", err)
	}
	if secret != secret2 {
		t.Fatalf("ephemeral agreement did not match between the two sides")
	}

	a.InstallEphemeralSecret(NewPeerSecret(secret, nowTicks))
	b.InstallEphemeralSecret(NewPeerSecret(secret, nowTicks))
}

func receiveSingleDatagram(t *testing.T, caller CallerInterface, node NodeContext, p *Peer, raw []byte) (*ReceiveResult, bool) {
	t.Helper()
	header, err := wire.UnmarshalPacketHeader(raw)
	if err != nil {
		t.Fatalf("UnmarshalPacketHeader: %v", err)
	}
	body := raw[wire.PacketHeaderSize:]
	return p.Receive(caller, node, nil, node.NowTicks(), loopbackAddr, header, body, nil)
}

func TestSendReceiveAESGMACSIVRoundTrip(t *testing.T) {
	aliceNode, pBob, bobNode, pAlice := setupPair(t)
	installSharedEphemeral(t, pBob, pAlice, 1000)

	caller := newFakeCaller()
	payload := []byte("hello over an established AES-GMAC-SIV session")
	if !pBob.Send(caller, aliceNode, 1, DefaultMTU, DefaultTTL, wire.VerbUSERMESSAGE, payload) {
		t.Fatalf("Send failed")
	}

	sent := caller.sent[loopbackAddr.String()]
	if len(sent) != 1 {
		t.Fatalf("expected exactly 1 datagram, got %d", len(sent))
	}

	result, ok := receiveSingleDatagram(t, caller, bobNode, pAlice, sent[0])
	if !ok {
		t.Fatalf("Receive failed to authenticate the AES-GMAC-SIV packet")
	}
	if !result.ForwardSecrecy {
		t.Fatalf("expected ForwardSecrecy=true when decrypted under the ephemeral secret")
	}
	if result.Verb != wire.VerbUSERMESSAGE {
		t.Fatalf("expected verb USERMESSAGE, got %v", result.Verb)
	}
	if string(result.Payload) != string(payload) {
		t.Fatalf("payload mismatch: got %q want %q", result.Payload, payload)
	}
}

func TestSendReceiveFallsBackToStaticSecretSalsa(t *testing.T) {
	aliceNode, pBob, bobNode, pAlice := setupPair(t)
	// No ephemeral secret installed: selectCipher must fall back to
	// Salsa20/12-POLY1305 under the static secret.

	caller := newFakeCaller()
	payload := []byte("no forward secrecy yet")
	if !pBob.Send(caller, aliceNode, 1, DefaultMTU, DefaultTTL, wire.VerbUSERMESSAGE, payload) {
		t.Fatalf("Send failed")
	}

	sent := caller.sent[loopbackAddr.String()]
	result, ok := receiveSingleDatagram(t, caller, bobNode, pAlice, sent[0])
	if !ok {
		t.Fatalf("Receive failed to authenticate the Salsa20/12 packet")
	}
	if result.ForwardSecrecy {
		t.Fatalf("expected ForwardSecrecy=false under the static secret")
	}
	if string(result.Payload) != string(payload) {
		t.Fatalf("payload mismatch: got %q want %q", result.Payload, payload)
	}
}

func TestSendReceiveWithFragmentation(t *testing.T) {
	aliceNode, pBob, bobNode, pAlice := setupPair(t)
	installSharedEphemeral(t, pBob, pAlice, 2000)

	caller := newFakeCaller()
	smallMTU := 128
	payload := make([]byte, 900)
	for i := range payload {
		payload[i] = byte(i)
	}

	if !pBob.Send(caller, aliceNode, 1, smallMTU, DefaultTTL, wire.VerbUSERMESSAGE, payload) {
		t.Fatalf("Send failed")
	}

	datagrams := caller.sent[loopbackAddr.String()]
	if len(datagrams) < 2 {
		t.Fatalf("expected fragmentation to produce multiple datagrams, got %d", len(datagrams))
	}

	header, err := wire.UnmarshalPacketHeader(datagrams[0])
	if err != nil {
		t.Fatalf("UnmarshalPacketHeader: %v", err)
	}
	headBuf := datagrams[0][wire.PacketHeaderSize:]

	var fragments [][]byte
	for _, dg := range datagrams[1:] {
		frag, err := wire.UnmarshalFragmentHeader(dg)
		if err != nil {
			t.Fatalf("UnmarshalFragmentHeader: %v", err)
		}
		if frag.ID != header.ID {
			t.Fatalf("fragment ID %x does not match head packet ID %x", frag.ID, header.ID)
		}
		fragments = append(fragments, dg[wire.FragmentHeaderSize:])
	}

	result, ok := pAlice.Receive(caller, bobNode, nil, 1, loopbackAddr, header, headBuf, fragments)
	if !ok {
		t.Fatalf("Receive failed to reassemble and authenticate the fragmented packet")
	}
	if string(result.Payload) != string(payload) {
		t.Fatalf("reassembled payload mismatch (got %d bytes, want %d)", len(result.Payload), len(payload))
	}
}

func TestReceiveRejectsCleartextNonHello(t *testing.T) {
	_, pBob, _, pAlice := setupPair(t)

	header := &wire.PacketHeader{
		ID:          pBob.NextPacketIV(),
		Destination: pBob.RemoteAddress,
		Source:      pAlice.RemoteAddress,
	}
	header.SetCipher(wire.CipherNoCryptPoly1305)

	body := []byte{byte(wire.VerbUSERMESSAGE), 'h', 'i'}
	ciphertext, err := encryptPacket(header, pBob.staticSecret, body)
	if err != nil {
		t.Fatalf("encryptPacket: %v", err)
	}

	// The message-auth tag is valid here (it was produced by the same
	// encryptPacket call this decrypt attempt checks against), so this
	// isolates the cleartext-mode verb restriction from tag verification.
	if _, ok := decryptPacket(header, pAlice.staticSecret, ciphertext); ok {
		t.Fatalf("expected cleartext decode of a non-HELLO verb to be rejected despite a valid MAC")
	}
}

func TestReceiveRejectsTamperedSalsaPacket(t *testing.T) {
	aliceNode, pBob, bobNode, pAlice := setupPair(t)

	caller := newFakeCaller()
	if !pBob.Send(caller, aliceNode, 1, DefaultMTU, DefaultTTL, wire.VerbUSERMESSAGE, []byte("tamper me")) {
		t.Fatalf("Send failed")
	}

	sent := caller.sent[loopbackAddr.String()]
	raw := append([]byte(nil), sent[0]...)
	raw[len(raw)-1] ^= 0xff // flip a ciphertext byte

	if _, ok := receiveSingleDatagram(t, caller, bobNode, pAlice, raw); ok {
		t.Fatalf("expected Receive to reject a packet with a tampered ciphertext")
	}
}

func TestSendHelloProducesDistinctIVsAndVerifiableHMAC(t *testing.T) {
	aliceNode, pBob, bobNode, pAlice := setupPair(t)
	caller := newFakeCaller()

	if !pBob.SendHello(caller, aliceNode, 1, false, DefaultTTL) {
		t.Fatalf("first SendHello failed")
	}
	if !pBob.SendHello(caller, aliceNode, 2, false, DefaultTTL) {
		t.Fatalf("second SendHello failed")
	}

	datagrams := caller.sent[loopbackAddr.String()]
	if len(datagrams) != 2 {
		t.Fatalf("expected 2 HELLO datagrams, got %d", len(datagrams))
	}

	iv1 := extractIVRegion(t, datagrams[0])
	iv2 := extractIVRegion(t, datagrams[1])
	if string(iv1) == string(iv2) {
		t.Fatalf("expected two HELLOs to use distinct CTR IVs")
	}

	for i, dg := range datagrams {
		result, ok := receiveSingleDatagram(t, caller, bobNode, pAlice, dg)
		if !ok {
			t.Fatalf("datagram %d: Receive failed to authenticate HELLO", i)
		}
		if result.Verb != wire.VerbHELLO {
			t.Fatalf("datagram %d: expected verb HELLO, got %v", i, result.Verb)
		}
		info, ok := pAlice.handleHello(bobNode, int64(i), result.Payload)
		if !ok {
			t.Fatalf("datagram %d: handleHello failed to parse the authenticated HELLO", i)
		}
		if info.Dictionary == nil {
			t.Fatalf("datagram %d: expected a decrypted dictionary", i)
		}
		if _, present := info.Dictionary.GetU64(HelloDictKeyInstanceID); !present {
			t.Fatalf("datagram %d: expected instance_id in the decrypted HELLO dictionary", i)
		}
	}
}

// extractIVRegion locates the 12-byte CTR IV inside a marshaled HELLO
// datagram using the same fixed-prefix arithmetic handleHello applies.
func extractIVRegion(t *testing.T, dg []byte) []byte {
	t.Helper()
	const fixedPrefix = wire.PacketHeaderSize + 1 + 1 + 1 + 1 + 2 + 8 + 32
	if len(dg) < fixedPrefix+2 {
		t.Fatalf("datagram too short to contain a HELLO fixed prefix")
	}
	offset := fixedPrefix
	p521Len := int(dg[offset])<<8 | int(dg[offset+1])
	offset += 2 + p521Len
	epLen := int(dg[offset])<<8 | int(dg[offset+1])
	offset += 2 + epLen
	iv := make([]byte, 12)
	copy(iv, dg[offset:offset+12])
	return iv
}
