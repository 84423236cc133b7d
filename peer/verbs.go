/*
File Name:  verbs.go
Copyright:  vl1mesh contributors

Built-in VL1 verb handlers reached once a packet has authenticated and
the higher-layer handler has declined it. HELLO and ECHO are fully
implemented here, matching spec 4.4's send_hello construction in
reverse; OK/ERROR/WHOIS/RENDEZVOUS/PUSH_DIRECT_PATHS/USER_MESSAGE are
declared per design note "the OK-processing path is declared here but
its full logic is out of scope" and left as documented stubs a fuller
VL1 implementation would flesh out.
*/

package peer

import (
	"encoding/binary"

	"github.com/vl1mesh/overlay/wire"
	"github.com/vl1mesh/overlay/xcrypto"
)

// HelloInfo is the parsed content of an inbound HELLO, once its
// dictionary has been decrypted and verified.
type HelloInfo struct {
	Protocol, Major, Minor, Revision uint16
	RemoteClock                      int64
	Dictionary                       *wire.Dictionary
}

// handleHello verifies an inbound HELLO's HMAC-SHA-384 trailer and
// Salsa-derived Poly1305 tag were already checked by Receive's trial
// loop (HELLO always arrives under NOCRYPT-POLY1305, so only the HMAC
// trailer remains to verify here), decrypts the dictionary region under
// the static secret's HELLO sub-key, and records the remote peer's
// reported version.
func (p *Peer) handleHello(node NodeContext, nowTicks int64, payload []byte) (*HelloInfo, bool) {
	// payload layout mirrors SendHello's construction, starting just
	// after the verb byte: protocol(1) major(1) minor(1) revision(2)
	// clock(8) c25519(32) p521-len(2) p521 endpoint-len(2) endpoint
	// iv-region(18) dict... hmac-trailer(48).
	const fixedPrefix = 1 + 1 + 1 + 2 + 8 + 32
	if len(payload) < fixedPrefix+2 {
		return nil, false
	}

	info := &HelloInfo{
		Protocol: uint16(payload[0]),
		Major:    uint16(payload[1]),
		Minor:    uint16(payload[2]),
		Revision: binary.BigEndian.Uint16(payload[3:5]),
	}
	info.RemoteClock = int64(binary.BigEndian.Uint64(payload[5:13]))

	offset := fixedPrefix
	p521Len := int(binary.BigEndian.Uint16(payload[offset : offset+2]))
	offset += 2 + p521Len
	if offset+2 > len(payload) {
		return nil, false
	}
	epLen := int(binary.BigEndian.Uint16(payload[offset : offset+2]))
	offset += 2 + epLen
	if offset+helloDictIVRegionSize > len(payload) {
		return nil, false
	}

	if len(payload) < 48 {
		return nil, false
	}
	trailerStart := len(payload) - 48
	hmacKey := p.staticSecret.PacketHMACKey()
	expected := xcrypto.HMACSHA384(hmacKey, payload[:trailerStart])
	if !constantTimeEqual48(expected[:], payload[trailerStart:]) {
		return nil, false
	}

	ivOffset := offset
	iv := payload[ivOffset : ivOffset+12]
	dictCiphertext := append([]byte(nil), payload[ivOffset+helloDictIVRegionSize:trailerStart]...)

	ctr, err := xcrypto.NewAESCTR(p.staticSecret.HelloDictionaryKey())
	if err != nil {
		return nil, false
	}
	ctr.CryptInPlace(iv, dictCiphertext)

	dict, err := wire.UnmarshalDictionary(dictCiphertext)
	if err != nil {
		return nil, false
	}
	info.Dictionary = dict

	p.SetRemoteProtocolVersion(uint32(info.Protocol))
	p.SetRemoteVersion(uint32(info.Major)<<16 | uint32(info.Minor)<<8 | uint32(info.Revision))

	return info, true
}

func constantTimeEqual48(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// handleEcho replies with the same payload under verb ECHO, the
// protocol's liveness probe.
func (p *Peer) handleEcho(caller CallerInterface, node NodeContext, nowTicks int64, payload []byte) {
	p.Send(caller, node, nowTicks, DefaultMTU, DefaultTTL, wire.VerbECHO, payload)
}

// handleOK is declared but intentionally minimal: full OK(HELLO)
// processing (matching the confirmed ephemeral key pair against the
// currently offered one, installing the derived ephemeral PeerSecret,
// clearing the offer) is out of scope here per design note on the
// ephemeral key lifecycle; callers needing that behavior build it atop
// OfferedEphemeralPair/InstallEphemeralSecret/ClearOfferedEphemeralPair.
func (p *Peer) handleOK(node NodeContext, nowTicks int64, payload []byte) {
}
