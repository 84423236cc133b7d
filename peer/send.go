/*
File Name:  send.go
Copyright:  vl1mesh contributors

Outbound packet assembly: cipher selection, encryption, MTU-aware
fragmentation, and HELLO construction. Grounded on the teacher's
Connection.go send() (build header, encrypt, hand to the transport) and
on original_source's peer.rs send_user_message/send_hello shape for the
HELLO byte-construction order.
*/

package peer

import (
	"crypto/rand"
	"encoding/binary"
	"net"

	"github.com/vl1mesh/overlay/pathset"
	"github.com/vl1mesh/overlay/wire"
	"github.com/vl1mesh/overlay/xcrypto"
)

// DefaultMTU is the default transport MTU used when fragmenting outbound
// packets; callers may pass a different value to Send.
const DefaultMTU = 1400

// DefaultTTL leaves the outbound socket's existing IP TTL untouched.
// Callers pass a nonzero value only to probe a specific hop count (e.g.
// path discovery), matching wire_send's ttl parameter.
const DefaultTTL = 0

// HelloDictKeyInstanceID through HelloDictKeyFlags are the HELLO
// dictionary's exact key strings.
const (
	HelloDictKeyInstanceID        = "instance_id"
	HelloDictKeyClock             = "clock"
	HelloDictKeyLocator            = "locator"
	HelloDictKeyEphemeralC25519    = "ephemeral_c25519"
	HelloDictKeyEphemeralP521      = "ephemeral_p521"
	HelloDictKeySystemArch         = "sys_arch"
	HelloDictKeySystemBits         = "sys_bits"
	HelloDictKeyOSName             = "os_name"
	HelloDictKeyFlags              = "flags"
)

// helloDictIVRegionSize is the HELLO packet's CTR-IV-plus-reserved
// region: 12 real IV bytes followed by 6 zeroed reserved bytes (design
// note b).
const helloDictIVRegionSize = 18

// selectCipher implements the established-session cipher default: when
// an ephemeral secret is installed, AES-GMAC-SIV; otherwise
// SALSA20/12-POLY1305. HELLO always overrides this with
// NOCRYPT-POLY1305 at the call site.
func selectCipher(ephemeral *PeerSecret) wire.Cipher {
	if ephemeral != nil {
		return wire.CipherAESGMACSIV
	}
	return wire.CipherSalsa2012Poly1305
}

// Send encrypts and transmits payload (whose first byte is the verb) to
// this peer, choosing the best known direct path or, absent one,
// delegating through the node's root peer's best path. ttl is passed through to the
// transport's wire_send (DefaultTTL leaves the socket's TTL alone). It
// returns false if no path was available or if the transport's
// wire_send failed.
func (p *Peer) Send(caller CallerInterface, node NodeContext, nowTicks int64, mtu int, ttl int, verb wire.Verb, payload []byte) bool {
	best := p.BestPath()
	if best == nil {
		if root := node.RootPeer(); root != nil && root != p {
			best = root.BestPath()
		}
		if best == nil {
			return false
		}
	}
	if best.Endpoint.UDPAddr == nil {
		return false
	}

	ephemeral := p.EphemeralSecret()
	cipher := selectCipher(ephemeral)
	secret := ephemeral
	if secret == nil {
		secret = p.staticSecret
	}

	full := make([]byte, 0, 1+len(payload))
	full = append(full, byte(verb))
	full = append(full, payload...)

	header := &wire.PacketHeader{
		ID:          p.NextPacketIV(),
		Destination: p.RemoteAddress,
		Source:      node.LocalAddress(),
	}
	header.SetCipher(cipher)

	wirePacket, err := encryptPacket(header, secret, full)
	if err != nil {
		return false
	}

	ok := p.sendUDP(caller, best, header, wirePacket, mtu, ttl)
	p.AddBytesSent(len(wirePacket)+wire.PacketHeaderSize, nowTicks)
	return ok
}

// encryptPacket encrypts/authenticates body (verb byte plus payload)
// under secret's cipher, returning the ciphertext-plus-trailer to follow
// the marshaled header, and filling in header.MessageAuth.
func encryptPacket(header *wire.PacketHeader, secret *PeerSecret, body []byte) ([]byte, error) {
	switch header.Cipher() {
	case wire.CipherSalsa2012Poly1305:
		return encryptSalsaPoly1305(header, secret, body)
	case wire.CipherAESGMACSIV:
		return encryptAESGMACSIV(header, secret, body)
	default:
		return encryptNoCryptPoly1305(header, secret, body)
	}
}

// salsaKeyForPacket implements the per-packet Salsa20/12 key derivation:
// a copy of the 48-byte secret, XORed with header bytes 0..18, the
// hop-masked flags byte at index 18, and the big-endian packet size at
// indices 19-20.
func salsaKeyForPacket(secret *PeerSecret, header *wire.PacketHeader, totalSize int) *[32]byte {
	raw := *secret.Bytes()
	headerBytes := header.Marshal()

	for i := 0; i < 18 && i < len(headerBytes); i++ {
		raw[i] ^= headerBytes[i]
	}
	raw[18] ^= header.FlagsCipherHops &^ wire.HideHopsMask
	raw[19] ^= byte(totalSize >> 8)
	raw[20] ^= byte(totalSize)

	var key [32]byte
	copy(key[:], raw[:32])
	return &key
}

func packetIDNonce(id uint64) []byte {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], id)
	return nonce[:]
}

func encryptSalsaPoly1305(header *wire.PacketHeader, secret *PeerSecret, body []byte) ([]byte, error) {
	totalSize := wire.PacketHeaderSize + len(body)
	key := salsaKeyForPacket(secret, header, totalSize)
	stream := xcrypto.NewSalsa12(key, packetIDNonce(header.ID))

	var polyKey [32]byte
	var zero [32]byte
	stream.XORKeyStream(polyKey[:], zero[:])

	ciphertext := make([]byte, len(body))
	stream.XORKeyStream(ciphertext, body)

	mac := xcrypto.NewPoly1305(&polyKey)
	mac.Update(ciphertext)
	tag := mac.Finish()
	copy(header.MessageAuth[:], tag[:8])

	return ciphertext, nil
}

func encryptAESGMACSIV(header *wire.PacketHeader, secret *PeerSecret, body []byte) ([]byte, error) {
	cipher := secret.AcquireCipher()
	defer secret.ReleaseCipher(cipher)

	aad := header.AAD()
	tag, ciphertext := cipher.Seal(aad, body)
	copy(header.MessageAuth[:], tag[:8])
	header.ID = binary.BigEndian.Uint64(tag[:8])

	// Only the first 8 bytes of the 16-byte SIV tag fit in the fixed
	// header's message-auth field (they double as the packet ID); the
	// remaining 8 bytes are cipher-specific trailing bytes carried ahead
	// of the ciphertext.
	out := make([]byte, 8+len(ciphertext))
	copy(out[:8], tag[8:])
	copy(out[8:], ciphertext)
	return out, nil
}

func encryptNoCryptPoly1305(header *wire.PacketHeader, secret *PeerSecret, body []byte) ([]byte, error) {
	totalSize := wire.PacketHeaderSize + len(body)
	key := salsaKeyForPacket(secret, header, totalSize)
	stream := xcrypto.NewSalsa12(key, packetIDNonce(header.ID))

	var polyKey [32]byte
	var zero [32]byte
	stream.XORKeyStream(polyKey[:], zero[:])

	mac := xcrypto.NewPoly1305(&polyKey)
	mac.Update(body)
	tag := mac.Finish()
	copy(header.MessageAuth[:], tag[:8])

	return append([]byte(nil), body...), nil
}

// sendUDP handles MTU-aware fragmentation: the packet's header and
// ciphertext are assembled, and if the whole thing fits in mtu bytes it
// is sent in one call; otherwise an MTU-sized head is sent followed by
// trailing fragments of up to (mtu - FragmentHeaderSize) bytes each,
// each prefixed with a FragmentHeader. Every wire_send call carries
// path's recorded local socket/interface, the destination the path
// resolved to, and the caller's requested ttl. Any wire_send failure
// aborts immediately and propagates false; no partial retries are
// attempted.
func (p *Peer) sendUDP(caller CallerInterface, path *pathset.Path, header *wire.PacketHeader, ciphertext []byte, mtu int, ttl int) bool {
	if mtu <= wire.FragmentHeaderSize {
		mtu = DefaultMTU
	}

	addr := path.Endpoint.UDPAddr
	localSocket := path.LocalSocket
	localInterface := path.LocalInterface

	full := append(header.Marshal(), ciphertext...)

	if len(full) <= mtu {
		return caller.WireSend(addr, localSocket, localInterface, full, ttl)
	}

	if !caller.WireSend(addr, localSocket, localInterface, full[:mtu], ttl) {
		return false
	}

	remaining := full[mtu:]
	total := wire.FragmentCount(len(full), mtu)
	chunkSize := mtu - wire.FragmentHeaderSize
	fragno := 1

	for len(remaining) > 0 {
		n := chunkSize
		if n > len(remaining) {
			n = len(remaining)
		}
		frag := wire.NewFragmentHeader(header.ID, header.Destination, total, fragno)
		out := append(frag.Marshal(), remaining[:n]...)
		if !caller.WireSend(addr, localSocket, localInterface, out, ttl) {
			return false
		}
		remaining = remaining[n:]
		fragno++
	}

	return true
}

// SendHello builds and transmits a HELLO packet to this peer, following
// the wire-construction order: header reservation, fixed version/clock
// fields, marshaled local identity and chosen endpoint, a fresh 12-byte
// CTR IV plus reserved region, the dictionary (encrypted in place under
// the KBKDF hello-dictionary sub-key), an HMAC-SHA-384 trailer, and
// finally the Salsa-derived Poly1305 message-auth field.
func (p *Peer) SendHello(caller CallerInterface, node NodeContext, nowTicks int64, isRoot bool, ttl int) bool {
	best := p.BestPath()
	if best == nil || best.Endpoint.UDPAddr == nil {
		return false
	}

	header := &wire.PacketHeader{
		ID:          p.NextPacketIV(),
		Destination: p.RemoteAddress,
		Source:      node.LocalAddress(),
	}
	header.SetCipher(wire.CipherNoCryptPoly1305)

	body := wire.NewBuffer()
	body.WriteByte(byte(wire.VerbHELLO) | byte(wire.VerbFlagHMAC))

	protocol, major, minor, revision := node.ProtocolVersion()
	body.WriteByte(byte(protocol))
	body.WriteByte(byte(major))
	body.WriteByte(byte(minor))
	var revBytes [2]byte
	binary.BigEndian.PutUint16(revBytes[:], revision)
	body.Write(revBytes[:])
	body.WriteUint64(uint64(node.NowClock()))

	localID := node.LocalIdentity()
	localC25519 := localID.Curve25519Public()
	body.Write(localC25519[:])
	p521Bytes := localID.P521PublicBytes()
	var p521Len [2]byte
	binary.BigEndian.PutUint16(p521Len[:], uint16(len(p521Bytes)))
	body.Write(p521Len[:])
	body.Write(p521Bytes)

	endpointBytes := marshalUDPAddr(best.Endpoint.UDPAddr)
	var epLen [2]byte
	binary.BigEndian.PutUint16(epLen[:], uint16(len(endpointBytes)))
	body.Write(epLen[:])
	body.Write(endpointBytes)

	dictRegionOffset := body.Len()
	var ivRegion [helloDictIVRegionSize]byte
	if _, err := rand.Read(ivRegion[:12]); err != nil {
		return false
	}
	body.Write(ivRegion[:])

	dict := wire.NewDictionary()
	dict.SetU64(HelloDictKeyInstanceID, node.InstanceID())
	dict.SetU64(HelloDictKeyClock, uint64(node.NowClock()))

	if pair := p.OfferedEphemeralPair(); pair != nil {
		c25519 := pair.Curve25519Public()
		dict.SetBytes(HelloDictKeyEphemeralC25519, c25519[:])
		dict.SetBytes(HelloDictKeyEphemeralP521, pair.P521PublicBytes())
	}

	if isRoot {
		dict.SetStr(HelloDictKeySystemArch, systemArch)
		dict.SetU64(HelloDictKeySystemBits, systemPointerBits)
		dict.SetStr(HelloDictKeyOSName, systemOSName)
	}

	var flags string
	if node.FIPSMode() {
		flags += "F"
	}
	if node.WimpMode() {
		flags += "w"
	}
	dict.SetStr(HelloDictKeyFlags, flags)

	dictBytes := dict.Marshal()
	body.Write(dictBytes)

	payload := body.Bytes()

	ctrKey := p.staticSecret.HelloDictionaryKey()
	ctr, err := xcrypto.NewAESCTR(ctrKey)
	if err != nil {
		return false
	}
	dictPlain := payload[dictRegionOffset+helloDictIVRegionSize:]
	p.helloDictMu.Lock()
	copy(p.helloDictIV[:], ivRegion[:12])
	ctr.CryptInPlace(p.helloDictIV[:], dictPlain)
	p.helloDictMu.Unlock()

	hmacKey := p.staticSecret.PacketHMACKey()
	trailer := xcrypto.HMACSHA384(hmacKey, payload[1:])
	payload = append(payload, trailer[:]...)

	key := salsaKeyForPacket(p.staticSecret, header, wire.PacketHeaderSize+len(payload))
	stream := xcrypto.NewSalsa12(key, packetIDNonce(header.ID))
	var polyKey [32]byte
	var zero [32]byte
	stream.XORKeyStream(polyKey[:], zero[:])
	mac := xcrypto.NewPoly1305(&polyKey)
	mac.Update(payload)
	tag := mac.Finish()
	copy(header.MessageAuth[:], tag[:8])

	ok := p.sendUDP(caller, best, header, payload, DefaultMTU, ttl)
	p.AddBytesSent(wire.PacketHeaderSize+len(payload), nowTicks)
	return ok
}

func marshalUDPAddr(addr *net.UDPAddr) []byte {
	b := wire.NewBuffer()
	ip4 := addr.IP.To4()
	if ip4 != nil {
		b.WriteByte(4)
		b.Write(ip4)
	} else {
		b.WriteByte(6)
		b.Write(addr.IP.To16())
	}
	var portBytes [2]byte
	binary.BigEndian.PutUint16(portBytes[:], uint16(addr.Port))
	b.Write(portBytes[:])
	return b.Bytes()
}
