/*
File Name:  header.go
Copyright:  vl1mesh contributors

PacketHeader and FragmentHeader lay out the fixed on-wire prefixes
exactly, byte for byte, since interoperability depends on it. Grounded
on the teacher's Packet Encoding.go packetHeader layout (fixed ID,
addresses, and signature/auth fields at constant offsets) adapted from
Peernet's secp256k1-signature header to this protocol's cipher/hop-count
flags byte and message-auth field.
*/

package wire

import (
	"github.com/vl1mesh/overlay/identity"
)

// Cipher identifies which of the three cipher suites a packet uses.
type Cipher byte

const (
	CipherNoCryptPoly1305 Cipher = 0
	CipherSalsa2012Poly1305 Cipher = 1
	CipherAESGMACSIV      Cipher = 2
)

// Verb identifies the packet payload's message type, masked from the
// decrypted payload's first byte.
type Verb byte

const (
	VerbNOP              Verb = 0
	VerbHELLO             Verb = 1
	VerbERROR             Verb = 2
	VerbOK                Verb = 3
	VerbWHOIS             Verb = 4
	VerbRENDEZVOUS        Verb = 5
	VerbECHO              Verb = 6
	VerbPUSHDIRECTPATHS   Verb = 7
	VerbUSERMESSAGE       Verb = 8
)

// VerbMask isolates the verb value from the flag bits sharing its byte.
const VerbMask Verb = 0x1f

// VerbFlagHMAC marks the "has HMAC trailer" flag, set on HELLO.
const VerbFlagHMAC Verb = 0x80

// HideHopsMask isolates the low 3 hop-count bits of the header flags
// byte. These bits are mutable in transit (each relay increments them)
// and must be zeroed wherever the header participates in key derivation
// or AEAD authentication.
const HideHopsMask byte = 0x07

const (
	// PacketHeaderSize is the fixed on-wire prefix size of every packet:
	// 8 (id) + 5 (dest) + 5 (src) + 1 (flags/cipher/hops) + 8 (message auth).
	PacketHeaderSize = 27

	// FragmentHeaderSize is the fixed on-wire prefix size of every
	// trailing fragment: 8 (id) + 5 (dest) + 1 (indicator) + 1 (composite
	// total/fragno) + 1 (reserved).
	FragmentHeaderSize = 16

	// FragmentIndicator distinguishes a fragment header from a packet
	// header sharing the same transport.
	FragmentIndicator byte = 0xff
)

// PacketHeader is the fixed 27-byte prefix of every VL1 packet.
type PacketHeader struct {
	ID            uint64
	Destination   identity.Address
	Source        identity.Address
	FlagsCipherHops byte
	MessageAuth   [8]byte
}

// Cipher extracts the cipher suite from the flags/cipher/hops byte. The
// cipher occupies the high bits above the 3 hop-count bits.
func (h *PacketHeader) Cipher() Cipher {
	return Cipher(h.FlagsCipherHops >> 3)
}

// SetCipher sets the cipher suite, preserving the current hop count.
func (h *PacketHeader) SetCipher(c Cipher) {
	h.FlagsCipherHops = (h.FlagsCipherHops & HideHopsMask) | (byte(c) << 3)
}

// Hops extracts the current hop count (0-7).
func (h *PacketHeader) Hops() byte {
	return h.FlagsCipherHops & HideHopsMask
}

// IncrementHops increments the hop count, saturating at 7.
func (h *PacketHeader) IncrementHops() {
	hops := h.Hops()
	if hops < HideHopsMask {
		h.FlagsCipherHops = (h.FlagsCipherHops &^ HideHopsMask) | (hops + 1)
	}
}

// Marshal writes the header's 27-byte wire form.
func (h *PacketHeader) Marshal() []byte {
	b := NewBuffer()
	b.WriteUint64(h.ID)
	b.Write(h.Destination[:])
	b.Write(h.Source[:])
	b.WriteByte(h.FlagsCipherHops)
	b.Write(h.MessageAuth[:])
	return b.Bytes()
}

// UnmarshalPacketHeader reads a PacketHeader from the first
// PacketHeaderSize bytes of data.
func UnmarshalPacketHeader(data []byte) (*PacketHeader, error) {
	if len(data) < PacketHeaderSize {
		return nil, ErrBufferUnderflow
	}
	r := NewReader(data[:PacketHeaderSize])
	h := &PacketHeader{}

	id, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	h.ID = id

	dest, err := r.ReadBytes(5)
	if err != nil {
		return nil, err
	}
	copy(h.Destination[:], dest)

	src, err := r.ReadBytes(5)
	if err != nil {
		return nil, err
	}
	copy(h.Source[:], src)

	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	h.FlagsCipherHops = flags

	auth, err := r.ReadBytes(8)
	if err != nil {
		return nil, err
	}
	copy(h.MessageAuth[:], auth)

	return h, nil
}

// AAD returns the associated-authenticated-data bytes used by
// AES-GMAC-SIV: destination, source, and the flags byte with hop-count
// bits masked to zero. The packet ID is excluded (for AES-GMAC-SIV it is
// not yet known at encrypt time - it IS the tag) and the hop count is
// stripped because each relay mutates it in transit.
func (h *PacketHeader) AAD() []byte {
	b := NewBuffer()
	b.Write(h.Destination[:])
	b.Write(h.Source[:])
	b.WriteByte(h.FlagsCipherHops &^ HideHopsMask)
	return b.Bytes()
}

// FragmentHeader is the fixed 16-byte prefix of every trailing fragment.
type FragmentHeader struct {
	ID              uint64
	Destination     identity.Address
	Indicator       byte
	TotalFragno     byte // high nibble = total count, low nibble = fragment number
	ReservedHops    byte
}

// NewFragmentHeader builds a fragment header for fragment number fragno
// out of total fragments (including the head), matching the on-wire
// nibble packing.
func NewFragmentHeader(id uint64, dest identity.Address, total, fragno int) *FragmentHeader {
	return &FragmentHeader{
		ID:          id,
		Destination: dest,
		Indicator:   FragmentIndicator,
		TotalFragno: byte((total&0x0f)<<4) | byte(fragno&0x0f),
	}
}

// Total returns the total fragment count (including the head fragment).
func (f *FragmentHeader) Total() int { return int(f.TotalFragno>>4) & 0x0f }

// FragmentNumber returns this fragment's 1-based index among the trailing
// fragments.
func (f *FragmentHeader) FragmentNumber() int { return int(f.TotalFragno) & 0x0f }

// Marshal writes the fragment header's 16-byte wire form.
func (f *FragmentHeader) Marshal() []byte {
	b := NewBuffer()
	b.WriteUint64(f.ID)
	b.Write(f.Destination[:])
	b.WriteByte(f.Indicator)
	b.WriteByte(f.TotalFragno)
	b.WriteByte(f.ReservedHops)
	return b.Bytes()
}

// UnmarshalFragmentHeader reads a FragmentHeader from the first
// FragmentHeaderSize bytes of data.
func UnmarshalFragmentHeader(data []byte) (*FragmentHeader, error) {
	if len(data) < FragmentHeaderSize {
		return nil, ErrBufferUnderflow
	}
	r := NewReader(data[:FragmentHeaderSize])
	f := &FragmentHeader{}

	id, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	f.ID = id

	dest, err := r.ReadBytes(5)
	if err != nil {
		return nil, err
	}
	copy(f.Destination[:], dest)

	ind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	f.Indicator = ind

	tf, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	f.TotalFragno = tf

	rh, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	f.ReservedHops = rh

	return f, nil
}

// FragmentCount returns the total number of wire transmissions (head
// included) required to send a packet of totalSize bytes over a
// transport of the given mtu, per the fragmentation formula: the head
// carries the first mtu bytes, and the remainder is split into chunks of
// (mtu - FragmentHeaderSize) bytes each.
func FragmentCount(totalSize, mtu int) int {
	if totalSize <= mtu {
		return 1
	}
	remaining := totalSize - mtu
	chunk := mtu - FragmentHeaderSize
	return 1 + (remaining+chunk-1)/chunk
}
