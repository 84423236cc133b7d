/*
File Name:  salsa12.go
Copyright:  vl1mesh contributors

Salsa20 reduced to 12 rounds (6 double-rounds). golang.org/x/crypto/salsa20
hardcodes the full 20-round schedule with no rounds parameter, so the
wire format's Salsa20/12 cipher is implemented directly against the public
Salsa20 specification rather than sourced from a library that cannot
produce it.
*/

package xcrypto

import "encoding/binary"

const salsaRounds = 12

// Salsa12 is a Salsa20/12 keystream generator, 32-byte key and 8-byte nonce.
type Salsa12 struct {
	state      [16]uint32
	keystream  [64]byte
	used       int
	blockIndex uint64
}

// NewSalsa12 initializes a Salsa20/12 stream keyed by key with the given
// 8-byte nonce.
func NewSalsa12(key *[32]byte, nonce []byte) *Salsa12 {
	if len(nonce) != 8 {
		panic("xcrypto: salsa20/12 nonce must be 8 bytes")
	}
	s := &Salsa12{}
	const sigma = "expand 32-byte k"
	s.state[0] = binary.LittleEndian.Uint32([]byte(sigma[0:4]))
	s.state[1] = binary.LittleEndian.Uint32(key[0:4])
	s.state[2] = binary.LittleEndian.Uint32(key[4:8])
	s.state[3] = binary.LittleEndian.Uint32(key[8:12])
	s.state[4] = binary.LittleEndian.Uint32(key[12:16])
	s.state[5] = binary.LittleEndian.Uint32([]byte(sigma[4:8]))
	s.state[6] = binary.LittleEndian.Uint32(nonce[0:4])
	s.state[7] = binary.LittleEndian.Uint32(nonce[4:8])
	s.state[8] = 0 // block counter low
	s.state[9] = 0 // block counter high
	s.state[10] = binary.LittleEndian.Uint32([]byte(sigma[8:12]))
	s.state[11] = binary.LittleEndian.Uint32(key[16:20])
	s.state[12] = binary.LittleEndian.Uint32(key[20:24])
	s.state[13] = binary.LittleEndian.Uint32(key[24:28])
	s.state[14] = binary.LittleEndian.Uint32(key[28:32])
	s.state[15] = binary.LittleEndian.Uint32([]byte(sigma[12:16]))
	s.used = 64 // force a block generation on first use
	return s
}

func rotl(x uint32, n uint) uint32 { return (x << n) | (x >> (32 - n)) }

func (s *Salsa12) generateBlock() {
	var x [16]uint32
	copy(x[:], s.state[:])

	for i := 0; i < salsaRounds/2; i++ {
		// column round
		x[4] ^= rotl(x[0]+x[12], 7)
		x[8] ^= rotl(x[4]+x[0], 9)
		x[12] ^= rotl(x[8]+x[4], 13)
		x[0] ^= rotl(x[12]+x[8], 18)
		x[9] ^= rotl(x[5]+x[1], 7)
		x[13] ^= rotl(x[9]+x[5], 9)
		x[1] ^= rotl(x[13]+x[9], 13)
		x[5] ^= rotl(x[1]+x[13], 18)
		x[14] ^= rotl(x[10]+x[6], 7)
		x[2] ^= rotl(x[14]+x[10], 9)
		x[6] ^= rotl(x[2]+x[14], 13)
		x[10] ^= rotl(x[6]+x[2], 18)
		x[3] ^= rotl(x[15]+x[11], 7)
		x[7] ^= rotl(x[3]+x[15], 9)
		x[11] ^= rotl(x[7]+x[3], 13)
		x[15] ^= rotl(x[11]+x[7], 18)

		// row round
		x[1] ^= rotl(x[0]+x[3], 7)
		x[2] ^= rotl(x[1]+x[0], 9)
		x[3] ^= rotl(x[2]+x[1], 13)
		x[0] ^= rotl(x[3]+x[2], 18)
		x[6] ^= rotl(x[5]+x[4], 7)
		x[7] ^= rotl(x[6]+x[5], 9)
		x[4] ^= rotl(x[7]+x[6], 13)
		x[5] ^= rotl(x[4]+x[7], 18)
		x[11] ^= rotl(x[10]+x[9], 7)
		x[8] ^= rotl(x[11]+x[10], 9)
		x[9] ^= rotl(x[8]+x[11], 13)
		x[10] ^= rotl(x[9]+x[8], 18)
		x[12] ^= rotl(x[15]+x[14], 7)
		x[13] ^= rotl(x[12]+x[15], 9)
		x[14] ^= rotl(x[13]+x[12], 13)
		x[15] ^= rotl(x[14]+x[13], 18)
	}

	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(s.keystream[i*4:i*4+4], x[i]+s.state[i])
	}

	s.blockIndex++
	s.state[8] = uint32(s.blockIndex)
	s.state[9] = uint32(s.blockIndex >> 32)
	s.used = 0
}

// XORKeyStream encrypts (or decrypts) src into dst, consuming keystream.
func (s *Salsa12) XORKeyStream(dst, src []byte) {
	for i := range src {
		if s.used == 64 {
			s.generateBlock()
		}
		dst[i] = src[i] ^ s.keystream[s.used]
		s.used++
	}
}
