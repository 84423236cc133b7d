/*
File Name:  aesctr.go
Copyright:  vl1mesh contributors

AES-CTR over stdlib crypto/aes + crypto/cipher, used to encrypt the HELLO
dictionary region under a KBKDF-derived sub-key. AES is named a black-box
primitive contract in spec section 1; stdlib is the primitive itself, not
a substitute for an ecosystem library.
*/

package xcrypto

import (
	"crypto/aes"
	"crypto/cipher"
)

// AESCTR wraps a reusable AES-256 block cipher for repeated CTR-mode use
// with a fresh IV each time, matching the teacher's reusable-cipher-
// instance pattern (one block schedule, many encryptions).
type AESCTR struct {
	block cipher.Block
}

// NewAESCTR schedules a 32-byte AES-256 key.
func NewAESCTR(key []byte) (*AESCTR, error) {
	if len(key) != 32 {
		panic("xcrypto: AES-CTR key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &AESCTR{block: block}, nil
}

// CryptInPlace encrypts (or decrypts) buf in place using a 16-byte CTR
// counter block built from the given 12-byte IV (4 zero counter bytes
// appended), matching the wire format's 12-byte fresh random CTR IV.
func (c *AESCTR) CryptInPlace(iv []byte, buf []byte) {
	if len(iv) != 12 {
		panic("xcrypto: AES-CTR IV must be 12 bytes")
	}
	var counterBlock [aes.BlockSize]byte
	copy(counterBlock[:12], iv)
	stream := cipher.NewCTR(c.block, counterBlock[:])
	stream.XORKeyStream(buf, buf)
}
