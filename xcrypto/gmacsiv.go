/*
File Name:  gmacsiv.go
Copyright:  vl1mesh contributors

AES-GMAC-SIV: a misuse-resistant AEAD built from two AES-256 sub-keys
(K0 for the GHASH-based MAC, K1 for CTR-mode encryption). The tag doubles
as the CTR nonce, in the manner of RFC 5297 SIV but using GHASH rather
than CMAC as the PRF. No pack library implements this construction (the
only appearance in the corpus is as an opaque Rust crate reference), so
it is built directly on crypto/aes + crypto/cipher + the ghash helpers
in this package. Encrypt is one-pass (MAC is computed over plaintext,
since the sender knows it up front); decrypt is two-pass: the ciphertext
is decrypted first under the received tag-as-counter, then the GHASH is
recomputed over the recovered plaintext and compared to the tag.
*/

package xcrypto

import (
	"crypto/aes"
	"crypto/subtle"
)

// AESGMACSIV holds two independently-scheduled AES-256 block ciphers, one
// for the GHASH whitening step (K0) and one for CTR-mode bulk encryption
// (K1). An instance is reusable across many Seal/Open calls.
type AESGMACSIV struct {
	blockK0 cipherBlockEncrypter
	blockK1 cipherBlockEncrypter
	h       [16]byte // GHASH_H = AES_K0(0^16)

	// decrypt-in-progress state, set by DecryptInit. decBuf holds aad
	// followed by the plaintext accumulated across DecryptChunk calls.
	decTag [16]byte
	decBuf []byte
}

type cipherBlockEncrypter interface {
	BlockSize() int
	Encrypt(dst, src []byte)
}

// NewAESGMACSIV schedules both sub-keys. k0 and k1 must each be 32 bytes.
func NewAESGMACSIV(k0, k1 []byte) (*AESGMACSIV, error) {
	if len(k0) != 32 || len(k1) != 32 {
		panic("xcrypto: AES-GMAC-SIV sub-keys must be 32 bytes each")
	}
	b0, err := aes.NewCipher(k0)
	if err != nil {
		return nil, err
	}
	b1, err := aes.NewCipher(k1)
	if err != nil {
		return nil, err
	}
	c := &AESGMACSIV{blockK0: b0, blockK1: b1}
	var zero [16]byte
	b0.Encrypt(c.h[:], zero[:])
	return c, nil
}

// Reset clears any in-progress decrypt state, allowing instance reuse from
// a pool.
func (c *AESGMACSIV) Reset() {
	c.decTag = [16]byte{}
	c.decBuf = nil
}

// macTag computes the whitened GHASH tag over (aad, plaintext), per
// SP800-38D-style length-block construction: GHASH(pad(aad) || pad(pt) ||
// len(aad)*8 || len(pt)*8), then tag = AES_K0(ghashResult).
func (c *AESGMACSIV) macTag(aad, data []byte) [16]byte {
	buf := make([]byte, 0, len(padBlocks(aad))+len(padBlocks(data))+16)
	buf = append(buf, padBlocks(aad)...)
	buf = append(buf, padBlocks(data)...)

	var lenBlock [16]byte
	putUint64BE(lenBlock[0:8], uint64(len(aad))*8)
	putUint64BE(lenBlock[8:16], uint64(len(data))*8)
	buf = append(buf, lenBlock[:]...)

	g := ghash(c.h, buf)
	var tag [16]byte
	c.blockK0.Encrypt(tag[:], g[:])
	return tag
}

func putUint64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// ctrCounterFromTag derives the initial CTR counter block from a SIV tag,
// clearing the top bit of the first byte as RFC 5297 does for its SIV-CTR
// construction, so the counter can safely wrap across a full-size message
// without colliding with the sign bit used elsewhere in the wire header.
func ctrCounterFromTag(tag [16]byte) [16]byte {
	counter := tag
	counter[0] &^= 0x80
	return counter
}

func (c *AESGMACSIV) ctrCrypt(counter [16]byte, dst, src []byte) {
	var ks [16]byte
	var block [16]byte
	copy(block[:], counter[:])
	off := 0
	for off < len(src) {
		c.blockK1.Encrypt(ks[:], block[:])
		n := 16
		if len(src)-off < 16 {
			n = len(src) - off
		}
		for i := 0; i < n; i++ {
			dst[off+i] = src[off+i] ^ ks[i]
		}
		off += n
		incrementCounter(&block)
	}
}

func incrementCounter(block *[16]byte) {
	for i := 15; i >= 0; i-- {
		block[i]++
		if block[i] != 0 {
			break
		}
	}
}

// Seal computes the SIV tag over aad+plaintext and returns (tag,
// ciphertext). The tag also serves as the packet's AES-GMAC-SIV message
// authentication field and, in its first 8 bytes, as the packet ID.
func (c *AESGMACSIV) Seal(aad, plaintext []byte) (tag [16]byte, ciphertext []byte) {
	tag = c.macTag(aad, plaintext)
	ciphertext = make([]byte, len(plaintext))
	c.ctrCrypt(ctrCounterFromTag(tag), ciphertext, plaintext)
	return tag, ciphertext
}

// DecryptInit begins a decrypt operation under the given received tag and
// associated data, mirroring original_source's decrypt_init/decrypt_set_aad
// call shape.
func (c *AESGMACSIV) DecryptInit(tag [16]byte, aad []byte) {
	c.decTag = tag
	c.decBuf = append([]byte(nil), aad...)
}

// DecryptChunk decrypts ciphertext under the tag supplied to DecryptInit,
// returning the recovered plaintext. The caller must present the complete
// ciphertext in one call; DecryptFinish then verifies it.
func (c *AESGMACSIV) DecryptChunk(ciphertext []byte) []byte {
	plaintext := make([]byte, len(ciphertext))
	c.ctrCrypt(ctrCounterFromTag(c.decTag), plaintext, ciphertext)
	c.decBuf = append(c.decBuf, plaintext...)
	return plaintext
}

// DecryptFinish recomputes the tag over the AAD and accumulated plaintext
// from DecryptChunk and reports whether it matches the tag given to
// DecryptInit, in constant time. aadLen is the length of the aad passed
// to DecryptInit.
func (c *AESGMACSIV) DecryptFinish(aadLen int) bool {
	aad := c.decBuf[:aadLen]
	plaintext := c.decBuf[aadLen:]
	expect := c.macTag(aad, plaintext)
	return subtle.ConstantTimeCompare(expect[:], c.decTag[:]) == 1
}
