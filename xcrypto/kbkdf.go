/*
File Name:  kbkdf.go
Copyright:  vl1mesh contributors

KBKDF: NIST SP800-108 counter-mode key derivation using HMAC-SHA-384,
producing labeled sub-keys from a single session secret. Mirrors
zerotier's zt_kbkdf_hmac_sha384 usage-label convention.
*/

package xcrypto

import "encoding/binary"

// Usage labels, one per derived sub-key. Values are arbitrary but must be
// stable and distinct; they correspond to original_source's
// KBKDF_KEY_USAGE_LABEL_* constants.
const (
	LabelAESGMACSIVK0         byte = 0
	LabelAESGMACSIVK1         byte = 1
	LabelHelloDictionaryCrypt byte = 2
	LabelPacketHMAC           byte = 3
)

// KBKDFHMACSHA384 derives outputLen bytes (<=48) from key under the given
// usage label, using a single round of SP800-108 counter-mode HMAC-SHA384:
// HMAC(key, counter(1) || label(1) || 0x00 || outputLen-bits(BE u32)).
// A single HMAC-SHA384 round supplies 48 bytes, which covers every
// sub-key this package ever derives.
func KBKDFHMACSHA384(key []byte, label byte, outputLen int) []byte {
	if outputLen > 48 {
		panic("xcrypto: KBKDF output length exceeds single HMAC-SHA384 round")
	}

	var context [7]byte
	context[0] = 1 // counter = 1 (only one round needed)
	context[1] = label
	context[2] = 0 // separator
	binary.BigEndian.PutUint32(context[3:7], uint32(outputLen)*8)

	full := HMACSHA384(key, context[:])
	out := make([]byte, outputLen)
	copy(out, full[:outputLen])
	return out
}
