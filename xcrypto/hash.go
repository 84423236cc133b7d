/*
File Name:  hash.go
Copyright:  vl1mesh contributors

Thin wrappers around the SHA-384 / HMAC-SHA-384 primitives the session
layer treats as black-box contracts.
*/

package xcrypto

import (
	"crypto/hmac"
	"crypto/sha512"
)

// SHA384 hashes data with SHA-384, returning the full 48-byte digest.
func SHA384(data ...[]byte) [48]byte {
	h := sha512.New384()
	for _, d := range data {
		h.Write(d)
	}
	var out [48]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HMACSHA384 computes HMAC-SHA-384 over data using key.
func HMACSHA384(key []byte, data []byte) [48]byte {
	mac := hmac.New(sha512.New384, key)
	mac.Write(data)
	var out [48]byte
	copy(out[:], mac.Sum(nil))
	return out
}
