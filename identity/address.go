/*
File Name:  address.go
Copyright:  vl1mesh contributors

Address is the 40-bit short peer address carried in every packet header's
destination and source fields. It is derived from an identity's public
key material by hashing with blake3, the teacher's own hashing
dependency (used in merkle/Merkle Tree.go for fragment hashes),
truncated to 5 bytes.
*/

package identity

import "lukechampine.com/blake3"

// Address is the 5-byte (40-bit) short address identifying a peer.
type Address [5]byte

// IsZero reports whether the address is the all-zero sentinel, used to
// mean "no address" / "unknown destination".
func (a Address) IsZero() bool {
	return a == Address{}
}

// AddressFromPublicKeys derives a short address by hashing the
// concatenation of an identity's agreement public keys and truncating
// the digest to 5 bytes.
func AddressFromPublicKeys(curve25519Public []byte, p521Public []byte) Address {
	h := blake3.Sum256(append(append([]byte{}, curve25519Public...), p521Public...))
	var addr Address
	copy(addr[:], h[:5])
	return addr
}
