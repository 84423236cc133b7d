/*
File Name:  identity.go
Copyright:  vl1mesh contributors

An Identity is a remote peer's public identity material. Identity
generation, validation, and certification are treated as an external
collaborator here; this package only implements the one contract the
session layer needs from an Identity: agreement on a 48-byte shared
secret with another Identity. Grounded on the teacher's Peer ID.go
initPeerID/Secp256k1NewPrivateKey pattern (load key material from
config if present, otherwise generate and persist), adapted from a
single secp256k1 signing key to the two ECDH key pairs static-secret
agreement actually requires.
*/

package identity

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/curve25519"

	"github.com/vl1mesh/overlay/xcrypto"
)

// Identity holds one peer's public (and, for the local peer, private) key
// material for the two ECDH agreement schemes the static secret is built
// from: Curve25519 and NIST P-521.
type Identity struct {
	Address Address

	curve25519Public  [32]byte
	curve25519Private [32]byte // zero for remote identities

	p521Public  *ecdh.PublicKey
	p521Private *ecdh.PrivateKey // nil for remote identities

	hasPrivate bool
}

// GenerateLocal creates a fresh local identity with both private key
// pairs populated.
func GenerateLocal() (*Identity, error) {
	var c25519Priv [32]byte
	if _, err := rand.Read(c25519Priv[:]); err != nil {
		return nil, err
	}
	c25519Priv[0] &= 248
	c25519Priv[31] &= 127
	c25519Priv[31] |= 64

	var c25519Pub [32]byte
	pub, err := curve25519.X25519(c25519Priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(c25519Pub[:], pub)

	p521Priv, err := ecdh.P521().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		curve25519Public:  c25519Pub,
		curve25519Private: c25519Priv,
		p521Public:        p521Priv.PublicKey(),
		p521Private:       p521Priv,
		hasPrivate:        true,
	}
	id.Address = AddressFromPublicKeys(c25519Pub[:], p521Priv.PublicKey().Bytes())
	return id, nil
}

// NewRemote builds an Identity from a remote peer's public key material
// only, as received (and, per the non-goal boundary, already validated)
// over the wire.
func NewRemote(curve25519Public [32]byte, p521PublicBytes []byte) (*Identity, error) {
	p521Pub, err := ecdh.P521().NewPublicKey(p521PublicBytes)
	if err != nil {
		return nil, err
	}
	id := &Identity{
		curve25519Public: curve25519Public,
		p521Public:       p521Pub,
	}
	id.Address = AddressFromPublicKeys(curve25519Public[:], p521PublicBytes)
	return id, nil
}

// Curve25519Public returns the Curve25519 agreement public key.
func (id *Identity) Curve25519Public() [32]byte { return id.curve25519Public }

// P521PublicBytes returns the uncompressed P-521 agreement public key.
func (id *Identity) P521PublicBytes() []byte { return id.p521Public.Bytes() }

// Agree performs the double ECDH (Curve25519 and P-521) key agreement
// between the local identity (which must hold private key material) and
// a remote identity's public keys, returning the 48-byte static secret
// used to seed a peer's PeerSecret. Per spec, the two agreement outputs
// are concatenated and hashed with SHA-384 to produce the combined secret.
func (id *Identity) Agree(remote *Identity) ([48]byte, error) {
	if !id.hasPrivate {
		return [48]byte{}, errors.New("identity: Agree requires local private key material")
	}

	c25519Shared, err := curve25519.X25519(id.curve25519Private[:], remote.curve25519Public[:])
	if err != nil {
		return [48]byte{}, err
	}

	p521Shared, err := id.p521Private.ECDH(remote.p521Public)
	if err != nil {
		return [48]byte{}, err
	}

	return xcrypto.SHA384(c25519Shared, p521Shared), nil
}
