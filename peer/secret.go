/*
File Name:  secret.go
Copyright:  vl1mesh contributors

PeerSecret is a 48-byte shared secret plus the bounded AES-GMAC-SIV
cipher pool keyed from it, and EphemeralKeyPair is the offered-but-not-
yet-confirmed key material a peer rotates in and out. Grounded on
original_source's peer.rs PeerSecret/EphemeralKeyPair pair (creation
timestamp with a -1 static sentinel, the two-sub-key pool factory), with
the pool itself implemented by xcrypto.GMACSIVPool.
*/

package peer

import (
	"crypto/ecdh"
	"crypto/rand"
	"sync/atomic"

	"golang.org/x/crypto/curve25519"

	"github.com/vl1mesh/overlay/xcrypto"
)

// StaticSecretTimestamp is the sentinel creation-timestamp value denoting
// a static, non-expiring secret (the identity-level static secret, as
// opposed to a timestamped ephemeral secret).
const StaticSecretTimestamp int64 = -1

// PeerSecret is one shared secret (static or ephemeral) together with
// its derived cipher pool and per-secret use counter.
type PeerSecret struct {
	secret          [48]byte
	createdAtTicks  int64
	encryptCounter  uint64 // atomic
	pool            *xcrypto.GMACSIVPool
	helloDictKey    []byte // KBKDF-derived AES-CTR key for HELLO dictionary, static secret only
	packetHMACKey   []byte // KBKDF-derived HMAC-SHA-384 key, static secret only
}

// NewPeerSecret derives the two AES-GMAC-SIV sub-keys and, for the
// static secret, the HELLO-dictionary and packet-HMAC sub-keys, from the
// given 48-byte shared secret.
func NewPeerSecret(secret [48]byte, createdAtTicks int64) *PeerSecret {
	k0 := xcrypto.KBKDFHMACSHA384(secret[:], xcrypto.LabelAESGMACSIVK0, 32)
	k1 := xcrypto.KBKDFHMACSHA384(secret[:], xcrypto.LabelAESGMACSIVK1, 32)

	ps := &PeerSecret{
		secret:         secret,
		createdAtTicks: createdAtTicks,
		pool:           xcrypto.NewGMACSIVPool(k0, k1, xcrypto.DefaultGMACSIVPoolCapacity),
	}
	if createdAtTicks == StaticSecretTimestamp {
		ps.helloDictKey = xcrypto.KBKDFHMACSHA384(secret[:], xcrypto.LabelHelloDictionaryCrypt, 32)
		ps.packetHMACKey = xcrypto.KBKDFHMACSHA384(secret[:], xcrypto.LabelPacketHMAC, 48)
	}
	return ps
}

// IsStatic reports whether this is the non-expiring static secret.
func (ps *PeerSecret) IsStatic() bool { return ps.createdAtTicks == StaticSecretTimestamp }

// CreatedAtTicks returns the secret's creation timestamp, or
// StaticSecretTimestamp for the static secret.
func (ps *PeerSecret) CreatedAtTicks() int64 { return ps.createdAtTicks }

// Bytes returns the raw 48-byte secret, used for Salsa20/12 per-packet
// key derivation.
func (ps *PeerSecret) Bytes() *[48]byte { return &ps.secret }

// NextEncryptCounter atomically increments and returns this secret's
// encryption-use counter.
func (ps *PeerSecret) NextEncryptCounter() uint64 {
	return atomic.AddUint64(&ps.encryptCounter, 1)
}

// AcquireCipher pops a ready AES-GMAC-SIV instance from this secret's
// pool, scheduling a fresh one if none is idle.
func (ps *PeerSecret) AcquireCipher() *xcrypto.AESGMACSIV {
	return ps.pool.Acquire()
}

// ReleaseCipher returns c to this secret's pool.
func (ps *PeerSecret) ReleaseCipher(c *xcrypto.AESGMACSIV) {
	ps.pool.Release(c)
}

// HelloDictionaryKey returns the static secret's KBKDF-derived AES-CTR
// key for the HELLO dictionary region. Only meaningful on the static
// secret; ephemeral secrets return nil.
func (ps *PeerSecret) HelloDictionaryKey() []byte { return ps.helloDictKey }

// PacketHMACKey returns the static secret's KBKDF-derived HMAC-SHA-384
// key used to authenticate HELLO packets. Only meaningful on the static
// secret; ephemeral secrets return nil.
func (ps *PeerSecret) PacketHMACKey() []byte { return ps.packetHMACKey }

// EphemeralKeyPair is a freshly generated, offered-but-unconfirmed
// Curve25519/P-521 key pair a peer rotates in when it elects to refresh
// forward secrecy.
type EphemeralKeyPair struct {
	CreatedAtTicks int64

	curve25519Public  [32]byte
	curve25519Private [32]byte

	p521Public  *ecdh.PublicKey
	p521Private *ecdh.PrivateKey

	// Fingerprint is the SHA-384 hash of the concatenation of both
	// public keys, used to match an inbound OK(HELLO) to the offer it
	// confirms.
	Fingerprint [48]byte
}

// NewEphemeralKeyPair generates a fresh Curve25519/P-521 pair.
func NewEphemeralKeyPair(nowTicks int64) (*EphemeralKeyPair, error) {
	var c25519Priv [32]byte
	if _, err := rand.Read(c25519Priv[:]); err != nil {
		return nil, err
	}
	c25519Priv[0] &= 248
	c25519Priv[31] &= 127
	c25519Priv[31] |= 64

	c25519PubRaw, err := curve25519.X25519(c25519Priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	var c25519Pub [32]byte
	copy(c25519Pub[:], c25519PubRaw)

	p521Priv, err := ecdh.P521().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	kp := &EphemeralKeyPair{
		CreatedAtTicks:    nowTicks,
		curve25519Public:  c25519Pub,
		curve25519Private: c25519Priv,
		p521Public:        p521Priv.PublicKey(),
		p521Private:       p521Priv,
	}
	kp.Fingerprint = xcrypto.SHA384(c25519Pub[:], p521Priv.PublicKey().Bytes())
	return kp, nil
}

// Curve25519Public returns the offered Curve25519 public key.
func (kp *EphemeralKeyPair) Curve25519Public() [32]byte { return kp.curve25519Public }

// P521PublicBytes returns the offered uncompressed P-521 public key.
func (kp *EphemeralKeyPair) P521PublicBytes() []byte { return kp.p521Public.Bytes() }

// Agree performs the double ECDH agreement against a remote peer's
// offered ephemeral public keys (received in their OK(HELLO) or HELLO),
// producing the 48-byte secret a derived ephemeral PeerSecret is built
// from.
func (kp *EphemeralKeyPair) Agree(remoteCurve25519Public [32]byte, remoteP521PublicBytes []byte) ([48]byte, error) {
	remoteP521, err := ecdh.P521().NewPublicKey(remoteP521PublicBytes)
	if err != nil {
		return [48]byte{}, err
	}

	c25519Shared, err := curve25519.X25519(kp.curve25519Private[:], remoteCurve25519Public[:])
	if err != nil {
		return [48]byte{}, err
	}

	p521Shared, err := kp.p521Private.ECDH(remoteP521)
	if err != nil {
		return [48]byte{}, err
	}

	return xcrypto.SHA384(c25519Shared, p521Shared), nil
}
