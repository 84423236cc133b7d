/*
File Name:  certificate.go
Copyright:  vl1mesh contributors

CertificateOfMembership and CertificateOfOwnership are signed envelopes
a network controller issues to a member. Grounded on the teacher's
Message Encoding.go signing convention (ECDSA secp256k1 compact
signatures over a hashed body, via btcec.SignCompact/RecoverCompact),
applied here to the certificate bodies original_source's
CertificateOfMembership/CertificateOfOwnership types describe as signed
records rather than opaque blobs.
*/

package networkconfig

import (
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcec"
	"lukechampine.com/blake3"

	"github.com/vl1mesh/overlay/wire"
)

// ErrInvalidCertificate is returned when a certificate's signature does
// not verify or its body is malformed.
var ErrInvalidCertificate = errors.New("networkconfig: invalid certificate")

func certificateHash(body []byte) [32]byte {
	return blake3.Sum256(body)
}

// CertificateOfMembership authorizes a member address on a network as of
// a given timestamp, signed by the controller.
type CertificateOfMembership struct {
	NetworkID uint64
	Timestamp int64
	MaxDelta  int64
	Issuer    [5]byte // controller short address
	Signature []byte  // 65-byte compact ECDSA-secp256k1 signature
}

func (c *CertificateOfMembership) bodyBytes() []byte {
	b := wire.NewBuffer()
	b.WriteUint64(c.NetworkID)
	b.WriteUint64(uint64(c.Timestamp))
	b.WriteUint64(uint64(c.MaxDelta))
	b.Write(c.Issuer[:])
	return b.Bytes()
}

// Sign computes the controller's compact signature over the
// certificate's body and stores it in Signature.
func (c *CertificateOfMembership) Sign(controllerKey *btcec.PrivateKey) error {
	hash := certificateHash(c.bodyBytes())
	sig, err := btcec.SignCompact(btcec.S256(), controllerKey, hash[:], true)
	if err != nil {
		return err
	}
	c.Signature = sig
	return nil
}

// Verify checks the certificate's signature recovers to the expected
// controller public key.
func (c *CertificateOfMembership) Verify(controllerPubKey *btcec.PublicKey) bool {
	if len(c.Signature) == 0 {
		return false
	}
	hash := certificateHash(c.bodyBytes())
	recovered, _, err := btcec.RecoverCompact(btcec.S256(), c.Signature, hash[:])
	if err != nil {
		return false
	}
	return recovered.IsEqual(controllerPubKey)
}

// MarshalV1 encodes the certificate for the V1 wire dictionary's `C`
// field: body followed by the compact signature.
func (c *CertificateOfMembership) MarshalV1() []byte {
	b := wire.NewBuffer()
	b.Write(c.bodyBytes())
	var sigLen [2]byte
	binary.BigEndian.PutUint16(sigLen[:], uint16(len(c.Signature)))
	b.Write(sigLen[:])
	b.Write(c.Signature)
	return b.Bytes()
}

// UnmarshalCertificateOfMembershipV1 decodes a certificate previously
// produced by MarshalV1.
func UnmarshalCertificateOfMembershipV1(data []byte) (*CertificateOfMembership, error) {
	r := wire.NewReader(data)
	nwid, err := r.ReadUint64()
	if err != nil {
		return nil, ErrInvalidCertificate
	}
	ts, err := r.ReadUint64()
	if err != nil {
		return nil, ErrInvalidCertificate
	}
	maxDelta, err := r.ReadUint64()
	if err != nil {
		return nil, ErrInvalidCertificate
	}
	issuer, err := r.ReadBytes(5)
	if err != nil {
		return nil, ErrInvalidCertificate
	}
	sigLenBytes, err := r.ReadBytes(2)
	if err != nil {
		return nil, ErrInvalidCertificate
	}
	sigLen := int(binary.BigEndian.Uint16(sigLenBytes))
	sig, err := r.ReadBytes(sigLen)
	if err != nil {
		return nil, ErrInvalidCertificate
	}

	c := &CertificateOfMembership{
		NetworkID: nwid,
		Timestamp: int64(ts),
		MaxDelta:  int64(maxDelta),
		Signature: append([]byte(nil), sig...),
	}
	copy(c.Issuer[:], issuer)
	return c, nil
}

// CertificateOfOwnership asserts that issuedTo owns a static IP or
// other resource on the network, signed by the controller.
type CertificateOfOwnership struct {
	NetworkID uint64
	Timestamp int64
	IssuedTo  [5]byte
	Thing     InetAddress
	Signature []byte
}

func (c *CertificateOfOwnership) bodyBytes() []byte {
	b := wire.NewBuffer()
	b.WriteUint64(c.NetworkID)
	b.WriteUint64(uint64(c.Timestamp))
	b.Write(c.IssuedTo[:])
	c.Thing.Marshal(b)
	return b.Bytes()
}

// Sign computes the controller's compact signature over the
// certificate's body.
func (c *CertificateOfOwnership) Sign(controllerKey *btcec.PrivateKey) error {
	hash := certificateHash(c.bodyBytes())
	sig, err := btcec.SignCompact(btcec.S256(), controllerKey, hash[:], true)
	if err != nil {
		return err
	}
	c.Signature = sig
	return nil
}

// Verify checks the certificate's signature recovers to the expected
// controller public key.
func (c *CertificateOfOwnership) Verify(controllerPubKey *btcec.PublicKey) bool {
	if len(c.Signature) == 0 {
		return false
	}
	hash := certificateHash(c.bodyBytes())
	recovered, _, err := btcec.RecoverCompact(btcec.S256(), c.Signature, hash[:])
	if err != nil {
		return false
	}
	return recovered.IsEqual(controllerPubKey)
}

// MarshalV1 encodes one certificate of ownership for concatenation into
// the V1 wire dictionary's `COO` field.
func (c *CertificateOfOwnership) MarshalV1() []byte {
	b := wire.NewBuffer()
	var bodyLen [2]byte
	body := c.bodyBytes()
	binary.BigEndian.PutUint16(bodyLen[:], uint16(len(body)))
	b.Write(bodyLen[:])
	b.Write(body)
	var sigLen [2]byte
	binary.BigEndian.PutUint16(sigLen[:], uint16(len(c.Signature)))
	b.Write(sigLen[:])
	b.Write(c.Signature)
	return b.Bytes()
}

// UnmarshalCertificatesOfOwnershipV1 reads a concatenated run of
// certificates of ownership until data is exhausted.
func UnmarshalCertificatesOfOwnershipV1(data []byte) ([]CertificateOfOwnership, error) {
	r := wire.NewReader(data)
	var out []CertificateOfOwnership
	for r.Remaining() > 0 {
		bodyLenBytes, err := r.ReadBytes(2)
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		bodyLen := int(binary.BigEndian.Uint16(bodyLenBytes))
		bodyBytes, err := r.ReadBytes(bodyLen)
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		sigLenBytes, err := r.ReadBytes(2)
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		sigLen := int(binary.BigEndian.Uint16(sigLenBytes))
		sig, err := r.ReadBytes(sigLen)
		if err != nil {
			return nil, ErrInvalidCertificate
		}

		br := wire.NewReader(bodyBytes)
		nwid, err := br.ReadUint64()
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		ts, err := br.ReadUint64()
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		issuedTo, err := br.ReadBytes(5)
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		thing, err := UnmarshalInetAddress(br)
		if err != nil {
			return nil, ErrInvalidCertificate
		}

		c := CertificateOfOwnership{
			NetworkID: nwid,
			Timestamp: int64(ts),
			Thing:     thing,
			Signature: append([]byte(nil), sig...),
		}
		copy(c.IssuedTo[:], issuedTo)
		out = append(out, c)
	}
	return out, nil
}
