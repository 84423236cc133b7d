/*
File Name:  tag.go
Copyright:  vl1mesh contributors

Tag is a controller-signed numeric attribute a member can carry,
consumed by the (out-of-scope) VL2 rule evaluator. Grounded on
original_source's Tag type and its v1_proto_to_bytes/v1_proto_from_bytes
signed-body convention, same shape as CertificateOfOwnership.
*/

package networkconfig

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec"

	"github.com/vl1mesh/overlay/wire"
)

// Tag is a controller-issued (id, value) pair bound to a member address.
type Tag struct {
	ID        uint32
	Value     uint32
	NetworkID uint64
	IssuedTo  [5]byte
	Timestamp int64
	Signature []byte
}

func (t *Tag) bodyBytes() []byte {
	b := wire.NewBuffer()
	var idValue [8]byte
	binary.BigEndian.PutUint32(idValue[0:4], t.ID)
	binary.BigEndian.PutUint32(idValue[4:8], t.Value)
	b.Write(idValue[:])
	b.WriteUint64(t.NetworkID)
	b.Write(t.IssuedTo[:])
	b.WriteUint64(uint64(t.Timestamp))
	return b.Bytes()
}

// Sign computes the controller's compact signature over the tag's body.
func (t *Tag) Sign(controllerKey *btcec.PrivateKey) error {
	hash := certificateHash(t.bodyBytes())
	sig, err := btcec.SignCompact(btcec.S256(), controllerKey, hash[:], true)
	if err != nil {
		return err
	}
	t.Signature = sig
	return nil
}

// Verify checks the tag's signature recovers to the expected controller
// public key.
func (t *Tag) Verify(controllerPubKey *btcec.PublicKey) bool {
	if len(t.Signature) == 0 {
		return false
	}
	hash := certificateHash(t.bodyBytes())
	recovered, _, err := btcec.RecoverCompact(btcec.S256(), t.Signature, hash[:])
	if err != nil {
		return false
	}
	return recovered.IsEqual(controllerPubKey)
}

// MarshalV1 encodes one tag for concatenation into the V1 wire
// dictionary's `TAG` field.
func (t *Tag) MarshalV1() []byte {
	b := wire.NewBuffer()
	body := t.bodyBytes()
	var bodyLen [2]byte
	binary.BigEndian.PutUint16(bodyLen[:], uint16(len(body)))
	b.Write(bodyLen[:])
	b.Write(body)
	var sigLen [2]byte
	binary.BigEndian.PutUint16(sigLen[:], uint16(len(t.Signature)))
	b.Write(sigLen[:])
	b.Write(t.Signature)
	return b.Bytes()
}

// UnmarshalTagsV1 reads a concatenated run of tags until data is
// exhausted.
func UnmarshalTagsV1(data []byte) ([]Tag, error) {
	r := wire.NewReader(data)
	var out []Tag
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
		idValue, err := br.ReadBytes(8)
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		nwid, err := br.ReadUint64()
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		issuedTo, err := br.ReadBytes(5)
		if err != nil {
			return nil, ErrInvalidCertificate
		}
		ts, err := br.ReadUint64()
		if err != nil {
			return nil, ErrInvalidCertificate
		}

		tag := Tag{
			ID:        binary.BigEndian.Uint32(idValue[0:4]),
			Value:     binary.BigEndian.Uint32(idValue[4:8]),
			NetworkID: nwid,
			Timestamp: int64(ts),
			Signature: append([]byte(nil), sig...),
		}
		copy(tag.IssuedTo[:], issuedTo)
		out = append(out, tag)
	}
	return out, nil
}
