/*
File Name:  poly1305.go
Copyright:  vl1mesh contributors

Accumulating Poly1305 MAC built on golang.org/x/crypto/poly1305, the
pack's established Poly1305 dependency (also used by leebo-zerogo's Noise
transport in other_examples). The upstream package only exposes a
one-shot Sum, so Update calls buffer their input and Finish computes the
tag once over the full accumulation - exactly the "feed head then each
fragment, then verify" shape the wire format needs.
*/

package xcrypto

import "golang.org/x/crypto/poly1305"

// Poly1305 accumulates message bytes for a single one-time-keyed tag.
type Poly1305 struct {
	key [32]byte
	buf []byte
}

// NewPoly1305 creates an accumulator under the given one-time key.
func NewPoly1305(key *[32]byte) *Poly1305 {
	p := &Poly1305{}
	copy(p.key[:], key[:])
	return p
}

// Update appends data to the accumulated message.
func (p *Poly1305) Update(data []byte) {
	p.buf = append(p.buf, data...)
}

// Finish returns the 16-byte Poly1305 tag over everything accumulated so far.
func (p *Poly1305) Finish() [16]byte {
	var out [16]byte
	poly1305.Sum(&out, p.buf, &p.key)
	return out
}
