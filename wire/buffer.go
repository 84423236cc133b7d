/*
File Name:  buffer.go
Copyright:  vl1mesh contributors

A small append-only byte buffer with length-checked reads, used by the
header and dictionary codecs to keep offset bookkeeping out of every
call site. Grounded on the teacher's Packet Encoding.go, which builds
packets through a similar running-offset []byte builder rather than
reaching for encoding/gob or protobuf.
*/

package wire

import "errors"

// ErrBufferUnderflow is returned when a read would run past the end of
// the buffer.
var ErrBufferUnderflow = errors.New("wire: buffer underflow")

// Buffer is a write cursor over a growing byte slice and, independently,
// a read cursor over a fixed byte slice.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer creates an empty write buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewReader wraps data for sequential reads starting at offset 0.
func NewReader(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the accumulated buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of bytes written (or, for a reader, total length).
func (b *Buffer) Len() int { return len(b.data) }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(v byte) { b.data = append(b.data, v) }

// Write appends data verbatim.
func (b *Buffer) Write(data []byte) { b.data = append(b.data, data...) }

// WriteUint64 appends v as 8 big-endian bytes.
func (b *Buffer) WriteUint64(v uint64) {
	var tmp [8]byte
	for i := 7; i >= 0; i-- {
		tmp[i] = byte(v)
		v >>= 8
	}
	b.data = append(b.data, tmp[:]...)
}

// ReadByte reads and returns one byte, advancing the cursor.
func (b *Buffer) ReadByte() (byte, error) {
	if b.Remaining() < 1 {
		return 0, ErrBufferUnderflow
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// ReadBytes reads exactly n bytes, advancing the cursor.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.Remaining() < n {
		return nil, ErrBufferUnderflow
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// ReadUint64 reads 8 big-endian bytes as a uint64, advancing the cursor.
func (b *Buffer) ReadUint64() (uint64, error) {
	raw, err := b.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range raw {
		v = (v << 8) | uint64(c)
	}
	return v, nil
}
