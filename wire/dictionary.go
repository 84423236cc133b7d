/*
File Name:  dictionary.go
Copyright:  vl1mesh contributors

Dictionary is the one typed, self-delimiting, canonical key/value binary
format shared by both the HELLO dictionary and the VL2 NetworkConfig V1
wire format, mirroring original_source's single shared vl1::Dictionary
type used by both peer.rs and vl2/networkconfig.rs. Canonical means keys
are always written in sorted order so that Marshal is byte-exact and
deterministic, which downstream code relies on for hashing/signing over
the encoded form.
*/

package wire

import (
	"errors"
	"sort"
)

// ErrDictionaryMalformed is returned when a dictionary blob cannot be
// parsed: a truncated entry, or a value whose declared length runs past
// the end of the buffer.
var ErrDictionaryMalformed = errors.New("wire: malformed dictionary")

type dictValueType byte

const (
	dictTypeU64   dictValueType = 0
	dictTypeBool  dictValueType = 1
	dictTypeStr   dictValueType = 2
	dictTypeBytes dictValueType = 3
)

type dictEntry struct {
	valueType dictValueType
	u64       uint64
	boolean   bool
	bytes     []byte // also backs the string case, as its UTF-8 encoding
}

// Dictionary is an ordered-on-encode mapping from short ASCII keys to
// typed values.
type Dictionary struct {
	entries map[string]dictEntry
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]dictEntry)}
}

// SetU64 sets key to an unsigned 64-bit value.
func (d *Dictionary) SetU64(key string, v uint64) {
	d.entries[key] = dictEntry{valueType: dictTypeU64, u64: v}
}

// GetU64 returns key's value as a uint64 and whether it was present with
// that type.
func (d *Dictionary) GetU64(key string) (uint64, bool) {
	e, ok := d.entries[key]
	if !ok || e.valueType != dictTypeU64 {
		return 0, false
	}
	return e.u64, true
}

// SetBool sets key to a boolean value.
func (d *Dictionary) SetBool(key string, v bool) {
	d.entries[key] = dictEntry{valueType: dictTypeBool, boolean: v}
}

// GetBool returns key's value as a bool and whether it was present with
// that type.
func (d *Dictionary) GetBool(key string) (bool, bool) {
	e, ok := d.entries[key]
	if !ok || e.valueType != dictTypeBool {
		return false, false
	}
	return e.boolean, true
}

// SetStr sets key to a UTF-8 string value.
func (d *Dictionary) SetStr(key string, v string) {
	d.entries[key] = dictEntry{valueType: dictTypeStr, bytes: []byte(v)}
}

// GetStr returns key's value as a string and whether it was present with
// that type.
func (d *Dictionary) GetStr(key string) (string, bool) {
	e, ok := d.entries[key]
	if !ok || e.valueType != dictTypeStr {
		return "", false
	}
	return string(e.bytes), true
}

// SetBytes sets key to a raw byte-string value.
func (d *Dictionary) SetBytes(key string, v []byte) {
	d.entries[key] = dictEntry{valueType: dictTypeBytes, bytes: append([]byte(nil), v...)}
}

// GetBytes returns key's value as a byte slice and whether it was
// present with that type.
func (d *Dictionary) GetBytes(key string) ([]byte, bool) {
	e, ok := d.entries[key]
	if !ok || e.valueType != dictTypeBytes {
		return nil, false
	}
	return append([]byte(nil), e.bytes...), true
}

// Has reports whether key is present under any type.
func (d *Dictionary) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}

// Marshal encodes the dictionary canonically: entries in ascending key
// order, each as (u16 key length, key bytes, 1-byte type tag, typed
// value). u64 values are 8 bytes big-endian; bool is 1 byte; string and
// bytes values are a u32 big-endian length followed by the raw bytes.
func (d *Dictionary) Marshal() []byte {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewBuffer()
	for _, k := range keys {
		e := d.entries[k]
		writeU16(b, uint16(len(k)))
		b.Write([]byte(k))
		b.WriteByte(byte(e.valueType))
		switch e.valueType {
		case dictTypeU64:
			b.WriteUint64(e.u64)
		case dictTypeBool:
			if e.boolean {
				b.WriteByte(1)
			} else {
				b.WriteByte(0)
			}
		case dictTypeStr, dictTypeBytes:
			writeU32(b, uint32(len(e.bytes)))
			b.Write(e.bytes)
		}
	}
	return b.Bytes()
}

// UnmarshalDictionary parses a dictionary previously produced by Marshal.
// Unknown/garbled type tags are treated as malformed, matching the
// strict-decode posture the wire format requires throughout.
func UnmarshalDictionary(data []byte) (*Dictionary, error) {
	d := NewDictionary()
	r := NewReader(data)

	for r.Remaining() > 0 {
		keyLen, err := readU16(r)
		if err != nil {
			return nil, ErrDictionaryMalformed
		}
		keyBytes, err := r.ReadBytes(int(keyLen))
		if err != nil {
			return nil, ErrDictionaryMalformed
		}
		key := string(keyBytes)

		typeByte, err := r.ReadByte()
		if err != nil {
			return nil, ErrDictionaryMalformed
		}

		switch dictValueType(typeByte) {
		case dictTypeU64:
			v, err := r.ReadUint64()
			if err != nil {
				return nil, ErrDictionaryMalformed
			}
			d.SetU64(key, v)
		case dictTypeBool:
			v, err := r.ReadByte()
			if err != nil {
				return nil, ErrDictionaryMalformed
			}
			d.SetBool(key, v != 0)
		case dictTypeStr:
			n, err := readU32(r)
			if err != nil {
				return nil, ErrDictionaryMalformed
			}
			v, err := r.ReadBytes(int(n))
			if err != nil {
				return nil, ErrDictionaryMalformed
			}
			d.SetStr(key, string(v))
		case dictTypeBytes:
			n, err := readU32(r)
			if err != nil {
				return nil, ErrDictionaryMalformed
			}
			v, err := r.ReadBytes(int(n))
			if err != nil {
				return nil, ErrDictionaryMalformed
			}
			d.SetBytes(key, v)
		default:
			return nil, ErrDictionaryMalformed
		}
	}

	return d, nil
}

func writeU16(b *Buffer, v uint16) {
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v))
}

func readU16(b *Buffer) (uint16, error) {
	hi, err := b.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := b.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func writeU32(b *Buffer, v uint32) {
	b.WriteByte(byte(v >> 24))
	b.WriteByte(byte(v >> 16))
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v))
}

func readU32(b *Buffer) (uint32, error) {
	raw, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3]), nil
}
