/*
File Name:  inetaddress.go
Copyright:  vl1mesh contributors

InetAddress is the marshaled form of a transport address embedded in a
NetworkConfig's routes, static IPs, and DNS server lists. Grounded on
original_source's InetAddress::marshal (a 1-byte family tag, address
bytes, then a 2-byte port), reimplemented here using net.IP rather than
the Rust source's custom sockaddr union.
*/

package networkconfig

import (
	"encoding/binary"
	"net"

	"github.com/vl1mesh/overlay/wire"
)

const (
	inetFamilyNil  byte = 0
	inetFamilyIPv4 byte = 4
	inetFamilyIPv6 byte = 6
)

// InetAddress is a marshalable IP address plus port.
type InetAddress struct {
	IP   net.IP
	Port uint16
}

// IsNil reports whether this is the "absent" sentinel address.
func (a InetAddress) IsNil() bool { return a.IP == nil }

// MarshalSize returns the number of bytes Marshal writes for this value.
func (a InetAddress) MarshalSize() int {
	if a.IsNil() {
		return 1
	}
	if ip4 := a.IP.To4(); ip4 != nil {
		return 1 + 4 + 2
	}
	return 1 + 16 + 2
}

// Marshal appends the on-wire form of a to b.
func (a InetAddress) Marshal(b *wire.Buffer) {
	if a.IsNil() {
		b.WriteByte(inetFamilyNil)
		return
	}
	if ip4 := a.IP.To4(); ip4 != nil {
		b.WriteByte(inetFamilyIPv4)
		b.Write(ip4)
	} else {
		b.WriteByte(inetFamilyIPv6)
		b.Write(a.IP.To16())
	}
	var port [2]byte
	binary.BigEndian.PutUint16(port[:], a.Port)
	b.Write(port[:])
}

// UnmarshalInetAddress reads one InetAddress from r.
func UnmarshalInetAddress(r *wire.Buffer) (InetAddress, error) {
	family, err := r.ReadByte()
	if err != nil {
		return InetAddress{}, err
	}
	switch family {
	case inetFamilyNil:
		return InetAddress{}, nil
	case inetFamilyIPv4:
		ip, err := r.ReadBytes(4)
		if err != nil {
			return InetAddress{}, err
		}
		port, err := r.ReadBytes(2)
		if err != nil {
			return InetAddress{}, err
		}
		return InetAddress{IP: net.IP(append([]byte(nil), ip...)), Port: binary.BigEndian.Uint16(port)}, nil
	case inetFamilyIPv6:
		ip, err := r.ReadBytes(16)
		if err != nil {
			return InetAddress{}, err
		}
		port, err := r.ReadBytes(2)
		if err != nil {
			return InetAddress{}, err
		}
		return InetAddress{IP: net.IP(append([]byte(nil), ip...)), Port: binary.BigEndian.Uint16(port)}, nil
	default:
		return InetAddress{}, wire.ErrDictionaryMalformed
	}
}

// MarshalMultiple concatenates the marshaled form of each address.
func MarshalMultiple(addrs []InetAddress) []byte {
	b := wire.NewBuffer()
	for _, a := range addrs {
		a.Marshal(b)
	}
	return b.Bytes()
}

// UnmarshalMultipleInetAddress reads InetAddress values until data is
// exhausted.
func UnmarshalMultipleInetAddress(data []byte) ([]InetAddress, error) {
	r := wire.NewReader(data)
	var out []InetAddress
	for r.Remaining() > 0 {
		a, err := UnmarshalInetAddress(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
