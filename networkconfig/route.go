/*
File Name:  route.go
Copyright:  vl1mesh contributors

IpRoute is a statically pushed L3 route. Grounded on
original_source's IpRoute Marshalable impl: target address, an optional
via gateway encoded as a nil-family InetAddress sentinel when absent,
flags, and metric.
*/

package networkconfig

import (
	"encoding/binary"

	"github.com/vl1mesh/overlay/wire"
)

// IpRoute is one statically pushed L3 route.
type IpRoute struct {
	Target InetAddress
	Via    *InetAddress // nil when the route has no gateway
	Flags  uint16
	Metric uint16
}

// Marshal appends the on-wire form of r to b.
func (r IpRoute) Marshal(b *wire.Buffer) {
	r.Target.Marshal(b)
	if r.Via != nil {
		r.Via.Marshal(b)
	} else {
		InetAddress{}.Marshal(b)
	}
	var flagsMetric [4]byte
	binary.BigEndian.PutUint16(flagsMetric[0:2], r.Flags)
	binary.BigEndian.PutUint16(flagsMetric[2:4], r.Metric)
	b.Write(flagsMetric[:])
}

// UnmarshalIpRoute reads one IpRoute from r.
func UnmarshalIpRoute(r *wire.Buffer) (IpRoute, error) {
	target, err := UnmarshalInetAddress(r)
	if err != nil {
		return IpRoute{}, err
	}
	via, err := UnmarshalInetAddress(r)
	if err != nil {
		return IpRoute{}, err
	}
	flagsMetric, err := r.ReadBytes(4)
	if err != nil {
		return IpRoute{}, err
	}
	route := IpRoute{
		Target: target,
		Flags:  binary.BigEndian.Uint16(flagsMetric[0:2]),
		Metric: binary.BigEndian.Uint16(flagsMetric[2:4]),
	}
	if !via.IsNil() {
		v := via
		route.Via = &v
	}
	return route, nil
}

// MarshalRoutes concatenates the marshaled form of each route.
func MarshalRoutes(routes []IpRoute) []byte {
	b := wire.NewBuffer()
	for _, rt := range routes {
		rt.Marshal(b)
	}
	return b.Bytes()
}

// UnmarshalRoutes reads IpRoute values until data is exhausted.
func UnmarshalRoutes(data []byte) ([]IpRoute, error) {
	r := wire.NewReader(data)
	var out []IpRoute
	for r.Remaining() > 0 {
		rt, err := UnmarshalIpRoute(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}
