/*
File Name:  path.go
Copyright:  vl1mesh contributors

Path and Endpoint model one route to a remote peer. Grounded on the
teacher's Peer ID.go Connection type (remote net.UDPAddr plus the
network it arrived on), generalized to the spec's wider tuple: a
transport endpoint variant, an optional local-socket identifier, an
optional local-interface identifier, and per-path quality statistics.
*/

package pathset

import (
	"net"
	"sync/atomic"
)

// EndpointVariant identifies which transport a Path's endpoint uses.
// IP/UDP is the only variant implemented today; others are reserved for
// future transports.
type EndpointVariant byte

const EndpointIPUDP EndpointVariant = 0

// Endpoint is a transport-level address, variant-tagged so additional
// transports can be added without changing Path's shape.
type Endpoint struct {
	Variant EndpointVariant
	UDPAddr *net.UDPAddr
}

// String renders the endpoint for logging.
func (e Endpoint) String() string {
	if e.UDPAddr != nil {
		return e.UDPAddr.String()
	}
	return "<empty endpoint>"
}

// Path is one known route to a remote peer: an endpoint plus optional
// local socket/interface identifiers and the per-path statistics an
// external quality routine updates over time. A Path is shared between
// a peer's path set and any node-level path index; callers must not
// assume exclusive ownership (a path removed from a peer's set may still
// be referenced by an in-flight receive holding an earlier handle).
type Path struct {
	Endpoint Endpoint

	// LocalSocket identifies which local listening socket this path was
	// last seen on, when the transport exposes more than one. Zero means
	// unknown/unspecified.
	LocalSocket int

	// LocalInterface names the local network interface this path was
	// last seen on, when known. Empty means unknown/unspecified.
	LocalInterface string

	// Quality is an external path-quality score; higher is better. The
	// path set keeps paths ordered ascending by this field, so the best
	// path is always the last element. This package only observes and
	// sorts by it; nothing here computes it.
	Quality int64

	lastReceiveTimeTicks int64 // atomic
}

// NewPath creates a Path for the given endpoint with zero quality and no
// recorded receive time.
func NewPath(ep Endpoint) *Path {
	return &Path{Endpoint: ep}
}

// LastReceiveTimeTicks returns the last time (in the caller's tick units)
// a packet was received over this path.
func (p *Path) LastReceiveTimeTicks() int64 {
	return atomic.LoadInt64(&p.lastReceiveTimeTicks)
}

// SetLastReceiveTimeTicks records a new last-receive time.
func (p *Path) SetLastReceiveTimeTicks(t int64) {
	atomic.StoreInt64(&p.lastReceiveTimeTicks, t)
}
