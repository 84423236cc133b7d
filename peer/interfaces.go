/*
File Name:  interfaces.go
Copyright:  vl1mesh contributors

The contracts a Peer calls out to: the transport's wire_send, the
node-level context a peer needs for root lookups and identity/version
info, and the higher-layer packet handler consulted before built-in
verb dispatch. Grounded on the teacher's Filters/backend split (core
logic calling into small interfaces for I/O and policy decisions rather
than importing concrete transport/storage types directly).
*/

package peer

import (
	"net"

	"github.com/vl1mesh/overlay/identity"
	"github.com/vl1mesh/overlay/wire"
)

// CallerInterface is the transport boundary: sending raw bytes to a
// remote UDP address over a given local socket/interface (as recorded on
// the Path the send was resolved through) and at a given IP TTL (0 means
// leave the socket's default TTL alone). It returns false on failure
// (e.g. socket error, oversized datagram); the peer does not retry
// internally.
type CallerInterface interface {
	WireSend(addr *net.UDPAddr, localSocket int, localInterface string, data []byte, ttl int) bool
}

// NodeContext supplies the node-level facts a peer needs but does not
// own itself: the local identity, protocol/version numbers, clock, and
// (when this peer is not itself a root) a root peer to delegate
// indirect sends through.
type NodeContext interface {
	LocalIdentity() *identity.Identity
	LocalAddress() identity.Address
	InstanceID() uint64
	NowTicks() int64
	NowClock() int64
	ProtocolVersion() (protocol, major, minor, revision uint16)
	FIPSMode() bool
	WimpMode() bool

	// RootPeer returns the designated root peer to delegate sends
	// through when this peer has no usable direct path, or nil if none
	// is configured.
	RootPeer() *Peer
}

// PacketHandler is the higher-layer (VL2 and above) hook offered every
// successfully authenticated packet before built-in VL1 verb dispatch.
// It returns true if it consumed the packet.
type PacketHandler interface {
	HandlePacket(p *Peer, sourcePath *net.UDPAddr, forwardSecrecy bool, verb wire.Verb, payload []byte) bool
}
