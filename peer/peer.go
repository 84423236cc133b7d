/*
File Name:  peer.go
Copyright:  vl1mesh contributors

Peer is the centerpiece: one remote identity's static secret, its
(possibly absent) ephemeral secret, any currently-offered ephemeral key
pair, its known paths, and the atomic counters tracking traffic and
packet IDs. Grounded on the teacher's PeerInfo (Peer ID.go) - a
public-key-keyed remote-peer record with a connection list - widened to
the spec's independently-locked slot structure and per-secret cipher
pools.

Locking discipline deliberately partitions state across five independent
mutexes so that concurrent send and receive paths do not contend on
unrelated slots: the ephemeral secret, the offered ephemeral key pair,
the path list (delegated to pathset.Set's own lock), the reported local
IP, and the HELLO-dictionary AES-CTR instance. Lock-hold windows are
kept short: a slot's mutex protects only the swap of its shared
reference, never the cryptographic work performed with it.
*/

package peer

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"

	"github.com/vl1mesh/overlay/identity"
	"github.com/vl1mesh/overlay/pathset"
)

// Peer holds all per-remote-identity session state for one remote node.
type Peer struct {
	RemoteIdentity *identity.Identity
	RemoteAddress  identity.Address

	// Static secret is established once at construction from identity
	// agreement and is never mutated thereafter, so it needs no lock.
	staticSecret *PeerSecret

	ephemeralMu     sync.Mutex
	ephemeralSecret *PeerSecret // nil until an OK(HELLO) confirms an offer

	ephemeralPairMu sync.Mutex
	ephemeralPair   *EphemeralKeyPair // nil when nothing is currently offered

	Paths *pathset.Set

	reportedLocalIPMu sync.Mutex
	reportedLocalIP   net.IP

	helloDictMu  sync.Mutex
	helloDictIV  [12]byte // scratch, reused across calls holding the lock

	// Atomic counters. Relaxed ordering is sufficient; no cross-counter
	// invariants are required.
	packetIVCounter        uint64
	totalBytesSent         uint64
	totalBytesReceived     uint64
	totalBytesForwarded    uint64
	lastSendTimeTicks      int64
	lastReceiveTimeTicks   int64
	lastForwardTimeTicks   int64
	remoteVersion          uint32
	remoteProtocolVersion  uint32
}

// New constructs a Peer from a remote identity, performing key agreement
// with the local identity to derive the static secret. Construction
// fails (returning an error, the peer is never installed) if agreement
// fails.
func New(localIdentity, remoteIdentity *identity.Identity) (*Peer, error) {
	secretBytes, err := localIdentity.Agree(remoteIdentity)
	if err != nil {
		return nil, err
	}

	var ivSeed [8]byte
	if _, err := rand.Read(ivSeed[:]); err != nil {
		return nil, err
	}

	p := &Peer{
		RemoteIdentity:  remoteIdentity,
		RemoteAddress:   remoteIdentity.Address,
		staticSecret:    NewPeerSecret(secretBytes, StaticSecretTimestamp),
		Paths:           pathset.NewSet(),
		packetIVCounter: binary.BigEndian.Uint64(ivSeed[:]),
	}
	return p, nil
}

// StaticSecret returns the peer's one unchanging static secret.
func (p *Peer) StaticSecret() *PeerSecret { return p.staticSecret }

// EphemeralSecret returns a cloned shared reference to the currently
// accepted ephemeral secret, or nil if none is installed. The ephemeral
// mutex is held only for the swap itself, not for any cryptographic work
// performed with the returned secret.
func (p *Peer) EphemeralSecret() *PeerSecret {
	p.ephemeralMu.Lock()
	defer p.ephemeralMu.Unlock()
	return p.ephemeralSecret
}

// InstallEphemeralSecret atomically replaces the currently accepted
// ephemeral secret, e.g. once an OK(HELLO) confirms a prior offer.
func (p *Peer) InstallEphemeralSecret(secret *PeerSecret) {
	p.ephemeralMu.Lock()
	p.ephemeralSecret = secret
	p.ephemeralMu.Unlock()
}

// OfferedEphemeralPair returns the currently offered ephemeral key pair,
// or nil if none is offered.
func (p *Peer) OfferedEphemeralPair() *EphemeralKeyPair {
	p.ephemeralPairMu.Lock()
	defer p.ephemeralPairMu.Unlock()
	return p.ephemeralPair
}

// OfferEphemeralPair replaces the currently offered ephemeral key pair.
// A newly generated pair replaces whatever was previously offered; it is
// discarded (by the caller clearing it) once the remote confirms it with
// a matching OK(HELLO).
func (p *Peer) OfferEphemeralPair(kp *EphemeralKeyPair) {
	p.ephemeralPairMu.Lock()
	p.ephemeralPair = kp
	p.ephemeralPairMu.Unlock()
}

// ClearOfferedEphemeralPair discards the currently offered pair once its
// agreement has been consumed into an installed ephemeral secret.
func (p *Peer) ClearOfferedEphemeralPair() {
	p.ephemeralPairMu.Lock()
	p.ephemeralPair = nil
	p.ephemeralPairMu.Unlock()
}

// ReportedLocalIP returns the local IP the remote peer last reported
// observing us at, or nil if never reported.
func (p *Peer) ReportedLocalIP() net.IP {
	p.reportedLocalIPMu.Lock()
	defer p.reportedLocalIPMu.Unlock()
	return p.reportedLocalIP
}

// SetReportedLocalIP records a newly reported local IP.
func (p *Peer) SetReportedLocalIP(ip net.IP) {
	p.reportedLocalIPMu.Lock()
	p.reportedLocalIP = ip
	p.reportedLocalIPMu.Unlock()
}

// NextPacketIV atomically increments and returns the peer's packet-IV
// counter. It supplies the packet ID for Salsa20/12-POLY1305 and HELLO
// (NOCRYPT-POLY1305) packets; the HELLO dictionary's CTR IV is drawn
// from crypto/rand instead. It is strictly increasing for the lifetime
// of this peer.
func (p *Peer) NextPacketIV() uint64 {
	return atomic.AddUint64(&p.packetIVCounter, 1)
}

// AddBytesSent adds n to the total-bytes-sent counter and stamps the
// last-send time.
func (p *Peer) AddBytesSent(n int, nowTicks int64) {
	atomic.AddUint64(&p.totalBytesSent, uint64(n))
	atomic.StoreInt64(&p.lastSendTimeTicks, nowTicks)
}

// AddBytesReceived adds n to the total-bytes-received counter and stamps
// the last-receive time.
func (p *Peer) AddBytesReceived(n int, nowTicks int64) {
	atomic.AddUint64(&p.totalBytesReceived, uint64(n))
	atomic.StoreInt64(&p.lastReceiveTimeTicks, nowTicks)
}

// AddBytesForwarded adds n to the total-bytes-forwarded counter and
// stamps the last-forward time.
func (p *Peer) AddBytesForwarded(n int, nowTicks int64) {
	atomic.AddUint64(&p.totalBytesForwarded, uint64(n))
	atomic.StoreInt64(&p.lastForwardTimeTicks, nowTicks)
}

// TotalBytesSent returns the running total of bytes sent to this peer.
func (p *Peer) TotalBytesSent() uint64 { return atomic.LoadUint64(&p.totalBytesSent) }

// TotalBytesReceived returns the running total of bytes received from
// this peer, including packet headers.
func (p *Peer) TotalBytesReceived() uint64 { return atomic.LoadUint64(&p.totalBytesReceived) }

// TotalBytesForwarded returns the running total of bytes forwarded to
// this peer on behalf of a third party.
func (p *Peer) TotalBytesForwarded() uint64 { return atomic.LoadUint64(&p.totalBytesForwarded) }

// LastSendTimeTicks returns the last time a packet was sent to this peer.
func (p *Peer) LastSendTimeTicks() int64 { return atomic.LoadInt64(&p.lastSendTimeTicks) }

// LastReceiveTimeTicks returns the last time a packet was received from
// this peer.
func (p *Peer) LastReceiveTimeTicks() int64 { return atomic.LoadInt64(&p.lastReceiveTimeTicks) }

// LastForwardTimeTicks returns the last time a packet was forwarded to
// this peer.
func (p *Peer) LastForwardTimeTicks() int64 { return atomic.LoadInt64(&p.lastForwardTimeTicks) }

// RemoteVersion returns the remote peer's last-reported build version.
func (p *Peer) RemoteVersion() uint32 { return atomic.LoadUint32(&p.remoteVersion) }

// SetRemoteVersion records the remote peer's last-reported build version.
func (p *Peer) SetRemoteVersion(v uint32) { atomic.StoreUint32(&p.remoteVersion, v) }

// RemoteProtocolVersion returns the remote peer's last-reported protocol
// version.
func (p *Peer) RemoteProtocolVersion() uint32 { return atomic.LoadUint32(&p.remoteProtocolVersion) }

// SetRemoteProtocolVersion records the remote peer's last-reported
// protocol version.
func (p *Peer) SetRemoteProtocolVersion(v uint32) {
	atomic.StoreUint32(&p.remoteProtocolVersion, v)
}

// BestPath returns the peer's highest-quality known path, or nil.
func (p *Peer) BestPath() *pathset.Path {
	return p.Paths.BestPath()
}
