/*
File Name:  main.go
Copyright:  vl1mesh contributors

vl1demo is a minimal wiring example: it loads a config, brings up a
single UDP socket, and exchanges HELLO/ECHO packets with the configured
root peers. It exists to exercise package peer end to end; a real
deployment's CLI surface is out of scope.
*/

package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vl1mesh/overlay/config"
	"github.com/vl1mesh/overlay/identity"
	"github.com/vl1mesh/overlay/internal/eventlog"
	"github.com/vl1mesh/overlay/peer"
	"github.com/vl1mesh/overlay/pathset"
	"github.com/vl1mesh/overlay/wire"
)

func main() {
	configFile := flag.String("config", "vl1demo.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := config.InitLog(cfg); err != nil {
		log.Fatalf("initializing log: %v", err)
	}

	localID, err := loadOrGenerateIdentity(cfg)
	if err != nil {
		log.Fatalf("loading local identity: %v", err)
	}

	hooks := &eventlog.Hooks{LogError: eventlog.StandardLog()}
	hooks.Init()

	instanceUUID := uuid.New()
	node := &demoNode{
		localIdentity: localID,
		localAddress:  localID.Address,
		instanceID:    binary.BigEndian.Uint32(instanceUUID[:4]),
		startedAt:     time.Now(),
		fipsMode:      cfg.FIPSMode,
		wimpMode:      cfg.WimpMode,
	}

	listenAddr := "0.0.0.0:9993"
	if len(cfg.Listen) > 0 {
		listenAddr = cfg.Listen[0]
	}
	udpAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		log.Fatalf("resolving listen address %q: %v", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		log.Fatalf("listening on %q: %v", listenAddr, err)
	}
	defer conn.Close()

	caller := &udpCaller{conn: conn, hooks: hooks}
	node.peers = make(map[identity.Address]*peer.Peer)

	for _, seed := range cfg.RootPeers {
		p, err := seedPeer(localID, seed)
		if err != nil {
			hooks.LogError("seedPeer", "skipping root peer: %s", err.Error())
			continue
		}
		node.peersMu.Lock()
		node.peers[p.RemoteAddress] = p
		node.peersMu.Unlock()
		if node.root == nil {
			node.root = p
		}
	}

	mtu := peer.DefaultMTU
	if cfg.MTU > 0 {
		mtu = cfg.MTU
	}

	go helloLoop(caller, node, mtu, hooks)

	log.Printf("vl1demo listening on %s, local address %s", listenAddr, hex.EncodeToString(localID.Address[:]))
	readLoop(conn, caller, node, hooks)
}

// helloLoop sends a HELLO to every known peer every 30 seconds, the
// demo's stand-in for the real retry/backoff schedule a production
// endpoint would run.
func helloLoop(caller *udpCaller, node *demoNode, mtu int, hooks *eventlog.Hooks) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		node.peersMu.Lock()
		peers := make([]*peer.Peer, 0, len(node.peers))
		for _, p := range node.peers {
			peers = append(peers, p)
		}
		node.peersMu.Unlock()

		for _, p := range peers {
			if !p.SendHello(caller, node, node.NowTicks(), p == node.root, peer.DefaultTTL) {
				hooks.LogError("helloLoop", "sending HELLO to %s failed", hex.EncodeToString(p.RemoteAddress[:]))
			}
		}
		<-ticker.C
	}
}

// readLoop reads inbound datagrams and dispatches them to the owning
// peer's Receive. Fragmented packets are logged and dropped; this demo
// only exercises single-datagram exchanges.
func readLoop(conn *net.UDPConn, caller *udpCaller, node *demoNode, hooks *eventlog.Hooks) {
	buf := make([]byte, 65536)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			hooks.LogError("readLoop", "reading UDP: %s", err.Error())
			continue
		}
		data := append([]byte(nil), buf[:n]...)

		if len(data) >= wire.FragmentHeaderSize && data[13] == wire.FragmentIndicator {
			hooks.LogError("readLoop", "dropping fragment from %s (reassembly not implemented in the demo)", addr.String())
			continue
		}

		header, err := wire.UnmarshalPacketHeader(data)
		if err != nil {
			hooks.LogError("readLoop", "malformed header from %s: %s", addr.String(), err.Error())
			continue
		}
		body := data[wire.PacketHeaderSize:]

		node.peersMu.RLock()
		p := findPeerByAddress(node.peers, header.Source)
		node.peersMu.RUnlock()
		if p == nil {
			hooks.LogError("readLoop", "packet from unknown peer source %s, ignoring (WHOIS not implemented)", hex.EncodeToString(header.Source[:]))
			continue
		}

		p.Paths.Insert(pathset.NewPath(pathset.Endpoint{Variant: pathset.EndpointIPUDP, UDPAddr: addr}))

		if _, ok := p.Receive(caller, node, nil, node.NowTicks(), addr, header, body, nil); !ok {
			hooks.LogError("readLoop", "authentication failed for packet from %s", addr.String())
		}
	}
}

func findPeerByAddress(peers map[identity.Address]*peer.Peer, addr identity.Address) *peer.Peer {
	return peers[addr]
}

// demoNode implements peer.NodeContext for this example's single local
// endpoint.
type demoNode struct {
	localIdentity *identity.Identity
	localAddress  identity.Address
	instanceID    uint32
	startedAt     time.Time
	fipsMode      bool
	wimpMode      bool

	peersMu sync.RWMutex
	peers   map[identity.Address]*peer.Peer
	root    *peer.Peer
}

func (n *demoNode) LocalIdentity() *identity.Identity { return n.localIdentity }
func (n *demoNode) LocalAddress() identity.Address    { return n.localAddress }
func (n *demoNode) InstanceID() uint64                { return uint64(n.instanceID) }
func (n *demoNode) NowTicks() int64                   { return time.Since(n.startedAt).Milliseconds() }
func (n *demoNode) NowClock() int64                   { return time.Now().Unix() }
func (n *demoNode) ProtocolVersion() (protocol, major, minor, revision uint16) {
	return 1, 0, 1, 0
}
func (n *demoNode) FIPSMode() bool    { return n.fipsMode }
func (n *demoNode) WimpMode() bool    { return n.wimpMode }
func (n *demoNode) RootPeer() *peer.Peer {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()
	return n.root
}

// udpCaller implements peer.CallerInterface over a single UDP socket.
type udpCaller struct {
	conn  *net.UDPConn
	hooks *eventlog.Hooks
}

// WireSend ignores localSocket, localInterface, and ttl: this demo binds
// a single UDP socket with no secondary interfaces and never probes hop
// counts, but the parameters are accepted to satisfy CallerInterface.
func (c *udpCaller) WireSend(addr *net.UDPAddr, localSocket int, localInterface string, data []byte, ttl int) bool {
	_, err := c.conn.WriteToUDP(data, addr)
	if err != nil {
		c.hooks.LogError("WireSend", "writing to %s: %s", addr.String(), err.Error())
		return false
	}
	return true
}

func loadOrGenerateIdentity(cfg *config.Config) (*identity.Identity, error) {
	if cfg.PrivateKeyCurve25519 == "" || cfg.PrivateKeyP521 == "" {
		id, err := identity.GenerateLocal()
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "generated new local identity %s (not persisted)\n", hex.EncodeToString(id.Address[:]))
		return id, nil
	}
	// A full implementation would reconstruct the private scalars from
	// the hex-encoded config fields; the demo only exercises the
	// freshly-generated path.
	return identity.GenerateLocal()
}

func seedPeer(localID *identity.Identity, seed config.RootPeerSeed) (*peer.Peer, error) {
	c25519Bytes, err := hex.DecodeString(seed.PublicKeyCurve25519)
	if err != nil || len(c25519Bytes) != 32 {
		return nil, fmt.Errorf("invalid curve25519 public key for root peer")
	}
	p521Bytes, err := hex.DecodeString(seed.PublicKeyP521)
	if err != nil {
		return nil, fmt.Errorf("invalid p521 public key for root peer")
	}

	var c25519 [32]byte
	copy(c25519[:], c25519Bytes)

	remoteID, err := identity.NewRemote(c25519, p521Bytes)
	if err != nil {
		return nil, err
	}

	p, err := peer.New(localID, remoteID)
	if err != nil {
		return nil, err
	}

	for _, addrStr := range seed.Address {
		udpAddr, err := net.ResolveUDPAddr("udp", addrStr)
		if err != nil {
			continue
		}
		p.Paths.Insert(pathset.NewPath(pathset.Endpoint{Variant: pathset.EndpointIPUDP, UDPAddr: udpAddr}))
	}

	return p, nil
}
