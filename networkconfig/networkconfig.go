/*
File Name:  networkconfig.go
Copyright:  vl1mesh contributors

NetworkConfig is the VL2 descriptor a controller pushes to a member over
VL1, and EncodeV1/DecodeV1 implement its dictionary wire form exactly as
original_source's NetworkConfig::v1_proto_to_dictionary /
v1_proto_from_dictionary do, down to the exact key strings and the
128-byte DNS name-prefix convention.
*/

package networkconfig

import (
	"strconv"

	"github.com/vl1mesh/overlay/identity"
	"github.com/vl1mesh/overlay/wire"
)

// DefaultMTU is the protocol default link MTU used when a decoded
// config omits the `mtu` field.
const DefaultMTU = 2800

// Dictionary key strings, exact per spec section 6.
const (
	KeyVersion     = "v"
	KeyNetworkID   = "nwid"
	KeyTimestamp   = "ts"
	KeyRevision    = "r"
	KeyIssuedTo    = "id"
	KeyFlags       = "f"
	KeyMulticastLimit = "ml"
	KeyType        = "t"
	KeyName        = "n"
	KeyMTU         = "mtu"
	KeyMaxDelta    = "ctmd"
	KeyCOM         = "C"
	KeyRoutes      = "RT"
	KeyStaticIPs   = "I"
	KeyRules       = "R"
	KeyTags        = "TAG"
	KeyCOO         = "COO"
	KeyDNS         = "DNS"
	KeyNodeInfo    = "NI"
	KeyCentralURL  = "ssoce"
	KeySSOEnabled  = "ssoe"
	KeySSOVersion  = "ssov"
	KeySSOAuthURL  = "aurl"
	KeySSOAuthExpiry = "aexpt"
	KeySSOIssuerURL  = "iurl"
	KeySSONonce      = "sson"
	KeySSOState      = "ssos"
	KeySSOClientID   = "ssocid"
)

// SSOAuthConfiguration describes single-sign-on authentication for a
// network, when enabled.
type SSOAuthConfiguration struct {
	Version               uint32
	AuthenticationURL      string
	AuthenticationExpiry   int64
	IssuerURL              string
	Nonce                  string
	State                  string
	ClientID               string
}

// DNSEntry is one (name, servers) pair. V1 only ever carries one.
type DNSEntry struct {
	Name    string
	Servers []InetAddress
}

// NetworkConfig is a controller-pushed network configuration descriptor.
type NetworkConfig struct {
	NetworkID uint64
	IssuedTo  identity.Address

	Name string
	MOTD string
	Private bool

	Timestamp int64
	MaxDelta  int64
	Revision  uint64

	MTU             uint16
	MulticastLimit  uint32
	Routes          []IpRoute
	StaticIPs       []InetAddress
	Rules           []byte // opaque VL2 rule bytecode; the rule evaluator is out of scope
	DNS             []DNSEntry

	CertificateOfMembership *CertificateOfMembership
	CertificatesOfOwnership []CertificateOfOwnership
	Tags                    map[uint32]Tag

	// V2-only; never populated by DecodeV1 and never read by EncodeV1.
	Banned   map[identity.Address]bool
	NodeInfo map[identity.Address]NodeInfo

	CentralURL string
	SSO        *SSOAuthConfiguration
}

// EncodeV1 renders nc into its V1 wire dictionary. It fails (returns
// nil, error) if CertificateOfMembership is nil, since a config without
// one is invalid per the data model invariant.
func EncodeV1(nc *NetworkConfig) (*wire.Dictionary, error) {
	if nc.CertificateOfMembership == nil {
		return nil, ErrInvalidCertificate
	}

	d := wire.NewDictionary()

	d.SetStr(KeyNetworkID, strconv.FormatUint(nc.NetworkID, 16))
	if nc.Name != "" {
		d.SetStr(KeyName, nc.Name)
	}
	d.SetStr(KeyIssuedTo, addressToHex(nc.IssuedTo))

	typeVal := "1"
	if nc.Private {
		typeVal = "0"
	}
	d.SetStr(KeyType, typeVal)

	d.SetU64(KeyTimestamp, uint64(nc.Timestamp))
	d.SetU64(KeyMaxDelta, uint64(nc.MaxDelta))
	d.SetU64(KeyRevision, nc.Revision)
	d.SetU64(KeyMTU, uint64(nc.MTU))
	d.SetU64(KeyMulticastLimit, uint64(nc.MulticastLimit))

	if len(nc.Routes) > 0 {
		d.SetBytes(KeyRoutes, MarshalRoutes(nc.Routes))
	}
	if len(nc.StaticIPs) > 0 {
		d.SetBytes(KeyStaticIPs, MarshalMultiple(nc.StaticIPs))
	}
	if len(nc.Rules) > 0 {
		d.SetBytes(KeyRules, nc.Rules)
	}

	if len(nc.DNS) > 0 {
		d.SetBytes(KeyDNS, marshalDNS(nc.DNS[0]))
	}

	d.SetBytes(KeyCOM, nc.CertificateOfMembership.MarshalV1())

	if len(nc.CertificatesOfOwnership) > 0 {
		b := wire.NewBuffer()
		for _, c := range nc.CertificatesOfOwnership {
			b.Write(c.MarshalV1())
		}
		d.SetBytes(KeyCOO, b.Bytes())
	}

	if len(nc.Tags) > 0 {
		b := wire.NewBuffer()
		for _, t := range nc.Tags {
			b.Write(t.MarshalV1())
		}
		d.SetBytes(KeyTags, b.Bytes())
	}

	// node_info is not supported by V1 nodes.

	if nc.CentralURL != "" {
		d.SetStr(KeyCentralURL, nc.CentralURL)
	}

	if nc.SSO != nil {
		d.SetBool(KeySSOEnabled, true)
		d.SetU64(KeySSOVersion, uint64(nc.SSO.Version))
		d.SetStr(KeySSOAuthURL, nc.SSO.AuthenticationURL)
		d.SetU64(KeySSOAuthExpiry, uint64(nc.SSO.AuthenticationExpiry))
		d.SetStr(KeySSOIssuerURL, nc.SSO.IssuerURL)
		d.SetStr(KeySSONonce, nc.SSO.Nonce)
		d.SetStr(KeySSOState, nc.SSO.State)
		d.SetStr(KeySSOClientID, nc.SSO.ClientID)
	} else {
		d.SetBool(KeySSOEnabled, false)
	}

	return d, nil
}

// DecodeV1 is the strict inverse of EncodeV1. It rejects a missing
// network ID, missing issued-to address, missing timestamp, and a
// missing or invalid certificate of membership. Unknown dictionary keys
// are ignored; malformed variable-length sections fail with
// ErrInvalidCertificate, wire.ErrDictionaryMalformed or
// wire.ErrBufferUnderflow.
func DecodeV1(d *wire.Dictionary) (*NetworkConfig, error) {
	nwidStr, ok := d.GetStr(KeyNetworkID)
	if !ok {
		return nil, errMissing("network ID")
	}
	nwid, err := strconv.ParseUint(nwidStr, 16, 64)
	if err != nil {
		return nil, errMissing("invalid network ID")
	}

	issuedToStr, ok := d.GetStr(KeyIssuedTo)
	if !ok {
		return nil, errMissing("issued-to address")
	}
	issuedTo, err := addressFromHex(issuedToStr)
	if err != nil {
		return nil, errMissing("invalid issued-to address")
	}

	nc := &NetworkConfig{
		NetworkID: nwid,
		IssuedTo:  issuedTo,
		Tags:      make(map[uint32]Tag),
		Banned:    make(map[identity.Address]bool),
		NodeInfo:  make(map[identity.Address]NodeInfo),
	}

	if name, ok := d.GetStr(KeyName); ok {
		nc.Name = name
	}
	typeVal, ok := d.GetStr(KeyType)
	nc.Private = !ok || typeVal != "1"

	ts, ok := d.GetU64(KeyTimestamp)
	if !ok {
		return nil, errMissing("timestamp")
	}
	nc.Timestamp = int64(ts)

	if maxDelta, ok := d.GetU64(KeyMaxDelta); ok {
		nc.MaxDelta = int64(maxDelta)
	}
	if rev, ok := d.GetU64(KeyRevision); ok {
		nc.Revision = rev
	}
	if mtu, ok := d.GetU64(KeyMTU); ok {
		nc.MTU = uint16(mtu)
	} else {
		nc.MTU = DefaultMTU
	}
	if ml, ok := d.GetU64(KeyMulticastLimit); ok {
		nc.MulticastLimit = uint32(ml)
	}

	if routesBin, ok := d.GetBytes(KeyRoutes); ok {
		routes, err := UnmarshalRoutes(routesBin)
		if err != nil {
			return nil, err
		}
		nc.Routes = routes
	}

	if ipsBin, ok := d.GetBytes(KeyStaticIPs); ok {
		ips, err := UnmarshalMultipleInetAddress(ipsBin)
		if err != nil {
			return nil, err
		}
		nc.StaticIPs = ips
	}

	if rulesBin, ok := d.GetBytes(KeyRules); ok {
		nc.Rules = rulesBin
	}

	if dnsBin, ok := d.GetBytes(KeyDNS); ok {
		if entry, ok := unmarshalDNS(dnsBin); ok {
			nc.DNS = []DNSEntry{entry}
		}
	}

	comBin, ok := d.GetBytes(KeyCOM)
	if !ok {
		return nil, errMissing("certificate of membership")
	}
	com, err := UnmarshalCertificateOfMembershipV1(comBin)
	if err != nil {
		return nil, err
	}
	nc.CertificateOfMembership = com

	if cooBin, ok := d.GetBytes(KeyCOO); ok {
		coos, err := UnmarshalCertificatesOfOwnershipV1(cooBin)
		if err != nil {
			return nil, err
		}
		nc.CertificatesOfOwnership = coos
	}

	if tagBin, ok := d.GetBytes(KeyTags); ok {
		tags, err := UnmarshalTagsV1(tagBin)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			nc.Tags[t.ID] = t
		}
	}

	if centralURL, ok := d.GetStr(KeyCentralURL); ok {
		nc.CentralURL = centralURL
	}

	if ssoEnabled, _ := d.GetBool(KeySSOEnabled); ssoEnabled {
		sso := &SSOAuthConfiguration{}
		if v, ok := d.GetU64(KeySSOVersion); ok {
			sso.Version = uint32(v)
		}
		sso.AuthenticationURL, _ = d.GetStr(KeySSOAuthURL)
		if v, ok := d.GetU64(KeySSOAuthExpiry); ok {
			sso.AuthenticationExpiry = int64(v)
		}
		sso.IssuerURL, _ = d.GetStr(KeySSOIssuerURL)
		sso.Nonce, _ = d.GetStr(KeySSONonce)
		sso.State, _ = d.GetStr(KeySSOState)
		sso.ClientID, _ = d.GetStr(KeySSOClientID)
		nc.SSO = sso
	}

	return nc, nil
}

// marshalDNS renders one DNS entry as a 128-byte zero-padded name prefix
// followed by each server's marshaled InetAddress, per spec 4.6.
func marshalDNS(entry DNSEntry) []byte {
	b := wire.NewBuffer()
	name := []byte(entry.Name)
	if len(name) > 127 {
		name = name[:127]
	}
	var nameBlock [128]byte
	copy(nameBlock[:], name)
	b.Write(nameBlock[:])
	for _, s := range entry.Servers {
		s.Marshal(b)
	}
	return b.Bytes()
}

// unmarshalDNS parses a DNS blob. Per spec 4.6, the blob must satisfy
// 128 < len(blob) < 1024; outside that range it yields no DNS entry
// (not an error).
func unmarshalDNS(data []byte) (DNSEntry, bool) {
	if !(len(data) > 128 && len(data) < 1024) {
		return DNSEntry{}, false
	}

	nameEnd := 0
	for nameEnd < 128 && data[nameEnd] != 0 {
		nameEnd++
	}
	if nameEnd == 0 {
		return DNSEntry{}, false
	}
	name := string(data[:nameEnd])

	servers, err := UnmarshalMultipleInetAddress(data[128:])
	if err != nil || len(servers) == 0 {
		return DNSEntry{}, false
	}

	return DNSEntry{Name: name, Servers: servers}, true
}

func addressToHex(a identity.Address) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 10)
	for i, b := range a {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

func addressFromHex(s string) (identity.Address, error) {
	var a identity.Address
	if len(s) != 10 {
		return a, ErrInvalidCertificate
	}
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return a, ErrInvalidCertificate
		}
		a[i] = byte(v)
	}
	return a, nil
}

type invalidParameterError struct{ reason string }

func (e *invalidParameterError) Error() string { return "networkconfig: " + e.reason }

func errMissing(reason string) error { return &invalidParameterError{reason: "missing " + reason} }
