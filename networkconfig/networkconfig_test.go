package networkconfig

import (
	"net"
	"testing"

	"github.com/btcsuite/btcd/btcec"

	"github.com/vl1mesh/overlay/identity"
	"github.com/vl1mesh/overlay/wire"
)

func newTestControllerKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		t.Fatalf("btcec.NewPrivateKey: %v", err)
	}
	return key
}

func TestCertificateOfMembershipSignVerify(t *testing.T) {
	key := newTestControllerKey(t)

	com := &CertificateOfMembership{
		NetworkID: 0xfeed,
		Timestamp: 1000,
		MaxDelta:  60,
		Issuer:    [5]byte{1, 2, 3, 4, 5},
	}
	if err := com.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !com.Verify((*btcec.PublicKey)(&key.PublicKey)) {
		t.Fatalf("Verify rejected a validly signed certificate")
	}

	data := com.MarshalV1()
	com2, err := UnmarshalCertificateOfMembershipV1(data)
	if err != nil {
		t.Fatalf("UnmarshalCertificateOfMembershipV1: %v", err)
	}
	if !com2.Verify((*btcec.PublicKey)(&key.PublicKey)) {
		t.Fatalf("round-tripped certificate failed to verify")
	}
	if com2.NetworkID != com.NetworkID || com2.Timestamp != com.Timestamp {
		t.Fatalf("round trip field mismatch: %+v vs %+v", com2, com)
	}
}

func TestCertificateOfMembershipRejectsWrongKey(t *testing.T) {
	key := newTestControllerKey(t)
	other := newTestControllerKey(t)

	com := &CertificateOfMembership{NetworkID: 1, Timestamp: 1, Issuer: [5]byte{1}}
	if err := com.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if com.Verify((*btcec.PublicKey)(&other.PublicKey)) {
		t.Fatalf("Verify accepted a certificate under the wrong controller key")
	}
}

func TestCertificateOfOwnershipRoundTrip(t *testing.T) {
	key := newTestControllerKey(t)

	coo := CertificateOfOwnership{
		NetworkID: 42,
		Timestamp: 500,
		IssuedTo:  [5]byte{9, 9, 9, 9, 9},
		Thing:     InetAddress{IP: net.IPv4(10, 1, 2, 3), Port: 443},
	}
	if err := coo.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	data := coo.MarshalV1()
	out, err := UnmarshalCertificatesOfOwnershipV1(data)
	if err != nil {
		t.Fatalf("UnmarshalCertificatesOfOwnershipV1: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(out))
	}
	if !out[0].Verify((*btcec.PublicKey)(&key.PublicKey)) {
		t.Fatalf("round-tripped certificate of ownership failed to verify")
	}
	if !out[0].Thing.IP.Equal(coo.Thing.IP) || out[0].Thing.Port != coo.Thing.Port {
		t.Fatalf("Thing field mismatch after round trip")
	}
}

func TestTagSignVerifyAndMultiRoundTrip(t *testing.T) {
	key := newTestControllerKey(t)

	t1 := Tag{ID: 1, Value: 100, NetworkID: 7, IssuedTo: [5]byte{1, 2, 3, 4, 5}, Timestamp: 10}
	t2 := Tag{ID: 2, Value: 200, NetworkID: 7, IssuedTo: [5]byte{1, 2, 3, 4, 5}, Timestamp: 10}
	if err := t1.Sign(key); err != nil {
		t.Fatalf("Sign t1: %v", err)
	}
	if err := t2.Sign(key); err != nil {
		t.Fatalf("Sign t2: %v", err)
	}

	data := append(t1.MarshalV1(), t2.MarshalV1()...)
	tags, err := UnmarshalTagsV1(data)
	if err != nil {
		t.Fatalf("UnmarshalTagsV1: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	for i, tg := range tags {
		if !tg.Verify((*btcec.PublicKey)(&key.PublicKey)) {
			t.Fatalf("tag %d failed to verify", i)
		}
	}
	if tags[0].Value != 100 || tags[1].Value != 200 {
		t.Fatalf("tag values out of order or corrupted: %+v", tags)
	}
}

func TestInetAddressRoundTripIPv4AndIPv6(t *testing.T) {
	addrs := []InetAddress{
		{IP: net.IPv4(192, 168, 1, 1), Port: 9993},
		{IP: net.ParseIP("2001:db8::1"), Port: 443},
		{},
	}
	data := MarshalMultiple(addrs)
	out, err := UnmarshalMultipleInetAddress(data)
	if err != nil {
		t.Fatalf("UnmarshalMultipleInetAddress: %v", err)
	}
	if len(out) != len(addrs) {
		t.Fatalf("expected %d addresses, got %d", len(addrs), len(out))
	}
	if !out[2].IsNil() {
		t.Fatalf("expected the nil-sentinel address to round trip as nil")
	}
	if out[1].Port != 443 {
		t.Fatalf("expected IPv6 port to round trip, got %d", out[1].Port)
	}
}

func TestRoutesRoundTripWithAndWithoutGateway(t *testing.T) {
	gw := InetAddress{IP: net.IPv4(10, 0, 0, 1), Port: 0}
	routes := []IpRoute{
		{Target: InetAddress{IP: net.IPv4(10, 0, 0, 0), Port: 0}, Via: &gw, Flags: 1, Metric: 5},
		{Target: InetAddress{IP: net.IPv4(192, 168, 0, 0), Port: 0}, Via: nil, Flags: 0, Metric: 1},
	}
	data := MarshalRoutes(routes)
	out, err := UnmarshalRoutes(data)
	if err != nil {
		t.Fatalf("UnmarshalRoutes: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(out))
	}
	if out[0].Via == nil || !out[0].Via.IP.Equal(gw.IP) {
		t.Fatalf("expected first route's gateway to round trip")
	}
	if out[1].Via != nil {
		t.Fatalf("expected second route's gateway to remain absent")
	}
}

func TestNetworkConfigV1RoundTrip(t *testing.T) {
	key := newTestControllerKey(t)

	com := &CertificateOfMembership{NetworkID: 0x1, Timestamp: 100, MaxDelta: 60, Issuer: [5]byte{1, 2, 3, 4, 5}}
	if err := com.Sign(key); err != nil {
		t.Fatalf("Sign COM: %v", err)
	}

	coo := CertificateOfOwnership{NetworkID: 0x1, Timestamp: 100, IssuedTo: [5]byte{6, 7, 8, 9, 10}, Thing: InetAddress{IP: net.IPv4(10, 0, 0, 5)}}
	if err := coo.Sign(key); err != nil {
		t.Fatalf("Sign COO: %v", err)
	}

	tag := Tag{ID: 1, Value: 1, NetworkID: 0x1, IssuedTo: [5]byte{6, 7, 8, 9, 10}, Timestamp: 100}
	if err := tag.Sign(key); err != nil {
		t.Fatalf("Sign tag: %v", err)
	}

	var issuedTo identity.Address
	copy(issuedTo[:], []byte{6, 7, 8, 9, 10})

	nc := &NetworkConfig{
		NetworkID:               0x1,
		IssuedTo:                issuedTo,
		Name:                    "test-network",
		Private:                 true,
		Timestamp:               100,
		MaxDelta:                60,
		Revision:                3,
		MTU:                     2800,
		MulticastLimit:          32,
		Routes:                  []IpRoute{{Target: InetAddress{IP: net.IPv4(10, 0, 0, 0)}}},
		StaticIPs:               []InetAddress{{IP: net.IPv4(10, 0, 0, 5), Port: 0}},
		DNS:                     []DNSEntry{{Name: "example.vl1", Servers: []InetAddress{{IP: net.IPv4(10, 0, 0, 53), Port: 53}}}},
		CertificateOfMembership: com,
		CertificatesOfOwnership: []CertificateOfOwnership{coo},
		Tags:                    map[uint32]Tag{1: tag},
		SSO: &SSOAuthConfiguration{
			Version:            1,
			AuthenticationURL:   "https://sso.example/auth",
			AuthenticationExpiry: 9999,
			IssuerURL:           "https://sso.example",
			Nonce:               "nonce123",
			State:               "state456",
			ClientID:            "client789",
		},
	}

	d, err := EncodeV1(nc)
	if err != nil {
		t.Fatalf("EncodeV1: %v", err)
	}

	encoded := d.Marshal()
	d2, err := wire.UnmarshalDictionary(encoded)
	if err != nil {
		t.Fatalf("wire.UnmarshalDictionary: %v", err)
	}

	decoded, err := DecodeV1(d2)
	if err != nil {
		t.Fatalf("DecodeV1: %v", err)
	}

	if decoded.NetworkID != nc.NetworkID {
		t.Fatalf("NetworkID mismatch: %x vs %x", decoded.NetworkID, nc.NetworkID)
	}
	if decoded.IssuedTo != nc.IssuedTo {
		t.Fatalf("IssuedTo mismatch")
	}
	if decoded.Name != nc.Name {
		t.Fatalf("Name mismatch: %q vs %q", decoded.Name, nc.Name)
	}
	if !decoded.Private {
		t.Fatalf("expected decoded network to be private")
	}
	if decoded.Revision != nc.Revision || decoded.MTU != nc.MTU {
		t.Fatalf("revision/MTU mismatch")
	}
	if len(decoded.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(decoded.Routes))
	}
	if len(decoded.StaticIPs) != 1 {
		t.Fatalf("expected 1 static IP, got %d", len(decoded.StaticIPs))
	}
	if len(decoded.DNS) != 1 || decoded.DNS[0].Name != "example.vl1" {
		t.Fatalf("DNS entry did not round trip: %+v", decoded.DNS)
	}
	if decoded.CertificateOfMembership == nil || !decoded.CertificateOfMembership.Verify((*btcec.PublicKey)(&key.PublicKey)) {
		t.Fatalf("decoded certificate of membership failed to verify")
	}
	if len(decoded.CertificatesOfOwnership) != 1 {
		t.Fatalf("expected 1 certificate of ownership, got %d", len(decoded.CertificatesOfOwnership))
	}
	if len(decoded.Tags) != 1 || decoded.Tags[1].Value != 1 {
		t.Fatalf("tag did not round trip: %+v", decoded.Tags)
	}
	if decoded.SSO == nil || decoded.SSO.ClientID != "client789" {
		t.Fatalf("SSO configuration did not round trip: %+v", decoded.SSO)
	}
}

func TestNetworkConfigV1RejectsMissingCertificate(t *testing.T) {
	nc := &NetworkConfig{NetworkID: 1, Timestamp: 1}
	if _, err := EncodeV1(nc); err == nil {
		t.Fatalf("expected EncodeV1 to reject a NetworkConfig without a certificate of membership")
	}
}

func TestNetworkConfigV1DecodeRejectsMissingTimestamp(t *testing.T) {
	com := &CertificateOfMembership{NetworkID: 1, Issuer: [5]byte{1}}
	com.Sign(newTestControllerKey(t))

	d := wire.NewDictionary()
	d.SetStr(KeyNetworkID, "1")
	d.SetStr(KeyIssuedTo, "0102030405")
	d.SetBytes(KeyCOM, com.MarshalV1())
	// KeyTimestamp deliberately omitted.

	if _, err := DecodeV1(d); err == nil {
		t.Fatalf("expected DecodeV1 to reject a dictionary missing the timestamp")
	}
}
