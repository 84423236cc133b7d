package pathset

import (
	"net"
	"testing"
)

func udpAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		t.Fatalf("ResolveUDPAddr(%q): %v", s, err)
	}
	return addr
}

func TestSetOrdersByAscendingQuality(t *testing.T) {
	s := NewSet()

	low := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: udpAddr(t, "10.0.0.1:9993")})
	low.Quality = 10
	mid := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: udpAddr(t, "10.0.0.2:9993")})
	mid.Quality = 50
	high := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: udpAddr(t, "10.0.0.3:9993")})
	high.Quality = 100

	s.Insert(mid)
	s.Insert(low)
	s.Insert(high)

	if s.Len() != 3 {
		t.Fatalf("expected 3 paths, got %d", s.Len())
	}
	if best := s.BestPath(); best != high {
		t.Fatalf("expected highest-quality path to be best, got %+v", best)
	}

	all := s.All()
	if all[0] != low || all[1] != mid || all[2] != high {
		t.Fatalf("expected ascending order low,mid,high, got %+v", all)
	}
}

func TestSetInsertReplacesSameEndpoint(t *testing.T) {
	s := NewSet()
	addr := udpAddr(t, "192.168.1.1:9993")

	first := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: addr})
	first.Quality = 1
	s.Insert(first)

	second := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: addr})
	second.Quality = 99
	s.Insert(second)

	if s.Len() != 1 {
		t.Fatalf("expected endpoint replacement to keep a single entry, got %d", s.Len())
	}
	if s.BestPath() != second {
		t.Fatalf("expected the replacing path to be installed")
	}
}

func TestSetFindAndRemove(t *testing.T) {
	s := NewSet()
	addr := udpAddr(t, "172.16.0.1:9993")
	p := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: addr})
	s.Insert(p)

	if found := s.Find(addr); found != p {
		t.Fatalf("expected Find to return the inserted path")
	}

	s.Remove(addr)
	if s.Len() != 0 {
		t.Fatalf("expected Remove to empty the set, got %d remaining", s.Len())
	}
	if s.Find(addr) != nil {
		t.Fatalf("expected Find to return nil after Remove")
	}
}

func TestSetReorderAfterQualityChange(t *testing.T) {
	s := NewSet()
	a := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: udpAddr(t, "10.0.0.1:1")})
	a.Quality = 5
	b := NewPath(Endpoint{Variant: EndpointIPUDP, UDPAddr: udpAddr(t, "10.0.0.2:1")})
	b.Quality = 10

	s.Insert(a)
	s.Insert(b)
	if s.BestPath() != b {
		t.Fatalf("expected b to start as best")
	}

	a.Quality = 100
	s.Reorder()
	if s.BestPath() != a {
		t.Fatalf("expected a to become best after Reorder")
	}
}
