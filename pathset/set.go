/*
File Name:  set.go
Copyright:  vl1mesh contributors

Set is the ordered collection of Paths known for one peer. Ordering
itself belongs to an external path-quality routine; this package only
maintains ascending-by-Quality order as Paths are inserted or
reordered, and exposes the last element as the best path.
*/

package pathset

import (
	"net"
	"sort"
	"sync"
)

// Set is a peer's ordered path list, kept in ascending Quality order so
// the best path is always the last element. Safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	paths []*Path
}

// NewSet creates an empty path set.
func NewSet() *Set {
	return &Set{}
}

// BestPath returns the highest-quality path, or nil if the set is empty.
func (s *Set) BestPath() *Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.paths) == 0 {
		return nil
	}
	return s.paths[len(s.paths)-1]
}

// Len returns the number of known paths.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// All returns a snapshot slice of all known paths, in ascending quality
// order.
func (s *Set) All() []*Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Path, len(s.paths))
	copy(out, s.paths)
	return out
}

// Find returns the existing path matching addr, or nil.
func (s *Set) Find(addr *net.UDPAddr) *Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.paths {
		if p.Endpoint.UDPAddr != nil && udpAddrEqual(p.Endpoint.UDPAddr, addr) {
			return p
		}
	}
	return nil
}

// Insert adds p to the set in its correct ascending-quality position. If
// a path to the same endpoint already exists, it is replaced.
func (s *Set) Insert(p *Path) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.paths {
		if existing.Endpoint.UDPAddr != nil && p.Endpoint.UDPAddr != nil &&
			udpAddrEqual(existing.Endpoint.UDPAddr, p.Endpoint.UDPAddr) {
			s.paths = append(s.paths[:i], s.paths[i+1:]...)
			break
		}
	}

	idx := sort.Search(len(s.paths), func(i int) bool { return s.paths[i].Quality >= p.Quality })
	s.paths = append(s.paths, nil)
	copy(s.paths[idx+1:], s.paths[idx:])
	s.paths[idx] = p
}

// Remove drops the path matching addr, if present.
func (s *Set) Remove(addr *net.UDPAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.paths {
		if p.Endpoint.UDPAddr != nil && udpAddrEqual(p.Endpoint.UDPAddr, addr) {
			s.paths = append(s.paths[:i], s.paths[i+1:]...)
			return
		}
	}
}

// Reorder re-sorts the set by each path's current Quality value,
// stable with respect to ties. Callers invoke this after an external
// quality routine updates Quality fields in place.
func (s *Set) Reorder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.paths, func(i, j int) bool {
		return s.paths[i].Quality < s.paths[j].Quality
	})
}

func udpAddrEqual(a, b *net.UDPAddr) bool {
	return a.IP.Equal(b.IP) && a.Port == b.Port && a.Zone == b.Zone
}
