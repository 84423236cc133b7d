/*
File Name:  eventlog.go
Copyright:  vl1mesh contributors

Hooks lets a caller intercept the events a running endpoint produces,
ported from the teacher's Filter.go pattern: a struct of optional
callback fields, each defaulted to a no-op closure by Init so call
sites never need a nil check.
*/

package eventlog

import (
	"log"
	"net"

	"github.com/vl1mesh/overlay/identity"
)

// Hooks contains all functions a caller may install to observe events.
// Use nil for unused; Init fills every unset field with a no-op. Within
// this repository only LogError is invoked (by cmd/vl1demo); nothing here
// calls PeerNew, PathUp, PathDown, PacketIn or PacketOut.
type Hooks struct {
	// LogError is called for any error encountered while running.
	LogError func(function, format string, v ...interface{})

	// PeerNew is called the first time a peer session is created for a
	// remote identity.
	PeerNew func(remote identity.Address)

	// PathUp is called when a new network path to a peer becomes known.
	PathUp func(remote identity.Address, addr *net.UDPAddr)

	// PathDown is called when a previously known path to a peer is
	// removed.
	PathDown func(remote identity.Address, addr *net.UDPAddr)

	// PacketIn is a low-level hook for packets after they decrypt
	// successfully.
	PacketIn func(remote identity.Address, verb byte, payloadLen int)

	// PacketOut is a low-level hook for packets before they encrypt.
	PacketOut func(remote identity.Address, verb byte, payloadLen int)
}

// Init sets every unset field of h to a blank function so it can be
// called safely without constant nil checks.
func (h *Hooks) Init() {
	if h.LogError == nil {
		h.LogError = func(function, format string, v ...interface{}) {}
	}
	if h.PeerNew == nil {
		h.PeerNew = func(remote identity.Address) {}
	}
	if h.PathUp == nil {
		h.PathUp = func(remote identity.Address, addr *net.UDPAddr) {}
	}
	if h.PathDown == nil {
		h.PathDown = func(remote identity.Address, addr *net.UDPAddr) {}
	}
	if h.PacketIn == nil {
		h.PacketIn = func(remote identity.Address, verb byte, payloadLen int) {}
	}
	if h.PacketOut == nil {
		h.PacketOut = func(remote identity.Address, verb byte, payloadLen int) {}
	}
}

// StandardLog returns a LogError implementation that writes through the
// standard library logger, for callers that don't need custom routing.
func StandardLog() func(function, format string, v ...interface{}) {
	return func(function, format string, v ...interface{}) {
		log.Printf("["+function+"] "+format, v...)
	}
}
