/*
File Name:  nodeinfo.go
Copyright:  vl1mesh contributors

NodeInfo and the ban set are V2-only additions to NetworkConfig; they
exist as real fields on the data model (per original_source's
HashMap<Address, NodeInfo> / HashSet<Address>) but the V1 wire codec
never reads or writes them, matching spec 4.6's "node_info and banned
are V2-only and absent on the V1 wire."
*/

package networkconfig

// NodeInfo carries out-of-band facts about a member node that a V2
// controller may distribute alongside the network configuration.
type NodeInfo struct {
	Flags    uint64
	IP       *InetAddress
	Name     string
	Services map[string]string
}
