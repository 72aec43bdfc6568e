// Package network is the websocket-based Transport implementation the core
// consensus/sync/round subsystems are driven through. The core only ever
// sees interfaces.Frame; this package owns dialing, accepting, fragment
// reassembly and LZ4 decompression around that boundary.
package network

import "time"

// PeerAddr names a deployment-known neighbor by its public key and the
// websocket URL it listens on.
type PeerAddr struct {
	PublicKeyBase58 string
	URL             string
}

// Options configures the transport's listener and static peer table. The
// permissioned deployment model means the confidant set is known up front,
// so peers are configured rather than discovered.
type Options struct {
	ListenAddr    string
	Peers         []PeerAddr
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	SignalPeers   []string // base58 public keys of relay-only peers, excluded from NeighborCountWithoutSS
}

func DefaultOptions() Options {
	return Options{
		ListenAddr:   ":7900",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}
