package network

import "errors"

var (
	errPeerClosed       = errors.New("network: peer connection closed")
	errPeerBackpressure = errors.New("network: peer outbox full")
	errUnknownPeer      = errors.New("network: no connection for addressee")
)
