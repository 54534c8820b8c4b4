package main

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"LifeOracle/internal/network"
)

// peerRequester sends requests to whichever connection to a peer is current.
// The network redials dropped peers, so the *network.Peer seen at start-up
// may be replaced.
type peerRequester struct {
	node   *network.Node     // node owns the connections
	pubkey ed25519.PublicKey // pubkey identifies the remote node
}

// newPeerRequester creates a requester for the node behind peer.
func newPeerRequester(node *network.Node, peer *network.Peer) *peerRequester {
	return &peerRequester{node: node, pubkey: peer.PublicKey()}
}

// Request implements oracle.Requester.
func (r *peerRequester) Request(ctx context.Context, data []byte) ([]byte, error) {
	peer := r.node.GetPeer(r.pubkey)
	if peer == nil {
		return nil, fmt.Errorf("oracle %x is not connected", r.pubkey[:8])
	}

	return peer.Request(ctx, data)
}
