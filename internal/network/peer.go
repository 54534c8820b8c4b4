package network

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"LifeOracle/internal/logger"
)

const (
	// defaultRequestTimeout is the default timeout for Request calls.
	defaultRequestTimeout = 30 * time.Second
)

// Peer represents a connection to a remote node.
type Peer struct {
	publicKey ed25519.PublicKey // publicKey is the remote node's ed25519 public key
	address   string            // address is the remote address
	conn      *quic.Conn        // conn is the underlying QUIC connection
	node      *Node             // node is the parent node
	closed    atomic.Bool       // closed indicates if the peer is closed
}

// PublicKey returns the remote node's ed25519 public key.
func (p *Peer) PublicKey() ed25519.PublicKey {
	return p.publicKey
}

// ID returns the hex encoded public key of the peer.
func (p *Peer) ID() string {
	return hex.EncodeToString(p.publicKey)
}

// Address returns the remote address.
func (p *Peer) Address() string {
	return p.address
}

// Close closes the peer connection.
func (p *Peer) Close() error {
	if p.closed.Swap(true) {
		return nil // Already closed
	}

	return p.conn.CloseWithError(0, "closed")
}

// Request sends data and waits for response via bidirectional stream.
// Uses the provided context for timeout/cancellation.
func (p *Peer) Request(ctx context.Context, data []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("peer is closed")
	}

	stream, err := p.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRequestTimeout)
	}
	stream.SetDeadline(deadline)

	// Cancelling ctx aborts a pending read.
	stop := context.AfterFunc(ctx, func() {
		stream.CancelRead(0)
	})
	defer stop()

	if err := writeMessage(stream, data); err != nil {
		return nil, fmt.Errorf("write request:\n%w", err)
	}

	response, err := readMessage(stream)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("read response:\n%w", ctxErr)
		}
		return nil, fmt.Errorf("read response:\n%w", err)
	}

	return response, nil
}

// serve accepts request streams until the connection ends.
func (p *Peer) serve() {
	served := 0

	for {
		stream, err := p.conn.AcceptStream(context.Background())
		if err != nil {
			logger.Debug("peer connection ended", "peer", p.address, "error", err, "requests", served)
			break
		}

		served++
		go p.handleStream(stream)
	}

	p.handleDisconnect()
}

// handleStream answers one request.
func (p *Peer) handleStream(stream *quic.Stream) {
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(defaultRequestTimeout))

	data, err := readMessage(stream)
	if err != nil {
		logger.Debug("request read error", "peer", p.address, "error", err)
		return
	}

	response, err := p.node.callOnRequest(p, data)
	if err != nil {
		logger.Debug("request handler error", "peer", p.address, "error", err)
		stream.CancelWrite(1)
		return
	}

	if err := writeMessage(stream, response); err != nil {
		logger.Debug("response write error", "peer", p.address, "error", err)
	}
}

// handleDisconnect handles peer disconnection.
func (p *Peer) handleDisconnect() {
	if p.closed.Swap(true) {
		return // Already closed
	}

	p.node.handlePeerDisconnect(p)
}
