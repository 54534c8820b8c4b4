package network

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/quic-go/quic-go"

	"LifeOracle/internal/logger"
)

const (
	// defaultReconnectDelay is the default delay between reconnection attempts.
	defaultReconnectDelay = 5 * time.Second

	// maxReconnectDelay is the maximum delay between reconnection attempts.
	maxReconnectDelay = 60 * time.Second

	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "lifeoracle/1"
)

// Config holds the configuration for a Node.
type Config struct {
	PrivateKey     ed25519.PrivateKey // PrivateKey is the node's ed25519 private key
	ListenAddr     string             // ListenAddr is the address to listen on (e.g., ":9000")
	ReconnectDelay time.Duration      // ReconnectDelay is the initial delay between reconnection attempts
}

// Node accepts and initiates QUIC connections carrying request/response
// exchanges. Peers are identified by the ed25519 key of their certificate.
type Node struct {
	privateKey ed25519.PrivateKey // privateKey is the node's ed25519 private key
	publicKey  ed25519.PublicKey  // publicKey is the node's ed25519 public key
	listenAddr string             // listenAddr is the address to listen on
	tlsConfig  *tls.Config        // tlsConfig is the TLS configuration
	quicConfig *quic.Config       // quicConfig is the QUIC configuration

	listener *quic.Listener // listener is the QUIC listener

	peers   map[string]*Peer // peers maps public key hex to peer
	peersMu sync.RWMutex     // peersMu protects peers map

	dialed   map[string]string // dialed maps public key hex to the address we dialed
	dialedMu sync.RWMutex      // dialedMu protects dialed map

	reconnectDelay time.Duration // reconnectDelay is the initial reconnection delay

	onConnect    func(*Peer)                         // onConnect is called when a peer connects
	onDisconnect func(*Peer)                         // onDisconnect is called when a peer disconnects
	onRequest    func(*Peer, []byte) ([]byte, error) // onRequest handles bidirectional request/response
	handlersMu   sync.RWMutex                        // handlersMu protects event handlers

	ctx    context.Context    // ctx is the node's context
	cancel context.CancelFunc // cancel cancels the node's context
	wg     sync.WaitGroup     // wg waits for goroutines to finish
}

// NewNode creates a new network node.
func NewNode(cfg Config) (*Node, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay == 0 {
		reconnectDelay = defaultReconnectDelay
	}

	cert, err := generateCertificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tls.RequireAnyClientCert,
		InsecureSkipVerify: true, // peers are authenticated by their ed25519 key
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		privateKey:     cfg.PrivateKey,
		publicKey:      cfg.PrivateKey.Public().(ed25519.PublicKey),
		listenAddr:     cfg.ListenAddr,
		tlsConfig:      tlsConfig,
		quicConfig:     quicConfig,
		peers:          make(map[string]*Peer),
		dialed:         make(map[string]string),
		reconnectDelay: reconnectDelay,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// PublicKey returns the node's public key.
func (n *Node) PublicKey() ed25519.PublicKey {
	return n.publicKey
}

// Addr returns the listener's address. Returns empty string if not started.
func (n *Node) Addr() string {
	if n.listener == nil {
		return ""
	}

	return n.listener.Addr().String()
}

// Start starts the node and begins accepting connections.
func (n *Node) Start() error {
	listener, err := quic.ListenAddr(n.listenAddr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	n.listener = listener

	n.wg.Add(1)
	go n.acceptLoop()

	return nil
}

// Connect connects to a remote node at the given address.
// Peers reached through Connect are redialed when they drop.
func (n *Node) Connect(ctx context.Context, addr string) (*Peer, error) {
	conn, err := quic.DialAddr(ctx, addr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s:\n%w", addr, err)
	}

	peer, err := n.setupPeer(conn, addr, true)
	if err != nil {
		conn.CloseWithError(1, "setup failed")
		return nil, err
	}

	return peer, nil
}

// ConnectWithRetry dials addr with exponential backoff until it succeeds,
// ctx is done, or maxElapsed has passed. A zero maxElapsed retries until ctx
// is done.
func (n *Node) ConnectWithRetry(ctx context.Context, addr string, maxElapsed time.Duration) (*Peer, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = maxReconnectDelay
	b.MaxElapsedTime = maxElapsed

	var peer *Peer

	op := func() error {
		p, err := n.Connect(ctx, addr)
		if err != nil {
			return err
		}
		peer = p
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Debug("dial failed, retrying", "addr", addr, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("connect to %s:\n%w", addr, err)
	}

	return peer, nil
}

// Peers returns a list of all connected peers.
func (n *Node) Peers() []*Peer {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()

	peers := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}

	return peers
}

// GetPeer returns the peer for the given public key, or nil if not connected.
func (n *Node) GetPeer(pubkey ed25519.PublicKey) *Peer {
	keyHex := hex.EncodeToString(pubkey)

	n.peersMu.RLock()
	defer n.peersMu.RUnlock()

	return n.peers[keyHex]
}

// OnConnect sets the handler called when a peer connects.
func (n *Node) OnConnect(fn func(*Peer)) {
	n.handlersMu.Lock()
	n.onConnect = fn
	n.handlersMu.Unlock()
}

// OnDisconnect sets the handler called when a peer disconnects.
func (n *Node) OnDisconnect(fn func(*Peer)) {
	n.handlersMu.Lock()
	n.onDisconnect = fn
	n.handlersMu.Unlock()
}

// OnRequest sets the handler for incoming bidirectional requests.
// The handler receives request data and returns response data.
func (n *Node) OnRequest(fn func(*Peer, []byte) ([]byte, error)) {
	n.handlersMu.Lock()
	n.onRequest = fn
	n.handlersMu.Unlock()
}

// Close stops the node and closes all connections.
func (n *Node) Close() error {
	n.cancel()

	if n.listener != nil {
		n.listener.Close()
	}

	n.peersMu.Lock()
	for _, p := range n.peers {
		p.Close()
	}
	n.peers = make(map[string]*Peer)
	n.peersMu.Unlock()

	n.wg.Wait()

	return nil
}

// acceptLoop accepts incoming connections.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept(n.ctx)
		if err != nil {
			return // Listener closed
		}

		go n.handleIncoming(conn)
	}
}

// handleIncoming handles an incoming connection.
func (n *Node) handleIncoming(conn *quic.Conn) {
	peer, err := n.setupPeer(conn, conn.RemoteAddr().String(), false)
	if err != nil {
		conn.CloseWithError(1, "setup failed")
		return
	}

	n.callOnConnect(peer)
}

// setupPeer creates a Peer from a QUIC connection.
func (n *Node) setupPeer(conn *quic.Conn, addr string, outbound bool) (*Peer, error) {
	tlsState := conn.ConnectionState().TLS

	pubKey, err := extractPublicKey(tlsState)
	if err != nil {
		return nil, fmt.Errorf("extract public key:\n%w", err)
	}

	keyHex := hex.EncodeToString(pubKey)

	peer := &Peer{
		publicKey: pubKey,
		address:   addr,
		conn:      conn,
		node:      n,
	}

	n.peersMu.Lock()
	n.peers[keyHex] = peer
	n.peersMu.Unlock()

	if outbound {
		n.dialedMu.Lock()
		n.dialed[keyHex] = addr
		n.dialedMu.Unlock()
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		peer.serve()
	}()

	return peer, nil
}

// handlePeerDisconnect handles a peer disconnection.
func (n *Node) handlePeerDisconnect(p *Peer) {
	keyHex := hex.EncodeToString(p.publicKey)

	n.peersMu.Lock()
	if n.peers[keyHex] == p {
		delete(n.peers, keyHex)
	}
	n.peersMu.Unlock()

	n.callOnDisconnect(p)

	if n.ctx.Err() != nil {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.reconnectPeer(keyHex)
	}()
}

// reconnectPeer redials a peer we originally dialed, with exponential backoff.
// Inbound peers are expected to dial us again.
func (n *Node) reconnectPeer(keyHex string) {
	n.dialedMu.RLock()
	addr, ok := n.dialed[keyHex]
	n.dialedMu.RUnlock()

	if !ok {
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.reconnectDelay
	b.MaxInterval = maxReconnectDelay
	b.MaxElapsedTime = 0

	op := func() error {
		n.peersMu.RLock()
		_, exists := n.peers[keyHex]
		n.peersMu.RUnlock()

		if exists {
			return nil
		}

		peer, err := n.Connect(n.ctx, addr)
		if err != nil {
			return err
		}

		n.callOnConnect(peer)
		return nil
	}

	// The first attempt waits one interval like every later one.
	select {
	case <-n.ctx.Done():
		return
	case <-time.After(n.reconnectDelay):
	}

	if err := backoff.Retry(op, backoff.WithContext(b, n.ctx)); err != nil {
		logger.Debug("reconnect abandoned", "addr", addr, "error", err)
	}
}

// callOnConnect calls the onConnect handler if set.
func (n *Node) callOnConnect(p *Peer) {
	n.handlersMu.RLock()
	fn := n.onConnect
	n.handlersMu.RUnlock()

	if fn != nil {
		fn(p)
	}
}

// callOnDisconnect calls the onDisconnect handler if set.
func (n *Node) callOnDisconnect(p *Peer) {
	n.handlersMu.RLock()
	fn := n.onDisconnect
	n.handlersMu.RUnlock()

	if fn != nil {
		fn(p)
	}
}

// callOnRequest calls the onRequest handler if set.
func (n *Node) callOnRequest(p *Peer, data []byte) ([]byte, error) {
	n.handlersMu.RLock()
	fn := n.onRequest
	n.handlersMu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("no request handler registered")
	}

	return fn(p, data)
}
