package integration

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"LifeOracle/client"
	"LifeOracle/internal/api"
	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/ledger"
	"LifeOracle/internal/network"
	"LifeOracle/internal/oracle"
	"LifeOracle/internal/requester"
	"LifeOracle/internal/storage"
)

// OracleNode is an in-process oracle serving requests over QUIC.
type OracleNode struct {
	Oracle  *oracle.Oracle     // Oracle is the decision engine
	Facts   *factlookup.Static // Facts is the source of truth
	Network *network.Node      // Network is the QUIC endpoint
}

// Addr returns the QUIC address of the oracle.
func (o *OracleNode) Addr() string { return o.Network.Addr() }

// ClientNode is an in-process client node: flow, journal and HTTP API.
type ClientNode struct {
	Key     *keys.KeyPair   // Key is the requester's ledger key
	Network *network.Node   // Network holds the connection to the oracle
	Remote  *oracle.Remote  // Remote is the oracle seen through the network
	Journal *ledger.Journal // Journal records finalized attestations
	Client  *client.Client  // Client talks to the HTTP API
}

// newKey generates an ed25519 transport key.
func newKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return priv
}

// StartOracle runs an oracle over facts on a random local port.
func StartOracle(t *testing.T, facts map[string]bool) *OracleNode {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	priv := newKey(t)

	key, err := keys.DeriveFromED25519(priv)
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}

	static, err := factlookup.NewStatic(facts)
	if err != nil {
		t.Fatalf("static lookup: %v", err)
	}

	o, err := oracle.New(oracle.Config{Name: "Oracle", Key: key, Lookup: factlookup.NewCached(static, 0, time.Minute)})
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}

	node, err := network.NewNode(network.Config{PrivateKey: priv, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("new network node: %v", err)
	}

	handler := oracle.NewHandler(o, 5*time.Second)
	node.OnRequest(func(_ *network.Peer, data []byte) ([]byte, error) {
		return handler.HandleRequest(context.Background(), data)
	})

	if err := node.Start(); err != nil {
		t.Fatalf("start oracle network: %v", err)
	}
	t.Cleanup(func() { node.Close() })

	return &OracleNode{Oracle: o, Facts: static, Network: node}
}

// clientOptions customize a client node.
type clientOptions struct {
	wrap func(requester.Oracle) requester.Oracle // wrap intercepts oracle calls
}

// ClientOption configures StartClient.
type ClientOption func(*clientOptions)

// WithOracleWrapper routes the flow's oracle calls through wrap.
func WithOracleWrapper(wrap func(requester.Oracle) requester.Oracle) ClientOption {
	return func(o *clientOptions) { o.wrap = wrap }
}

// StartClient dials the oracle at oracleAddr and serves the HTTP API.
func StartClient(t *testing.T, oracleAddr string, options ...ClientOption) *ClientNode {
	t.Helper()

	var opts clientOptions
	for _, o := range options {
		o(&opts)
	}

	priv := newKey(t)

	key, err := keys.DeriveFromED25519(priv)
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}

	node, err := network.NewNode(network.Config{PrivateKey: priv, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("new network node: %v", err)
	}
	t.Cleanup(func() { node.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	peer, err := node.ConnectWithRetry(ctx, oracleAddr, 0)
	if err != nil {
		t.Fatalf("connect to oracle: %v", err)
	}

	remote := oracle.NewRemote(peer)

	id, err := remote.Identity(ctx)
	if err != nil {
		t.Fatalf("oracle identity: %v", err)
	}

	store, err := storage.Open(filepath.Join(t.TempDir(), "db"), storage.Options{})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	journal, err := ledger.NewJournal(store)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	t.Cleanup(func() {
		journal.Close()
		store.Close()
	})

	var orc requester.Oracle = remote
	if opts.wrap != nil {
		orc = opts.wrap(remote)
	}

	flow, err := requester.New(requester.Config{
		Key:       key,
		OracleKey: id.Key,
		Notary:    key.ID(),
		Oracle:    orc,
		Finalizer: journal,
	})
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}

	peers := api.PeerListerFunc(func() []api.Peer {
		var out []api.Peer
		for _, p := range node.Peers() {
			out = append(out, api.Peer{ID: p.ID(), Address: p.Address()})
		}
		return out
	})

	srv := httptest.NewServer(api.New("", api.Self{Name: "PartyA", Key: key.ID()}, flow, journal, peers).Handler())
	t.Cleanup(srv.Close)

	return &ClientNode{
		Key:     key,
		Network: node,
		Remote:  remote,
		Journal: journal,
		Client:  client.NewClient(strings.TrimPrefix(srv.URL, "http://")),
	}
}
