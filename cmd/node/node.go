package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"LifeOracle/internal/api"
	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/ledger"
	"LifeOracle/internal/logger"
	"LifeOracle/internal/network"
	"LifeOracle/internal/oracle"
	"LifeOracle/internal/requester"
	"LifeOracle/internal/storage"
)

// Node represents a running LifeOracle node.
type Node struct {
	cfg     *Config
	key     *keys.KeyPair // key is the BLS ledger key derived from the transport key
	network *network.Node
	oracle  *oracle.Oracle
	storage *storage.Storage
	journal *ledger.Journal
	api     *api.Server
}

// NewNode creates and initializes a new node.
func NewNode(cfg *Config) (*Node, error) {
	key, err := keys.DeriveFromED25519(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("derive ledger key:\n%w", err)
	}

	n := &Node{cfg: cfg, key: key}

	if err := n.initNetwork(); err != nil {
		return nil, err
	}

	switch cfg.Role {
	case roleOracle:
		err = n.initOracle()
	case roleClient:
		err = n.initClient()
	}

	if err != nil {
		n.Close()
		return nil, err
	}

	return n, nil
}

// initNetwork initializes the QUIC node.
func (n *Node) initNetwork() error {
	netNode, err := network.NewNode(network.Config{
		PrivateKey: n.cfg.PrivateKey,
		ListenAddr: n.cfg.QUICAddress,
	})
	if err != nil {
		return fmt.Errorf("init network:\n%w", err)
	}

	n.network = netNode

	return nil
}

// initOracle builds the lookup chain and the oracle serving it.
func (n *Node) initOracle() error {
	lookup, err := n.buildLookup()
	if err != nil {
		return err
	}

	o, err := oracle.New(oracle.Config{
		Name:          n.cfg.Name,
		Key:           n.key,
		Lookup:        lookup,
		LookupTimeout: n.cfg.LookupTimeout,
	})
	if err != nil {
		return fmt.Errorf("init oracle:\n%w", err)
	}

	n.oracle = o

	return nil
}

// buildLookup selects the fact source and wraps it in the cache.
func (n *Node) buildLookup() (factlookup.Lookup, error) {
	var lookup factlookup.Lookup

	switch n.cfg.Lookup {
	case lookupForm:
		formCfg := factlookup.DefaultFormConfig()
		if n.cfg.LookupURL != "" {
			formCfg.URL = n.cfg.LookupURL
		}
		lookup = factlookup.NewForm(formCfg, &http.Client{Timeout: n.cfg.LookupTimeout})

	default:
		static, err := n.loadStatic()
		if err != nil {
			return nil, err
		}
		lookup = static
	}

	if n.cfg.CacheTTL > 0 {
		lookup = factlookup.NewCached(lookup, n.cfg.CacheSize, n.cfg.CacheTTL)
	}

	return lookup, nil
}

// loadStatic reads the facts file, or starts empty without one.
func (n *Node) loadStatic() (*factlookup.Static, error) {
	if n.cfg.FactsPath == "" {
		logger.Warn("no facts file, every lookup is unavailable")
		return factlookup.NewStatic(nil)
	}

	static, err := factlookup.LoadStatic(n.cfg.FactsPath)
	if err != nil {
		return nil, fmt.Errorf("load facts:\n%w", err)
	}

	logger.Info("facts loaded", "subjects", static.Len(), "path", n.cfg.FactsPath)

	return static, nil
}

// initClient opens the journal of a client node.
func (n *Node) initClient() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.Open(filepath.Join(n.cfg.DataPath, "db"), storage.Options{})
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	journal, err := ledger.NewJournal(db)
	if err != nil {
		return fmt.Errorf("init journal:\n%w", err)
	}

	n.journal = journal

	return nil
}

// Run starts the node and blocks until a shutdown signal.
func (n *Node) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n.cfg.Role == roleOracle {
		n.setupRequestHandlers()
	}

	if err := n.network.Start(); err != nil {
		n.Close()
		return fmt.Errorf("start network:\n%w", err)
	}

	if n.cfg.Role == roleClient {
		if err := n.startClient(ctx); err != nil {
			n.Close()
			return err
		}
	} else {
		id := n.oracle.Identity()
		logger.Info("oracle ready", "name", id.Name, "key", id.Key.String(), "addr", n.network.Addr())
	}

	return n.waitForShutdown(ctx)
}

// setupRequestHandlers serves oracle requests from the network.
func (n *Node) setupRequestHandlers() {
	handler := oracle.NewHandler(n.oracle, 0)

	n.network.OnRequest(func(p *network.Peer, data []byte) ([]byte, error) {
		return handler.HandleRequest(context.Background(), data)
	})
}

// startClient connects to the oracle, learns its key and serves the API.
func (n *Node) startClient(ctx context.Context) error {
	peer, err := n.network.ConnectWithRetry(ctx, n.cfg.OracleAddr, n.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("connect to oracle:\n%w", err)
	}

	remote := oracle.NewRemote(newPeerRequester(n.network, peer))

	id, err := remote.Identity(ctx)
	if err != nil {
		return fmt.Errorf("oracle identity:\n%w", err)
	}

	logger.Info("connected to oracle", "name", id.Name, "key", id.Key.Short(), "addr", peer.Address())

	flow, err := requester.New(requester.Config{
		Key:       n.key,
		OracleKey: id.Key,
		Notary:    n.key.ID(),
		Oracle:    remote,
		Finalizer: n.journal,
		OnStep: func(s requester.State, flowID uuid.UUID) {
			logger.Debug("flow step", "flow", flowID.String(), "state", s.String())
		},
	})
	if err != nil {
		return fmt.Errorf("init flow:\n%w", err)
	}

	n.api = api.New(n.cfg.HTTPAddress, api.Self{Name: n.cfg.Name, Key: n.key.ID()}, flow, n.journal, api.PeerListerFunc(n.peers))

	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return nil
}

// peers reports the transport peers for the API.
func (n *Node) peers() []api.Peer {
	connected := n.network.Peers()

	out := make([]api.Peer, 0, len(connected))
	for _, p := range connected {
		out = append(out, api.Peer{ID: p.ID(), Address: p.Address()})
	}

	return out
}

// waitForShutdown blocks until ctx is cancelled by a signal.
func (n *Node) waitForShutdown(ctx context.Context) error {
	<-ctx.Done()
	logger.Info("shutting down")

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.network != nil {
		n.network.Close()
	}

	if n.journal != nil {
		n.journal.Close()
	}

	if n.storage != nil {
		n.storage.Close()
	}

	return nil
}
