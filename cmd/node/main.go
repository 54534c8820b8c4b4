package main

import (
	"fmt"
	"os"

	"LifeOracle/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("parse flags:\n%w", err)
	}

	logger.Init(cfg.LogLevel)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(node)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(n *Node) {
	args := []any{
		"role", n.cfg.Role,
		"name", n.cfg.Name,
		"key", n.key.ID().Short(),
		"quic", n.cfg.QUICAddress,
	}

	switch n.cfg.Role {
	case roleOracle:
		args = append(args, "lookup", n.cfg.Lookup, "cache_ttl", n.cfg.CacheTTL)
	case roleClient:
		args = append(args, "http", n.cfg.HTTPAddress, "oracle", n.cfg.OracleAddr, "data", n.cfg.DataPath)
	}

	logger.Info("starting LifeOracle node", args...)
}
