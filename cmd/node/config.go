package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"LifeOracle/internal/logger"
)

const (
	roleOracle = "oracle"
	roleClient = "client"

	lookupStatic = "static"
	lookupForm   = "form"
)

// Config holds the node configuration.
type Config struct {
	// Role is "oracle" or "client".
	Role string

	// Name is the node's display name.
	Name string

	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address (client role).
	HTTPAddress string

	// QUICAddress is the QUIC listen address.
	QUICAddress string

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string

	// PrivateKey is the node's Ed25519 transport key.
	PrivateKey ed25519.PrivateKey

	// OracleAddr is the QUIC address of the oracle (client role).
	OracleAddr string

	// DialTimeout bounds the initial connection to the oracle; zero waits forever.
	DialTimeout time.Duration

	// Lookup selects the fact source: "static" or "form" (oracle role).
	Lookup string

	// FactsPath is the JSON file of the static fact source.
	FactsPath string

	// LookupURL is the address of the web form.
	LookupURL string

	// LookupTimeout bounds every lookup.
	LookupTimeout time.Duration

	// CacheTTL is how long authoritative answers are cached; zero disables the cache.
	CacheTTL time.Duration

	// CacheSize is the number of cached answers.
	CacheSize int

	// LogLevel is the minimum level logged.
	LogLevel slog.Level
}

// parseFlags parses command-line arguments into Config.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("node", flag.ContinueOnError)

	var logLevel string

	fs.StringVar(&cfg.Role, "role", roleClient, "Node role: oracle or client")
	fs.StringVar(&cfg.Name, "name", "", "Node display name (defaults to the role)")
	fs.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	fs.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	fs.StringVar(&cfg.QUICAddress, "quic", ":9000", "QUIC listen address")
	fs.StringVar(&cfg.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.OracleAddr, "oracle-addr", "", "QUIC address of the oracle node")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", 0, "Give up dialing the oracle after this long (0 retries forever)")
	fs.StringVar(&cfg.Lookup, "lookup", lookupStatic, "Fact source: static or form")
	fs.StringVar(&cfg.FactsPath, "facts", "", "JSON file mapping subject IDs to liveness (static lookup)")
	fs.StringVar(&cfg.LookupURL, "lookup-url", "", "Web form URL (form lookup; empty uses the default)")
	fs.DurationVar(&cfg.LookupTimeout, "lookup-timeout", 10*time.Second, "Timeout of a single lookup")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", time.Minute, "Lifetime of cached lookup answers (0 disables)")
	fs.IntVar(&cfg.CacheSize, "cache-size", 1024, "Number of cached lookup answers")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.Name == "" {
		cfg.Name = cfg.Role
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks option combinations.
func (c *Config) validate() error {
	switch c.Role {
	case roleOracle:
		if c.Lookup != lookupStatic && c.Lookup != lookupForm {
			return fmt.Errorf("unknown lookup %q", c.Lookup)
		}
	case roleClient:
		if c.OracleAddr == "" {
			return fmt.Errorf("client role requires -oracle-addr")
		}
	default:
		return fmt.Errorf("unknown role %q", c.Role)
	}

	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive")
	}

	return nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
