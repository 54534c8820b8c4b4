package network

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"
)

// generateTestKey generates a random ed25519 key pair for testing.
func generateTestKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return priv
}

// startNode creates and starts a node listening on addr.
func startNode(t *testing.T, key ed25519.PrivateKey, addr string) *Node {
	t.Helper()

	node, err := NewNode(Config{PrivateKey: key, ListenAddr: addr, ReconnectDelay: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}

	if err := node.Start(); err != nil {
		t.Fatalf("start node: %v", err)
	}

	t.Cleanup(func() { node.Close() })

	return node
}

// echoServer starts a node answering every request with "echo:" + data.
func echoServer(t *testing.T) *Node {
	t.Helper()

	server := startNode(t, generateTestKey(t), "127.0.0.1:0")
	server.OnRequest(func(_ *Peer, data []byte) ([]byte, error) {
		return append([]byte("echo:"), data...), nil
	})

	return server
}

// freeAddr returns a currently unused local UDP address.
func freeAddr(t *testing.T) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	return conn.LocalAddr().String()
}

func TestNewNodeValidates(t *testing.T) {
	if _, err := NewNode(Config{ListenAddr: ":0"}); err == nil {
		t.Error("expected error without private key")
	}

	if _, err := NewNode(Config{PrivateKey: generateTestKey(t)}); err == nil {
		t.Error("expected error without listen address")
	}
}

func TestNodeConnect(t *testing.T) {
	serverKey := generateTestKey(t)
	server := startNode(t, serverKey, "127.0.0.1:0")

	connected := make(chan *Peer, 1)
	server.OnConnect(func(p *Peer) { connected <- p })

	clientKey := generateTestKey(t)
	client := startNode(t, clientKey, "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if !bytes.Equal(peer.PublicKey(), serverKey.Public().(ed25519.PublicKey)) {
		t.Error("peer public key mismatch")
	}

	select {
	case p := <-connected:
		if !bytes.Equal(p.PublicKey(), clientKey.Public().(ed25519.PublicKey)) {
			t.Error("server saw wrong client key")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive connection")
	}

	if client.GetPeer(serverKey.Public().(ed25519.PublicKey)) != peer {
		t.Error("GetPeer did not return the connected peer")
	}

	if len(client.Peers()) != 1 || len(server.Peers()) != 1 {
		t.Errorf("peer counts: client %d, server %d", len(client.Peers()), len(server.Peers()))
	}
}

func TestRequestResponse(t *testing.T) {
	server := echoServer(t)
	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	response, err := peer.Request(context.Background(), []byte("hello"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if !bytes.Equal(response, []byte("echo:hello")) {
		t.Errorf("response mismatch: got %q", response)
	}
}

func TestConcurrentRequests(t *testing.T) {
	server := echoServer(t)
	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)

	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			msg := []byte(fmt.Sprintf("req-%d", i))
			resp, err := peer.Request(context.Background(), msg)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(resp, append([]byte("echo:"), msg...)) {
				errs <- fmt.Errorf("request %d got %q", i, resp)
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestRequestHandlerError(t *testing.T) {
	server := startNode(t, generateTestKey(t), "127.0.0.1:0")
	server.OnRequest(func(*Peer, []byte) ([]byte, error) {
		return nil, errors.New("refused")
	})

	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := peer.Request(ctx, []byte("hello")); err == nil {
		t.Error("expected error when the handler fails")
	}
}

func TestRequestTimeout(t *testing.T) {
	server := startNode(t, generateTestKey(t), "127.0.0.1:0")
	server.OnRequest(func(*Peer, []byte) ([]byte, error) {
		time.Sleep(500 * time.Millisecond)
		return []byte("late"), nil
	})

	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := peer.Request(ctx, []byte("hello")); err == nil {
		t.Error("expected timeout error")
	}

	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("request returned after %v", elapsed)
	}
}

func TestRequestCancelled(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := startNode(t, generateTestKey(t), "127.0.0.1:0")
	server.OnRequest(func(*Peer, []byte) ([]byte, error) {
		<-release
		return []byte("late"), nil
	})

	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	if _, err := peer.Request(ctx, []byte("hello")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRequestClosedPeer(t *testing.T) {
	server := echoServer(t)
	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	peer, err := client.Connect(context.Background(), server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	peer.Close()

	if _, err := peer.Request(context.Background(), []byte("hello")); err == nil {
		t.Error("expected error on a closed peer")
	}
}

func TestConnectWithRetry(t *testing.T) {
	addr := freeAddr(t)
	serverKey := generateTestKey(t)

	time.AfterFunc(300*time.Millisecond, func() {
		server, err := NewNode(Config{PrivateKey: serverKey, ListenAddr: addr})
		if err != nil {
			return
		}
		if err := server.Start(); err != nil {
			return
		}
		t.Cleanup(func() { server.Close() })
	})

	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	peer, err := client.ConnectWithRetry(ctx, addr, 0)
	if err != nil {
		t.Fatalf("connect with retry: %v", err)
	}

	if !bytes.Equal(peer.PublicKey(), serverKey.Public().(ed25519.PublicKey)) {
		t.Error("connected to the wrong node")
	}
}

func TestConnectWithRetryGivesUp(t *testing.T) {
	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer dialCancel()

	if _, err := client.ConnectWithRetry(dialCtx, freeAddr(t), 0); err == nil {
		t.Error("expected error when nothing listens")
	}
}

func TestNodeDisconnect(t *testing.T) {
	server := startNode(t, generateTestKey(t), "127.0.0.1:0")

	disconnected := make(chan struct{})
	var once sync.Once
	server.OnDisconnect(func(*Peer) {
		once.Do(func() { close(disconnected) })
	})

	client, err := NewNode(Config{PrivateKey: generateTestKey(t), ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	if _, err := client.Connect(context.Background(), server.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	client.Close()

	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for disconnect")
	}

	if len(server.Peers()) != 0 {
		t.Errorf("server peer count: got %d, want 0", len(server.Peers()))
	}
}

// TestNodeReconnect checks a dialed peer is redialed after it restarts.
func TestNodeReconnect(t *testing.T) {
	serverKey := generateTestKey(t)
	addr := freeAddr(t)

	server, err := NewNode(Config{PrivateKey: serverKey, ListenAddr: addr})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	client := startNode(t, generateTestKey(t), "127.0.0.1:0")

	reconnected := make(chan *Peer, 1)
	if _, err := client.Connect(context.Background(), addr); err != nil {
		t.Fatalf("connect: %v", err)
	}
	client.OnConnect(func(p *Peer) { reconnected <- p })

	server.Close()

	restarted := startNode(t, serverKey, addr)
	restarted.OnRequest(func(_ *Peer, data []byte) ([]byte, error) { return data, nil })

	select {
	case p := <-reconnected:
		if _, err := p.Request(context.Background(), []byte("ping")); err != nil {
			t.Errorf("request after reconnect: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for reconnection")
	}
}

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer

	if err := writeMessage(&buf, []byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if buf.Len() != lengthPrefixSize+len("payload") {
		t.Errorf("framed length = %d", buf.Len())
	}

	got, err := readMessage(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(got) != "payload" {
		t.Errorf("got %q", got)
	}

	if err := writeMessage(&buf, make([]byte, maxMessageSize+1)); err == nil {
		t.Error("expected error for oversized message")
	}

	oversized := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := readMessage(bytes.NewReader(oversized)); err == nil {
		t.Error("expected error for oversized length prefix")
	}

	if _, err := readMessage(bytes.NewReader([]byte{0, 0, 0, 8, 'x'})); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestCertificateCarriesKey(t *testing.T) {
	key := generateTestKey(t)

	cert, err := generateCertificate(key)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	pub, ok := cert.Leaf.PublicKey.(ed25519.PublicKey)
	if !ok || !bytes.Equal(pub, key.Public().(ed25519.PublicKey)) {
		t.Error("certificate does not carry the node key")
	}
}
