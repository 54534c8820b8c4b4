package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"LifeOracle/internal/api"
	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/ledger"
	"LifeOracle/internal/requester"
	"LifeOracle/internal/tx"
)

// fakeNode serves the API with scripted flow results.
type fakeNode struct {
	records []*ledger.Record
	err     error
}

func (f *fakeNode) Run(_ context.Context, subjectID string) (*requester.Result, error) {
	if f.err != nil {
		return nil, f.err
	}

	id, err := factlookup.Normalize(subjectID)
	if err != nil {
		return nil, &requester.FlowError{State: requester.StateInit, Err: err}
	}

	key, _ := keys.GenerateKey()
	state := tx.LifeState{SubjectID: id, Alive: true, Requester: key.ID()}

	t, err := tx.NewBuilder().
		AddOutput(state).
		AddCommand(tx.AttestationCommand{SubjectID: id, Alive: true, Signers: []keys.KeyID{key.ID()}}).
		Build()
	if err != nil {
		return nil, err
	}

	rec := &ledger.Record{Root: t.Root(), Tx: t, Signers: []keys.KeyID{key.ID()}, FinalizedAt: time.Now().UTC()}
	f.records = append(f.records, rec)

	return &requester.Result{ID: uuid.New(), State: state, Record: rec}, nil
}

func (f *fakeNode) List() ([]*ledger.Record, error) {
	return f.records, nil
}

// startAPI serves node through the real API handler.
func startAPI(t *testing.T, node *fakeNode) *Client {
	t.Helper()

	key, _ := keys.GenerateKey()
	peers := api.PeerListerFunc(func() []api.Peer {
		return []api.Peer{{ID: "oracle", Address: "127.0.0.1:9100"}}
	})

	srv := httptest.NewServer(api.New(":0", api.Self{Name: "PartyA", Key: key.ID()}, node, node, peers).Handler())
	t.Cleanup(srv.Close)

	return NewClient(strings.TrimPrefix(srv.URL, "http://"))
}

func TestHealthAndMe(t *testing.T) {
	c := startAPI(t, &fakeNode{})
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("me: %v", err)
	}

	if me.Me != "PartyA" {
		t.Errorf("me = %q", me.Me)
	}
}

func TestPeers(t *testing.T) {
	c := startAPI(t, &fakeNode{})

	peers, err := c.Peers(context.Background())
	if err != nil {
		t.Fatalf("peers: %v", err)
	}

	if len(peers) != 1 || peers[0].ID != "oracle" {
		t.Errorf("peers = %+v", peers)
	}
}

func TestVerifyAndList(t *testing.T) {
	c := startAPI(t, &fakeNode{})
	ctx := context.Background()

	resp, err := c.Verify(ctx, "123-45-6789")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if resp.Attestation.SubjectID != "123456789" {
		t.Errorf("subject = %q", resp.Attestation.SubjectID)
	}

	list, err := c.Attestations(ctx)
	if err != nil {
		t.Fatalf("attestations: %v", err)
	}

	if len(list) != 1 || list[0].Root != resp.Attestation.Root {
		t.Errorf("list = %+v", list)
	}
}

func TestVerifyInvalidSubject(t *testing.T) {
	c := startAPI(t, &fakeNode{})

	_, err := c.Verify(context.Background(), "12 34")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}

	if statusErr.Code != http.StatusBadRequest || statusErr.State != "init" || statusErr.Retryable() {
		t.Errorf("got %+v", statusErr)
	}
}

func TestVerifyUnavailableIsRetryable(t *testing.T) {
	unavailable := &requester.FlowError{
		State: requester.StateQuerying,
		Err:   &factlookup.UnavailableError{SubjectID: "123456789", Reason: "form down"},
	}
	c := startAPI(t, &fakeNode{err: unavailable})

	_, err := c.Verify(context.Background(), "123456789")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || !statusErr.Retryable() {
		t.Fatalf("expected retryable StatusError, got %v", err)
	}

	if !strings.Contains(statusErr.Error(), "form down") {
		t.Errorf("message lost: %q", statusErr.Error())
	}
}

func TestNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"))

	var statusErr *StatusError
	if err := c.Health(context.Background()); !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Errorf("expected 502 StatusError, got %v", err)
	}
}

func TestWaitReady(t *testing.T) {
	c := startAPI(t, &fakeNode{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := NewClient(addr).WaitReady(ctx); err == nil {
		t.Error("expected error when the node never answers")
	}
}
