package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/ledger"
	"LifeOracle/internal/oracle"
	"LifeOracle/internal/requester"
	"LifeOracle/internal/tx"
)

// mockAttestor returns a fixed result or error and records the subject.
type mockAttestor struct {
	result  *requester.Result
	err     error
	subject string
}

func (m *mockAttestor) Run(_ context.Context, subjectID string) (*requester.Result, error) {
	m.subject = subjectID
	return m.result, m.err
}

// mockRecords lists a fixed set of records.
type mockRecords struct {
	recs []*ledger.Record
	err  error
}

func (m *mockRecords) List() ([]*ledger.Record, error) {
	return m.recs, m.err
}

// testRecord builds a finalized record for subject.
func testRecord(t *testing.T, subject string, alive bool) *ledger.Record {
	t.Helper()

	requesterKey, _ := keys.GenerateKey()
	oracleKey, _ := keys.GenerateKey()

	transaction, err := tx.NewBuilder().
		AddOutput(tx.LifeState{SubjectID: subject, Alive: alive, Requester: requesterKey.ID()}).
		AddCommand(tx.AttestationCommand{SubjectID: subject, Alive: alive, Signers: []keys.KeyID{oracleKey.ID(), requesterKey.ID()}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	return &ledger.Record{
		Root:        transaction.Root(),
		Tx:          transaction,
		Signers:     []keys.KeyID{oracleKey.ID(), requesterKey.ID()},
		FinalizedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// do runs a GET request against the server's handler.
func do(t *testing.T, s *Server, target string, out any) int {
	t.Helper()

	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
		}
	}

	return w.Code
}

func TestHealthEndpoint(t *testing.T) {
	server := New(":0", Self{}, &mockAttestor{}, &mockRecords{}, nil)

	var resp map[string]string
	if code := do(t, server, "/health", &resp); code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestMeEndpoint(t *testing.T) {
	key, _ := keys.GenerateKey()
	server := New(":0", Self{Name: "PartyA", Key: key.ID()}, &mockAttestor{}, &mockRecords{}, nil)

	var resp MeResponse
	do(t, server, "/me", &resp)

	if resp.Me != "PartyA" || resp.Key != key.ID().String() {
		t.Errorf("got %+v", resp)
	}
}

func TestPeersEndpoint(t *testing.T) {
	peers := PeerListerFunc(func() []Peer {
		return []Peer{{ID: "abcd", Address: "127.0.0.1:9000"}}
	})
	server := New(":0", Self{}, &mockAttestor{}, &mockRecords{}, peers)

	var resp PeersResponse
	do(t, server, "/peers", &resp)

	if len(resp.Peers) != 1 || resp.Peers[0].Address != "127.0.0.1:9000" {
		t.Errorf("got %+v", resp)
	}
}

func TestPeersEndpointWithoutNetwork(t *testing.T) {
	server := New(":0", Self{}, &mockAttestor{}, &mockRecords{}, nil)

	var resp PeersResponse
	do(t, server, "/peers", &resp)

	if resp.Peers == nil || len(resp.Peers) != 0 {
		t.Errorf("expected an empty list, got %+v", resp.Peers)
	}
}

func TestAttestationsEndpoint(t *testing.T) {
	records := &mockRecords{recs: []*ledger.Record{
		testRecord(t, "123456789", true),
		testRecord(t, "987654321", false),
	}}
	server := New(":0", Self{}, &mockAttestor{}, records, nil)

	var resp AttestationsResponse
	if code := do(t, server, "/attestations", &resp); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}

	if len(resp.Attestations) != 2 {
		t.Fatalf("got %d attestations, want 2", len(resp.Attestations))
	}

	first := resp.Attestations[0]
	if first.SubjectID != "123456789" || !first.Alive || len(first.Signers) != 2 {
		t.Errorf("first = %+v", first)
	}

	if first.Root != records.recs[0].Root.String() {
		t.Error("root not reported")
	}

	if resp.Attestations[1].Summary != "The SSN 987654321 belongs to a person that is DECEASED." {
		t.Errorf("summary = %q", resp.Attestations[1].Summary)
	}
}

func TestAttestationsEndpointError(t *testing.T) {
	server := New(":0", Self{}, &mockAttestor{}, &mockRecords{err: errors.New("disk")}, nil)

	if code := do(t, server, "/attestations", nil); code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", code)
	}
}

func TestVerifySuccess(t *testing.T) {
	rec := testRecord(t, "123456789", true)
	state, _ := rec.State()
	attestor := &mockAttestor{result: &requester.Result{ID: uuid.New(), State: state, Record: rec}}
	server := New(":0", Self{}, attestor, &mockRecords{}, nil)

	var resp VerifyResponse
	if code := do(t, server, "/verify?ssn=123-45-6789", &resp); code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", code)
	}

	if attestor.subject != "123-45-6789" {
		t.Errorf("flow ran for %q", attestor.subject)
	}

	if resp.Result != "The SSN 123456789 belongs to a person that is LIVING." {
		t.Errorf("result = %q", resp.Result)
	}

	if resp.Attestation.Root != rec.Root.String() || resp.Flow == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestVerifyMissingSSN(t *testing.T) {
	attestor := &mockAttestor{}
	server := New(":0", Self{}, attestor, &mockRecords{}, nil)

	if code := do(t, server, "/verify", nil); code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", code)
	}

	if attestor.subject != "" {
		t.Error("flow ran without a subject")
	}
}

func TestVerifyErrorStatus(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  int
		state string
	}{
		{
			name: "invalid subject",
			err:  &requester.FlowError{State: requester.StateInit, Err: &factlookup.InvalidSubjectIDError{Input: "12"}},
			want: http.StatusBadRequest, state: "init",
		},
		{
			name: "unavailable",
			err:  &requester.FlowError{State: requester.StateQuerying, Err: &factlookup.UnavailableError{SubjectID: "123456789", Reason: "down"}},
			want: http.StatusServiceUnavailable, state: "querying",
		},
		{
			name: "rejected",
			err:  &requester.FlowError{State: requester.StateAwaitingOracleSignature, Err: &oracle.RejectedAttestationError{Index: 1, Reason: "wrong fact"}},
			want: http.StatusBadRequest, state: "awaiting-oracle-signature",
		},
		{
			name: "invalid proof",
			err:  &requester.FlowError{State: requester.StateAwaitingOracleSignature, Err: &tx.InvalidProofError{Index: 0, Reason: "bad path"}},
			want: http.StatusBadRequest, state: "awaiting-oracle-signature",
		},
		{
			name: "already finalized",
			err:  &requester.FlowError{State: requester.StateFinalizing, Err: ledger.ErrAlreadyFinalized},
			want: http.StatusConflict, state: "finalizing",
		},
		{
			name: "untyped",
			err:  errors.New("boom"),
			want: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := New(":0", Self{}, &mockAttestor{err: tc.err}, &mockRecords{}, nil)

			var resp ErrorResponse
			if code := do(t, server, "/verify?ssn=123456789", &resp); code != tc.want {
				t.Errorf("status = %d, want %d", code, tc.want)
			}

			if resp.State != tc.state {
				t.Errorf("state = %q, want %q", resp.State, tc.state)
			}

			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	server := New(":0", Self{}, &mockAttestor{}, &mockRecords{}, nil)

	req := httptest.NewRequest("POST", "/verify?ssn=123456789", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}
