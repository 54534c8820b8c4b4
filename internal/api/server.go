package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/ledger"
	"LifeOracle/internal/logger"
	"LifeOracle/internal/oracle"
	"LifeOracle/internal/requester"
	"LifeOracle/internal/tx"
)

const (
	// flowTimeout bounds one /verify request end to end.
	flowTimeout = 45 * time.Second
)

// Attestor runs the attestation flow. requester.Flow implements it.
type Attestor interface {
	Run(ctx context.Context, subjectID string) (*requester.Result, error)
}

// RecordLister enumerates finalized attestations. ledger.Journal implements it.
type RecordLister interface {
	List() ([]*ledger.Record, error)
}

// PeerLister reports the connected transport peers.
type PeerLister interface {
	Peers() []Peer
}

// PeerListerFunc adapts a function to PeerLister.
type PeerListerFunc func() []Peer

// Peers implements PeerLister.
func (f PeerListerFunc) Peers() []Peer { return f() }

// Self describes the node serving the API.
type Self struct {
	Name string     // Name is the node's display name
	Key  keys.KeyID // Key is the node's signing key
}

// Server is the HTTP API server of a client node.
type Server struct {
	addr     string       // addr is the HTTP listen address
	self     Self         // self is reported by /me
	attestor Attestor     // attestor runs /verify flows
	records  RecordLister // records backs /attestations
	peers    PeerLister   // peers backs /peers; may be nil
	server   *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, self Self, attestor Attestor, records RecordLister, peers PeerLister) *Server {
	return &Server{
		addr:     addr,
		self:     self,
		attestor: attestor,
		records:  records,
		peers:    peers,
	}
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /me", s.handleMe)
	mux.HandleFunc("GET /peers", s.handlePeers)
	mux.HandleFunc("GET /attestations", s.handleAttestations)
	mux.HandleFunc("GET /verify", s.handleVerify)

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: flowTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleMe handles GET /me requests.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MeResponse{Me: s.self.Name, Key: s.self.Key.String()})
}

// handlePeers handles GET /peers requests.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	peers := []Peer{}
	if s.peers != nil {
		peers = append(peers, s.peers.Peers()...)
	}

	writeJSON(w, http.StatusOK, PeersResponse{Peers: peers})
}

// handleAttestations handles GET /attestations requests.
func (s *Server) handleAttestations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.records.List()
	if err != nil {
		logger.Error("list attestations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list attestations")
		return
	}

	out := make([]Attestation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, attestationFromRecord(rec))
	}

	writeJSON(w, http.StatusOK, AttestationsResponse{Attestations: out})
}

// handleVerify handles GET /verify?ssn= requests by running the flow.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ssn := r.URL.Query().Get("ssn")
	if ssn == "" {
		writeError(w, http.StatusBadRequest, "missing ssn query parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), flowTimeout)
	defer cancel()

	res, err := s.attestor.Run(ctx, ssn)
	if err != nil {
		status := statusFor(err)
		logger.Debug("verify failed", "status", status, "error", err)
		writeFlowError(w, status, err)
		return
	}

	writeJSON(w, http.StatusCreated, VerifyResponse{
		Result:      res.State.String(),
		Flow:        res.ID.String(),
		Attestation: attestationFromRecord(res.Record),
	})
}

// statusFor maps a flow error to an HTTP status. Errors about the request
// itself are 400, an unreachable fact source is 503 (retryable), any other
// failure is 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, factlookup.ErrInvalidSubjectID),
		errors.Is(err, oracle.ErrRejectedAttestation),
		errors.Is(err, tx.ErrInvalidProof):
		return http.StatusBadRequest
	case errors.Is(err, factlookup.ErrLookupUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusConflict
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeFlowError writes an error response naming the failed flow state.
func writeFlowError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var flowErr *requester.FlowError
	if errors.As(err, &flowErr) {
		resp.Error = flowErr.Err.Error()
		resp.State = flowErr.State.String()
	}

	writeJSON(w, status, resp)
}
