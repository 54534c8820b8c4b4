package api

import (
	"time"

	"LifeOracle/internal/ledger"
)

// MeResponse is the body of GET /me.
type MeResponse struct {
	Me  string `json:"me"`
	Key string `json:"key"`
}

// Peer is a connected transport peer.
type Peer struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// PeersResponse is the body of GET /peers.
type PeersResponse struct {
	Peers []Peer `json:"peers"`
}

// Attestation summarizes a finalized life attestation.
type Attestation struct {
	Root        string    `json:"root"`
	SubjectID   string    `json:"subjectId"`
	Alive       bool      `json:"alive"`
	Requester   string    `json:"requester"`
	Signers     []string  `json:"signers"`
	Summary     string    `json:"summary"`
	FinalizedAt time.Time `json:"finalizedAt"`
}

// AttestationsResponse is the body of GET /attestations.
type AttestationsResponse struct {
	Attestations []Attestation `json:"attestations"`
}

// VerifyResponse is the body of a successful GET /verify.
type VerifyResponse struct {
	Result      string      `json:"result"`
	Flow        string      `json:"flow"`
	Attestation Attestation `json:"attestation"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`
}

func attestationFromRecord(rec *ledger.Record) Attestation {
	a := Attestation{
		Root:        rec.Root.String(),
		Signers:     make([]string, len(rec.Signers)),
		FinalizedAt: rec.FinalizedAt,
	}

	for i, s := range rec.Signers {
		a.Signers[i] = s.String()
	}

	if state, ok := rec.State(); ok {
		a.SubjectID = state.SubjectID
		a.Alive = state.Alive
		a.Requester = state.Requester.String()
		a.Summary = state.String()
	}

	return a
}
