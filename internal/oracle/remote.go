package oracle

import (
	"context"
	"fmt"
	"sync/atomic"

	"LifeOracle/internal/keys"
	"LifeOracle/internal/tx"
)

// Requester sends a request and waits for the response.
// network.Peer implements it.
type Requester interface {
	Request(ctx context.Context, data []byte) ([]byte, error)
}

// Remote is an oracle reached over the network. Errors reported by the
// oracle come back as the same typed errors the local Oracle returns.
type Remote struct {
	peer   Requester     // peer carries the requests
	nextID atomic.Uint64 // nextID numbers requests
}

// NewRemote creates a client for the oracle behind peer.
func NewRemote(peer Requester) *Remote {
	return &Remote{peer: peer}
}

// Query asks the oracle for the fact about subjectID.
func (r *Remote) Query(ctx context.Context, subjectID string) (bool, error) {
	id := r.nextID.Add(1)

	data, err := r.peer.Request(ctx, EncodeQueryRequest(&QueryRequest{RequestID: id, SubjectID: subjectID}))
	if err != nil {
		return false, fmt.Errorf("query oracle:\n%w", err)
	}

	resp, err := DecodeQueryResponse(data)
	if err != nil {
		return false, fmt.Errorf("decode query response:\n%w", err)
	}

	if resp.RequestID != id {
		return false, fmt.Errorf("response for request %d, want %d", resp.RequestID, id)
	}

	if resp.Err != nil {
		return false, resp.Err
	}

	return resp.Value, nil
}

// Sign asks the oracle to sign view.
func (r *Remote) Sign(ctx context.Context, view *tx.FilteredView) (keys.Signature, error) {
	id := r.nextID.Add(1)

	data, err := r.peer.Request(ctx, EncodeSignRequest(&SignRequest{RequestID: id, View: view}))
	if err != nil {
		return keys.Signature{}, fmt.Errorf("request oracle signature:\n%w", err)
	}

	resp, err := DecodeSignResponse(data)
	if err != nil {
		return keys.Signature{}, fmt.Errorf("decode sign response:\n%w", err)
	}

	if resp.RequestID != id {
		return keys.Signature{}, fmt.Errorf("response for request %d, want %d", resp.RequestID, id)
	}

	if resp.Err != nil {
		return keys.Signature{}, resp.Err
	}

	return resp.Signature, nil
}

// Identity asks the oracle for its name and signing key.
func (r *Remote) Identity(ctx context.Context) (Identity, error) {
	id := r.nextID.Add(1)

	data, err := r.peer.Request(ctx, EncodeIdentityRequest(&IdentityRequest{RequestID: id}))
	if err != nil {
		return Identity{}, fmt.Errorf("request oracle identity:\n%w", err)
	}

	resp, err := DecodeIdentityResponse(data)
	if err != nil {
		return Identity{}, fmt.Errorf("decode identity response:\n%w", err)
	}

	if resp.RequestID != id {
		return Identity{}, fmt.Errorf("response for request %d, want %d", resp.RequestID, id)
	}

	return resp.Identity, nil
}
