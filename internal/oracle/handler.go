package oracle

import (
	"context"
	"fmt"
	"time"
)

// defaultRequestTimeout bounds the work done for one network request.
const defaultRequestTimeout = 30 * time.Second

// Handler serves oracle requests received from the network.
type Handler struct {
	oracle  *Oracle       // oracle answers the requests
	timeout time.Duration // timeout bounds each request
}

// NewHandler creates a Handler. A zero timeout selects the default.
func NewHandler(o *Oracle, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Handler{oracle: o, timeout: timeout}
}

// HandleRequest decodes one request and returns the encoded response.
// Refusals are encoded in the response; an error means the request could
// not be understood and the stream is dropped.
func (h *Handler) HandleRequest(ctx context.Context, data []byte) ([]byte, error) {
	msgType, err := MessageType(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	switch msgType {
	case msgTypeQuery:
		return h.handleQuery(ctx, data)
	case msgTypeSign:
		return h.handleSign(ctx, data)
	case msgTypeIdentity:
		return h.handleIdentity(data)
	default:
		return nil, fmt.Errorf("unknown message type 0x%02x", msgType)
	}
}

// handleQuery answers a fact query.
func (h *Handler) handleQuery(ctx context.Context, data []byte) ([]byte, error) {
	req, err := DecodeQueryRequest(data)
	if err != nil {
		return nil, fmt.Errorf("decode query:\n%w", err)
	}

	value, err := h.oracle.Query(ctx, req.SubjectID)

	return EncodeQueryResponse(&QueryResponse{RequestID: req.RequestID, Value: value, Err: err}), nil
}

// handleSign runs the signing decision over a filtered view.
func (h *Handler) handleSign(ctx context.Context, data []byte) ([]byte, error) {
	req, err := DecodeSignRequest(data)
	if err != nil {
		return nil, fmt.Errorf("decode sign request:\n%w", err)
	}

	sig, err := h.oracle.Sign(ctx, req.View)

	return EncodeSignResponse(&SignResponse{RequestID: req.RequestID, Signature: sig, Err: err}), nil
}

// handleIdentity returns the oracle's identity.
func (h *Handler) handleIdentity(data []byte) ([]byte, error) {
	req, err := DecodeIdentityRequest(data)
	if err != nil {
		return nil, fmt.Errorf("decode identity request:\n%w", err)
	}

	return EncodeIdentityResponse(&IdentityResponse{RequestID: req.RequestID, Identity: h.oracle.Identity()}), nil
}
