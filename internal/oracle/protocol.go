package oracle

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/tx"
	"LifeOracle/internal/types"
)

// Message types of the oracle protocol. Every message is
// [1B type] [flatbuffer].
const (
	msgTypeQuery            = 0x01
	msgTypeQueryResponse    = 0x02
	msgTypeSign             = 0x03
	msgTypeSignResponse     = 0x04
	msgTypeIdentity         = 0x05
	msgTypeIdentityResponse = 0x06
)

// Error codes carried in responses.
const (
	codeOK             = 0x00
	codeInvalidSubject = 0x01 // InvalidSubjectIDError
	codeUnavailable    = 0x02 // UnavailableError
	codeInvalidProof   = 0x03 // InvalidProofError
	codeRejected       = 0x04 // RejectedAttestationError
	codeInternal       = 0x05 // any other failure
)

// wireError is the transport form of a typed error.
type wireError struct {
	code    byte   // code identifies the error type
	index   int    // index is the failing component, or -1
	message string // message is the error reason
}

// toWire classifies err for transport.
func toWire(err error) wireError {
	var (
		invalid     *factlookup.InvalidSubjectIDError
		unavailable *factlookup.UnavailableError
		proof       *tx.InvalidProofError
		rejected    *RejectedAttestationError
	)

	switch {
	case err == nil:
		return wireError{code: codeOK, index: -1}
	case errors.As(err, &rejected):
		msg := rejected.Reason
		if rejected.Err != nil {
			msg += ": " + rejected.Err.Error()
		}
		return wireError{code: codeRejected, index: rejected.Index, message: msg}
	case errors.As(err, &proof):
		return wireError{code: codeInvalidProof, index: proof.Index, message: proof.Reason}
	case errors.As(err, &invalid):
		return wireError{code: codeInvalidSubject, index: -1, message: invalid.Input}
	case errors.As(err, &unavailable):
		return wireError{code: codeUnavailable, index: -1, message: unavailable.Error()}
	default:
		return wireError{code: codeInternal, index: -1, message: err.Error()}
	}
}

// fromWire rebuilds the typed error a response carries.
func fromWire(w wireError) error {
	switch w.code {
	case codeOK:
		return nil
	case codeInvalidSubject:
		return &factlookup.InvalidSubjectIDError{Input: w.message}
	case codeUnavailable:
		return &factlookup.UnavailableError{Reason: "oracle reported: " + w.message}
	case codeInvalidProof:
		return &tx.InvalidProofError{Index: w.index, Reason: w.message}
	case codeRejected:
		return &RejectedAttestationError{Index: w.index, Reason: w.message}
	default:
		return fmt.Errorf("oracle error (code 0x%02x): %s", w.code, w.message)
	}
}

// frame prefixes a finished flatbuffer with its message type.
func frame(msgType byte, b *flatbuffers.Builder) []byte {
	body := b.FinishedBytes()
	out := make([]byte, 1+len(body))
	out[0] = msgType
	copy(out[1:], body)
	return out
}

// unframe checks the type byte and returns the flatbuffer body.
func unframe(data []byte, want byte) ([]byte, error) {
	if len(data) < 1+8 {
		return nil, fmt.Errorf("message too short: %d bytes", len(data))
	}

	if data[0] != want {
		return nil, fmt.Errorf("unexpected message type 0x%02x, want 0x%02x", data[0], want)
	}

	return data[1:], nil
}

// QueryRequest asks for the fact about a subject.
type QueryRequest struct {
	RequestID uint64
	SubjectID string
}

// EncodeQueryRequest encodes a query request.
func EncodeQueryRequest(req *QueryRequest) []byte {
	b := flatbuffers.NewBuilder(64)
	subject := b.CreateString(req.SubjectID)

	types.QueryRequestStart(b)
	types.QueryRequestAddRequestId(b, req.RequestID)
	types.QueryRequestAddSubjectId(b, subject)
	b.Finish(types.QueryRequestEnd(b))

	return frame(msgTypeQuery, b)
}

// DecodeQueryRequest decodes a query request.
func DecodeQueryRequest(data []byte) (req *QueryRequest, err error) {
	defer recoverMalformed("query request", &err)

	body, err := unframe(data, msgTypeQuery)
	if err != nil {
		return nil, err
	}

	fb := types.GetRootAsQueryRequest(body, 0)

	return &QueryRequest{RequestID: fb.RequestId(), SubjectID: string(fb.SubjectId())}, nil
}

// QueryResponse carries the fact or the reason it is unknown.
type QueryResponse struct {
	RequestID uint64
	Value     bool
	Err       error
}

// EncodeQueryResponse encodes a query response.
func EncodeQueryResponse(resp *QueryResponse) []byte {
	w := toWire(resp.Err)

	b := flatbuffers.NewBuilder(128)
	msg := b.CreateString(w.message)

	types.QueryResponseStart(b)
	types.QueryResponseAddRequestId(b, resp.RequestID)
	types.QueryResponseAddValue(b, resp.Value)
	types.QueryResponseAddErrorCode(b, w.code)
	types.QueryResponseAddError(b, msg)
	b.Finish(types.QueryResponseEnd(b))

	return frame(msgTypeQueryResponse, b)
}

// DecodeQueryResponse decodes a query response.
func DecodeQueryResponse(data []byte) (resp *QueryResponse, err error) {
	defer recoverMalformed("query response", &err)

	body, err := unframe(data, msgTypeQueryResponse)
	if err != nil {
		return nil, err
	}

	fb := types.GetRootAsQueryResponse(body, 0)

	return &QueryResponse{
		RequestID: fb.RequestId(),
		Value:     fb.Value(),
		Err:       fromWire(wireError{code: fb.ErrorCode(), index: -1, message: string(fb.Error())}),
	}, nil
}

// SignRequest asks the oracle to sign a filtered view.
type SignRequest struct {
	RequestID uint64
	View      *tx.FilteredView
}

// EncodeSignRequest encodes a sign request.
func EncodeSignRequest(req *SignRequest) []byte {
	b := flatbuffers.NewBuilder(1024)
	view := tx.WriteFilteredView(b, req.View)

	types.SignRequestStart(b)
	types.SignRequestAddRequestId(b, req.RequestID)
	types.SignRequestAddView(b, view)
	b.Finish(types.SignRequestEnd(b))

	return frame(msgTypeSign, b)
}

// DecodeSignRequest decodes a sign request. The view is not verified.
func DecodeSignRequest(data []byte) (req *SignRequest, err error) {
	defer recoverMalformed("sign request", &err)

	body, err := unframe(data, msgTypeSign)
	if err != nil {
		return nil, err
	}

	fb := types.GetRootAsSignRequest(body, 0)

	fbView := fb.View(nil)
	if fbView == nil {
		return nil, fmt.Errorf("sign request without view")
	}

	view, err := tx.ReadFilteredView(fbView)
	if err != nil {
		return nil, fmt.Errorf("read view:\n%w", err)
	}

	return &SignRequest{RequestID: fb.RequestId(), View: view}, nil
}

// SignResponse carries the oracle signature or the refusal.
type SignResponse struct {
	RequestID uint64
	Signature keys.Signature
	Err       error
}

// EncodeSignResponse encodes a sign response.
func EncodeSignResponse(resp *SignResponse) []byte {
	w := toWire(resp.Err)

	b := flatbuffers.NewBuilder(256)
	msg := b.CreateString(w.message)

	var signer, sig flatbuffers.UOffsetT
	if resp.Err == nil {
		signer = b.CreateByteVector(resp.Signature.Signer[:])
		sig = b.CreateByteVector(resp.Signature.Bytes)
	}

	types.SignResponseStart(b)
	types.SignResponseAddRequestId(b, resp.RequestID)
	if resp.Err == nil {
		types.SignResponseAddSigner(b, signer)
		types.SignResponseAddSignature(b, sig)
	}
	types.SignResponseAddErrorCode(b, w.code)
	types.SignResponseAddError(b, msg)
	types.SignResponseAddComponentIndex(b, int32(w.index))
	b.Finish(types.SignResponseEnd(b))

	return frame(msgTypeSignResponse, b)
}

// DecodeSignResponse decodes a sign response.
func DecodeSignResponse(data []byte) (resp *SignResponse, err error) {
	defer recoverMalformed("sign response", &err)

	body, err := unframe(data, msgTypeSignResponse)
	if err != nil {
		return nil, err
	}

	fb := types.GetRootAsSignResponse(body, 0)

	resp = &SignResponse{
		RequestID: fb.RequestId(),
		Err: fromWire(wireError{
			code:    fb.ErrorCode(),
			index:   int(fb.ComponentIndex()),
			message: string(fb.Error()),
		}),
	}

	if resp.Err != nil {
		return resp, nil
	}

	signer, err := keys.KeyIDFromBytes(fb.SignerBytes())
	if err != nil {
		return nil, fmt.Errorf("signer:\n%w", err)
	}

	resp.Signature = keys.Signature{
		Signer: signer,
		Bytes:  append([]byte(nil), fb.SignatureBytes()...),
	}

	return resp, nil
}

// IdentityRequest asks for the oracle's identity.
type IdentityRequest struct {
	RequestID uint64
}

// EncodeIdentityRequest encodes an identity request.
func EncodeIdentityRequest(req *IdentityRequest) []byte {
	b := flatbuffers.NewBuilder(32)

	types.IdentityRequestStart(b)
	types.IdentityRequestAddRequestId(b, req.RequestID)
	b.Finish(types.IdentityRequestEnd(b))

	return frame(msgTypeIdentity, b)
}

// DecodeIdentityRequest decodes an identity request.
func DecodeIdentityRequest(data []byte) (req *IdentityRequest, err error) {
	defer recoverMalformed("identity request", &err)

	body, err := unframe(data, msgTypeIdentity)
	if err != nil {
		return nil, err
	}

	return &IdentityRequest{RequestID: types.GetRootAsIdentityRequest(body, 0).RequestId()}, nil
}

// IdentityResponse carries the oracle's identity.
type IdentityResponse struct {
	RequestID uint64
	Identity  Identity
}

// EncodeIdentityResponse encodes an identity response.
func EncodeIdentityResponse(resp *IdentityResponse) []byte {
	b := flatbuffers.NewBuilder(128)
	name := b.CreateString(resp.Identity.Name)
	key := b.CreateByteVector(resp.Identity.Key[:])

	types.IdentityResponseStart(b)
	types.IdentityResponseAddRequestId(b, resp.RequestID)
	types.IdentityResponseAddName(b, name)
	types.IdentityResponseAddKey(b, key)
	b.Finish(types.IdentityResponseEnd(b))

	return frame(msgTypeIdentityResponse, b)
}

// DecodeIdentityResponse decodes an identity response.
func DecodeIdentityResponse(data []byte) (resp *IdentityResponse, err error) {
	defer recoverMalformed("identity response", &err)

	body, err := unframe(data, msgTypeIdentityResponse)
	if err != nil {
		return nil, err
	}

	fb := types.GetRootAsIdentityResponse(body, 0)

	key, err := keys.KeyIDFromBytes(fb.KeyBytes())
	if err != nil {
		return nil, fmt.Errorf("key:\n%w", err)
	}

	return &IdentityResponse{
		RequestID: fb.RequestId(),
		Identity:  Identity{Name: string(fb.Name()), Key: key},
	}, nil
}

// MessageType returns the type byte of an encoded message.
func MessageType(data []byte) (byte, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty message")
	}

	return data[0], nil
}

// recoverMalformed turns a panic from reading a corrupt buffer into an error.
func recoverMalformed(what string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed %s: %v", what, r)
	}
}
