package tx

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"LifeOracle/internal/merkle"
	"LifeOracle/internal/types"
)

// WriteComponent builds a Component table in b.
func WriteComponent(b *flatbuffers.Builder, c Component) flatbuffers.UOffsetT {
	payload := b.CreateByteVector(c.Payload())

	types.ComponentStart(b)
	types.ComponentAddKind(b, byte(c.Kind()))
	types.ComponentAddPayload(b, payload)

	return types.ComponentEnd(b)
}

// readComponent decodes a Component table.
func readComponent(fb *types.Component) (Component, error) {
	return Decode(Kind(fb.Kind()), fb.PayloadBytes())
}

// WriteFilteredView builds a FilteredView table in b.
func WriteFilteredView(b *flatbuffers.Builder, v *FilteredView) flatbuffers.UOffsetT {
	leafOffsets := make([]flatbuffers.UOffsetT, len(v.Revealed))

	for i, r := range v.Revealed {
		comp := WriteComponent(b, r.Component)
		nonce := b.CreateByteVector(r.Nonce[:])
		siblings := b.CreateByteVector(flattenProof(r.Proof))

		types.RevealedLeafStart(b)
		types.RevealedLeafAddIndex(b, uint32(r.Index))
		types.RevealedLeafAddNonce(b, nonce)
		types.RevealedLeafAddComponent(b, comp)
		types.RevealedLeafAddSiblings(b, siblings)
		leafOffsets[i] = types.RevealedLeafEnd(b)
	}

	types.FilteredViewStartLeavesVector(b, len(leafOffsets))
	for i := len(leafOffsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(leafOffsets[i])
	}
	leaves := b.EndVector(len(leafOffsets))

	root := b.CreateByteVector(v.Root[:])

	types.FilteredViewStart(b)
	types.FilteredViewAddRoot(b, root)
	types.FilteredViewAddLeafCount(b, uint32(v.LeafCount))
	types.FilteredViewAddLeaves(b, leaves)

	return types.FilteredViewEnd(b)
}

// ReadFilteredView converts a FilteredView table. It checks shapes only;
// call Verify for the proof check.
func ReadFilteredView(fb *types.FilteredView) (*FilteredView, error) {
	root, err := merkle.HashFromBytes(fb.RootBytes())
	if err != nil {
		return nil, fmt.Errorf("root:\n%w", err)
	}

	n := fb.LeavesLength()
	if n > len(fb.Table().Bytes)/4 {
		return nil, fmt.Errorf("leaf vector length %d exceeds buffer", n)
	}

	view := &FilteredView{
		Root:      root,
		LeafCount: int(fb.LeafCount()),
		Revealed:  make([]RevealedComponent, 0, n),
	}

	var leaf types.RevealedLeaf

	for i := 0; i < n; i++ {
		if !fb.Leaves(&leaf, i) {
			return nil, fmt.Errorf("leaf %d missing", i)
		}

		r, err := readRevealedLeaf(&leaf)
		if err != nil {
			return nil, fmt.Errorf("leaf %d:\n%w", i, err)
		}

		view.Revealed = append(view.Revealed, r)
	}

	return view, nil
}

// readRevealedLeaf converts one RevealedLeaf table.
func readRevealedLeaf(fb *types.RevealedLeaf) (RevealedComponent, error) {
	var r RevealedComponent

	nonce, err := merkle.HashFromBytes(fb.NonceBytes())
	if err != nil {
		return r, fmt.Errorf("nonce:\n%w", err)
	}

	fbComp := fb.Component(nil)
	if fbComp == nil {
		return r, fmt.Errorf("missing component")
	}

	comp, err := readComponent(fbComp)
	if err != nil {
		return r, err
	}

	proof, err := splitProof(fb.SiblingsBytes())
	if err != nil {
		return r, err
	}

	r.Index = int(fb.Index())
	r.Nonce = nonce
	r.Component = comp
	r.Proof = proof

	return r, nil
}

// EncodeFilteredView serializes a view as a standalone buffer.
func EncodeFilteredView(v *FilteredView) []byte {
	b := flatbuffers.NewBuilder(1024)
	b.Finish(WriteFilteredView(b, v))
	return b.FinishedBytes()
}

// DecodeFilteredView parses a standalone FilteredView buffer.
func DecodeFilteredView(data []byte) (view *FilteredView, err error) {
	defer recoverMalformed("filtered view", &err)

	if len(data) < 8 {
		return nil, fmt.Errorf("filtered view too short: %d bytes", len(data))
	}

	return ReadFilteredView(types.GetRootAsFilteredView(data, 0))
}

// EncodeTransaction serializes the salt and components of t.
func EncodeTransaction(t *Transaction) []byte {
	b := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(t.components))
	for i, c := range t.components {
		offsets[i] = WriteComponent(b, c)
	}

	types.TransactionStartComponentsVector(b, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offsets[i])
	}
	comps := b.EndVector(len(offsets))

	salt := b.CreateByteVector(t.salt[:])

	types.TransactionStart(b)
	types.TransactionAddSalt(b, salt)
	types.TransactionAddComponents(b, comps)
	b.Finish(types.TransactionEnd(b))

	return b.FinishedBytes()
}

// DecodeTransaction parses a transaction and recomputes its root.
func DecodeTransaction(data []byte) (t *Transaction, err error) {
	defer recoverMalformed("transaction", &err)

	if len(data) < 8 {
		return nil, fmt.Errorf("transaction too short: %d bytes", len(data))
	}

	fb := types.GetRootAsTransaction(data, 0)

	salt, err := merkle.HashFromBytes(fb.SaltBytes())
	if err != nil {
		return nil, fmt.Errorf("salt:\n%w", err)
	}

	n := fb.ComponentsLength()
	if n > len(data)/4 {
		return nil, fmt.Errorf("component vector length %d exceeds buffer", n)
	}

	components := make([]Component, n)

	var fbComp types.Component
	for i := range components {
		if !fb.Components(&fbComp, i) {
			return nil, fmt.Errorf("component %d missing", i)
		}

		c, err := readComponent(&fbComp)
		if err != nil {
			return nil, fmt.Errorf("component %d:\n%w", i, err)
		}

		components[i] = c
	}

	return New(salt, components)
}

// flattenProof concatenates sibling hashes.
func flattenProof(p merkle.Proof) []byte {
	out := make([]byte, 0, len(p)*32)
	for _, h := range p {
		out = append(out, h[:]...)
	}
	return out
}

// splitProof splits concatenated sibling hashes.
func splitProof(b []byte) (merkle.Proof, error) {
	if len(b)%32 != 0 {
		return nil, fmt.Errorf("siblings length %d is not a multiple of 32", len(b))
	}

	proof := make(merkle.Proof, len(b)/32)
	for i := range proof {
		copy(proof[i][:], b[i*32:(i+1)*32])
	}

	return proof, nil
}

// recoverMalformed turns a panic from reading a corrupt buffer into an error.
func recoverMalformed(what string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed %s: %v", what, r)
	}
}
