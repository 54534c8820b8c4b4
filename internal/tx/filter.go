package tx

import (
	"errors"
	"fmt"

	"LifeOracle/internal/merkle"
)

// ErrInvalidProof matches every InvalidProofError.
var ErrInvalidProof = errors.New("invalid proof")

// InvalidProofError reports a filtered view that is not a legitimate partial
// reveal of its committed root.
type InvalidProofError struct {
	Index  int    // Index is the component position, or -1 for view-level failures
	Reason string // Reason describes the failure
}

// Error implements error.
func (e *InvalidProofError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid proof: %s", e.Reason)
	}
	return fmt.Sprintf("invalid proof: component %d: %s", e.Index, e.Reason)
}

// Is matches ErrInvalidProof.
func (e *InvalidProofError) Is(target error) bool {
	return target == ErrInvalidProof
}

// Predicate decides whether a component is disclosed.
type Predicate func(Component) bool

// RevealedComponent is one disclosed component and its membership proof.
type RevealedComponent struct {
	Index     int          // Index is the component position in the transaction
	Nonce     merkle.Hash  // Nonce is the per-component nonce mixed into the leaf
	Component Component    // Component is the disclosed value
	Proof     merkle.Proof // Proof is the sibling path to the tree root
}

// Leaf recomputes the leaf hash of the revealed component.
func (r RevealedComponent) Leaf() merkle.Hash {
	return merkle.HashLeaf(r.Nonce, byte(r.Component.Kind()), r.Component.Payload())
}

// FilteredView is a partial disclosure of a transaction: the components that
// matched a predicate, each with a proof against the transaction root.
type FilteredView struct {
	Root      merkle.Hash         // Root is the commitment over the whole transaction
	LeafCount int                 // LeafCount is the number of components committed to
	Revealed  []RevealedComponent // Revealed is ordered by strictly increasing Index
}

// BuildFilteredView discloses the components of t matching pred.
// The result may be empty; such a view never verifies.
func BuildFilteredView(t *Transaction, pred Predicate) *FilteredView {
	view := &FilteredView{
		Root:      t.Root(),
		LeafCount: t.Len(),
	}

	for i, c := range t.components {
		if !pred(c) {
			continue
		}

		// Index is always in range here
		proof, _ := t.tree.Proof(i)

		view.Revealed = append(view.Revealed, RevealedComponent{
			Index:     i,
			Nonce:     t.nonce(i),
			Component: c,
			Proof:     proof,
		})
	}

	return view
}

// Verify checks that every revealed component is proven to sit at its index
// under Root. An empty disclosure is invalid.
func (v *FilteredView) Verify() error {
	if len(v.Revealed) == 0 {
		return &InvalidProofError{Index: -1, Reason: "no components revealed"}
	}

	if v.LeafCount <= 0 {
		return &InvalidProofError{Index: -1, Reason: fmt.Sprintf("invalid leaf count %d", v.LeafCount)}
	}

	prev := -1

	for _, r := range v.Revealed {
		if r.Component == nil {
			return &InvalidProofError{Index: r.Index, Reason: "missing component"}
		}

		if r.Index <= prev {
			return &InvalidProofError{Index: r.Index, Reason: "indices not strictly increasing"}
		}

		if r.Index >= v.LeafCount {
			return &InvalidProofError{Index: r.Index, Reason: fmt.Sprintf("index beyond leaf count %d", v.LeafCount)}
		}

		if !merkle.Verify(r.Leaf(), r.Index, v.LeafCount, r.Proof, v.Root) {
			return &InvalidProofError{Index: r.Index, Reason: "proof does not resolve to root"}
		}

		prev = r.Index
	}

	return nil
}

// CheckWith reports whether the view is non-empty and every revealed
// component satisfies pred.
func (v *FilteredView) CheckWith(pred Predicate) bool {
	if len(v.Revealed) == 0 {
		return false
	}

	for _, r := range v.Revealed {
		if !pred(r.Component) {
			return false
		}
	}

	return true
}
