package tx

import (
	"errors"
	"math/rand"
	"testing"

	"LifeOracle/internal/keys"
	"LifeOracle/internal/merkle"
)

// testKey generates a BLS key for tests.
func testKey(t testing.TB) *keys.KeyPair {
	t.Helper()

	k, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return k
}

// randomTransaction builds a transaction with a random mix of components.
func randomTransaction(t *testing.T, rng *rand.Rand, signers []keys.KeyID) *Transaction {
	t.Helper()

	b := NewBuilder()
	n := 1 + rng.Intn(12)

	for i := 0; i < n; i++ {
		switch rng.Intn(3) {
		case 0:
			var root merkle.Hash
			rng.Read(root[:])
			b.AddInput(InputRef{TxRoot: root, Index: uint32(rng.Intn(4))})
		case 1:
			b.AddOutput(LifeState{SubjectID: "123456789", Alive: rng.Intn(2) == 0, Requester: signers[0]})
		default:
			var cmdSigners []keys.KeyID
			for _, s := range signers {
				if rng.Intn(2) == 0 {
					cmdSigners = append(cmdSigners, s)
				}
			}
			b.AddCommand(AttestationCommand{SubjectID: "987654321", Alive: rng.Intn(2) == 0, Signers: cmdSigners})
		}
	}

	if rng.Intn(2) == 0 {
		b.SetNotary(signers[len(signers)-1])
	}

	var salt merkle.Hash
	rng.Read(salt[:])

	tx, err := b.BuildWithSalt(salt)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	return tx
}

// TestFilteredViewSoundAndComplete checks that a view built with any
// predicate verifies and reveals exactly the matching components.
func TestFilteredViewSoundAndComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	signers := []keys.KeyID{testKey(t).ID(), testKey(t).ID(), testKey(t).ID()}

	predicates := map[string]Predicate{
		"commands": func(c Component) bool { return c.Kind() == KindAttestation },
		"outputs":  func(c Component) bool { return c.Kind() == KindOutput },
		"all":      func(Component) bool { return true },
		"signer0": func(c Component) bool {
			cmd, ok := c.(AttestationCommand)
			return ok && cmd.HasSigner(signers[0])
		},
	}

	for iter := 0; iter < 50; iter++ {
		tx := randomTransaction(t, rng, signers)

		for name, pred := range predicates {
			view := BuildFilteredView(tx, pred)

			var want []int
			for i, c := range tx.Components() {
				if pred(c) {
					want = append(want, i)
				}
			}

			if len(view.Revealed) != len(want) {
				t.Fatalf("%s: revealed %d components, want %d", name, len(view.Revealed), len(want))
			}

			for i, r := range view.Revealed {
				if r.Index != want[i] {
					t.Fatalf("%s: revealed index %d, want %d", name, r.Index, want[i])
				}
			}

			if view.Root != tx.Root() || view.LeafCount != tx.Len() {
				t.Fatalf("%s: view does not commit to the transaction", name)
			}

			err := view.Verify()
			if len(want) == 0 {
				if !errors.Is(err, ErrInvalidProof) {
					t.Fatalf("%s: empty view should fail with invalid proof, got %v", name, err)
				}
				continue
			}

			if err != nil {
				t.Fatalf("%s: verify: %v", name, err)
			}
		}
	}
}

// TestFilteredViewTamperedSibling checks every altered sibling is caught.
func TestFilteredViewTamperedSibling(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	signers := []keys.KeyID{testKey(t).ID()}

	for iter := 0; iter < 20; iter++ {
		tx := randomTransaction(t, rng, signers)
		view := BuildFilteredView(tx, func(Component) bool { return true })

		for ri, r := range view.Revealed {
			for si := range r.Proof {
				tampered := cloneView(view)
				tampered.Revealed[ri].Proof[si][rng.Intn(32)] ^= 0x80

				var perr *InvalidProofError
				if err := tampered.Verify(); !errors.As(err, &perr) {
					t.Fatalf("tampered sibling accepted: %v", err)
				} else if perr.Index != r.Index {
					t.Errorf("error names component %d, want %d", perr.Index, r.Index)
				}
			}
		}
	}
}

// TestFilteredViewTamperedContent checks that altering revealed data is caught.
func TestFilteredViewTamperedContent(t *testing.T) {
	oracle := testKey(t)
	tx, err := NewBuilder().
		AddOutput(LifeState{SubjectID: "123456789", Alive: true, Requester: oracle.ID()}).
		AddCommand(AttestationCommand{SubjectID: "123456789", Alive: true, Signers: []keys.KeyID{oracle.ID()}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	view := BuildFilteredView(tx, func(c Component) bool { return c.Kind() == KindAttestation })

	cmd := view.Revealed[0].Component.(AttestationCommand)
	cmd.Alive = false
	view.Revealed[0].Component = cmd

	if err := view.Verify(); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("flipped fact should fail verification, got %v", err)
	}
}

// TestFilteredViewStructure checks view-level shape violations.
func TestFilteredViewStructure(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	signers := []keys.KeyID{testKey(t).ID()}

	var tx *Transaction
	for tx == nil || tx.Len() < 3 {
		tx = randomTransaction(t, rng, signers)
	}

	all := BuildFilteredView(tx, func(Component) bool { return true })

	tests := []struct {
		name   string
		mutate func(v *FilteredView)
	}{
		{"empty", func(v *FilteredView) { v.Revealed = nil }},
		{"zero count", func(v *FilteredView) { v.LeafCount = 0 }},
		{"grown count", func(v *FilteredView) { v.LeafCount++ }},
		{"duplicate", func(v *FilteredView) { v.Revealed[1] = v.Revealed[0] }},
		{"reordered", func(v *FilteredView) { v.Revealed[0], v.Revealed[1] = v.Revealed[1], v.Revealed[0] }},
		{"wrong root", func(v *FilteredView) { v.Root[0] ^= 0x01 }},
		{"wrong nonce", func(v *FilteredView) { v.Revealed[0].Nonce[0] ^= 0x01 }},
		{"moved index", func(v *FilteredView) { v.Revealed[0].Index = v.LeafCount }},
		{"nil component", func(v *FilteredView) { v.Revealed[0].Component = nil }},
	}

	for _, tc := range tests {
		v := cloneView(all)
		tc.mutate(v)

		if err := v.Verify(); !errors.Is(err, ErrInvalidProof) {
			t.Errorf("%s: expected invalid proof, got %v", tc.name, err)
		}
	}

	if err := all.Verify(); err != nil {
		t.Errorf("untouched view should verify: %v", err)
	}
}

// TestCheckWith checks the all-revealed predicate helper.
func TestCheckWith(t *testing.T) {
	k := testKey(t)
	tx, _ := NewBuilder().
		AddOutput(LifeState{SubjectID: "123456789", Alive: true, Requester: k.ID()}).
		AddCommand(AttestationCommand{SubjectID: "123456789", Alive: true, Signers: []keys.KeyID{k.ID()}}).
		Build()

	isCommand := func(c Component) bool { return c.Kind() == KindAttestation }

	if !BuildFilteredView(tx, isCommand).CheckWith(isCommand) {
		t.Error("command-only view should pass the command predicate")
	}

	if BuildFilteredView(tx, func(Component) bool { return true }).CheckWith(isCommand) {
		t.Error("view with an output should fail the command predicate")
	}

	if BuildFilteredView(tx, func(Component) bool { return false }).CheckWith(isCommand) {
		t.Error("empty view should never pass")
	}
}

// TestBuildDeterministic checks identical inputs give identical views.
func TestBuildDeterministic(t *testing.T) {
	k := testKey(t)
	b := NewBuilder().
		AddCommand(AttestationCommand{SubjectID: "123456789", Alive: true, Signers: []keys.KeyID{k.ID()}}).
		AddOutput(LifeState{SubjectID: "123456789", Alive: true, Requester: k.ID()})

	salt := merkle.Hash{9}
	tx1, _ := b.BuildWithSalt(salt)
	tx2, _ := b.BuildWithSalt(salt)

	pred := func(c Component) bool { return c.Kind() == KindAttestation }

	e1 := EncodeFilteredView(BuildFilteredView(tx1, pred))
	e2 := EncodeFilteredView(BuildFilteredView(tx2, pred))

	if string(e1) != string(e2) {
		t.Error("views over equal transactions should encode identically")
	}

	// Outputs come before commands regardless of call order
	if tx1.Component(0).Kind() != KindOutput {
		t.Errorf("first component is %s, want output", tx1.Component(0).Kind())
	}
}

// TestSaltHidesContent checks that the salt changes every leaf.
func TestSaltHidesContent(t *testing.T) {
	k := testKey(t)
	b := NewBuilder().AddOutput(LifeState{SubjectID: "123456789", Alive: true, Requester: k.ID()})

	tx1, _ := b.BuildWithSalt(merkle.Hash{1})
	tx2, _ := b.BuildWithSalt(merkle.Hash{2})

	if tx1.Root() == tx2.Root() {
		t.Error("different salts should give different roots")
	}
}

// cloneView deep-copies a view so tests can mutate it.
func cloneView(v *FilteredView) *FilteredView {
	out := &FilteredView{Root: v.Root, LeafCount: v.LeafCount}
	for _, r := range v.Revealed {
		r.Proof = append(merkle.Proof(nil), r.Proof...)
		out.Revealed = append(out.Revealed, r)
	}
	return out
}
