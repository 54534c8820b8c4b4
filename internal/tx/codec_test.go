package tx

import (
	"errors"
	"reflect"
	"testing"

	"LifeOracle/internal/keys"
)

// sampleTransaction builds the usual life attestation shape.
func sampleTransaction(t *testing.T) (*Transaction, *keys.KeyPair, *keys.KeyPair) {
	t.Helper()

	requester, oracle := testKey(t), testKey(t)

	tx, err := NewBuilder().
		AddOutput(LifeState{SubjectID: "123456789", Alive: true, Requester: requester.ID()}).
		AddCommand(AttestationCommand{
			SubjectID: "123456789",
			Alive:     true,
			Signers:   []keys.KeyID{oracle.ID(), requester.ID()},
		}).
		SetNotary(oracle.ID()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	return tx, requester, oracle
}

// TestFilteredViewWire checks a view survives encoding and still verifies.
func TestFilteredViewWire(t *testing.T) {
	tx, _, _ := sampleTransaction(t)
	view := BuildFilteredView(tx, func(c Component) bool { return c.Kind() == KindAttestation })

	got, err := DecodeFilteredView(EncodeFilteredView(view))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !reflect.DeepEqual(got, view) {
		t.Fatalf("decoded view differs:\ngot  %+v\nwant %+v", got, view)
	}

	if err := got.Verify(); err != nil {
		t.Fatalf("decoded view does not verify: %v", err)
	}
}

// TestFilteredViewWireTamper checks that flipping an encoded byte never
// yields a view that verifies with different content.
func TestFilteredViewWireTamper(t *testing.T) {
	tx, _, _ := sampleTransaction(t)
	view := BuildFilteredView(tx, func(c Component) bool { return c.Kind() == KindAttestation })
	data := EncodeFilteredView(view)

	for i := range data {
		corrupt := append([]byte(nil), data...)
		corrupt[i] ^= 0xff

		got, err := DecodeFilteredView(corrupt)
		if err != nil {
			continue
		}

		if got.Verify() == nil && !reflect.DeepEqual(got, view) {
			t.Fatalf("byte %d: altered view verifies", i)
		}
	}
}

func TestDecodeFilteredViewShort(t *testing.T) {
	if _, err := DecodeFilteredView([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short buffer")
	}
}

// TestTransactionWire checks the stored form recomputes the same root.
func TestTransactionWire(t *testing.T) {
	tx, _, _ := sampleTransaction(t)

	got, err := DecodeTransaction(EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Root() != tx.Root() {
		t.Fatalf("root changed: got %s, want %s", got.Root(), tx.Root())
	}

	if !reflect.DeepEqual(got.Components(), tx.Components()) {
		t.Error("components changed")
	}

	if got.Salt() != tx.Salt() {
		t.Error("salt changed")
	}
}

func TestDecodeTransactionGarbage(t *testing.T) {
	garbage := []byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0, 1, 2, 3, 4}

	if _, err := DecodeTransaction(garbage); err == nil {
		t.Error("expected error for garbage")
	}
}

// TestSignatures checks signature attachment and missing signer tracking.
func TestSignatures(t *testing.T) {
	tx, requester, oracle := sampleTransaction(t)
	root := tx.Root()

	signed := Sign(tx, requester)

	missing := signed.MissingSigners()
	if len(missing) != 1 || missing[0] != oracle.ID() {
		t.Fatalf("missing signers = %v, want only the oracle", missing)
	}

	if err := signed.VerifyRequiredSignatures(); err == nil {
		t.Fatal("expected missing signature error")
	}

	// A signature over another message is refused
	stranger := testKey(t)
	if _, err := signed.WithSignature(stranger.Sign([]byte("other"))); err == nil {
		t.Error("expected error for foreign signature")
	}

	full, err := signed.WithSignature(oracle.Sign(root[:]))
	if err != nil {
		t.Fatalf("with signature: %v", err)
	}

	if err := full.VerifyRequiredSignatures(); err != nil {
		t.Errorf("fully signed: %v", err)
	}

	if len(signed.Signatures()) != 1 {
		t.Error("WithSignature must not modify the receiver")
	}
}

func TestRequiredSignersUnion(t *testing.T) {
	a, b, c := testKey(t).ID(), testKey(t).ID(), testKey(t).ID()

	tx, err := NewBuilder().
		AddCommand(AttestationCommand{SubjectID: "1", Signers: []keys.KeyID{a, b}}).
		AddCommand(AttestationCommand{SubjectID: "2", Signers: []keys.KeyID{b, c}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got := tx.RequiredSigners()
	want := []keys.KeyID{a, b, c}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("required signers = %v, want %v", got, want)
	}
}

func TestEmptyTransaction(t *testing.T) {
	if _, err := NewBuilder().Build(); !errors.Is(err, ErrEmptyTransaction) {
		t.Errorf("expected ErrEmptyTransaction, got %v", err)
	}
}
