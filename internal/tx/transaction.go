package tx

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"LifeOracle/internal/keys"
	"LifeOracle/internal/merkle"
)

// ErrEmptyTransaction is returned when building a transaction with no components.
var ErrEmptyTransaction = errors.New("transaction has no components")

// Transaction is an immutable, ordered list of components with a Merkle
// commitment over them. The salt feeds per-component nonces so that hidden
// components cannot be recovered by hashing guesses.
type Transaction struct {
	salt       merkle.Hash
	components []Component
	tree       *merkle.Tree
}

// New creates a transaction from components in order.
func New(salt merkle.Hash, components []Component) (*Transaction, error) {
	if len(components) == 0 {
		return nil, ErrEmptyTransaction
	}

	t := &Transaction{
		salt:       salt,
		components: append([]Component(nil), components...),
	}

	leaves := make([]merkle.Hash, len(t.components))
	for i, c := range t.components {
		leaves[i] = merkle.HashLeaf(t.nonce(i), byte(c.Kind()), c.Payload())
	}

	t.tree = merkle.Build(leaves)

	return t, nil
}

// Root returns the Merkle commitment over all components.
func (t *Transaction) Root() merkle.Hash {
	return t.tree.Root()
}

// Salt returns the privacy salt.
func (t *Transaction) Salt() merkle.Hash {
	return t.salt
}

// Len returns the number of components.
func (t *Transaction) Len() int {
	return len(t.components)
}

// Component returns the component at index i.
func (t *Transaction) Component(i int) Component {
	return t.components[i]
}

// Components returns a copy of the component list.
func (t *Transaction) Components() []Component {
	return append([]Component(nil), t.components...)
}

// Outputs returns the LifeState outputs in order.
func (t *Transaction) Outputs() []LifeState {
	var out []LifeState
	for _, c := range t.components {
		if s, ok := c.(LifeState); ok {
			out = append(out, s)
		}
	}
	return out
}

// Commands returns the attestation commands in order.
func (t *Transaction) Commands() []AttestationCommand {
	var out []AttestationCommand
	for _, c := range t.components {
		if cmd, ok := c.(AttestationCommand); ok {
			out = append(out, cmd)
		}
	}
	return out
}

// RequiredSigners returns the union of command signers in first-seen order.
func (t *Transaction) RequiredSigners() []keys.KeyID {
	seen := make(map[keys.KeyID]bool)
	var out []keys.KeyID

	for _, cmd := range t.Commands() {
		for _, s := range cmd.Signers {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	return out
}

// nonce derives the nonce of the component at index.
func (t *Transaction) nonce(index int) merkle.Hash {
	return componentNonce(t.salt, index)
}

// componentNonce computes BLAKE3("lifeoracle-nonce" || salt || u32be(index)).
func componentNonce(salt merkle.Hash, index int) merkle.Hash {
	h := blake3.New()
	h.Write([]byte("lifeoracle-nonce"))
	h.Write(salt[:])

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(index))
	h.Write(idx[:])

	var out merkle.Hash
	h.Sum(out[:0])

	return out
}

// Builder assembles a transaction. Components are laid out as inputs,
// outputs, commands and finally the notary, regardless of call order.
type Builder struct {
	inputs   []Component
	outputs  []Component
	commands []Component
	notary   *NotaryRef
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddInput appends an input reference.
func (b *Builder) AddInput(ref InputRef) *Builder {
	b.inputs = append(b.inputs, ref)
	return b
}

// AddOutput appends an output state.
func (b *Builder) AddOutput(state LifeState) *Builder {
	b.outputs = append(b.outputs, state)
	return b
}

// AddCommand appends an attestation command. The signer list is copied.
func (b *Builder) AddCommand(cmd AttestationCommand) *Builder {
	cmd.Signers = append([]keys.KeyID(nil), cmd.Signers...)
	b.commands = append(b.commands, cmd)
	return b
}

// SetNotary names the notary.
func (b *Builder) SetNotary(id keys.KeyID) *Builder {
	b.notary = &NotaryRef{Notary: id}
	return b
}

// Build creates the transaction with a random salt.
func (b *Builder) Build() (*Transaction, error) {
	var salt merkle.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt:\n%w", err)
	}

	return b.BuildWithSalt(salt)
}

// BuildWithSalt creates the transaction with the given salt.
func (b *Builder) BuildWithSalt(salt merkle.Hash) (*Transaction, error) {
	components := make([]Component, 0, len(b.inputs)+len(b.outputs)+len(b.commands)+1)
	components = append(components, b.inputs...)
	components = append(components, b.outputs...)
	components = append(components, b.commands...)

	if b.notary != nil {
		components = append(components, *b.notary)
	}

	return New(salt, components)
}

// SignedTransaction is a transaction plus signatures over its root.
type SignedTransaction struct {
	tx   *Transaction
	sigs []keys.Signature
}

// Sign creates a SignedTransaction carrying the signer's signature.
func Sign(t *Transaction, signer *keys.KeyPair) *SignedTransaction {
	root := t.Root()
	return &SignedTransaction{tx: t, sigs: []keys.Signature{signer.Sign(root[:])}}
}

// NewSigned wraps a transaction and existing signatures without checking them.
func NewSigned(t *Transaction, sigs []keys.Signature) *SignedTransaction {
	return &SignedTransaction{tx: t, sigs: append([]keys.Signature(nil), sigs...)}
}

// Tx returns the transaction.
func (s *SignedTransaction) Tx() *Transaction {
	return s.tx
}

// Signatures returns a copy of the signatures.
func (s *SignedTransaction) Signatures() []keys.Signature {
	return append([]keys.Signature(nil), s.sigs...)
}

// WithSignature returns a copy with sig attached. The signature must be
// valid over the root.
func (s *SignedTransaction) WithSignature(sig keys.Signature) (*SignedTransaction, error) {
	root := s.tx.Root()
	if !sig.Verify(root[:]) {
		return nil, fmt.Errorf("signature by %s does not verify over %s", sig.Signer.Short(), root)
	}

	sigs := make([]keys.Signature, 0, len(s.sigs)+1)
	sigs = append(sigs, s.sigs...)
	sigs = append(sigs, sig)

	return &SignedTransaction{tx: s.tx, sigs: sigs}, nil
}

// MissingSigners returns required signers without a valid signature.
func (s *SignedTransaction) MissingSigners() []keys.KeyID {
	root := s.tx.Root()
	valid := make(map[keys.KeyID]bool)

	for _, sig := range s.sigs {
		if sig.Verify(root[:]) {
			valid[sig.Signer] = true
		}
	}

	var missing []keys.KeyID
	for _, id := range s.tx.RequiredSigners() {
		if !valid[id] {
			missing = append(missing, id)
		}
	}

	return missing
}

// VerifyRequiredSignatures checks that every required signer signed the root.
func (s *SignedTransaction) VerifyRequiredSignatures() error {
	missing := s.MissingSigners()
	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("missing %d required signature(s), first %s", len(missing), missing[0].Short())
}
