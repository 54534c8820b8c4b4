package tx

import (
	"fmt"

	"LifeOracle/internal/keys"
	"LifeOracle/internal/merkle"
)

// Kind tags the variant of a transaction component.
type Kind byte

const (
	KindInput       Kind = 0x01 // InputRef
	KindOutput      Kind = 0x02 // LifeState
	KindAttestation Kind = 0x03 // AttestationCommand
	KindNotary      Kind = 0x04 // NotaryRef
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindAttestation:
		return "attestation"
	case KindNotary:
		return "notary"
	default:
		return fmt.Sprintf("kind(0x%02x)", byte(k))
	}
}

// Component is one atomic, hashable part of a transaction.
// Payload returns the canonical encoding that is committed to.
type Component interface {
	Kind() Kind
	Payload() []byte
}

// InputRef points at an output of an earlier transaction.
type InputRef struct {
	TxRoot merkle.Hash // TxRoot is the commitment of the producing transaction
	Index  uint32      // Index is the component position in that transaction
}

// Kind implements Component.
func (InputRef) Kind() Kind { return KindInput }

// Payload encodes: [32B root] [u32 index].
func (r InputRef) Payload() []byte {
	var e encoder
	e.fixed(r.TxRoot[:])
	e.u32(r.Index)
	return e.buf
}

// LifeState is the ledger state recording whether a subject is alive.
type LifeState struct {
	SubjectID string     // SubjectID is the normalized 9-digit identifier
	Alive     bool       // Alive is the attested fact
	Requester keys.KeyID // Requester is the party that stores the state
}

// Kind implements Component.
func (LifeState) Kind() Kind { return KindOutput }

// Payload encodes: [u32 len][subject] [u8 alive] [48B requester].
func (s LifeState) Payload() []byte {
	var e encoder
	e.str(s.SubjectID)
	e.boolean(s.Alive)
	e.fixed(s.Requester[:])
	return e.buf
}

// String describes the state the way the client API reports it.
func (s LifeState) String() string {
	status := "DECEASED"
	if s.Alive {
		status = "LIVING"
	}

	return fmt.Sprintf("The SSN %s belongs to a person that is %s.", s.SubjectID, status)
}

// AttestationCommand asserts a fact and names the keys that must sign for it.
type AttestationCommand struct {
	SubjectID string       // SubjectID is the normalized 9-digit identifier
	Alive     bool         // Alive is the asserted fact
	Signers   []keys.KeyID // Signers are the required signers, oracle included
}

// Kind implements Component.
func (AttestationCommand) Kind() Kind { return KindAttestation }

// Payload encodes: [u32 len][subject] [u8 alive] [u32 n][n x 48B signers].
func (c AttestationCommand) Payload() []byte {
	var e encoder
	e.str(c.SubjectID)
	e.boolean(c.Alive)
	e.u32(uint32(len(c.Signers)))
	for _, s := range c.Signers {
		e.fixed(s[:])
	}
	return e.buf
}

// HasSigner reports whether id is a required signer.
func (c AttestationCommand) HasSigner(id keys.KeyID) bool {
	for _, s := range c.Signers {
		if s == id {
			return true
		}
	}
	return false
}

// NotaryRef names the notary that will finalize the transaction.
type NotaryRef struct {
	Notary keys.KeyID
}

// Kind implements Component.
func (NotaryRef) Kind() Kind { return KindNotary }

// Payload encodes: [48B notary].
func (n NotaryRef) Payload() []byte {
	return append([]byte(nil), n.Notary[:]...)
}

// Decode parses a canonical payload of the given kind.
// Trailing bytes are rejected so that the decoded value re-encodes to payload.
func Decode(kind Kind, payload []byte) (Component, error) {
	d := decoder{buf: payload}

	var c Component

	switch kind {
	case KindInput:
		var r InputRef
		copy(r.TxRoot[:], d.fixed(32))
		r.Index = d.u32()
		c = r
	case KindOutput:
		var s LifeState
		s.SubjectID = d.str()
		s.Alive = d.boolean()
		copy(s.Requester[:], d.fixed(keys.PublicKeySize))
		c = s
	case KindAttestation:
		var cmd AttestationCommand
		cmd.SubjectID = d.str()
		cmd.Alive = d.boolean()
		n := d.u32()
		if uint64(n)*keys.PublicKeySize > uint64(len(payload)) {
			return nil, fmt.Errorf("decode %s: signer count %d exceeds payload", kind, n)
		}
		cmd.Signers = make([]keys.KeyID, n)
		for i := range cmd.Signers {
			copy(cmd.Signers[i][:], d.fixed(keys.PublicKeySize))
		}
		c = cmd
	case KindNotary:
		var n NotaryRef
		copy(n.Notary[:], d.fixed(keys.PublicKeySize))
		c = n
	default:
		return nil, fmt.Errorf("unknown component kind 0x%02x", byte(kind))
	}

	if d.err != nil {
		return nil, fmt.Errorf("decode %s:\n%w", kind, d.err)
	}

	if d.off != len(payload) {
		return nil, fmt.Errorf("decode %s: %d trailing bytes", kind, len(payload)-d.off)
	}

	return c, nil
}
