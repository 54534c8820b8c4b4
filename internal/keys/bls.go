package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"
)

const (
	// PublicKeySize is the size of a compressed BLS public key in bytes.
	PublicKeySize = 48

	// SignatureSize is the size of a compressed BLS signature in bytes.
	SignatureSize = 96
)

// blsDST is the domain separation tag for BLS signatures.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// KeyID identifies a ledger signer by its compressed BLS public key.
type KeyID [PublicKeySize]byte

// String returns the hex encoding of the key.
func (k KeyID) String() string {
	return hex.EncodeToString(k[:])
}

// Short returns the first 8 bytes in hex, for logs.
func (k KeyID) Short() string {
	return hex.EncodeToString(k[:8])
}

// ParseKeyID decodes a hex-encoded public key.
func ParseKeyID(s string) (KeyID, error) {
	var id KeyID

	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decode key hex:\n%w", err)
	}

	return KeyIDFromBytes(b)
}

// KeyIDFromBytes copies b into a KeyID after checking it is a valid point.
func KeyIDFromBytes(b []byte) (KeyID, error) {
	var id KeyID

	if len(b) != PublicKeySize {
		return id, fmt.Errorf("invalid public key size: got %d, want %d", len(b), PublicKeySize)
	}

	if new(blst.P1Affine).Uncompress(b) == nil {
		return id, fmt.Errorf("invalid public key encoding")
	}

	copy(id[:], b)

	return id, nil
}

// Signature is a BLS signature together with the key that produced it.
type Signature struct {
	Signer KeyID  // Signer is the public key of the signing party
	Bytes  []byte // Bytes is the compressed signature (96 bytes)
}

// Verify checks the signature over message.
func (s Signature) Verify(message []byte) bool {
	return Verify(s.Bytes, message, s.Signer[:])
}

// KeyPair holds a BLS private/public key pair.
type KeyPair struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
	id     KeyID           // id is the compressed public key
}

// DeriveFromED25519 derives a deterministic BLS key pair from an ED25519 private key.
// The node's transport identity and its ledger signing key share one key file.
func DeriveFromED25519(privKey ed25519.PrivateKey) (*KeyPair, error) {
	h := blake3.New()
	h.Write([]byte("lifeoracle-bls-keygen"))
	h.Write(privKey.Seed())

	var derived [32]byte
	h.Sum(derived[:0])

	return KeyFromSeed(derived[:])
}

// GenerateKey creates a new BLS key pair from a random seed.
func GenerateKey() (*KeyPair, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("generate random seed:\n%w", err)
	}

	return KeyFromSeed(ikm[:])
}

// KeyFromSeed creates a BLS key pair from a deterministic seed.
// The seed must be at least 32 bytes.
func KeyFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate BLS key")
	}

	public := new(blst.P1Affine).From(secret)

	kp := &KeyPair{secret: secret, public: public}
	copy(kp.id[:], public.Compress())

	return kp, nil
}

// ID returns the public key identity.
func (k *KeyPair) ID() KeyID {
	return k.id
}

// Sign creates a signature over message.
func (k *KeyPair) Sign(message []byte) Signature {
	sig := new(blst.P2Affine).Sign(k.secret, message, blsDST)

	return Signature{Signer: k.id, Bytes: sig.Compress()}
}

// Verify checks a BLS signature against a message and public key.
func Verify(signature, message, publicKey []byte) bool {
	if len(signature) != SignatureSize || len(publicKey) != PublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, message, blsDST)
}

// Aggregate combines signatures over the same message into one.
func Aggregate(signatures []Signature) ([]byte, error) {
	if len(signatures) == 0 {
		return nil, fmt.Errorf("no signatures to aggregate")
	}

	sigs := make([]*blst.P2Affine, len(signatures))

	for i, s := range signatures {
		if len(s.Bytes) != SignatureSize {
			return nil, fmt.Errorf("invalid signature size at index %d", i)
		}

		sig := new(blst.P2Affine).Uncompress(s.Bytes)
		if sig == nil {
			return nil, fmt.Errorf("invalid signature at index %d", i)
		}

		sigs[i] = sig
	}

	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(sigs, true) {
		return nil, fmt.Errorf("signature aggregation failed")
	}

	return agg.ToAffine().Compress(), nil
}

// VerifyAggregate verifies an aggregated signature against a message and its signers.
func VerifyAggregate(signature, message []byte, signers []KeyID) bool {
	if len(signature) != SignatureSize || len(signers) == 0 {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pks := make([]*blst.P1Affine, len(signers))

	for i, id := range signers {
		pk := new(blst.P1Affine).Uncompress(id[:])
		if pk == nil {
			return false
		}

		pks[i] = pk
	}

	aggPk := new(blst.P1Aggregate)
	if !aggPk.Aggregate(pks, true) {
		return false
	}

	return sig.Verify(true, aggPk.ToAffine(), true, message, blsDST)
}
