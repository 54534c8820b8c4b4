// Package ledger records finalized attestation transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"

	"LifeOracle/internal/keys"
	"LifeOracle/internal/logger"
	"LifeOracle/internal/merkle"
	"LifeOracle/internal/storage"
	"LifeOracle/internal/tx"
	"LifeOracle/internal/types"
)

// recordPrefix prefixes journal keys: "a:" + root.
var recordPrefix = []byte("a:")

var (
	// ErrAlreadyFinalized is returned when a root is finalized twice.
	ErrAlreadyFinalized = errors.New("transaction already finalized")

	// ErrNotFound is returned by Get for unknown roots.
	ErrNotFound = errors.New("attestation not found")
)

// Record is a finalized transaction with the aggregate of its signatures.
type Record struct {
	Root        merkle.Hash     // Root is the transaction commitment
	Tx          *tx.Transaction // Tx is the full transaction
	Signers     []keys.KeyID    // Signers are the required signers, in order
	Aggregate   []byte          // Aggregate is the BLS aggregate over Root
	FinalizedAt time.Time       // FinalizedAt is the finalization time
}

// State returns the life state output of the record, if it has one.
func (r *Record) State() (tx.LifeState, bool) {
	outputs := r.Tx.Outputs()
	if len(outputs) == 0 {
		return tx.LifeState{}, false
	}

	return outputs[0], true
}

// Journal stores finalized attestations. Only fully signed transactions
// that satisfy the life contract are recorded.
type Journal struct {
	store *storage.Storage
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	now   func() time.Time
	log   *slog.Logger
}

// NewJournal creates a journal over store.
func NewJournal(store *storage.Storage) (*Journal, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}

	return &Journal{
		store: store,
		enc:   enc,
		dec:   dec,
		now:   time.Now,
		log:   logger.With("component", "journal"),
	}, nil
}

// Close releases the codecs. The store is owned by the caller.
func (j *Journal) Close() {
	j.enc.Close()
	j.dec.Close()
}

// Finalize checks stx and records it. Every required signer must have
// signed the root; the signatures are stored as one aggregate. Nothing is
// written when ctx is already done.
func (j *Journal) Finalize(ctx context.Context, stx *tx.SignedTransaction) (*Record, error) {
	t := stx.Tx()

	if err := tx.VerifyLifeContract(t); err != nil {
		return nil, err
	}

	signers := t.RequiredSigners()

	sigs, err := requiredSignatures(stx, signers)
	if err != nil {
		return nil, err
	}

	aggregate, err := keys.Aggregate(sigs)
	if err != nil {
		return nil, fmt.Errorf("aggregate signatures:\n%w", err)
	}

	root := t.Root()
	if !keys.VerifyAggregate(aggregate, root[:], signers) {
		return nil, fmt.Errorf("aggregate signature does not verify over %s", root)
	}

	rec := &Record{
		Root:        root,
		Tx:          t,
		Signers:     signers,
		Aggregate:   aggregate,
		FinalizedAt: j.now().UTC(),
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("finalization abandoned:\n%w", err)
	}

	if err := j.store.Insert(recordKey(root), j.encodeRecord(rec)); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyFinalized, root)
		}
		return nil, fmt.Errorf("store record:\n%w", err)
	}

	j.log.Info("attestation finalized", "root", root.String()[:16], "signers", len(signers))

	return rec, nil
}

// requiredSignatures picks one valid signature per required signer.
func requiredSignatures(stx *tx.SignedTransaction, signers []keys.KeyID) ([]keys.Signature, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("transaction names no required signers")
	}

	root := stx.Tx().Root()

	bySigner := make(map[keys.KeyID]keys.Signature)
	for _, sig := range stx.Signatures() {
		if _, ok := bySigner[sig.Signer]; ok {
			continue
		}
		if sig.Verify(root[:]) {
			bySigner[sig.Signer] = sig
		}
	}

	out := make([]keys.Signature, 0, len(signers))
	for _, id := range signers {
		sig, ok := bySigner[id]
		if !ok {
			return nil, fmt.Errorf("missing signature from required signer %s", id.Short())
		}
		out = append(out, sig)
	}

	return out, nil
}

// Get returns the record for root.
func (j *Journal) Get(root merkle.Hash) (*Record, error) {
	data, err := j.store.Get(recordKey(root))
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, ErrNotFound
	}

	return j.decodeRecord(data)
}

// List returns every record in root order.
func (j *Journal) List() ([]*Record, error) {
	var out []*Record

	err := j.store.IteratePrefix(recordPrefix, func(key, value []byte) error {
		rec, err := j.decodeRecord(value)
		if err != nil {
			return fmt.Errorf("record %x:\n%w", key[len(recordPrefix):], err)
		}

		out = append(out, rec)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// recordKey builds the storage key of a root.
func recordKey(root merkle.Hash) []byte {
	key := make([]byte, 0, len(recordPrefix)+len(root))
	key = append(key, recordPrefix...)
	return append(key, root[:]...)
}

// encodeRecord serializes a record with a compressed transaction body.
func (j *Journal) encodeRecord(rec *Record) []byte {
	body := j.enc.EncodeAll(tx.EncodeTransaction(rec.Tx), nil)

	signers := make([]byte, 0, len(rec.Signers)*keys.PublicKeySize)
	for _, s := range rec.Signers {
		signers = append(signers, s[:]...)
	}

	b := flatbuffers.NewBuilder(len(body) + len(signers) + 256)

	rootOff := b.CreateByteVector(rec.Root[:])
	bodyOff := b.CreateByteVector(body)
	signersOff := b.CreateByteVector(signers)
	aggOff := b.CreateByteVector(rec.Aggregate)

	types.RecordStart(b)
	types.RecordAddRoot(b, rootOff)
	types.RecordAddTransaction(b, bodyOff)
	types.RecordAddSigners(b, signersOff)
	types.RecordAddAggregate(b, aggOff)
	types.RecordAddFinalizedAt(b, rec.FinalizedAt.UnixNano())
	b.Finish(types.RecordEnd(b))

	return b.FinishedBytes()
}

// decodeRecord parses a stored record and checks its root.
func (j *Journal) decodeRecord(data []byte) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed record: %v", r)
		}
	}()

	fb := types.GetRootAsRecord(data, 0)

	root, err := merkle.HashFromBytes(fb.RootBytes())
	if err != nil {
		return nil, fmt.Errorf("root:\n%w", err)
	}

	body, err := j.dec.DecodeAll(fb.TransactionBytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("decompress transaction:\n%w", err)
	}

	t, err := tx.DecodeTransaction(body)
	if err != nil {
		return nil, fmt.Errorf("decode transaction:\n%w", err)
	}

	if t.Root() != root {
		return nil, fmt.Errorf("stored transaction root %s does not match key %s", t.Root(), root)
	}

	raw := fb.SignersBytes()
	if len(raw)%keys.PublicKeySize != 0 {
		return nil, fmt.Errorf("signers length %d is not a multiple of %d", len(raw), keys.PublicKeySize)
	}

	signers := make([]keys.KeyID, len(raw)/keys.PublicKeySize)
	for i := range signers {
		copy(signers[i][:], raw[i*keys.PublicKeySize:])
	}

	return &Record{
		Root:        root,
		Tx:          t,
		Signers:     signers,
		Aggregate:   append([]byte(nil), fb.AggregateBytes()...),
		FinalizedAt: time.Unix(0, fb.FinalizedAt()).UTC(),
	}, nil
}
