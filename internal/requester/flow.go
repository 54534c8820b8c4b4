// Package requester drives the creation of an attested life transaction:
// ask the oracle for the fact, build and sign the transaction, obtain the
// oracle signature over a filtered view and finalize.
package requester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/ledger"
	"LifeOracle/internal/logger"
	"LifeOracle/internal/oracle"
	"LifeOracle/internal/tx"
)

// State is a step of the flow.
type State int

const (
	StateInit State = iota
	StateQuerying
	StateBuilding
	StateLocallyVerifying
	StateLocallySigning
	StateAwaitingOracleSignature
	StateFinalizing
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:                    "init",
	StateQuerying:                "querying",
	StateBuilding:                "building",
	StateLocallyVerifying:        "locally-verifying",
	StateLocallySigning:          "locally-signing",
	StateAwaitingOracleSignature: "awaiting-oracle-signature",
	StateFinalizing:              "finalizing",
	StateDone:                    "done",
	StateFailed:                  "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FlowError reports the state a flow failed in and the originating error.
type FlowError struct {
	State State // State is the step that failed
	Err   error // Err is the originating error
}

// Error implements error.
func (e *FlowError) Error() string {
	return fmt.Sprintf("flow failed while %s: %v", e.State, e.Err)
}

// Unwrap returns the originating error.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Oracle is the oracle as seen by the requester.
// Both oracle.Oracle and oracle.Remote implement it.
type Oracle interface {
	Query(ctx context.Context, subjectID string) (bool, error)
	Sign(ctx context.Context, view *tx.FilteredView) (keys.Signature, error)
}

// Finalizer records fully signed transactions. ledger.Journal implements it.
type Finalizer interface {
	Finalize(ctx context.Context, stx *tx.SignedTransaction) (*ledger.Record, error)
}

// Config holds the collaborators of a Flow.
type Config struct {
	Key       *keys.KeyPair          // Key is the requester's signing key
	OracleKey keys.KeyID             // OracleKey is the oracle's required signing key
	Notary    keys.KeyID             // Notary is named in the transaction; zero omits it
	Oracle    Oracle                 // Oracle answers queries and signs views
	Finalizer Finalizer              // Finalizer records the finished transaction
	OnStep    func(State, uuid.UUID) // OnStep observes each state entered
}

// Result is the outcome of a successful flow.
type Result struct {
	ID     uuid.UUID      // ID identifies the flow run
	State  tx.LifeState   // State is the recorded life state
	Record *ledger.Record // Record is the finalized journal entry
}

// Flow runs attestation flows. It is safe for concurrent use; every Run is
// independent.
type Flow struct {
	cfg Config
}

// New creates a Flow.
func New(cfg Config) (*Flow, error) {
	if cfg.Key == nil {
		return nil, errors.New("requester key is required")
	}

	if cfg.Oracle == nil {
		return nil, errors.New("oracle is required")
	}

	if cfg.Finalizer == nil {
		return nil, errors.New("finalizer is required")
	}

	if cfg.OracleKey == (keys.KeyID{}) {
		return nil, errors.New("oracle key is required")
	}

	return &Flow{cfg: cfg}, nil
}

// run is the state of a single flow execution.
type run struct {
	id    uuid.UUID
	flow  *Flow
	state State
}

// Run creates and finalizes an attestation for subjectID. It stops at the
// first failure and returns a *FlowError. Cancelling ctx aborts the flow
// before the next step; nothing is finalized after cancellation.
func (f *Flow) Run(ctx context.Context, subjectID string) (*Result, error) {
	r := &run{id: uuid.New(), flow: f}
	log := logger.With("component", "requester", "flow", r.id.String())
	start := time.Now()

	r.enter(StateInit)

	id, err := factlookup.Normalize(subjectID)
	if err != nil {
		return nil, r.fail(err)
	}

	if err := r.step(ctx, StateQuerying); err != nil {
		return nil, err
	}

	alive, err := f.cfg.Oracle.Query(ctx, id)
	if err != nil {
		return nil, r.fail(err)
	}

	log.Debug("oracle answered", "subject", id, "alive", alive)

	if err := r.step(ctx, StateBuilding); err != nil {
		return nil, err
	}

	t, err := f.build(id, alive)
	if err != nil {
		return nil, r.fail(err)
	}

	if err := r.step(ctx, StateLocallyVerifying); err != nil {
		return nil, err
	}

	if err := tx.VerifyLifeContract(t); err != nil {
		return nil, r.fail(err)
	}

	if err := r.step(ctx, StateLocallySigning); err != nil {
		return nil, err
	}

	stx := tx.Sign(t, f.cfg.Key)

	if err := r.step(ctx, StateAwaitingOracleSignature); err != nil {
		return nil, err
	}

	stx, err = f.collectOracleSignature(ctx, stx)
	if err != nil {
		return nil, r.fail(err)
	}

	if err := r.step(ctx, StateFinalizing); err != nil {
		return nil, err
	}

	rec, err := f.cfg.Finalizer.Finalize(ctx, stx)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StateDone)

	state, _ := rec.State()
	log.Info("attestation created", "subject", id, "alive", alive, logger.Timed(start))

	return &Result{ID: r.id, State: state, Record: rec}, nil
}

// build assembles the unsigned transaction embedding the fact.
func (f *Flow) build(subjectID string, alive bool) (*tx.Transaction, error) {
	me := f.cfg.Key.ID()

	b := tx.NewBuilder().
		AddOutput(tx.LifeState{SubjectID: subjectID, Alive: alive, Requester: me}).
		AddCommand(tx.AttestationCommand{
			SubjectID: subjectID,
			Alive:     alive,
			Signers:   []keys.KeyID{f.cfg.OracleKey, me},
		})

	if f.cfg.Notary != (keys.KeyID{}) {
		b.SetNotary(f.cfg.Notary)
	}

	return b.Build()
}

// collectOracleSignature discloses the oracle's commands and attaches the
// signature it returns. The signature is checked before it is attached.
func (f *Flow) collectOracleSignature(ctx context.Context, stx *tx.SignedTransaction) (*tx.SignedTransaction, error) {
	view := tx.BuildFilteredView(stx.Tx(), oracle.RevealPredicate(f.cfg.OracleKey))

	sig, err := f.cfg.Oracle.Sign(ctx, view)
	if err != nil {
		return nil, err
	}

	if sig.Signer != f.cfg.OracleKey {
		return nil, fmt.Errorf("signature from %s, want oracle %s", sig.Signer.Short(), f.cfg.OracleKey.Short())
	}

	return stx.WithSignature(sig)
}

// step checks for cancellation and enters next.
func (r *run) step(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		r.state = next
		return r.fail(err)
	}

	r.enter(next)

	return nil
}

// enter records and reports a state change.
func (r *run) enter(s State) {
	r.state = s

	if fn := r.flow.cfg.OnStep; fn != nil {
		fn(s, r.id)
	}
}

// fail wraps err with the current state and reports StateFailed.
func (r *run) fail(err error) error {
	failed := &FlowError{State: r.state, Err: err}

	logger.Warn("flow failed", "flow", r.id.String(), "state", r.state, "error", err)
	r.enter(StateFailed)

	return failed
}
