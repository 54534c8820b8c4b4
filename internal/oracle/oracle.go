// Package oracle attests facts by signing filtered transaction views.
//
// The oracle never sees a whole transaction. It receives a FilteredView that
// discloses only the attestation commands naming it as a signer, checks that
// the disclosure is a valid partial reveal of the committed root, checks every
// revealed fact against its lookup backend and signs the root only when all
// of them hold. Each request is independent; the oracle carries no mutable
// state beyond its key and lookup handle.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"LifeOracle/internal/factlookup"
	"LifeOracle/internal/keys"
	"LifeOracle/internal/logger"
	"LifeOracle/internal/tx"
)

const (
	// defaultLookupTimeout bounds every lookup when no timeout is configured.
	defaultLookupTimeout = 10 * time.Second

	// maxParallelChecks caps concurrent lookups for one view.
	maxParallelChecks = 8
)

// ErrRejectedAttestation matches every RejectedAttestationError.
var ErrRejectedAttestation = errors.New("rejected attestation")

// RejectedAttestationError reports a revealed component that failed the
// correctness check. Index identifies the component in the transaction.
type RejectedAttestationError struct {
	Index  int    // Index is the position of the failing component
	Reason string // Reason describes the failed rule
	Err    error  // Err is the underlying cause, if any
}

// Error implements error.
func (e *RejectedAttestationError) Error() string {
	msg := fmt.Sprintf("rejected attestation: component %d: %s", e.Index, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RejectedAttestationError) Unwrap() error {
	return e.Err
}

// Is matches ErrRejectedAttestation.
func (e *RejectedAttestationError) Is(target error) bool {
	return target == ErrRejectedAttestation
}

// State is a step of the signing decision.
type State int

const (
	StateReceived State = iota
	StateVerifying
	StateSigned
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateVerifying:
		return "verifying"
	case StateSigned:
		return "signed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Identity is the public identity of an oracle.
type Identity struct {
	Name string     // Name is the human-readable node name
	Key  keys.KeyID // Key is the signing key required on attestations
}

// Config holds the configuration of an Oracle.
type Config struct {
	Name          string            // Name is the node name reported by Identity
	Key           *keys.KeyPair     // Key signs attested roots
	Lookup        factlookup.Lookup // Lookup is the source of truth
	LookupTimeout time.Duration     // LookupTimeout bounds every lookup call
}

// Oracle answers fact queries and signs filtered views.
type Oracle struct {
	name   string            // name is the node name
	key    *keys.KeyPair     // key is the signing key
	lookup factlookup.Lookup // lookup is the bounded lookup backend
	log    *slog.Logger      // log carries the component attribute
}

// New creates an oracle. Every lookup is bounded by cfg.LookupTimeout.
func New(cfg Config) (*Oracle, error) {
	if cfg.Key == nil {
		return nil, fmt.Errorf("oracle key is required")
	}

	if cfg.Lookup == nil {
		return nil, fmt.Errorf("lookup backend is required")
	}

	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	return &Oracle{
		name:   cfg.Name,
		key:    cfg.Key,
		lookup: factlookup.NewBounded(cfg.Lookup, timeout),
		log:    logger.With("component", "oracle"),
	}, nil
}

// Identity returns the oracle's name and signing key.
func (o *Oracle) Identity() Identity {
	return Identity{Name: o.name, Key: o.key.ID()}
}

// Query returns the fact for subjectID. The identifier is normalized first
// and rejected with an InvalidSubjectIDError before any lookup.
func (o *Oracle) Query(ctx context.Context, subjectID string) (bool, error) {
	id, err := factlookup.Normalize(subjectID)
	if err != nil {
		return false, err
	}

	start := time.Now()

	alive, err := o.lookup.Lookup(ctx, id)
	if err != nil {
		o.log.Warn("query failed", "subject", id, "error", err, logger.Timed(start))
		return false, asUnavailable(id, err)
	}

	o.log.Debug("query answered", "subject", id, "alive", alive, logger.Timed(start))

	return alive, nil
}

// RevealPredicate selects the components a requester must disclose to the
// oracle identified by key: attestation commands naming it as a signer.
func RevealPredicate(key keys.KeyID) tx.Predicate {
	return func(c tx.Component) bool {
		cmd, ok := c.(tx.AttestationCommand)
		return ok && cmd.HasSigner(key)
	}
}

// Sign verifies view and signs its root.
//
// It returns an InvalidProofError when the view is empty or does not resolve
// to its root, a RejectedAttestationError naming the first failing component
// when a revealed fact is wrong, and an UnavailableError when the lookup
// could not answer. No signature is produced in any of these cases.
func (o *Oracle) Sign(ctx context.Context, view *tx.FilteredView) (keys.Signature, error) {
	start := time.Now()
	log := o.log.With("root", view.Root.String()[:16], "revealed", len(view.Revealed))

	log.Debug("sign request", "state", StateReceived)

	log.Debug("checking view", "state", StateVerifying)

	if err := view.Verify(); err != nil {
		log.Warn("view refused", "state", StateRejected, "error", err)
		return keys.Signature{}, err
	}

	if err := o.checkCorrectness(ctx, view); err != nil {
		var rejected *RejectedAttestationError
		if errors.As(err, &rejected) {
			log.Warn("attestation rejected", "state", StateRejected, "index", rejected.Index, "reason", rejected.Reason)
		} else {
			log.Warn("attestation undecided", "state", StateRejected, "error", err)
		}
		return keys.Signature{}, err
	}

	sig := o.key.Sign(view.Root[:])

	log.Info("attestation signed", "state", StateSigned, logger.Timed(start))

	return sig, nil
}

// checkCorrectness evaluates every revealed component concurrently.
// Rejections take precedence over lookup failures; among rejections the
// lowest component index is reported.
func (o *Oracle) checkCorrectness(ctx context.Context, view *tx.FilteredView) error {
	results := make([]error, len(view.Revealed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)

	for i, r := range view.Revealed {
		g.Go(func() error {
			results[i] = o.checkComponent(gctx, r)
			return results[i]
		})
	}

	g.Wait()

	var unavailable error

	for _, err := range results {
		if err == nil {
			continue
		}

		if errors.Is(err, ErrRejectedAttestation) {
			return err
		}

		if unavailable == nil {
			unavailable = err
		}
	}

	return unavailable
}

// checkComponent applies the correctness rules to one revealed component.
func (o *Oracle) checkComponent(ctx context.Context, r tx.RevealedComponent) error {
	cmd, ok := r.Component.(tx.AttestationCommand)
	if !ok {
		return &RejectedAttestationError{Index: r.Index, Reason: fmt.Sprintf("component is %s, not an attestation command", r.Component.Kind())}
	}

	if !cmd.HasSigner(o.key.ID()) {
		return &RejectedAttestationError{Index: r.Index, Reason: "oracle is not a required signer"}
	}

	id, err := factlookup.Normalize(cmd.SubjectID)
	if err != nil {
		return &RejectedAttestationError{Index: r.Index, Reason: "malformed subject", Err: err}
	}

	alive, err := o.lookup.Lookup(ctx, id)
	if err != nil {
		return asUnavailable(id, err)
	}

	if alive != cmd.Alive {
		return &RejectedAttestationError{
			Index:  r.Index,
			Reason: fmt.Sprintf("command states alive=%t for %s but lookup says alive=%t", cmd.Alive, id, alive),
		}
	}

	return nil
}

// asUnavailable passes typed lookup errors through and wraps anything else
// so no backend failure can read as a negative fact.
func asUnavailable(subjectID string, err error) error {
	if errors.Is(err, factlookup.ErrLookupUnavailable) || errors.Is(err, factlookup.ErrInvalidSubjectID) {
		return err
	}

	return &factlookup.UnavailableError{SubjectID: subjectID, Reason: "backend error", Err: err}
}
