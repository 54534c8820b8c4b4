package tx

import (
	"errors"
	"fmt"
)

// ErrContractViolation matches every life contract failure.
var ErrContractViolation = errors.New("life contract violation")

// VerifyLifeContract checks the rules of a life attestation transaction.
// The contract does not decide whether the fact is true, only that the
// output and the command agree.
func VerifyLifeContract(t *Transaction) error {
	var inputs int
	for _, c := range t.components {
		if c.Kind() == KindInput {
			inputs++
		}
	}

	if inputs != 0 {
		return fmt.Errorf("%w: there are %d inputs, want none", ErrContractViolation, inputs)
	}

	outputs := t.Outputs()
	if len(outputs) != 1 {
		return fmt.Errorf("%w: there are %d life outputs, want exactly one", ErrContractViolation, len(outputs))
	}

	commands := t.Commands()
	if len(commands) != 1 {
		return fmt.Errorf("%w: there are %d attestation commands, want exactly one", ErrContractViolation, len(commands))
	}

	out, cmd := outputs[0], commands[0]
	if out.SubjectID != cmd.SubjectID || out.Alive != cmd.Alive {
		return fmt.Errorf("%w: the SSN in the output does not match the ALIVE response in the command", ErrContractViolation)
	}

	if !cmd.HasSigner(out.Requester) {
		return fmt.Errorf("%w: requester %s is not a required signer", ErrContractViolation, out.Requester.Short())
	}

	return nil
}
