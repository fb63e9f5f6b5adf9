package circuit

import "errors"

// ErrArenaExhausted is returned when a new_gate allocation would push the
// arena past its configured maximum size (spec §7 "Arena exhaustion").
// Compilation must abort on this error; the caller discards the Circuit.
var ErrArenaExhausted = errors.New("circuit: arena exhausted")

// ErrVerifierFailed wraps a structural invariant violation found by Verify.
// See the Diagnostic type for the offending gate and input index.
var ErrVerifierFailed = errors.New("circuit: verifier failed")

// errArityMismatch, errNullInputMisuse and errOutOfBounds back the
// debug-only assertions described in spec §7. This module checks them
// unconditionally (no separate release/debug build): the teacher never
// gates its invariant checks behind a build tag either, and a compiler
// silently accepting a malformed gate is worse than a panic naming the
// offending input.
var (
	errArityMismatch   = errors.New("circuit: input count does not match opcode arity")
	errNullInputMisuse = errors.New("circuit: new_in requires a null slot")
	errNonNullRequired = errors.New("circuit: modify_in requires a non-null slot")
	errOutOfBounds     = errors.New("circuit: index out of bounds")
)
