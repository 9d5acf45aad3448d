// Package cryptoprim provides the pure cryptographic primitives the rest of
// the pipeline is built on: AES-256-GCM, secp256k1 ECDH, SHA-256, Keccak-256,
// and CSPRNG byte generation. Nothing here touches disk or the network.
package cryptoprim

import "errors"

var (
	// ErrAuthFailure is returned when an AES-GCM tag check fails.
	ErrAuthFailure = errors.New("cryptoprim: authentication failure")
	// ErrEntropyUnavailable is returned when the OS CSPRNG cannot be read.
	// Callers MUST NOT fall back to a non-cryptographic generator.
	ErrEntropyUnavailable = errors.New("cryptoprim: entropy unavailable")
	// ErrCommitmentMismatch is returned when a keccak256 commitment check fails.
	ErrCommitmentMismatch = errors.New("cryptoprim: commitment mismatch")
	// ErrInvalidArgument is returned for malformed key or IV lengths.
	ErrInvalidArgument = errors.New("cryptoprim: invalid argument")
)
