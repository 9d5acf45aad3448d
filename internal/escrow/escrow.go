// Package escrow implements the server-side split-key escrow wrap of a
// session key (C5). Unseal is exported, but the release-service handlers
// never call it; the dispute/recovery tooling is its only caller.
package escrow

import (
	"encoding/hex"

	"github.com/sealedmessage/core/internal/cryptoprim"
)

// KeyParts holds the two hex-encoded halves of the server escrow key.
type KeyParts struct {
	A string
	B string
}

// Envelope is the AES-256-GCM wrap of a session key under the server key.
type Envelope struct {
	CT      []byte
	IV      []byte
	Tag     []byte
	Version uint32
}

// serverKey derives K_server = sha256(partA_bytes || partB_bytes).
func serverKey(parts KeyParts) ([]byte, error) {
	a, err := hex.DecodeString(parts.A)
	if err != nil || len(a) == 0 {
		return nil, cryptoprim.ErrInvalidArgument
	}
	b, err := hex.DecodeString(parts.B)
	if err != nil || len(b) == 0 {
		return nil, cryptoprim.ErrInvalidArgument
	}
	key := cryptoprim.SHA256(append(append([]byte{}, a...), b...))
	if len(key) != 32 {
		return nil, cryptoprim.ErrInvalidArgument
	}
	return key, nil
}

// Seal wraps ks under the server key, checking ks against the expected
// commitment cs before sealing. version is the current monotone key version.
func Seal(parts KeyParts, ks, cs []byte, version uint32) (*Envelope, error) {
	if got := cryptoprim.Keccak256(ks); string(got) != string(cs) {
		return nil, cryptoprim.ErrCommitmentMismatch
	}

	key, err := serverKey(parts)
	if err != nil {
		return nil, err
	}

	iv, err := cryptoprim.RandomBytes(12)
	if err != nil {
		return nil, err
	}
	ct, tag, err := cryptoprim.AESGCMEncrypt(key, iv, ks)
	if err != nil {
		return nil, err
	}

	return &Envelope{CT: ct, IV: iv, Tag: tag, Version: version}, nil
}

// Unseal recovers the session key from an escrow envelope. Reserved for
// dispute/recovery flows, never reachable from client-facing handlers.
func Unseal(parts KeyParts, env *Envelope) ([]byte, error) {
	key, err := serverKey(parts)
	if err != nil {
		return nil, err
	}
	return cryptoprim.AESGCMDecrypt(key, env.IV, env.CT, env.Tag)
}
