// Package sessionkey implements the ECDH receiver-envelope wrapping of a
// fresh per-message session key (C4 of the pipeline).
package sessionkey

import (
	"crypto/ecdsa"
	"errors"

	"github.com/sealedmessage/core/internal/cryptoprim"
)

// ErrShortCiphertext is returned when the wrapped session key does not come
// out to the expected 32 bytes.
var ErrShortCiphertext = errors.New("sessionkey: ciphertext has unexpected length")

// ReceiverEnvelope is the ECDH-wrapped session key plus its integrity hash.
type ReceiverEnvelope struct {
	Ks        []byte // 32-byte session key, caller-visible only at seal time
	CT        []byte // ct_r, 32 bytes
	IV        []byte // iv_r, 12 bytes
	Tag       []byte // tag_r, 16 bytes
	HR        []byte // H_r, 32-byte keccak256
	PubSender []byte // 33-byte compressed sender public key
}

// Seal generates a random 32-byte session key, wraps it for pubReceiver via
// ECDH(privSender, pubReceiver), and computes the receiver-envelope hash.
func Seal(privSender *ecdsa.PrivateKey, pubSender []byte, pubReceiver *ecdsa.PublicKey) (*ReceiverEnvelope, error) {
	ks, err := cryptoprim.RandomBytes(32)
	if err != nil {
		return nil, err
	}

	shared65, err := cryptoprim.ECDH(privSender, pubReceiver)
	if err != nil {
		return nil, err
	}
	dk := shared65[1:33]

	iv, err := cryptoprim.RandomBytes(12)
	if err != nil {
		return nil, err
	}
	ct, tag, err := cryptoprim.AESGCMEncrypt(dk, iv, ks)
	if err != nil {
		return nil, err
	}
	if len(ct) != 32 {
		return nil, ErrShortCiphertext
	}

	hr := cryptoprim.Keccak256(ct, iv, tag, pubSender)

	return &ReceiverEnvelope{
		Ks:        ks,
		CT:        ct,
		IV:        iv,
		Tag:       tag,
		HR:        hr,
		PubSender: pubSender,
	}, nil
}

// VerifyHash recomputes H_r and compares it against want.
func VerifyHash(ct, iv, tag, pubSender, want []byte) bool {
	got := cryptoprim.Keccak256(ct, iv, tag, pubSender)
	return string(got) == string(want)
}
