package cryptoprim

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	ivLen  = 12
	tagLen = 16
)

// AESGCMEncrypt encrypts plaintext under key (32 bytes) with the given 12-byte
// iv, returning ciphertext and a detached 16-byte tag.
func AESGCMEncrypt(key, iv, plaintext []byte) (ciphertext, tag []byte, err error) {
	if len(key) != 32 {
		return nil, nil, ErrInvalidArgument
	}
	if len(iv) != ivLen {
		return nil, nil, ErrInvalidArgument
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCMWithTagSize(block, tagLen)
	if err != nil {
		return nil, nil, err
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct := sealed[:len(sealed)-tagLen]
	tg := sealed[len(sealed)-tagLen:]
	return ct, tg, nil
}

// AESGCMDecrypt decrypts ciphertext+tag under key/iv. Returns ErrAuthFailure
// on any tag mismatch.
func AESGCMDecrypt(key, iv, ciphertext, tag []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, ErrInvalidArgument
	}
	if len(iv) != ivLen {
		return nil, ErrInvalidArgument
	}
	if len(tag) != tagLen {
		return nil, ErrAuthFailure
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithTagSize(block, tagLen)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}

// ECDH computes the full 65-byte uncompressed shared point between priv and
// pub on secp256k1. Callers slice [1:33] to obtain the 32-byte derived key,
// matching the "drop the SEC1 parity prefix byte" contract.
func ECDH(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) ([]byte, error) {
	if priv == nil || pub == nil {
		return nil, ErrInvalidArgument
	}
	curve := crypto.S256()
	sx, sy := curve.ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	if sx == nil || sy == nil {
		return nil, ErrInvalidArgument
	}
	shared65 := elliptic.Marshal(curve, sx, sy)
	return shared65, nil
}

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Keccak256 returns the Keccak-256 digest of the concatenation of all args.
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// RandomBytes reads n bytes from the OS CSPRNG. It never falls back to a
// non-cryptographic generator; a read failure is surfaced as
// ErrEntropyUnavailable.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, ErrEntropyUnavailable
	}
	return buf, nil
}
