package metaenvelope

import (
	"errors"

	"github.com/mr-tron/base58"

	"github.com/sealedmessage/core/internal/cryptoprim"
)

// ErrShortHashExhausted is returned when the bounded number of collision
// retries is exhausted while generating a unique short hash.
var ErrShortHashExhausted = errors.New("metaenvelope: short hash space exhausted")

// shortHashAlphabet is Base58 minus visually ambiguous glyphs (0, O, I, l),
// the same alphabet github.com/mr-tron/base58 encodes with.
const shortHashAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const shortHashLen = 6

// maxCollisionRetries bounds the number of regeneration attempts before a
// write is abandoned as ErrShortHashExhausted.
const maxCollisionRetries = 8

// Exists reports whether a candidate short hash is already taken.
type Exists func(shortHash string) (bool, error)

// genShortHash base58-encodes a CSPRNG-filled buffer and takes the leading
// shortHashLen characters. A fresh buffer is pulled on the rare occasion the
// encoded string comes up short.
func genShortHash() (string, error) {
	for {
		raw, err := cryptoprim.RandomBytes(8)
		if err != nil {
			return "", err
		}
		encoded := base58.Encode(raw)
		if len(encoded) >= shortHashLen {
			return encoded[:shortHashLen], nil
		}
	}
}

// NewShortHash generates a short hash unique against exists, retrying up to
// maxCollisionRetries times.
func NewShortHash(exists Exists) (string, error) {
	for attempt := 0; attempt < maxCollisionRetries; attempt++ {
		candidate, err := genShortHash()
		if err != nil {
			return "", err
		}
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrShortHashExhausted
}
