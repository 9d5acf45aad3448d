// Package identity derives and caches per-address encryption keypairs from
// wallet signatures. A Keystore is a capability: construct one in main and
// thread it through, never reach it via a package-level global.
package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignatureTooShort is returned when a wallet signature is under 65 bytes.
var ErrSignatureTooShort = errors.New("identity: signature too short")

// ErrZeroPrivateKey is returned in the astronomically unlikely case that a
// derived scalar reduces to zero mod n.
var ErrZeroPrivateKey = errors.New("identity: derived private key is zero")

// WalletSigner produces a signature over msg for the caller's wallet.
type WalletSigner func(msg []byte) ([]byte, error)

// KeyPair is a derived secp256k1 identity. Pub is always the 33-byte
// compressed point.
type KeyPair struct {
	Priv *ecdsa.PrivateKey
	Pub  []byte
}

type cacheEntry struct {
	sigHex string
	pub    []byte
}

// Keystore caches wallet signatures (never private keys) keyed by lowercase
// address, and re-derives the private key on demand.
type Keystore struct {
	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewKeystore constructs an empty, ready-to-use Keystore.
func NewKeystore() *Keystore {
	return &Keystore{cache: make(map[string]cacheEntry)}
}

// addressMessage builds M_addr = "SealedMessage|EncryptionKey|v1\nAddress:<lower addr>".
func addressMessage(addrLower string) []byte {
	return []byte("SealedMessage|EncryptionKey|v1\nAddress:" + addrLower)
}

// GetOrCreate derives (or returns the cached derivation of) the encryption
// keypair for address, invoking sign only when no cached signature exists.
func (k *Keystore) GetOrCreate(address string, sign WalletSigner) (*KeyPair, error) {
	addrLower := strings.ToLower(address)

	k.mu.RLock()
	entry, ok := k.cache[addrLower]
	k.mu.RUnlock()

	var sig []byte
	if ok {
		sig = common0xDecode(entry.sigHex)
	} else {
		s, err := sign(addressMessage(addrLower))
		if err != nil {
			return nil, fmt.Errorf("identity: wallet sign: %w", err)
		}
		sig = s
	}

	if len(sig) < 65 {
		return nil, ErrSignatureTooShort
	}

	priv, pub, err := derive(sig)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	k.cache[addrLower] = cacheEntry{sigHex: common0xEncode(sig), pub: pub}
	k.mu.Unlock()

	return &KeyPair{Priv: priv, Pub: pub}, nil
}

// Clear removes the cached signature and public key for address.
func (k *Keystore) Clear(address string) {
	addrLower := strings.ToLower(address)
	k.mu.Lock()
	delete(k.cache, addrLower)
	k.mu.Unlock()
}

// CachedPub returns the cached compressed public key for address, if any.
func (k *Keystore) CachedPub(address string) ([]byte, bool) {
	addrLower := strings.ToLower(address)
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.cache[addrLower]
	if !ok {
		return nil, false
	}
	return e.pub, true
}

// derive computes priv = sha256(sig) mod n, rejecting zero, then the
// compressed public key.
func derive(sig []byte) (*ecdsa.PrivateKey, []byte, error) {
	digest := sha256Sum(sig)

	n := crypto.S256().Params().N
	d := new(big.Int).Mod(new(big.Int).SetBytes(digest), n)
	if d.Sign() == 0 {
		return nil, nil, ErrZeroPrivateKey
	}

	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = crypto.S256()
	priv.D = d
	priv.PublicKey.X, priv.PublicKey.Y = crypto.S256().ScalarBaseMult(d.Bytes())

	pub := crypto.CompressPubkey(&priv.PublicKey)
	return priv, pub, nil
}
