// Package fallback derives a deterministic receiver keypair from a receiver
// address and a server-held seed, used only when the ledger has no
// registered public key for that receiver. Purely deterministic, no I/O.
package fallback

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Generate derives (priv, pub) for address from seed.
// priv = sha256(keccak256(seed | addr_lower | "fallback-v1")) mod n.
func Generate(seed, address string) (*ecdsa.PrivateKey, []byte, error) {
	addrLower := strings.ToLower(address)
	preimage := []byte(seed + addrLower + "fallback-v1")
	k := crypto.Keccak256(preimage)
	digest := sha256.Sum256(k)

	n := crypto.S256().Params().N
	d := new(big.Int).Mod(new(big.Int).SetBytes(digest[:]), n)
	if d.Sign() == 0 {
		d = big.NewInt(1)
	}

	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = crypto.S256()
	priv.D = d
	priv.PublicKey.X, priv.PublicKey.Y = crypto.S256().ScalarBaseMult(d.Bytes())

	pub := crypto.CompressPubkey(&priv.PublicKey)
	return priv, pub, nil
}
