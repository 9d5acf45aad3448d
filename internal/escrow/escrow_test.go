package escrow

import (
	"bytes"
	"testing"

	"github.com/sealedmessage/core/internal/cryptoprim"
)

func testParts() KeyParts {
	return KeyParts{A: "aa11bb22cc33dd44", B: "1122334455667788"}
}

func TestSealUnseal_RoundTrip(t *testing.T) {
	ks, err := cryptoprim.RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	cs := cryptoprim.Keccak256(ks)

	env, err := Seal(testParts(), ks, cs, 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unseal(testParts(), env)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, ks) {
		t.Fatal("escrow round trip mismatch")
	}
}

func TestSeal_CommitmentMismatch(t *testing.T) {
	ks, _ := cryptoprim.RandomBytes(32)
	wrongCs, _ := cryptoprim.RandomBytes(32)
	_, err := Seal(testParts(), ks, wrongCs, 1)
	if err != cryptoprim.ErrCommitmentMismatch {
		t.Fatalf("expected ErrCommitmentMismatch, got %v", err)
	}
}

func TestSeal_EmptyPartsRejected(t *testing.T) {
	ks, _ := cryptoprim.RandomBytes(32)
	cs := cryptoprim.Keccak256(ks)
	_, err := Seal(KeyParts{A: "", B: "aa"}, ks, cs, 1)
	if err != cryptoprim.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
