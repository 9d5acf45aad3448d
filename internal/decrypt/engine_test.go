package decrypt

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealedmessage/core/internal/cryptoprim"
	"github.com/sealedmessage/core/internal/mappingstore"
	"github.com/sealedmessage/core/internal/metaenvelope"
)

func hexEnc(b []byte) string { return hex.EncodeToString(b) }

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// sealReceiverEnvelope builds a valid (ct_r, iv_r, tag_r) triple the way
// internal/sessionkey.Seal does, so the test doesn't need to import it.
func sealReceiverEnvelope(t *testing.T, privSender *ecdsa.PrivateKey, pubReceiver *ecdsa.PublicKey, ks []byte) (ct, iv, tag []byte) {
	t.Helper()
	shared, err := cryptoprim.ECDH(privSender, pubReceiver)
	if err != nil {
		t.Fatal(err)
	}
	aesKey := shared[1:33]
	iv, err = cryptoprim.RandomBytes(12)
	if err != nil {
		t.Fatal(err)
	}
	ct, tag, err = cryptoprim.AESGCMEncrypt(aesKey, iv, ks)
	if err != nil {
		t.Fatal(err)
	}
	return ct, iv, tag
}

func buildEnvelope(t *testing.T, privSender, privReceiver *ecdsa.PrivateKey, plaintext []byte) (Envelope, []byte) {
	t.Helper()
	ks, err := cryptoprim.RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	ctR, ivR, tagR := sealReceiverEnvelope(t, privSender, &privReceiver.PublicKey, ks)
	cs := cryptoprim.Keccak256(ks)

	ivM, err := cryptoprim.RandomBytes(12)
	if err != nil {
		t.Fatal(err)
	}
	ctM, tagM, err := cryptoprim.AESGCMEncrypt(ks, ivM, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	pubSenderBytes := crypto.CompressPubkey(&privSender.PublicKey)

	env := Envelope{
		CTm:         hexEnc(ctM),
		TagM:        hexEnc(tagM),
		IVm:         hexEnc(ivM),
		PubSender:   hexEnc(pubSenderBytes),
		ReceiverCT:  hexEnc(ctR),
		ReceiverIV:  hexEnc(ivR),
		ReceiverTag: hexEnc(tagR),
		CS:          hexEnc(cs),
	}
	return env, ks
}

func TestOpen_ReceiverRoleHappyPath(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	plaintext := []byte("Hello from SealedMessage")

	env, _ := buildEnvelope(t, privSender, privReceiver, plaintext)

	result, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleReceiver,
		DerivedPriv: privReceiver,
		PeerPub:     &privSender.PublicKey,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(result.Plaintext) != string(plaintext) {
		t.Fatalf("plaintext mismatch: got %q want %q", result.Plaintext, plaintext)
	}
}

func TestOpen_ReceiverRoleIgnoresPeerPubWhenUnset(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	plaintext := []byte("pub_sender is read from the envelope, not a caller param")

	env, _ := buildEnvelope(t, privSender, privReceiver, plaintext)

	result, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleReceiver,
		DerivedPriv: privReceiver,
		// PeerPub deliberately omitted: the envelope's own pub_sender must
		// be sufficient to recover K_s for the receiver role.
	})
	if err != nil {
		t.Fatalf("expected success without PeerPub, got %v", err)
	}
	if string(result.Plaintext) != string(plaintext) {
		t.Fatalf("plaintext mismatch: got %q want %q", result.Plaintext, plaintext)
	}
}

func TestOpen_ReceiverRoleMismatchedPeerPubRejected(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	wrongPeer := mustKey(t)
	env, _ := buildEnvelope(t, privSender, privReceiver, []byte("x"))

	_, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleReceiver,
		DerivedPriv: privReceiver,
		PeerPub:     &wrongPeer.PublicKey, // disagrees with env.PubSender
	})
	if !errors.Is(err, ErrPeerPubMismatch) {
		t.Fatalf("expected ErrPeerPubMismatch, got %v", err)
	}
}

func TestOpen_SenderAuditRoleHappyPath(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	plaintext := []byte("sender can audit their own sent message")

	env, _ := buildEnvelope(t, privSender, privReceiver, plaintext)

	result, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleSender,
		DerivedPriv: privSender,
		PeerPub:     &privReceiver.PublicKey,
	})
	if err != nil {
		t.Fatalf("expected sender-side audit decrypt to succeed, got %v", err)
	}
	if string(result.Plaintext) != string(plaintext) {
		t.Fatalf("plaintext mismatch: got %q want %q", result.Plaintext, plaintext)
	}
}

func TestOpen_SenderRoleMissingPeerPubRejected(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	env, _ := buildEnvelope(t, privSender, privReceiver, []byte("x"))

	_, err := Open(context.Background(), Request{Envelope: env, Role: RoleSender, DerivedPriv: privSender})
	if !errors.Is(err, ErrMissingPeerPub) {
		t.Fatalf("expected ErrMissingPeerPub, got %v", err)
	}
}

func TestOpen_WrongCandidateKeySwallowedThenFallbackSucceeds(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	fallbackPriv := mustKey(t) // wrong key, should be skipped silently
	plaintext := []byte("fallback recovers after a wrong first candidate")

	env, _ := buildEnvelope(t, privSender, privReceiver, plaintext)

	result, err := Open(context.Background(), Request{
		Envelope:     env,
		Role:         RoleReceiver,
		DerivedPriv:  fallbackPriv, // wrong
		FallbackPriv: privReceiver, // correct, tried second
		PeerPub:      &privSender.PublicKey,
	})
	if err != nil {
		t.Fatalf("expected fallback candidate to recover K_s, got %v", err)
	}
	if string(result.Plaintext) != string(plaintext) {
		t.Fatalf("plaintext mismatch: got %q want %q", result.Plaintext, plaintext)
	}
}

func TestOpen_NoCandidateMatchesRejected(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	wrongPriv := mustKey(t)
	env, _ := buildEnvelope(t, privSender, privReceiver, []byte("x"))

	_, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleReceiver,
		DerivedPriv: wrongPriv,
		PeerPub:     &privSender.PublicKey,
	})
	if !errors.Is(err, ErrNoCandidateKey) {
		t.Fatalf("expected ErrNoCandidateKey, got %v", err)
	}
}

func TestOpen_TamperedPayloadIsFatal(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)
	env, _ := buildEnvelope(t, privSender, privReceiver, []byte("original content"))

	// Flip a byte of ct_m after the envelope was sealed.
	ctBytes, _ := hex.DecodeString(env.CTm)
	ctBytes[0] ^= 0xFF
	env.CTm = hexEnc(ctBytes)

	_, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleReceiver,
		DerivedPriv: privReceiver,
		PeerPub:     &privSender.PublicKey,
	})
	if !errors.Is(err, cryptoprim.ErrAuthFailure) {
		t.Fatalf("expected fatal ErrAuthFailure on tampered payload, got %v", err)
	}
}

type fakeMapping struct {
	entries map[string]mappingstore.Entry
}

func (f *fakeMapping) GetByShortHash(shortHash string) (mappingstore.Entry, error) {
	e, ok := f.entries[shortHash]
	if !ok {
		return mappingstore.Entry{}, mappingstore.ErrNotFound
	}
	return e, nil
}

type fakeCAS struct {
	blobs map[string][]byte
}

func (f *fakeCAS) Fetch(ctx context.Context, uri string) ([]byte, error) {
	b, ok := f.blobs[uri]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func TestOpen_PointerRoundTrip(t *testing.T) {
	privSender := mustKey(t)
	privReceiver := mustKey(t)

	ks, err := cryptoprim.RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}

	meta := metaenvelope.NewFileEncrypted("abc123", metaenvelope.Attachment{
		FileName: "report.pdf",
		FileSize: 4096,
		MimeType: "application/pdf",
	}, nil)
	meta.ShortHash = "abc123"

	sealResult, err := metaenvelope.Seal(context.Background(), ks, meta, &memUploader{store: map[string][]byte{}}, func(string) (bool, error) { return false, nil }, nil)
	if err != nil {
		t.Fatal(err)
	}
	envJSON, err := json.Marshal(sealResult.Envelope)
	if err != nil {
		t.Fatal(err)
	}

	mapping := &fakeMapping{entries: map[string]mappingstore.Entry{
		"abc123": {ShortHash: "abc123", FullHash: "cas://envelope-blob"},
	}}
	cas := &fakeCAS{blobs: map[string][]byte{"cas://envelope-blob": envJSON}}

	env, _ := buildEnvelope(t, privSender, privReceiver, []byte("F:abc123"))

	result, err := Open(context.Background(), Request{
		Envelope:    env,
		Role:        RoleReceiver,
		DerivedPriv: privReceiver,
		PeerPub:     &privSender.PublicKey,
		Mapping:     mapping,
		CAS:         cas,
	})
	if err != nil {
		t.Fatalf("expected pointer resolution to succeed, got %v", err)
	}
	if result.Metadata == nil || result.Metadata.Attachment == nil {
		t.Fatal("expected resolved attachment metadata")
	}
	if result.Metadata.Attachment.FileName != "report.pdf" {
		t.Fatalf("unexpected attachment: %+v", result.Metadata.Attachment)
	}
}

type memUploader struct {
	store map[string][]byte
	next  int
}

func (m *memUploader) Upload(ctx context.Context, data []byte) (string, error) {
	m.next++
	cid := "cas://upload-" + hexEnc([]byte{byte(m.next)})
	m.store[cid] = data
	return cid, nil
}
