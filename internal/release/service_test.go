package release

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/sealedmessage/core/internal/cryptoprim"
	"github.com/sealedmessage/core/internal/envelopestore"
	"github.com/sealedmessage/core/internal/ledger"
)

type fakeLedger struct {
	msg *ledger.Message
	err error
}

func (f *fakeLedger) GetMessage(ctx context.Context, messageID *big.Int, viewer string) (*ledger.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.msg, nil
}

type fakeEnvelopes struct {
	byCommitment map[string]envelopestore.Record
	byHR         map[string]envelopestore.Record
}

func newFakeEnvelopes() *fakeEnvelopes {
	return &fakeEnvelopes{byCommitment: map[string]envelopestore.Record{}, byHR: map[string]envelopestore.Record{}}
}

func (f *fakeEnvelopes) GetByCommitment(cs string) (envelopestore.Record, error) {
	r, ok := f.byCommitment[normalizeHex(cs)]
	if !ok {
		return envelopestore.Record{}, envelopestore.ErrNotFound
	}
	return r, nil
}

func (f *fakeEnvelopes) FindByEnvelopeHash(hr string) (envelopestore.Record, error) {
	r, ok := f.byHR[normalizeHex(hr)]
	if !ok {
		return envelopestore.Record{}, envelopestore.ErrNotFound
	}
	return r, nil
}

type fakeCAS struct {
	blob []byte
	err  error
}

func (f *fakeCAS) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.blob, nil
}

func hex0x(b []byte) string { return "0x" + hex.EncodeToString(b) }

const viewerAddr = "0x1111111111111111111111111111111111111111"

func buildBlobAndMessage(t *testing.T, mask uint8, unlockTime, now int64, paid, required *big.Int, revoked bool) ([]byte, *ledger.Message, envelopestore.Record) {
	t.Helper()

	plaintext := []byte("hello receiver, this is a sealed message")
	key, err := cryptoprim.RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	iv, err := cryptoprim.RandomBytes(12)
	if err != nil {
		t.Fatal(err)
	}
	ct, tag, err := cryptoprim.AESGCMEncrypt(key, iv, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	blob := append(append([]byte{}, ct...), tag...)
	hCt := cryptoprim.Keccak256(blob)
	cs := cryptoprim.Keccak256(key)

	pubSender := make([]byte, 33)
	pubSender[0] = 0x02
	ctR := make([]byte, 32)
	ivR := make([]byte, 12)
	tagR := make([]byte, 16)
	hR := cryptoprim.Keccak256(ctR, ivR, tagR, pubSender)

	m := &ledger.Message{
		CS:              hex0x(cs),
		HR:              hex0x(hR),
		HCt:             hex0x(hCt),
		ConditionMask:   mask,
		UnlockTime:      unlockTime,
		PaidAmount:      paid,
		RequiredPayment: required,
		Revoked:         revoked,
	}
	record := envelopestore.Record{
		CS:        hex0x(cs),
		HR:        hex0x(hR),
		HCT:       hex0x(hCt),
		PubSender: hex0x(pubSender),
		Envelope: envelopestore.EnvelopeFields{
			CT:  hex0x(ctR),
			IV:  hex0x(ivR),
			Tag: hex0x(tagR),
		},
	}
	_ = iv
	return blob, m, record
}

func TestRelease_TimeOnlyHappyPath(t *testing.T) {
	now := time.Now().Unix()
	blob, m, record := buildBlobAndMessage(t, ledger.MaskTime, now-100, now, big.NewInt(0), big.NewInt(0), false)

	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record

	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}
	resp, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://whatever"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !resp.CiphertextHashVerified {
		t.Fatal("expected ciphertext hash to verify")
	}
}

func TestRelease_PaymentOnlyHappyPath(t *testing.T) {
	now := time.Now().Unix()
	blob, m, record := buildBlobAndMessage(t, ledger.MaskPayment, now+1000, now, big.NewInt(100), big.NewInt(100), false)

	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record

	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}
	_, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://whatever"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestRelease_TimeAndPaymentBothRequired(t *testing.T) {
	now := time.Now().Unix()
	mask := ledger.MaskTime | ledger.MaskPayment
	blob, m, record := buildBlobAndMessage(t, mask, now-10, now, big.NewInt(50), big.NewInt(100), false)

	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record
	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}

	if _, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://x"}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked when payment is short, got %v", err)
	}

	m.PaidAmount = big.NewInt(100)
	if _, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://x"}); err != nil {
		t.Fatalf("expected success once both conditions met, got %v", err)
	}
}

func TestRelease_ReceiverEnvelopeFallbackByHR(t *testing.T) {
	now := time.Now().Unix()
	blob, m, record := buildBlobAndMessage(t, ledger.MaskTime, now-1, now, big.NewInt(0), big.NewInt(0), false)

	envs := newFakeEnvelopes()
	envs.byHR[normalizeHex(m.HR)] = record // only indexed by HR, not commitment

	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}
	resp, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, HR: m.HR, URI: "cas://x"})
	if err != nil {
		t.Fatalf("expected fallback lookup by H_r to succeed, got %v", err)
	}
	if resp.PubSender == "" {
		t.Fatal("expected receiver envelope fields to be populated via fallback")
	}
}

func TestRelease_TamperedCiphertextNotVerified(t *testing.T) {
	now := time.Now().Unix()
	blob, m, record := buildBlobAndMessage(t, ledger.MaskTime, now-1, now, big.NewInt(0), big.NewInt(0), false)
	blob[0] ^= 0xFF // tamper after H_ct was computed over the original blob

	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record
	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}

	resp, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://x"})
	if err != nil {
		t.Fatalf("release itself should not fail on tamper, got %v", err)
	}
	if resp.CiphertextHashVerified {
		t.Fatal("expected ciphertext hash verification to fail after tamper")
	}
}

func TestRelease_RevokedRejected(t *testing.T) {
	now := time.Now().Unix()
	blob, m, record := buildBlobAndMessage(t, ledger.MaskTime, now-1, now, big.NewInt(0), big.NewInt(0), true)

	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record
	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}

	if _, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://x"}); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestRelease_InvalidViewerRejected(t *testing.T) {
	svc := &Service{Ledger: &fakeLedger{}, Envelopes: newFakeEnvelopes(), CAS: &fakeCAS{}}
	if _, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: "not-an-address", CS: "0xaa"}); !errors.Is(err, ErrInvalidViewer) {
		t.Fatalf("expected ErrInvalidViewer, got %v", err)
	}
}

func TestRelease_CommitmentMismatchRejected(t *testing.T) {
	now := time.Now().Unix()
	blob, m, record := buildBlobAndMessage(t, ledger.MaskTime, now-1, now, big.NewInt(0), big.NewInt(0), false)
	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record
	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{blob: blob}}

	wrongCS := hex0x(cryptoprim.Keccak256([]byte("not the real key")))
	if _, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: wrongCS, URI: "cas://x"}); !errors.Is(err, cryptoprim.ErrCommitmentMismatch) {
		t.Fatalf("expected ErrCommitmentMismatch, got %v", err)
	}
}

func TestRelease_StubShortcut(t *testing.T) {
	now := time.Now().Unix()
	_, m, record := buildBlobAndMessage(t, ledger.MaskTime, now-1, now, big.NewInt(0), big.NewInt(0), false)
	envs := newFakeEnvelopes()
	envs.byCommitment[normalizeHex(m.CS)] = record

	svc := &Service{Ledger: &fakeLedger{msg: m}, Envelopes: envs, CAS: &fakeCAS{err: errors.New("should not be called")}, AllowStub: true}
	resp, err := svc.Release(context.Background(), Request{MessageID: big.NewInt(1), Viewer: viewerAddr, CS: m.CS, URI: "cas://stub-test"})
	if err != nil {
		t.Fatalf("expected stub shortcut to succeed without hitting CAS, got %v", err)
	}
	if !resp.IsStub {
		t.Fatal("expected IsStub to be true")
	}
}
