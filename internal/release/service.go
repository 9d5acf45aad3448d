// Package release implements the release algorithm (C10): given
// ledger-attested commitments, validate the unlock predicate and return the
// materials a receiver needs to decrypt client-side. It never returns K_s or
// escrow plaintext.
package release

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sealedmessage/core/internal/cryptoprim"
	"github.com/sealedmessage/core/internal/envelopestore"
	"github.com/sealedmessage/core/internal/ledger"
)

var (
	// ErrRevoked is returned when the sender has revoked the message.
	ErrRevoked = errors.New("release: message revoked")
	// ErrLocked is returned when the unlock predicate has not yet been met.
	ErrLocked = errors.New("release: message locked")
	// ErrEnvelopeMissing is returned when no receiver envelope can be found.
	ErrEnvelopeMissing = errors.New("release: receiver envelope missing")
	// ErrShortCiphertext is returned when the CAS blob is too short to
	// contain a 16-byte tag.
	ErrShortCiphertext = errors.New("release: ciphertext blob shorter than tag")
	// ErrInvalidViewer is returned when no well-formed viewer address is given.
	ErrInvalidViewer = errors.New("release: missing or invalid viewer")
	// ErrInvalidInput is returned for malformed request fields.
	ErrInvalidInput = errors.New("release: invalid input")
)

// ledgerReadTimeout bounds the single ledger read made per release.
const ledgerReadTimeout = 30 * time.Second

const stubMarker = "stub"
const stubPlaintext = "This is a stub message for testing."

// LedgerReader is the read-only ledger surface the release service needs.
type LedgerReader interface {
	GetMessage(ctx context.Context, messageID *big.Int, viewer string) (*ledger.Message, error)
}

// EnvelopeReader is the envelope-store surface the release service needs.
type EnvelopeReader interface {
	GetByCommitment(cs string) (envelopestore.Record, error)
	FindByEnvelopeHash(hr string) (envelopestore.Record, error)
}

// CASFetcher fetches a blob by CAS locator.
type CASFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Request is the decoded body of POST /release.
type Request struct {
	MessageID      *big.Int
	Viewer         string
	URI            string
	IV             string
	AuthTag        string
	CS             string
	HR             string // optional
	CiphertextHash string // optional, client- or ledger-supplied expectation
}

// ReceiverEnvelopeFields mirrors {ct_r, iv_r, tag_r} hex-encoded.
type ReceiverEnvelopeFields struct {
	CT  string `json:"ct"`
	IV  string `json:"iv"`
	Tag string `json:"tag"`
}

// Response is everything the client-side decrypt engine needs. K_s and the
// escrow plaintext are never included.
type Response struct {
	CTm                    string                 `json:"ctm"`
	TagM                   string                 `json:"tagm"`
	IVm                    string                 `json:"ivm"`
	PubSender              string                 `json:"pubSender"`
	ReceiverEnvelope       ReceiverEnvelopeFields `json:"receiverEnvelope"`
	CS                     string                 `json:"cs"`
	HR                     string                 `json:"hr"`
	CiphertextHashVerified bool                   `json:"ciphertextHashVerified"`
	HCtComputed            string                 `json:"hCtComputed"`
	IsStub                 bool                   `json:"isStub"`
	MetadataShortHash      string                 `json:"metadataShortHash,omitempty"`
	MetadataKeccak         string                 `json:"metadataKeccak,omitempty"`
}

// Service wires the ledger, envelope store, and CAS gateway client together
// to implement POST /release.
type Service struct {
	Ledger    LedgerReader
	Envelopes EnvelopeReader
	CAS       CASFetcher

	// AllowStub enables the "uri contains stub" test hook. Per the design
	// notes this SHOULD be disabled in production deployments.
	AllowStub bool
}

// Release runs the full algorithm of §4.10.
func (s *Service) Release(ctx context.Context, req Request) (*Response, error) {
	if req.Viewer == "" || !isWellFormedAddress(req.Viewer) {
		return nil, ErrInvalidViewer
	}
	if req.MessageID == nil || req.CS == "" {
		return nil, ErrInvalidInput
	}

	ledgerCtx, cancelLedger := context.WithTimeout(ctx, ledgerReadTimeout)
	m, err := s.Ledger.GetMessage(ledgerCtx, req.MessageID, req.Viewer)
	cancelLedger()
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(normalizeHex(m.CS), normalizeHex(req.CS)) {
		return nil, cryptoprim.ErrCommitmentMismatch
	}
	if req.HR != "" && m.HR != "" && !isZeroHex(m.HR) {
		if !strings.EqualFold(normalizeHex(m.HR), normalizeHex(req.HR)) {
			return nil, cryptoprim.ErrCommitmentMismatch
		}
	}
	// uri / iv / tag mismatches against the ledger-submitted copies are
	// warn-only: the client may legitimately pass stale values. We do not
	// compare them here; the committed CAS fetch below is the source of truth.

	if m.Revoked {
		return nil, ErrRevoked
	}

	now := time.Now().Unix()
	if !ledger.IsUnlocked(m.ConditionMask, now, m.UnlockTime, m.PaidAmount, m.RequiredPayment) {
		return nil, ErrLocked
	}

	record, err := s.lookupEnvelope(req.CS, req.HR)
	if err != nil {
		return nil, err
	}

	var blob []byte
	isStub := false
	if s.AllowStub && strings.Contains(req.URI, stubMarker) {
		blob = []byte(stubPlaintext)
		isStub = true
	} else {
		blob, err = s.CAS.Fetch(ctx, req.URI)
		if err != nil {
			return nil, fmt.Errorf("release: fetch CAS blob: %w", err)
		}
	}

	if len(blob) <= 16 {
		return nil, ErrShortCiphertext
	}
	ctM := blob[:len(blob)-16]
	tagM := blob[len(blob)-16:]

	hCtComputed := cryptoprim.Keccak256(blob)
	hCtComputedHex := "0x" + hex.EncodeToString(hCtComputed)

	verified := false
	expected := req.CiphertextHash
	if expected == "" {
		expected = m.HCt
	}
	if expected != "" {
		verified = strings.EqualFold(normalizeHex(hCtComputedHex), normalizeHex(expected))
	}

	resp := &Response{
		CTm:                    hex.EncodeToString(ctM),
		TagM:                   hex.EncodeToString(tagM),
		IVm:                    req.IV,
		PubSender:              record.PubSender,
		ReceiverEnvelope:       ReceiverEnvelopeFields(record.Envelope),
		CS:                     m.CS,
		HR:                     m.HR,
		CiphertextHashVerified: verified,
		HCtComputed:            hCtComputedHex,
		IsStub:                 isStub,
		MetadataShortHash:      record.MetadataShortHash,
		MetadataKeccak:         record.MetadataKeccak,
	}
	return resp, nil
}

func (s *Service) lookupEnvelope(cs, hr string) (envelopestore.Record, error) {
	record, err := s.Envelopes.GetByCommitment(cs)
	if err == nil {
		return record, nil
	}
	if hr != "" {
		record, err = s.Envelopes.FindByEnvelopeHash(hr)
		if err == nil {
			return record, nil
		}
	}
	return envelopestore.Record{}, ErrEnvelopeMissing
}

func normalizeHex(s string) string {
	return strings.TrimPrefix(strings.ToLower(s), "0x")
}

func isZeroHex(s string) bool {
	s = normalizeHex(s)
	for _, c := range s {
		if c != '0' {
			return false
		}
	}
	return true
}

func isWellFormedAddress(addr string) bool {
	a := strings.TrimPrefix(addr, "0x")
	if len(a) != 40 {
		return false
	}
	_, err := hex.DecodeString(a)
	return err == nil
}
