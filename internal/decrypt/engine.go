// Package decrypt implements the client-side decrypt engine (C11): recover
// the session key from a receiver envelope, verify its commitment, and
// decrypt the message payload. It performs no I/O beyond the injected
// mapping-store/CAS collaborators used to resolve "F:" pointers.
package decrypt

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealedmessage/core/internal/cryptoprim"
	"github.com/sealedmessage/core/internal/mappingstore"
	"github.com/sealedmessage/core/internal/metaenvelope"
	"github.com/sealedmessage/core/internal/release"
)

// Role is the viewer's relationship to the message.
type Role string

const (
	RoleReceiver Role = "receiver"
	RoleSender   Role = "sender"
)

var (
	// ErrMissingPeerPub is returned when role=sender and no peer_pub was supplied.
	ErrMissingPeerPub = errors.New("decrypt: peer_pub required for sender role")
	// ErrNoCandidateKey is returned when no candidate key unwraps the envelope
	// under the expected commitment.
	ErrNoCandidateKey = errors.New("decrypt: no candidate key recovered K_s")
	// ErrInvalidHexField is returned when a hex-encoded input field is malformed.
	ErrInvalidHexField = errors.New("decrypt: invalid hex field")
	// ErrPeerPubMismatch is returned when a caller-supplied PeerPub disagrees
	// with the envelope's own pub_sender for the receiver role.
	ErrPeerPubMismatch = errors.New("decrypt: peer_pub does not match envelope pub_sender")
)

// Envelope mirrors release.Response, decoupled so callers needn't import
// the release package directly.
type Envelope struct {
	CTm         string
	TagM        string
	IVm         string
	PubSender   string
	ReceiverCT  string
	ReceiverIV  string
	ReceiverTag string
	CS          string
}

// FromReleaseResponse adapts a release.Response into an Envelope.
func FromReleaseResponse(r *release.Response) Envelope {
	return Envelope{
		CTm:         r.CTm,
		TagM:        r.TagM,
		IVm:         r.IVm,
		PubSender:   r.PubSender,
		ReceiverCT:  r.ReceiverEnvelope.CT,
		ReceiverIV:  r.ReceiverEnvelope.IV,
		ReceiverTag: r.ReceiverEnvelope.Tag,
		CS:          r.CS,
	}
}

// MappingResolver resolves a "F:" short-hash pointer to its metadata envelope.
type MappingResolver interface {
	GetByShortHash(shortHash string) (mappingstore.Entry, error)
}

// CASFetcher fetches a blob by CAS locator.
type CASFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Request is the full input to Open.
type Request struct {
	Envelope Envelope
	Role     Role

	// Derived and (optional) fallback private keys for the viewer, resolved
	// via identity.Keystore / fallback.Generate by the caller.
	DerivedPriv  *ecdsa.PrivateKey
	FallbackPriv *ecdsa.PrivateKey

	// PeerPub is required when Role == RoleSender (the receiver's public
	// key; there is no response field to recover it from). For
	// Role == RoleReceiver it is optional and, if supplied, is only used to
	// cross-check against the envelope's own pub_sender — a mismatch fails
	// with ErrPeerPubMismatch.
	PeerPub *ecdsa.PublicKey

	// LegacyAccept gates candidate AES-key derivations (b)-(d). New
	// deployments should leave this false; only (a) is attempted otherwise.
	LegacyAccept bool

	// Mapping and CAS are only consulted when the decrypted payload begins
	// with "F:"; both may be nil if pointer resolution is not needed.
	Mapping MappingResolver
	CAS     CASFetcher
}

// Result is the recovered plaintext, plus resolved metadata if the payload
// was a "F:" pointer.
type Result struct {
	Plaintext []byte
	Metadata  *metaenvelope.Metadata
}

// Open runs the algorithm of §4.11: recover K_s from the receiver envelope,
// decrypt the payload, and resolve "F:" pointers.
func Open(ctx context.Context, req Request) (*Result, error) {
	peerPub, err := choosePeerPub(req)
	if err != nil {
		return nil, err
	}

	ctR, err := decodeHex(req.Envelope.ReceiverCT)
	if err != nil {
		return nil, fmt.Errorf("%w: receiverEnvelope.ct", ErrInvalidHexField)
	}
	ivR, err := decodeHex(req.Envelope.ReceiverIV)
	if err != nil {
		return nil, fmt.Errorf("%w: receiverEnvelope.iv", ErrInvalidHexField)
	}
	tagR, err := decodeHex(req.Envelope.ReceiverTag)
	if err != nil {
		return nil, fmt.Errorf("%w: receiverEnvelope.tag", ErrInvalidHexField)
	}
	cs, err := decodeHex(req.Envelope.CS)
	if err != nil {
		return nil, fmt.Errorf("%w: cs", ErrInvalidHexField)
	}

	candidates := []*ecdsa.PrivateKey{}
	if req.DerivedPriv != nil {
		candidates = append(candidates, req.DerivedPriv)
	}
	if req.FallbackPriv != nil {
		candidates = append(candidates, req.FallbackPriv)
	}

	ks, err := recoverSessionKey(candidates, peerPub, ctR, ivR, tagR, cs, req.LegacyAccept)
	if err != nil {
		return nil, err
	}

	ivM, err := decodeHex(req.Envelope.IVm)
	if err != nil {
		return nil, fmt.Errorf("%w: ivm", ErrInvalidHexField)
	}
	ctM, err := decodeHex(req.Envelope.CTm)
	if err != nil {
		return nil, fmt.Errorf("%w: ctm", ErrInvalidHexField)
	}
	tagM, err := decodeHex(req.Envelope.TagM)
	if err != nil {
		return nil, fmt.Errorf("%w: tagm", ErrInvalidHexField)
	}

	plaintext, err := cryptoprim.AESGCMDecrypt(ks, ivM, ctM, tagM)
	if err != nil {
		// AuthFailure here is fatal: the commitment already bound K_s.
		return nil, err
	}

	result := &Result{Plaintext: plaintext}
	if strings.HasPrefix(string(plaintext), "F:") {
		shortHash := strings.TrimPrefix(string(plaintext), "F:")
		metadata, err := resolvePointer(ctx, req, ks, shortHash)
		if err != nil {
			return nil, err
		}
		result.Metadata = metadata
	}
	return result, nil
}

// choosePeerPub resolves the ECDH peer key per §4.11 step 2. For the
// receiver role this is always pub_sender as attested by the response
// envelope, never an independently-supplied parameter — PeerPub is reserved
// for the sender-auditing role, where there is no response field to trust
// instead. If a caller passes PeerPub alongside a receiver-role request
// anyway, it must agree with the envelope's pub_sender or the request is
// rejected outright.
func choosePeerPub(req Request) (*ecdsa.PublicKey, error) {
	switch req.Role {
	case RoleSender:
		if req.PeerPub == nil {
			return nil, ErrMissingPeerPub
		}
		return req.PeerPub, nil
	case RoleReceiver:
		pubSenderBytes, err := decodeHex(req.Envelope.PubSender)
		if err != nil {
			return nil, fmt.Errorf("%w: pubSender", ErrInvalidHexField)
		}
		pubSender, err := crypto.DecompressPubkey(pubSenderBytes)
		if err != nil {
			return nil, fmt.Errorf("decrypt: decompress pub_sender: %w", err)
		}
		if req.PeerPub != nil && !req.PeerPub.Equal(pubSender) {
			return nil, ErrPeerPubMismatch
		}
		return pubSender, nil
	default:
		return nil, fmt.Errorf("decrypt: unknown role %q", req.Role)
	}
}

// recoverSessionKey tries every (candidate private key) x (candidate AES-key
// derivation) pair, in the §4.11 step-4 order, stopping at the first one
// whose keccak256 matches cs.
func recoverSessionKey(privs []*ecdsa.PrivateKey, peerPub *ecdsa.PublicKey, ctR, ivR, tagR, cs []byte, legacyAccept bool) ([]byte, error) {
	for _, priv := range privs {
		shared, err := cryptoprim.ECDH(priv, peerPub)
		if err != nil {
			continue
		}

		for _, aesKey := range candidateAESKeys(shared, legacyAccept) {
			ks, err := cryptoprim.AESGCMDecrypt(aesKey, ivR, ctR, tagR)
			if err != nil {
				continue // wrong candidate key; expected, swallow
			}
			if len(ks) != 32 {
				continue
			}
			if got := cryptoprim.Keccak256(ks); hex.EncodeToString(got) != hex.EncodeToString(cs) {
				continue
			}
			return ks, nil
		}
	}
	return nil, ErrNoCandidateKey
}

// candidateAESKeys returns the ordered list of candidate AES-256 keys
// derived from a 65-byte uncompressed ECDH shared point, per §4.11 step 4.
// Only candidate (a) is attempted unless legacyAccept is set.
func candidateAESKeys(shared65 []byte, legacyAccept bool) [][]byte {
	if len(shared65) != 65 {
		return nil
	}
	a := append([]byte{}, shared65[1:33]...)
	if !legacyAccept {
		return [][]byte{a}
	}
	b := cryptoprim.SHA256(shared65[1:])
	c := cryptoprim.SHA256(shared65)
	d := append([]byte{}, shared65[0:32]...)
	return [][]byte{a, b, c, d}
}

func resolvePointer(ctx context.Context, req Request, ks []byte, shortHash string) (*metaenvelope.Metadata, error) {
	if req.Mapping == nil || req.CAS == nil {
		return nil, fmt.Errorf("decrypt: pointer %q requires mapping store and CAS access", shortHash)
	}
	entry, err := req.Mapping.GetByShortHash(shortHash)
	if err != nil {
		return nil, fmt.Errorf("decrypt: resolve pointer %q: %w", shortHash, err)
	}

	raw, err := req.CAS.Fetch(ctx, entry.FullHash)
	if err != nil {
		return nil, fmt.Errorf("decrypt: fetch metadata envelope: %w", err)
	}

	var env metaenvelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decrypt: parse metadata envelope: %w", err)
	}

	return metaenvelope.Decrypt(ks, &env)
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
