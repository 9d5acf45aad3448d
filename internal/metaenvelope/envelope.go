package metaenvelope

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sealedmessage/core/internal/cryptoprim"
)

// Envelope is the encrypted-metadata envelope persisted to CAS, per §4.6
// step 3.
type Envelope struct {
	Version     int    `json:"version"`
	Type        string `json:"type"`
	ShortHash   string `json:"shortHash"`
	Encoding    string `json:"encoding"`
	Ciphertext  string `json:"ciphertext"`
	IV          string `json:"iv"`
	AuthTag     string `json:"authTag"`
	Length      int    `json:"length"`
	Keccak      string `json:"keccak"`
	CreatedAt   int64  `json:"createdAt"`
	PayloadType string `json:"payloadType"`
}

// CASUploader publishes raw bytes to content-addressed storage and returns
// its locator (CID).
type CASUploader interface {
	Upload(ctx context.Context, data []byte) (cid string, err error)
}

// Result is everything the caller needs to persist a mapping row after a
// successful Seal.
type Result struct {
	Envelope       *Envelope
	ShortHash      string
	FullHash       string // CAS CID of the encrypted envelope
	PublicHash     string // CAS CID of the public summary, if uploaded
	MetadataKeccak []byte
}

// Seal serializes m to compact JSON, encrypts it under ks, uploads the
// resulting envelope to CAS, and optionally uploads a public summary. The
// short hash is drawn fresh via NewShortHash unless m already carries one
// (the short-circuit inline case shares the hash minted for its pointer).
func Seal(ctx context.Context, ks []byte, m Metadata, uploader CASUploader, exists Exists, publicSummary []byte) (*Result, error) {
	shortHash := m.ShortHash
	if shortHash == "" {
		sh, err := NewShortHash(exists)
		if err != nil {
			return nil, err
		}
		shortHash = sh
		m.ShortHash = sh
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	metadataKeccak := cryptoprim.Keccak256(payload)

	iv, err := cryptoprim.RandomBytes(12)
	if err != nil {
		return nil, err
	}
	ct, tag, err := cryptoprim.AESGCMEncrypt(ks, iv, payload)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		Version:     1,
		Type:        m.Type,
		ShortHash:   shortHash,
		Encoding:    "aes-256-gcm",
		Ciphertext:  hex.EncodeToString(ct),
		IV:          hex.EncodeToString(iv),
		AuthTag:     hex.EncodeToString(tag),
		Length:      len(payload),
		Keccak:      hex.EncodeToString(metadataKeccak),
		CreatedAt:   time.Now().Unix(),
		PayloadType: m.Type,
	}

	envJSON, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	fullHash, err := uploader.Upload(ctx, envJSON)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Envelope:       env,
		ShortHash:      shortHash,
		FullHash:       fullHash,
		MetadataKeccak: metadataKeccak,
	}

	if publicSummary != nil {
		publicHash, err := uploader.Upload(ctx, publicSummary)
		if err != nil {
			return nil, err
		}
		result.PublicHash = publicHash
	}

	return result, nil
}

// Decrypt recovers the original Metadata from an Envelope under ks,
// verifying the recorded keccak commitment (I4).
func Decrypt(ks []byte, env *Envelope) (*Metadata, error) {
	ct, err := hex.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, cryptoprim.ErrInvalidArgument
	}
	iv, err := hex.DecodeString(env.IV)
	if err != nil {
		return nil, cryptoprim.ErrInvalidArgument
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil {
		return nil, cryptoprim.ErrInvalidArgument
	}

	payload, err := cryptoprim.AESGCMDecrypt(ks, iv, ct, tag)
	if err != nil {
		return nil, err
	}

	wantKeccak, err := hex.DecodeString(env.Keccak)
	if err != nil {
		return nil, cryptoprim.ErrInvalidArgument
	}
	if got := cryptoprim.Keccak256(payload); string(got) != string(wantKeccak) {
		return nil, cryptoprim.ErrCommitmentMismatch
	}

	var m Metadata
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
