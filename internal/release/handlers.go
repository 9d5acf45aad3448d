package release

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sealedmessage/core/internal/cryptoprim"
	"github.com/sealedmessage/core/internal/envelopestore"
	"github.com/sealedmessage/core/internal/escrow"
	"github.com/sealedmessage/core/internal/ledger"
	"github.com/sealedmessage/core/internal/mappingstore"
)

// EnvelopeStore is the full read/write envelope-store surface the HTTP
// handlers need (a superset of EnvelopeReader).
type EnvelopeStore interface {
	EnvelopeReader
	Save(r envelopestore.Record) error
}

// MappingStore is the mapping-store surface the HTTP handlers need.
type MappingStore interface {
	GetByShortHash(shortHash string) (mappingstore.Entry, error)
	GetByMetadataKeccak(keccak string) (mappingstore.Entry, error)
}

// Handlers wires Service plus the escrow-wrap/envelope/mapping endpoints
// onto a gin engine, mirroring the teacher's gin.H{"error": ...} idiom.
type Handlers struct {
	Service       *Service
	Envelopes     EnvelopeStore
	Mapping       MappingStore
	EscrowParts   escrow.KeyParts
	EscrowVersion uint32
}

// Register attaches all release-service routes to rg.
func (h *Handlers) Register(rg gin.IRouter) {
	rg.POST("/escrow/wrap", h.handleEscrowWrap)
	rg.POST("/escrow/envelope", h.handleEscrowEnvelopeSave)
	rg.GET("/escrow/envelope", h.handleEscrowEnvelopeGet)
	rg.POST("/release", h.handleRelease)
	rg.GET("/mapping/:shortHash", h.handleMappingByShortHash)
	rg.GET("/mapping/by-metadata/:keccak", h.handleMappingByMetadata)
}

type escrowWrapRequest struct {
	Ks string `json:"ks"` // hex session key
	Cs string `json:"cs"` // hex commitment
}

func (h *Handlers) handleEscrowWrap(c *gin.Context) {
	var req escrowWrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ks, err := hex.DecodeString(strings.TrimPrefix(req.Ks, "0x"))
	if err != nil || len(ks) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ks must be 32 bytes hex"})
		return
	}
	cs, err := hex.DecodeString(strings.TrimPrefix(req.Cs, "0x"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cs"})
		return
	}

	if h.EscrowParts.A == "" || h.EscrowParts.B == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing server-side key parts"})
		return
	}

	env, err := escrow.Seal(h.EscrowParts, ks, cs, h.EscrowVersion)
	if err != nil {
		if errors.Is(err, cryptoprim.ErrCommitmentMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "commitment mismatch"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing server-side key parts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "wrap": gin.H{
		"ciphertext": hex.EncodeToString(env.CT),
		"iv":         hex.EncodeToString(env.IV),
		"authTag":    hex.EncodeToString(env.Tag),
		"keyVersion": env.Version,
	}})
}

type escrowEnvelopeSaveRequest struct {
	CS                string `json:"cs"`
	HR                string `json:"hr"`
	HCT               string `json:"hct"`
	PubSender         string `json:"pubSender"`
	CT                string `json:"ct"`
	IV                string `json:"iv"`
	Tag               string `json:"tag"`
	MetadataShortHash string `json:"metadataShortHash"`
	MetadataKeccak    string `json:"metadataKeccak"`
}

func (h *Handlers) handleEscrowEnvelopeSave(c *gin.Context) {
	var req escrowEnvelopeSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ct, err1 := hex.DecodeString(strings.TrimPrefix(req.CT, "0x"))
	iv, err2 := hex.DecodeString(strings.TrimPrefix(req.IV, "0x"))
	tag, err3 := hex.DecodeString(strings.TrimPrefix(req.Tag, "0x"))
	pub, err4 := hex.DecodeString(strings.TrimPrefix(req.PubSender, "0x"))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil ||
		len(ct) != 32 || len(iv) != 12 || len(tag) != 16 || len(pub) != 33 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "envelope field length violation"})
		return
	}

	wantHR, err := hex.DecodeString(strings.TrimPrefix(req.HR, "0x"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hr"})
		return
	}
	gotHR := cryptoprim.Keccak256(ct, iv, tag, pub)
	if fmt.Sprintf("%x", gotHR) != fmt.Sprintf("%x", wantHR) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hr mismatch"})
		return
	}

	record := envelopestore.Record{
		CS:                req.CS,
		HR:                req.HR,
		HCT:               req.HCT,
		MetadataShortHash: req.MetadataShortHash,
		MetadataKeccak:    req.MetadataKeccak,
		PubSender:         req.PubSender,
		Envelope:          envelopestore.EnvelopeFields{CT: req.CT, IV: req.IV, Tag: req.Tag},
	}
	if err := h.Envelopes.Save(record); err != nil {
		if errors.Is(err, envelopestore.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "envelope field length violation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist envelope"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) handleEscrowEnvelopeGet(c *gin.Context) {
	commitment := c.Query("commitment")
	hr := c.Query("receiverEnvelopeHash")

	var record envelopestore.Record
	var err error
	if commitment != "" {
		record, err = h.Envelopes.GetByCommitment(commitment)
	}
	if (commitment == "" || err != nil) && hr != "" {
		record, err = h.Envelopes.FindByEnvelopeHash(hr)
	}
	if err != nil || (commitment == "" && hr == "") {
		c.JSON(http.StatusNotFound, gin.H{"error": "envelope not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": record})
}

type releaseRequest struct {
	MessageID      string `json:"messageId"`
	Viewer         string `json:"viewer"`
	URI            string `json:"uri"`
	IV             string `json:"iv"`
	AuthTag        string `json:"authTag"`
	CS             string `json:"C_s"`
	HR             string `json:"H_r"`
	CiphertextHash string `json:"ciphertextHash"`
}

func (h *Handlers) handleRelease(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	messageID, ok := new(big.Int).SetString(req.MessageID, 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid messageId"})
		return
	}

	resp, err := h.Service.Release(c.Request.Context(), Request{
		MessageID:      messageID,
		Viewer:         req.Viewer,
		URI:            req.URI,
		IV:             req.IV,
		AuthTag:        req.AuthTag,
		CS:             req.CS,
		HR:             req.HR,
		CiphertextHash: req.CiphertextHash,
	})
	if err != nil {
		writeReleaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "release": resp})
}

func writeReleaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidViewer):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRevoked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrLocked):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
	case errors.Is(err, cryptoprim.ErrCommitmentMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrEnvelopeMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrShortCiphertext):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handlers) handleMappingByShortHash(c *gin.Context) {
	shortHash := c.Param("shortHash")
	entry, err := h.Mapping.GetByShortHash(shortHash)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mapping": entry})
}

func (h *Handlers) handleMappingByMetadata(c *gin.Context) {
	keccak := c.Param("keccak")
	entry, err := h.Mapping.GetByMetadataKeccak(keccak)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mapping": entry})
}
