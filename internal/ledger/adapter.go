// Package ledger adapts the SealedMessageLedger contract binding to the
// read-only operations the release pipeline needs (C9), plus an optional
// Redis read-through cache fronting GetMessage.
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNotFound is returned when a messageId has no ledger record.
var ErrNotFound = errors.New("ledger: message not found")

// ErrUnauthorized is returned when the caller is neither the sender nor the
// receiver of a message.
var ErrUnauthorized = errors.New("ledger: unauthorized")

// Condition mask bits.
const (
	MaskTime    uint8 = 1
	MaskPayment uint8 = 2
)

// Message mirrors the §3 ledger record, decoded from the binding's raw
// fixed-size byte arrays into hex strings for ease of comparison downstream.
type Message struct {
	Sender          string
	Receiver        string
	URI             string
	IV              string
	Tag             string
	HCt             string
	MetadataKeccak  string
	CtE             string
	IvE             string
	TagE            string
	EscrowVersion   uint32
	CS              string
	HR              string
	CreatedAt       int64
	UnlockTime      int64
	RequiredPayment *big.Int
	PaidAmount      *big.Int
	ConditionMask   uint8
	Revoked         bool
}

// FinancialView mirrors getMessageFinancialView.
type FinancialView struct {
	UnlockTime      int64
	RequiredPayment *big.Int
	PaidAmount      *big.Int
	ConditionMask   uint8
	IsUnlocked      bool
}

// Adapter wraps a bound SealedMessageLedger contract for read-only access.
type Adapter struct {
	eth      *ethclient.Client
	contract *SealedMessageLedger
	addr     common.Address
	chainID  *big.Int
}

// Dial connects to rpcURL and binds to the ledger contract at addr.
func Dial(ctx context.Context, rpcURL string, addr common.Address, chainID *big.Int) (*Adapter, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial rpc: %w", err)
	}
	contract, err := NewSealedMessageLedger(addr, eth)
	if err != nil {
		return nil, fmt.Errorf("ledger: bind contract: %w", err)
	}
	return &Adapter{eth: eth, contract: contract, addr: addr, chainID: chainID}, nil
}

func hexOf(b [32]byte) string  { return "0x" + hex.EncodeToString(b[:]) }
func hex12Of(b [12]byte) string { return "0x" + hex.EncodeToString(b[:]) }
func hex16Of(b [16]byte) string { return "0x" + hex.EncodeToString(b[:]) }

// GetMessage fetches a message by id, enforcing that viewer is the sender or
// the receiver.
func (a *Adapter) GetMessage(ctx context.Context, messageID *big.Int, viewer string) (*Message, error) {
	fields, err := a.contract.GetMessage(&bind.CallOpts{Context: ctx}, messageID)
	if err != nil {
		return nil, ErrNotFound
	}
	if fields.Sender == (common.Address{}) && fields.Receiver == (common.Address{}) {
		return nil, ErrNotFound
	}

	viewerLower := strings.ToLower(viewer)
	if viewerLower != strings.ToLower(fields.Sender.Hex()) && viewerLower != strings.ToLower(fields.Receiver.Hex()) {
		return nil, ErrUnauthorized
	}

	return &Message{
		Sender:          fields.Sender.Hex(),
		Receiver:        fields.Receiver.Hex(),
		URI:             fields.Uri,
		IV:              hex12Of(fields.Iv),
		Tag:             hex16Of(fields.Tag),
		HCt:             hexOf(fields.HCt),
		MetadataKeccak:  hexOf(fields.MetadataKeccak),
		CtE:             hexOf(fields.CtE),
		IvE:             hex12Of(fields.IvE),
		TagE:            hex16Of(fields.TagE),
		EscrowVersion:   fields.EscrowVersion,
		CS:              hexOf(fields.CS),
		HR:              hexOf(fields.HR),
		CreatedAt:       fields.CreatedAt.Int64(),
		UnlockTime:      fields.UnlockTime.Int64(),
		RequiredPayment: fields.RequiredPayment,
		PaidAmount:      fields.PaidAmount,
		ConditionMask:   fields.ConditionMask,
		Revoked:         fields.Revoked,
	}, nil
}

// GetFinancialView fetches the open financial view of a message.
func (a *Adapter) GetFinancialView(ctx context.Context, messageID *big.Int) (*FinancialView, error) {
	fv, err := a.contract.GetMessageFinancialView(&bind.CallOpts{Context: ctx}, messageID)
	if err != nil {
		return nil, ErrNotFound
	}
	return &FinancialView{
		UnlockTime:      fv.UnlockTime.Int64(),
		RequiredPayment: fv.RequiredPayment,
		PaidAmount:      fv.PaidAmount,
		ConditionMask:   fv.ConditionMask,
		IsUnlocked:      fv.IsUnlocked,
	}, nil
}

// GetEncryptionKey returns the registered public key for addr, or an empty
// slice if none is registered.
func (a *Adapter) GetEncryptionKey(ctx context.Context, addr common.Address) ([]byte, error) {
	return a.contract.GetEncryptionKey(&bind.CallOpts{Context: ctx}, addr)
}
