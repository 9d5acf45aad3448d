package ledger_test

// Integration test: deploys SealedMessageLedger on an in-process simulated
// EVM, then exercises registerEncryptionKey, sendMessage, payToUnlock,
// revokeMessage, and getMessage through the generated contract binding.
//
// No external process (Anvil, geth) is required — the go-ethereum simulated
// backend runs entirely in memory.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"

	"github.com/sealedmessage/core/internal/ledger"
)

var (
	senderKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	receiverKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	// The go-ethereum simulated backend always uses chainID 1337.
	simChainID = big.NewInt(1337)
)

// loadBytecode reads the Foundry-compiled JSON and returns the deploy bytecode.
func loadBytecode(t *testing.T) []byte {
	t.Helper()
	_, thisFile, _, _ := runtime.Caller(0)
	artifactPath := filepath.Join(filepath.Dir(thisFile),
		"..", "..", "contracts", "out", "SealedMessageLedger.sol", "SealedMessageLedger.json")
	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var artifact struct {
		Bytecode struct {
			Object string `json:"object"`
		} `json:"bytecode"`
	}
	if err := json.Unmarshal(raw, &artifact); err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	hexStr := strings.TrimPrefix(artifact.Bytecode.Object, "0x")
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		t.Fatalf("decode bytecode: %v", err)
	}
	return b
}

// deployFixture deploys SealedMessageLedger on a fresh simulated chain and
// returns the low-level binding, the backend, sender/receiver addresses and
// their signers.
func deployFixture(t *testing.T) (
	contract *ledger.SealedMessageLedger,
	backend *simulated.Backend,
	contractAddr common.Address,
	senderAddr common.Address,
	receiverAddr common.Address,
	senderAuth *bind.TransactOpts,
	receiverAuth *bind.TransactOpts,
) {
	t.Helper()

	senderKey, err := crypto.HexToECDSA(senderKeyHex)
	if err != nil {
		t.Fatalf("parse sender key: %v", err)
	}
	receiverKey, err := crypto.HexToECDSA(receiverKeyHex)
	if err != nil {
		t.Fatalf("parse receiver key: %v", err)
	}

	senderAddr = crypto.PubkeyToAddress(senderKey.PublicKey)
	receiverAddr = crypto.PubkeyToAddress(receiverKey.PublicKey)

	balance, _ := new(big.Int).SetString("1000000000000000000000", 10)
	alloc := types.GenesisAlloc{
		senderAddr:   {Balance: balance},
		receiverAddr: {Balance: balance},
	}
	backend = simulated.NewBackend(alloc, simulated.WithBlockGasLimit(30_000_000))
	client := backend.Client()

	senderAuth, err = bind.NewKeyedTransactorWithChainID(senderKey, simChainID)
	if err != nil {
		t.Fatalf("sender transactor: %v", err)
	}
	receiverAuth, err = bind.NewKeyedTransactorWithChainID(receiverKey, simChainID)
	if err != nil {
		t.Fatalf("receiver transactor: %v", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(ledger.SealedMessageLedgerMetaData.ABI))
	if err != nil {
		t.Fatalf("parse ABI: %v", err)
	}
	bytecode := loadBytecode(t)
	senderAuth.GasLimit = 5_000_000 // skip EstimateGas on the simulated backend
	contractAddr, _, _, err = bind.DeployContract(senderAuth, parsedABI, bytecode, client)
	if err != nil {
		t.Fatalf("deploy SealedMessageLedger: %v", err)
	}
	senderAuth.GasLimit = 0
	backend.Commit()

	contract, err = ledger.NewSealedMessageLedger(contractAddr, client)
	if err != nil {
		t.Fatalf("bind contract: %v", err)
	}

	return contract, backend, contractAddr, senderAddr, receiverAddr, senderAuth, receiverAuth
}

func mustRegisterKey(t *testing.T, contract *ledger.SealedMessageLedger, backend *simulated.Backend, auth *bind.TransactOpts, priv string) {
	t.Helper()
	key, err := crypto.HexToECDSA(priv)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	pub := crypto.CompressPubkey(&key.PublicKey)
	if _, err := contract.RegisterEncryptionKey(auth, pub); err != nil {
		t.Fatalf("registerEncryptionKey: %v", err)
	}
	backend.Commit()
}

func zero32() [32]byte { return [32]byte{} }
func zero12() [12]byte { return [12]byte{} }
func zero16() [16]byte { return [16]byte{} }

// TestRegisterAndGetEncryptionKey verifies a registered key round-trips.
func TestRegisterAndGetEncryptionKey(t *testing.T) {
	contract, backend, _, senderAddr, _, senderAuth, _ := deployFixture(t)
	mustRegisterKey(t, contract, backend, senderAuth, senderKeyHex)

	opts := &bind.CallOpts{Context: context.Background()}
	pub, err := contract.GetEncryptionKey(opts, senderAddr)
	if err != nil {
		t.Fatalf("GetEncryptionKey: %v", err)
	}
	if len(pub) != 33 {
		t.Errorf("pubkey length: got %d want 33", len(pub))
	}
}

// TestSendMessage_TimeOnly sends a time-gated message and verifies
// getMessage reflects the stored fields, then that ledger.IsUnlocked over
// those fields is false before the unlock time and true at it.
func TestSendMessage_TimeOnly(t *testing.T) {
	contract, backend, _, senderAddr, receiverAddr, senderAuth, _ := deployFixture(t)
	ctx := context.Background()

	unlockTime := big.NewInt(1_700_000_100)
	tx, err := contract.SendMessage(senderAuth, receiverAddr, "stub://blob", zero12(), zero16(),
		zero32(), zero32(), zero32(), zero12(), zero16(), zero32(), zero32(),
		1, unlockTime, big.NewInt(0), ledger.MaskTime)
	if err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	backend.Commit()

	receipt, err := backend.Client().TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.Status != 1 {
		t.Fatalf("sendMessage tx reverted")
	}

	opts := &bind.CallOpts{Context: ctx}
	msg, err := contract.GetMessage(opts, big.NewInt(0))
	if err != nil {
		t.Fatalf("getMessage: %v", err)
	}
	if msg.Sender != senderAddr || msg.Receiver != receiverAddr {
		t.Fatalf("sender/receiver mismatch: got %s/%s", msg.Sender, msg.Receiver)
	}
	if msg.ConditionMask != ledger.MaskTime {
		t.Errorf("conditionMask: got %d want %d", msg.ConditionMask, ledger.MaskTime)
	}

	if ledger.IsUnlocked(msg.ConditionMask, unlockTime.Int64()-1, unlockTime.Int64(), msg.PaidAmount, msg.RequiredPayment) {
		t.Error("message unlocked before unlockTime")
	}
	if !ledger.IsUnlocked(msg.ConditionMask, unlockTime.Int64(), unlockTime.Int64(), msg.PaidAmount, msg.RequiredPayment) {
		t.Error("message still locked at unlockTime")
	}
}

// TestPayToUnlock_AdvancesPaidAmount verifies payToUnlock accumulates value
// toward requiredPayment and that the view mirrors paidAmount.
func TestPayToUnlock_AdvancesPaidAmount(t *testing.T) {
	contract, backend, _, senderAddr, receiverAddr, senderAuth, receiverAuth := deployFixture(t)
	ctx := context.Background()

	required := big.NewInt(1_000_000)
	_, err := contract.SendMessage(senderAuth, receiverAddr, "stub://blob", zero12(), zero16(),
		zero32(), zero32(), zero32(), zero12(), zero16(), zero32(), zero32(),
		1, big.NewInt(0), required, ledger.MaskPayment)
	if err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	backend.Commit()
	_ = senderAddr

	receiverAuth.Value = required
	tx, err := contract.PayToUnlock(receiverAuth, big.NewInt(0))
	if err != nil {
		t.Fatalf("payToUnlock: %v", err)
	}
	backend.Commit()
	receiverAuth.Value = big.NewInt(0)

	receipt, err := backend.Client().TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.Status != 1 {
		t.Fatalf("payToUnlock tx reverted")
	}

	opts := &bind.CallOpts{Context: ctx}
	view, err := contract.GetMessageFinancialView(opts, big.NewInt(0))
	if err != nil {
		t.Fatalf("getMessageFinancialView: %v", err)
	}
	if view.PaidAmount.Cmp(required) != 0 {
		t.Errorf("paidAmount: got %s want %s", view.PaidAmount, required)
	}
	if !view.IsUnlocked {
		t.Error("expected message unlocked after full payment")
	}
}

// TestRevokeMessage_SetsRevokedFlag verifies revocation by the sender is
// reflected in a subsequent getMessage.
func TestRevokeMessage_SetsRevokedFlag(t *testing.T) {
	contract, backend, _, _, receiverAddr, senderAuth, _ := deployFixture(t)
	ctx := context.Background()

	_, err := contract.SendMessage(senderAuth, receiverAddr, "stub://blob", zero12(), zero16(),
		zero32(), zero32(), zero32(), zero12(), zero16(), zero32(), zero32(),
		1, big.NewInt(0), big.NewInt(0), 0)
	if err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	backend.Commit()

	tx, err := contract.RevokeMessage(senderAuth, big.NewInt(0))
	if err != nil {
		t.Fatalf("revokeMessage: %v", err)
	}
	backend.Commit()

	receipt, err := backend.Client().TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.Status != 1 {
		t.Fatalf("revokeMessage tx reverted")
	}

	opts := &bind.CallOpts{Context: ctx}
	msg, err := contract.GetMessage(opts, big.NewInt(0))
	if err != nil {
		t.Fatalf("getMessage after revoke: %v", err)
	}
	if !msg.Revoked {
		t.Error("expected revoked=true after revokeMessage")
	}
}
