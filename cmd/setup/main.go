// cmd/setup registers a wallet's secp256k1 encryption public key on the
// SealedMessageLedger contract (registerEncryptionKey), so senders can look
// it up via getEncryptionKey without the receiver needing to be online.
//
// Usage:
//
//	SEALEDMESSAGE_PRIVATE_KEY=0x<key> \
//	go run ./cmd/setup/ \
//	  --rpc      <url> \
//	  --chain-id 16602 \
//	  --contract 0x<ledger-proxy-address>
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/sealedmessage/core/internal/ledger"
)

func main() {
	rpc := flag.String("rpc", "", "RPC endpoint")
	chainID := flag.Int64("chain-id", 16602, "Chain ID")
	contractHex := flag.String("contract", "", "SealedMessageLedger proxy address")
	flag.Parse()

	if *rpc == "" || *contractHex == "" {
		fmt.Fprintln(os.Stderr, "error: --rpc and --contract are required")
		os.Exit(1)
	}

	keyHex := strings.TrimPrefix(os.Getenv("SEALEDMESSAGE_PRIVATE_KEY"), "0x")
	if keyHex == "" {
		fatalf("SEALEDMESSAGE_PRIVATE_KEY not set")
	}

	privKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		fatalf("parse private key: %v", err)
	}
	addr := crypto.PubkeyToAddress(privKey.PublicKey)
	pub := crypto.CompressPubkey(&privKey.PublicKey)
	fmt.Printf("account:  %s\n", addr.Hex())
	fmt.Printf("pubkey:   0x%x\n", pub)
	fmt.Printf("contract: %s\n", *contractHex)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eth, err := ethclient.DialContext(ctx, *rpc)
	if err != nil {
		fatalf("dial rpc: %v", err)
	}
	defer eth.Close()

	contract, err := ledger.NewSealedMessageLedger(common.HexToAddress(*contractHex), eth)
	if err != nil {
		fatalf("bind contract: %v", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privKey, big.NewInt(*chainID))
	if err != nil {
		fatalf("build transactor: %v", err)
	}
	auth.Context = ctx

	fmt.Println("\n[1/1] registerEncryptionKey...")
	tx, err := contract.RegisterEncryptionKey(auth, pub)
	if err != nil {
		fatalf("registerEncryptionKey: %v", err)
	}
	fmt.Printf("      tx: %s\n", tx.Hash().Hex())
	if _, err := bind.WaitMined(ctx, eth, tx); err != nil {
		fatalf("wait mined (registerEncryptionKey): %v", err)
	}
	fmt.Println("      confirmed")

	registered, err := contract.GetEncryptionKey(&bind.CallOpts{Context: ctx}, addr)
	if err != nil {
		fatalf("GetEncryptionKey: %v", err)
	}
	fmt.Printf("\nSetup complete. On-chain key: 0x%x\n", registered)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
