// cmd/recover is the out-of-band dispute/recovery tool: given a message's
// escrow envelope (ct_e, iv_e, tag_e) and the operator's two escrow key
// parts, it recovers the session key K_s directly, bypassing the normal
// receiver-envelope path entirely. This is reserved for disputes triggered
// by mark_released flows and is never reachable from the release HTTP API.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sealedmessage/core/internal/escrow"
)

func main() {
	partA := flag.String("key-part-a", os.Getenv("ESCROW_KEY_PART_A"), "escrow key part A (hex)")
	partB := flag.String("key-part-b", os.Getenv("ESCROW_KEY_PART_B"), "escrow key part B (hex)")
	ctHex := flag.String("ct", "", "escrow ciphertext (hex)")
	ivHex := flag.String("iv", "", "escrow IV (hex, 12 bytes)")
	tagHex := flag.String("tag", "", "escrow auth tag (hex, 16 bytes)")
	flag.Parse()

	if *partA == "" || *partB == "" {
		fatalf("escrow key parts are required (--key-part-a/--key-part-b or ESCROW_KEY_PART_A/B)")
	}
	if *ctHex == "" || *ivHex == "" || *tagHex == "" {
		fatalf("--ct, --iv, and --tag are required")
	}

	ct, err := hex.DecodeString(strings.TrimPrefix(*ctHex, "0x"))
	if err != nil {
		fatalf("decode --ct: %v", err)
	}
	iv, err := hex.DecodeString(strings.TrimPrefix(*ivHex, "0x"))
	if err != nil {
		fatalf("decode --iv: %v", err)
	}
	tag, err := hex.DecodeString(strings.TrimPrefix(*tagHex, "0x"))
	if err != nil {
		fatalf("decode --tag: %v", err)
	}

	env := &escrow.Envelope{CT: ct, IV: iv, Tag: tag}
	ks, err := escrow.Unseal(escrow.KeyParts{A: *partA, B: *partB}, env)
	if err != nil {
		fatalf("unseal: %v", err)
	}

	fmt.Printf("K_s: 0x%x\n", ks)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "recover: "+format+"\n", args...)
	os.Exit(1)
}
