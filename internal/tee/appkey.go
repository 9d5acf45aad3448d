// Package tee retrieves the escrow key parts that can unseal any session
// key in the system.
//
// In a real TDX environment the parts are fetched via gRPC from the local
// tapp-daemon (tapp_service.TappService/GetAppSecretKey), the same daemon
// call the teacher uses to fetch its TEE signing key. Outside TDX the
// MOCK_TEE env var opts into reading the parts from plain environment
// variables instead — this is a development/CI path, never the production
// default.
package tee

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// EscrowKeyMaterial holds the two hex-encoded escrow key halves and the
// escrow version they were minted under.
type EscrowKeyMaterial struct {
	PartA   string
	PartB   string
	Version uint32
}

// cached result — a mutex-guarded fetch-once that keeps only a success.
var (
	mu        sync.Mutex
	cachedKey *EscrowKeyMaterial
)

// Get returns the escrow key material.
//
// Decision tree (same as the teacher's tee.Get):
//  1. MOCK_TEE env var set → read ESCROW_KEY_PART_A/B/VERSION directly
//     (panic-free error if absent)
//  2. Otherwise → two gRPC calls to the tapp-daemon at
//     BACKEND_TAPP_IP:BACKEND_TAPP_PORT, one per key half
//
// Result is cached after the first successful call; errors are NOT cached
// so the caller can retry after a transient failure.
func Get(ctx context.Context) (*EscrowKeyMaterial, error) {
	mu.Lock()
	defer mu.Unlock()
	if cachedKey != nil {
		return cachedKey, nil
	}
	key, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	cachedKey = key
	return key, nil
}

func fetch(ctx context.Context) (*EscrowKeyMaterial, error) {
	if os.Getenv("MOCK_TEE") != "" {
		return fetchMock()
	}
	return fetchGRPC(ctx)
}

// fetchMock returns the key parts from environment variables (development / CI).
func fetchMock() (*EscrowKeyMaterial, error) {
	partA := os.Getenv("ESCROW_KEY_PART_A")
	partB := os.Getenv("ESCROW_KEY_PART_B")
	if partA == "" || partB == "" {
		return nil, fmt.Errorf("tee: MOCK_TEE is set but ESCROW_KEY_PART_A/B is empty")
	}
	version := uint32(1)
	if raw := os.Getenv("ESCROW_KEY_VERSION"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("tee: invalid ESCROW_KEY_VERSION: %w", err)
		}
		version = uint32(n)
	}
	return &EscrowKeyMaterial{PartA: partA, PartB: partB, Version: version}, nil
}

// fetchGRPC calls the tapp-daemon twice, once per key half, to retrieve the
// escrow key parts.
//
// Required env vars:
//
//	BACKEND_TAPP_IP    host of the tapp-daemon  (default: 127.0.0.1)
//	BACKEND_TAPP_PORT  port of the tapp-daemon  (default: 8080)
//	BACKEND_APP_NAME   application identifier
func fetchGRPC(ctx context.Context) (*EscrowKeyMaterial, error) {
	host := envOrDefault("BACKEND_TAPP_IP", "127.0.0.1")
	port := envOrDefault("BACKEND_TAPP_PORT", "8080")
	appID := os.Getenv("BACKEND_APP_NAME")
	target := host + ":" + port

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("tee: grpc dial %s: %w", target, err)
	}
	defer conn.Close()

	partA, err := getAppSecretKey(ctx, conn, appID, "escrow-part-a")
	if err != nil {
		return nil, fmt.Errorf("tee: fetch escrow part A: %w", err)
	}
	partB, err := getAppSecretKey(ctx, conn, appID, "escrow-part-b")
	if err != nil {
		return nil, fmt.Errorf("tee: fetch escrow part B: %w", err)
	}
	version := envOrDefault("ESCROW_KEY_VERSION", "1")
	n, err := strconv.ParseUint(version, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("tee: invalid ESCROW_KEY_VERSION: %w", err)
	}

	return &EscrowKeyMaterial{PartA: partA, PartB: partB, Version: uint32(n)}, nil
}

// getAppSecretKey invokes tapp_service.TappService/GetAppSecretKey. The
// tapp-daemon's .proto isn't part of this tree (there's no generated stub to
// adapt), so the request/response are carried as structpb.Struct — a real
// generated protobuf message already shipped by google.golang.org/protobuf —
// instead of hand-authoring protoc-gen-go's reflection plumbing from memory.
func getAppSecretKey(ctx context.Context, conn *grpc.ClientConn, appID, keyType string) (string, error) {
	req, err := structpb.NewStruct(map[string]any{
		"app_id":   appID,
		"key_type": keyType,
		"x25519":   true,
	})
	if err != nil {
		return "", err
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, "/tapp_service.TappService/GetAppSecretKey", req, resp); err != nil {
		return "", fmt.Errorf("GetAppSecretKey: %w", err)
	}

	fields := resp.GetFields()
	if success := fields["success"]; success == nil || !success.GetBoolValue() {
		msg := fields["message"].GetStringValue()
		return "", fmt.Errorf("GetAppSecretKey failed: %s", msg)
	}
	keyHex := fields["private_key_hex"].GetStringValue()
	if keyHex == "" {
		return "", fmt.Errorf("GetAppSecretKey returned empty private_key_hex")
	}
	return keyHex, nil
}

func envOrDefault(key, dflt string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return dflt
}
