package config

import "testing"

func TestLoad_MissingRequiredFieldsRejected(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Fatal("expected Load to fail without any required env vars set")
	}
}

func TestLoad_SucceedsWithRequiredEnv(t *testing.T) {
	t.Setenv("FALLBACK_SEED", "test-seed")
	t.Setenv("CHAIN_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("CHAIN_ID", "16602")
	t.Setenv("CAS_GATEWAYS", "https://gw1.example,https://gw2.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Escrow.Version != 1 {
		t.Fatalf("expected default escrow key version 1, got %d", cfg.Escrow.Version)
	}
	if len(cfg.CAS.Gateways) != 2 {
		t.Fatalf("expected 2 gateways, got %d", len(cfg.CAS.Gateways))
	}
}
