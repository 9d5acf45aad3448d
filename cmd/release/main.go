// cmd/release is the release-service entrypoint: it wires configuration,
// the envelope and mapping stores, the chain ledger adapter, a CAS client,
// and the escrow API onto a gin engine, following the teacher's
// config → clients → handlers → graceful-shutdown wiring order.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sealedmessage/core/internal/cas"
	"github.com/sealedmessage/core/internal/config"
	"github.com/sealedmessage/core/internal/envelopestore"
	"github.com/sealedmessage/core/internal/escrow"
	"github.com/sealedmessage/core/internal/ledger"
	"github.com/sealedmessage/core/internal/mappingstore"
	"github.com/sealedmessage/core/internal/release"
	"github.com/sealedmessage/core/internal/tee"
	"github.com/sealedmessage/core/internal/walletauth"
)

const (
	envelopeStorePath = "data/envelopes.json"
	mappingStorePath  = "data/mapping.json"
	ledgerCacheTTL    = 5 * time.Second
	casGatewayTimeout = 15 * time.Second
)

// requestIDMiddleware stamps every response with an X-Request-Id, generating
// one when the caller didn't send one, so escrow/release log lines can be
// correlated across the CAS fetch and ledger read they trigger.
func requestIDMiddleware(c *gin.Context) {
	id := c.GetHeader("X-Request-Id")
	if id == "" {
		id = uuid.New().String()
	}
	c.Writer.Header().Set("X-Request-Id", id)
	c.Set("request_id", id)
	c.Next()
}

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Redis (wallet-auth nonce dedup + ledger read-through cache) ─────────────
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping failed", zap.Error(err))
	}

	// ── Envelope and mapping stores ──────────────────────────────────────────────
	envelopes, err := envelopestore.Open(envelopeStorePath)
	if err != nil {
		log.Fatal("envelope store open failed", zap.Error(err))
	}
	mapping, err := mappingstore.Open(mappingStorePath)
	if err != nil {
		log.Fatal("mapping store open failed", zap.Error(err))
	}

	// ── Chain ledger adapter (cached read-through) ───────────────────────────────
	endpoint, ok := cfg.Chain.Networks[cfg.Chain.ActiveNetwork]
	if !ok || endpoint.RPCURL == "" {
		log.Fatal("no rpc_url configured for active network", zap.String("network", cfg.Chain.ActiveNetwork))
	}
	baseAdapter, err := ledger.Dial(ctx, endpoint.RPCURL, common.HexToAddress(cfg.Chain.ContractAddress), big.NewInt(cfg.Chain.ChainID))
	if err != nil {
		log.Fatal("ledger dial failed", zap.Error(err))
	}
	cached := ledger.NewCachedAdapter(baseAdapter, rdb, ledgerCacheTTL)

	// ── CAS client ────────────────────────────────────────────────────────────
	casClient := cas.New(cfg.CAS.Gateways, cfg.CAS.PinningToken, casGatewayTimeout)

	// ── Escrow key material (TEE-fetched, never read from config/env directly) ──
	escrowKey, err := tee.Get(ctx)
	if err != nil {
		log.Fatal("escrow key material fetch failed", zap.Error(err))
	}
	if escrowKey.Version != cfg.Escrow.Version {
		log.Fatal("escrow key version mismatch",
			zap.Uint32("tee_version", escrowKey.Version),
			zap.Uint32("config_version", cfg.Escrow.Version))
	}

	// ── Release service + escrow handlers ────────────────────────────────────────
	svc := &release.Service{
		Ledger:    cached,
		Envelopes: envelopes,
		CAS:       casClient,
	}
	handlers := &release.Handlers{
		Service:   svc,
		Envelopes: envelopes,
		Mapping:   mapping,
		EscrowParts: escrow.KeyParts{
			A: escrowKey.PartA,
			B: escrowKey.PartB,
		},
		EscrowVersion: escrowKey.Version,
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Every /api route requires a verified wallet signature, mirroring how
	// escrow writes must be attributable and release requests carry a
	// viewer the algorithm itself re-checks against the ledger.
	api := r.Group("/api", walletauth.Middleware(rdb))
	handlers.Register(api)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
}
