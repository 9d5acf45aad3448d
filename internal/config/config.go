// Package config loads SealedMessage's configuration via viper, layering
// defaults, an optional config file, and explicit environment bindings —
// the same Load/validate split the teacher uses.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Escrow   EscrowConfig
	Fallback FallbackConfig
	Chain    ChainConfig
	CAS      CASConfig
	Redis    RedisConfig
	Server   ServerConfig
}

// EscrowConfig carries only the escrow version, not the key parts
// themselves — those are secrets fetched at startup via internal/tee, never
// bound from config/env here.
type EscrowConfig struct {
	Version uint32 `mapstructure:"key_version"`
}

type FallbackConfig struct {
	Seed string `mapstructure:"seed"`
}

// ChainEndpoint is an explicit/public RPC URL pair for one named chain.
type ChainEndpoint struct {
	RPCURL       string `mapstructure:"rpc_url"`
	PublicRPCURL string `mapstructure:"public_rpc_url"`
}

type ChainConfig struct {
	Networks        map[string]ChainEndpoint `mapstructure:"networks"`
	ContractAddress string                   `mapstructure:"contract_address"`
	ChainID         int64                    `mapstructure:"chain_id"`
	ActiveNetwork   string                   `mapstructure:"active_network"`
}

type CASConfig struct {
	Gateways     []string `mapstructure:"gateways"`
	PinningToken string   `mapstructure:"pinning_token"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("escrow.key_version", 1)
	v.SetDefault("redis.addr", "redis:6379")
	v.SetDefault("chain.active_network", "default")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"escrow.key_version":     "ESCROW_KEY_VERSION",
		"fallback.seed":          "FALLBACK_SEED",
		"chain.contract_address": "CHAIN_CONTRACT_ADDRESS",
		"chain.chain_id":         "CHAIN_ID",
		"chain.active_network":   "CHAIN_ACTIVE_NETWORK",
		"cas.pinning_token":      "CAS_PINNING_TOKEN",
		"redis.addr":             "REDIS_ADDR",
		"redis.password":         "REDIS_PASSWORD",
		"server.port":            "PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// CAS.Gateways and Chain.Networks have no single-value env binding (they
	// are collections); Unmarshal already pulled them from the config file,
	// but also allow a comma-separated CAS_GATEWAYS override.
	if gw := v.GetString("CAS_GATEWAYS"); gw != "" {
		cfg.CAS.Gateways = strings.Split(gw, ",")
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	type req struct {
		val  string
		name string
	}
	for _, r := range []req{
		{c.Fallback.Seed, "FALLBACK_SEED"},
		{c.Chain.ContractAddress, "CHAIN_CONTRACT_ADDRESS"},
	} {
		if r.val == "" {
			return fmt.Errorf("required config missing: %s", r.name)
		}
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("required config missing: CHAIN_ID")
	}
	if len(c.CAS.Gateways) == 0 {
		return fmt.Errorf("required config missing: at least one CAS gateway")
	}
	return nil
}
