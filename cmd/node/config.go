package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/luiz-henrique-gyn/backend/pkg/dex"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel           string          `mapstructure:"log_level"`
	DBDir              string          `mapstructure:"db_dir"`
	RPCAddr            string          `mapstructure:"rpc_addr"`
	MetricsAddr        string          `mapstructure:"metrics_addr"`
	Domain             DomainConfig    `mapstructure:"domain"`
	SignatureCacheSize int             `mapstructure:"signature_cache_size"`
	Genesis            []GenesisConfig `mapstructure:"genesis"`
}

type DomainConfig struct {
	Name              string `mapstructure:"name"`
	Version           string `mapstructure:"version"`
	ChainID           uint64 `mapstructure:"chain_id"`
	VerifyingContract string `mapstructure:"verifying_contract"`
}

// GenesisConfig is an allocation in the smallest unit of the asset.
type GenesisConfig struct {
	Account string `mapstructure:"account"`
	Asset   string `mapstructure:"asset"`
	Amount  string `mapstructure:"amount"`
}

const (
	defaultLogLevel    = "info"
	defaultRPCAddr     = ":12001"
	defaultMetricsAddr = ":9100"
	defaultDomainName  = "dex"
	defaultVersion     = "1"
	defaultChainID     = 1
)

func loadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("db_dir", "")
	v.SetDefault("rpc_addr", defaultRPCAddr)
	v.SetDefault("metrics_addr", defaultMetricsAddr)
	v.SetDefault("domain.name", defaultDomainName)
	v.SetDefault("domain.version", defaultVersion)
	v.SetDefault("domain.chain_id", defaultChainID)
	v.SetDefault("domain.verifying_contract", common.Address{}.Hex())
	v.SetDefault("signature_cache_size", 0)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func (c Config) domain() (dex.Domain, error) {
	contract, err := parseAddress(c.Domain.VerifyingContract)
	if err != nil {
		return dex.Domain{}, fmt.Errorf("domain.verifying_contract: %w", err)
	}

	return dex.Domain{
		Name:              c.Domain.Name,
		Version:           c.Domain.Version,
		ChainID:           new(big.Int).SetUint64(c.Domain.ChainID),
		VerifyingContract: contract,
	}, nil
}

func (c Config) genesis() ([]dex.GenesisAlloc, error) {
	allocs := make([]dex.GenesisAlloc, 0, len(c.Genesis))
	for i, g := range c.Genesis {
		account, err := parseAddress(g.Account)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d].account: %w", i, err)
		}

		asset, err := parseAddress(g.Asset)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d].asset: %w", i, err)
		}

		amount, err := decimal.NewFromString(g.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d].amount: %w", i, err)
		}

		if !amount.Equal(amount.Truncate(0)) || amount.IsNegative() {
			return nil, fmt.Errorf("genesis[%d].amount: %s is not a whole non-negative number", i, g.Amount)
		}

		allocs = append(allocs, dex.GenesisAlloc{Account: account, Asset: asset, Amount: amount.BigInt()})
	}
	return allocs, nil
}
