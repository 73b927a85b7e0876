// Package config loads the run configuration from the environment and an optional .env file.
package config

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/sc1-labs/vaultops/migration"
	"github.com/sc1-labs/vaultops/sdk/evm"
	"github.com/sc1-labs/vaultops/types"
)

// DefaultEnvFile is read when present. Other env files must exist.
const DefaultEnvFile = ".env"

// Environment keys.
const (
	KeyRPCURL            = "RPC_URL"
	KeyChainID           = "CHAIN_ID"
	KeyNetwork           = "NETWORK"
	KeyLive              = "NETWORK_LIVE"
	KeyMaxTxTime         = "MAX_TX_TIME"
	KeyFeeBumpMultiplier = "FEE_BUMP_MULTIPLIER"
	KeyMaxReplacements   = "MAX_REPLACEMENTS"
	KeyFeeSourceTimeout  = "FEE_SOURCE_TIMEOUT"
	KeyOwlracleAPIKey    = "OWLRACLE_API_KEY"
	KeyDeployerKey       = "DEPLOYER_KEY"
	KeyManagerKey        = "MANAGER_KEY"
	KeyTeam              = "TEAM_1"
	KeyDeploymentsDir    = "DEPLOYMENTS_DIR"
	KeyRegistryDSN       = "REGISTRY_DSN"
	KeyStrategiesFile    = "STRATEGIES_FILE"
)

var keys = []string{
	KeyRPCURL, KeyChainID, KeyNetwork, KeyLive, KeyMaxTxTime, KeyFeeBumpMultiplier, KeyMaxReplacements,
	KeyFeeSourceTimeout, KeyOwlracleAPIKey, KeyDeployerKey, KeyManagerKey, KeyTeam, KeyDeploymentsDir,
	KeyRegistryDSN, KeyStrategiesFile,
}

const (
	defaultFeeSourceTimeout = 1600 * time.Millisecond
	defaultDeploymentsDir   = "deployments"
)

// Config is the configuration of a run.
type Config struct {
	RPCURL  string `validate:"required,url"`
	ChainID uint64 `validate:"required"`
	// Network names the deployments directory and selects the configured strategies.
	Network string `validate:"required"`
	Live    bool

	MaxTxTime         time.Duration `validate:"gt=0"`
	FeeBumpMultiplier float64       `validate:"gt=1"`
	MaxReplacements   int           `validate:"gte=0"`
	FeeSourceTimeout  time.Duration `validate:"gt=0"`
	OwlracleAPIKey    string

	DeployerKey *ecdsa.PrivateKey `validate:"-"`
	ManagerKey  *ecdsa.PrivateKey `validate:"-"`
	Team        common.Address

	DeploymentsDir string `validate:"required"`
	// RegistryDSN selects the SQLite registry when set.
	RegistryDSN    string
	StrategiesFile string
}

// Load reads envFile and the process environment, which takes precedence, and parses the
// result. A missing DefaultEnvFile is not an error.
func Load(envFile string) (*Config, error) {
	env := make(map[string]string)
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist) && envFile == DefaultEnvFile:
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		default:
			env = fileEnv
		}
	}
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	return Parse(env)
}

// Parse builds and validates a Config from environment values.
func Parse(env map[string]string) (*Config, error) {
	cfg := &Config{
		RPCURL:         env[KeyRPCURL],
		Network:        env[KeyNetwork],
		OwlracleAPIKey: env[KeyOwlracleAPIKey],
		DeploymentsDir: valueOr(env[KeyDeploymentsDir], defaultDeploymentsDir),
		RegistryDSN:    env[KeyRegistryDSN],
		StrategiesFile: env[KeyStrategiesFile],
	}

	var err error
	if v := env[KeyChainID]; v != "" {
		if cfg.ChainID, err = cast.ToUint64E(v); err != nil {
			return nil, parseError(KeyChainID, err)
		}
	}
	if v, ok := env[KeyLive]; ok && v != "" {
		if cfg.Live, err = cast.ToBoolE(v); err != nil {
			return nil, parseError(KeyLive, err)
		}
	}
	if cfg.MaxTxTime, err = millis(env, KeyMaxTxTime, evm.DefaultMaxTxTime); err != nil {
		return nil, err
	}
	if cfg.FeeSourceTimeout, err = millis(env, KeyFeeSourceTimeout, defaultFeeSourceTimeout); err != nil {
		return nil, err
	}
	cfg.FeeBumpMultiplier = evm.DefaultFeeBumpMultiplier
	if v := env[KeyFeeBumpMultiplier]; v != "" {
		if cfg.FeeBumpMultiplier, err = cast.ToFloat64E(v); err != nil {
			return nil, parseError(KeyFeeBumpMultiplier, err)
		}
	}
	cfg.MaxReplacements = evm.DefaultMaxReplacements
	if v := env[KeyMaxReplacements]; v != "" {
		if cfg.MaxReplacements, err = cast.ToIntE(v); err != nil {
			return nil, parseError(KeyMaxReplacements, err)
		}
	}

	if cfg.DeployerKey, err = privateKey(env, KeyDeployerKey); err != nil {
		return nil, err
	}
	if cfg.ManagerKey, err = privateKey(env, KeyManagerKey); err != nil {
		return nil, err
	}
	if v := env[KeyTeam]; v != "" {
		if !common.IsHexAddress(v) {
			return nil, parseError(KeyTeam, fmt.Errorf("invalid address %q", v))
		}
		cfg.Team = common.HexToAddress(v)
	}

	if cfg.Network == "" && cfg.ChainID != 0 {
		if sel, err := types.ChainSelectorFromEVMChainID(cfg.ChainID); err == nil {
			cfg.Network = sel.Name()
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Signers returns a transactor per configured role key.
func (c *Config) Signers() (map[types.Role]*bind.TransactOpts, error) {
	signers := make(map[types.Role]*bind.TransactOpts)
	for role, key := range map[types.Role]*ecdsa.PrivateKey{
		types.RoleDeployer: c.DeployerKey,
		types.RoleManager:  c.ManagerKey,
	} {
		if key == nil {
			continue
		}
		auth, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(c.ChainID))
		if err != nil {
			return nil, fmt.Errorf("signer %s: %w", role, err)
		}
		signers[role] = auth
	}

	return signers, nil
}

// SubmitterConfig returns the submission policy of the run.
func (c *Config) SubmitterConfig() evm.SubmitterConfig {
	return evm.SubmitterConfig{
		ChainID:           c.ChainID,
		MaxTxTime:         c.MaxTxTime,
		FeeBumpMultiplier: c.FeeBumpMultiplier,
		MaxReplacements:   evm.Replacements(c.MaxReplacements),
	}
}

// LoadStrategies reads the configured strategy list, a JSON array of StrategyConfig.
func LoadStrategies(path string) ([]migration.StrategyConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies: %w", err)
	}

	var strategies []migration.StrategyConfig
	if err := json.Unmarshal(b, &strategies); err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}

	validate := validator.New()
	for i, s := range strategies {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("strategy %d: %w", i, err)
		}
	}

	return strategies, nil
}

func millis(env map[string]string, key string, def time.Duration) (time.Duration, error) {
	v := env[key]
	if v == "" {
		return def, nil
	}
	ms, err := cast.ToInt64E(v)
	if err != nil {
		return 0, parseError(key, err)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

func privateKey(env map[string]string, key string) (*ecdsa.PrivateKey, error) {
	v := strings.TrimPrefix(env[key], "0x")
	if v == "" {
		return nil, nil
	}
	pk, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, parseError(key, errors.New("invalid private key"))
	}

	return pk, nil
}

func parseError(key string, err error) error {
	return fmt.Errorf("parse %s: %w", key, err)
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
