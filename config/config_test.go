package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc1-labs/vaultops/migration"
	"github.com/sc1-labs/vaultops/sdk/evm"
	"github.com/sc1-labs/vaultops/types"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func baseEnv() map[string]string {
	return map[string]string{
		KeyRPCURL:  "http://localhost:8545",
		KeyChainID: "250",
		KeyNetwork: "fantom",
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "defaults",
			env:  baseEnv(),
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, uint64(250), cfg.ChainID)
				assert.False(t, cfg.Live)
				assert.Equal(t, evm.DefaultMaxTxTime, cfg.MaxTxTime)
				assert.InDelta(t, evm.DefaultFeeBumpMultiplier, cfg.FeeBumpMultiplier, 1e-9)
				assert.Equal(t, evm.DefaultMaxReplacements, cfg.MaxReplacements)
				assert.Equal(t, 1600*time.Millisecond, cfg.FeeSourceTimeout)
				assert.Equal(t, "deployments", cfg.DeploymentsDir)
				assert.Nil(t, cfg.DeployerKey)
			},
		},
		{
			name: "overrides",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyLive] = "true"
				env[KeyMaxTxTime] = "500"
				env[KeyFeeBumpMultiplier] = "1.25"
				env[KeyMaxReplacements] = "5"
				env[KeyFeeSourceTimeout] = "3000"
				env[KeyDeployerKey] = "0x" + testKey
				env[KeyTeam] = "0x4e00000000000000000000000000000000000001"
				env[KeyRegistryDSN] = "registry.db"

				return env
			}(),
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.True(t, cfg.Live)
				assert.Equal(t, 500*time.Millisecond, cfg.MaxTxTime)
				assert.InDelta(t, 1.25, cfg.FeeBumpMultiplier, 1e-9)
				assert.Equal(t, 5, cfg.MaxReplacements)
				assert.Equal(t, 3*time.Second, cfg.FeeSourceTimeout)
				assert.Equal(t, common.HexToAddress("0x4e00000000000000000000000000000000000001"), cfg.Team)
				assert.Equal(t, "registry.db", cfg.RegistryDSN)
				require.NotNil(t, cfg.DeployerKey)
				assert.Equal(t, testKey, common.Bytes2Hex(crypto.FromECDSA(cfg.DeployerKey)))

				signers, err := cfg.Signers()
				require.NoError(t, err)
				require.Len(t, signers, 1)
				assert.Equal(t, crypto.PubkeyToAddress(cfg.DeployerKey.PublicKey), signers[types.RoleDeployer].From)

				sc := cfg.SubmitterConfig()
				assert.Equal(t, uint64(250), sc.ChainID)
				assert.Equal(t, evm.Replacements(5), sc.MaxReplacements)
			},
		},
		{
			name: "zero replacements",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyMaxReplacements] = "0"

				return env
			}(),
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 0, cfg.MaxReplacements)
				assert.Equal(t, evm.Replacements(0), cfg.SubmitterConfig().MaxReplacements)
			},
		},
		{
			name: "network from chain id",
			env: map[string]string{
				KeyRPCURL:  "http://localhost:8545",
				KeyChainID: "1",
			},
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.NotEmpty(t, cfg.Network)
			},
		},
		{
			name:    "missing rpc url",
			env:     map[string]string{KeyChainID: "250", KeyNetwork: "fantom"},
			wantErr: "invalid configuration",
		},
		{
			name:    "missing chain id",
			env:     map[string]string{KeyRPCURL: "http://localhost:8545", KeyNetwork: "fantom"},
			wantErr: "invalid configuration",
		},
		{
			name: "bad chain id",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyChainID] = "ftm"

				return env
			}(),
			wantErr: "parse CHAIN_ID",
		},
		{
			name: "multiplier must exceed one",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyFeeBumpMultiplier] = "1"

				return env
			}(),
			wantErr: "invalid configuration",
		},
		{
			name: "bad live flag",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyLive] = "sometimes"

				return env
			}(),
			wantErr: "parse NETWORK_LIVE",
		},
		{
			name: "bad key",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyManagerKey] = "0x1234"

				return env
			}(),
			wantErr: "parse MANAGER_KEY: invalid private key",
		},
		{
			name: "bad team address",
			env: func() map[string]string {
				env := baseEnv()
				env[KeyTeam] = "team"

				return env
			}(),
			wantErr: "parse TEAM_1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse(tt.env)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "prod.env"))
	require.ErrorContains(t, err, "read ")
}

func TestLoad_EnvFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"RPC_URL=http://localhost:8545\nCHAIN_ID=1337\nNETWORK=hardhat\nMAX_TX_TIME=500\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hardhat", cfg.Network)
	assert.Equal(t, 500*time.Millisecond, cfg.MaxTxTime)
}

func TestLoadStrategies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	valid := filepath.Join(dir, "strategies.json")
	require.NoError(t, os.WriteFile(valid, []byte(`[
		{"symbol": "USDC-Strat", "chain": "fantom"},
		{"symbol": "USDC-Avax", "chain": "avalanche", "skip": true}
	]`), 0o600))
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`[{"chain": "fantom"}]`), 0o600))

	strategies, err := LoadStrategies(valid)
	require.NoError(t, err)
	assert.Equal(t, []migration.StrategyConfig{
		{Symbol: "USDC-Strat", Chain: "fantom"},
		{Symbol: "USDC-Avax", Chain: "avalanche", Skip: true},
	}, strategies)

	_, err = LoadStrategies(invalid)
	require.ErrorContains(t, err, "strategy 0")

	_, err = LoadStrategies(filepath.Join(dir, "missing.json"))
	require.ErrorContains(t, err, "read strategies")
}
