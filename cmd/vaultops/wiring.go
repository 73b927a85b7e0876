package vaultops

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/sc1-labs/vaultops/config"
	"github.com/sc1-labs/vaultops/gasprice"
	"github.com/sc1-labs/vaultops/registry"
	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/sdk/evm"
)

// chain bundles the clients and engines of a run.
type chain struct {
	cfg       *config.Config
	rpc       *rpc.Client
	client    *ethclient.Client
	oracle    *gasprice.Oracle
	registry  registry.Registry
	closeRegs func() error
}

func dial(ctx context.Context, cfg *config.Config) (*chain, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	client := ethclient.NewClient(rpcClient)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if !chainID.IsUint64() || chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %s, configured %d", chainID, cfg.ChainID)
	}

	sources := []gasprice.Source{gasprice.NewDebank()}
	if cfg.OwlracleAPIKey != "" {
		sources = append(sources, gasprice.NewOwlracle(cfg.OwlracleAPIKey))
	}

	c := &chain{
		cfg:       cfg,
		rpc:       rpcClient,
		client:    client,
		oracle:    gasprice.NewOracle(client, sources, gasprice.WithSourceTimeout(cfg.FeeSourceTimeout)),
		closeRegs: func() error { return nil },
	}

	if cfg.RegistryDSN != "" {
		store, err := registry.OpenSQLite(cfg.RegistryDSN, cfg.Network)
		if err != nil {
			client.Close()
			return nil, err
		}
		c.registry, c.closeRegs = store, store.Close
	} else {
		store, err := registry.NewFileStore(cfg.DeploymentsDir, cfg.Network)
		if err != nil {
			client.Close()
			return nil, err
		}
		c.registry = store
	}

	sdk.LoggerFrom(ctx).Debugf("connected to %s (chain %d, network %s, live=%t)",
		cfg.RPCURL, cfg.ChainID, cfg.Network, cfg.Live)

	return c, nil
}

func (c *chain) Close() {
	_ = c.closeRegs()
	c.client.Close()
}

func (c *chain) submitter() (*evm.Submitter, error) {
	signers, err := c.cfg.Signers()
	if err != nil {
		return nil, err
	}

	return evm.NewSubmitter(c.client, c.oracle, signers, c.cfg.SubmitterConfig()), nil
}

// traveler returns the time traveler of networks that are not live.
func (c *chain) traveler() evm.TimeTraveler {
	if c.cfg.Live {
		return nil
	}

	return evm.NewRPCTimeTraveler(c.rpc)
}

// resolve accepts either a hex address or the name of a registry record.
func (c *chain) resolve(ctx context.Context, ref string) (common.Address, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}

	record, err := c.registry.Get(ctx, ref)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve %s: %w", ref, err)
	}

	return record.Address, nil
}
