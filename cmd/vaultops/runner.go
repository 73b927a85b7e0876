package vaultops

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/config"
	"github.com/sc1-labs/vaultops/migration"
	"github.com/sc1-labs/vaultops/sdk/evm"
)

// runner wires the migration engine of a run.
type runner struct {
	*chain
	executor *evm.TimelockExecutor
	engine   *migration.Engine
}

func dialRunner(
	ctx context.Context, cfg *config.Config, timelock string, strategies []migration.StrategyConfig, manager common.Address,
) (*runner, error) {
	c, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r, err := c.newRunner(ctx, timelock, strategies, manager)
	if err != nil {
		c.Close()
		return nil, err
	}

	return r, nil
}

func (c *chain) newRunner(
	ctx context.Context, timelock string, strategies []migration.StrategyConfig, manager common.Address,
) (*runner, error) {
	timelockAddr, err := c.resolve(ctx, timelock)
	if err != nil {
		return nil, err
	}
	submitter, err := c.submitter()
	if err != nil {
		return nil, err
	}
	executor := evm.NewTimelockExecutor(submitter, timelockAddr)

	engine, err := migration.NewEngine(migration.Config{
		Chain:      c.cfg.Network,
		Live:       c.cfg.Live,
		Manager:    manager,
		Team:       c.cfg.Team,
		Strategies: strategies,
	}, c.registry, evm.NewInspector(c.client), submitter, executor, c.traveler())
	if err != nil {
		return nil, err
	}

	return &runner{chain: c, executor: executor, engine: engine}, nil
}
