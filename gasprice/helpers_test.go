package gasprice

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/sc1-labs/vaultops/sdk"
)

func testContext(t *testing.T) context.Context {
	t.Helper()

	return sdk.WithLogger(context.Background(), zap.NewNop().Sugar())
}
