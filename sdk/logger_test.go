package sdk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoggerFrom(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop().Sugar()
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, LoggerFrom(ctx))
	assert.NotNil(t, LoggerFrom(context.Background()))
}
