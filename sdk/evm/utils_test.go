package evm

import (
	"testing"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

func TestIsSuccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		receipt *gethtypes.Receipt
		want    bool
	}{
		{name: "nil receipt", receipt: nil, want: false},
		{name: "successful", receipt: &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}, want: true},
		{name: "failed", receipt: &gethtypes.Receipt{Status: gethtypes.ReceiptStatusFailed}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsSuccess(tt.receipt))
		})
	}
}
