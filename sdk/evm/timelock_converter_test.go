package evm

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc1-labs/vaultops/internal/utils/abi"
	"github.com/sc1-labs/vaultops/types"
)

func TestHashOperation(t *testing.T) {
	t.Parallel()

	target := common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	data := []byte{0xde, 0xad}
	salt := common.HexToHash("0x01")

	encoded, err := abi.Encode(operationEncoding, target, big.NewInt(5), data, [32]byte{}, [32]byte(salt))
	require.NoError(t, err)

	got, err := HashOperation(target, big.NewInt(5), data, ZeroHash, salt)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(encoded), got)
}

func TestHashOperation_Inputs(t *testing.T) {
	t.Parallel()

	target := common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	data := []byte{0xde, 0xad}

	base, err := HashOperation(target, big.NewInt(0), data, ZeroHash, ZeroHash)
	require.NoError(t, err)

	nilValue, err := HashOperation(target, nil, data, ZeroHash, ZeroHash)
	require.NoError(t, err)
	assert.Equal(t, base, nilValue, "nil value hashes as zero")

	salted, err := HashOperation(target, big.NewInt(0), data, ZeroHash, common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.NotEqual(t, base, salted)

	chained, err := HashOperation(target, big.NewInt(0), data, base, ZeroHash)
	require.NoError(t, err)
	assert.NotEqual(t, base, chained)

	otherData, err := HashOperation(target, big.NewInt(0), []byte{0xbe, 0xef}, ZeroHash, ZeroHash)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherData)
}

func TestPackScheduleExecute(t *testing.T) {
	t.Parallel()

	action := types.ScheduledAction{
		Target:      common.HexToAddress("0x02"),
		Data:        []byte{0x01},
		Predecessor: common.HexToHash("0x03"),
		Salt:        common.HexToHash("0x04"),
		Delay:       types.NewDuration(72 * time.Hour),
	}

	schedule := packSchedule(action)
	require.Len(t, schedule, 6)
	assert.Equal(t, big.NewInt(0), schedule[1])
	assert.Equal(t, [32]byte(action.Predecessor), schedule[3])
	assert.Equal(t, [32]byte(action.Salt), schedule[4])
	assert.Equal(t, big.NewInt(259200), schedule[5])

	_, err := TimelockABI.Pack(methodSchedule, schedule...)
	require.NoError(t, err)

	execute := packExecute(action)
	require.Len(t, execute, 5)
	assert.Equal(t, schedule[:5], execute)

	_, err = TimelockABI.Pack(methodExecute, execute...)
	require.NoError(t, err)
}

func TestMethodName(t *testing.T) {
	t.Parallel()

	setVault, err := StrategyABI.Pack(MethodSetVault, common.HexToAddress("0x01"))
	require.NoError(t, err)
	upgrade, err := BeaconABI.Pack(MethodUpgradeTo, common.HexToAddress("0x01"))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "strategy method", data: setVault, want: MethodSetVault},
		{name: "beacon method", data: upgrade, want: MethodUpgradeTo},
		{name: "unknown selector", data: []byte{0xff, 0xff, 0xff, 0xff}, want: ""},
		{name: "short data", data: []byte{0x01}, want: ""},
		{name: "empty", data: nil, want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, methodName(tt.data))
		})
	}
}
