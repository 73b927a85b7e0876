package evm

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dataError struct {
	msg  string
	data any
}

func (e *dataError) Error() string  { return e.msg }
func (e *dataError) ErrorCode() int { return 3 }
func (e *dataError) ErrorData() any { return e.data }

func revertString(t *testing.T, reason string) []byte {
	t.Helper()

	typ, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: typ}}.Pack(reason)
	require.NoError(t, err)

	return append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
}

func notReadyCustomError(t *testing.T) []byte {
	t.Helper()

	errDef := TimelockABI.Errors[timelockNotReadyError]
	packed, err := errDef.Inputs.Pack([32]byte{0x01}, [32]byte{0x02})
	require.NoError(t, err)

	return append(errDef.ID[:selectorSize:selectorSize], packed...)
}

func TestBuildExecutionError(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress("0x1")

	tests := []struct {
		name        string
		err         error
		wantDecoded string
		wantRaw     bool
	}{
		{
			name:        "revert string from rpc data",
			err:         &dataError{msg: "execution reverted", data: hexutil.Encode(revertString(t, "caller is not a manager"))},
			wantDecoded: "caller is not a manager",
			wantRaw:     true,
		},
		{
			name:        "revert bytes from rpc data",
			err:         &dataError{msg: "execution reverted", data: revertString(t, "strategy not trusted")},
			wantDecoded: "strategy not trusted",
			wantRaw:     true,
		},
		{
			name:        "custom timelock error",
			err:         &dataError{msg: "execution reverted", data: hexutil.Encode(notReadyCustomError(t))},
			wantDecoded: "TimelockUnexpectedOperationState(0x01" + fmt.Sprintf("%062x", 0) + ", 0x02" + fmt.Sprintf("%062x", 0) + ")",
			wantRaw:     true,
		},
		{
			name:        "hex data in message",
			err:         fmt.Errorf("call failed: %s", hexutil.Encode(revertString(t, "Ownable: caller is not the owner"))),
			wantDecoded: "Ownable: caller is not the owner",
			wantRaw:     true,
		},
		{
			name:        "reason in message only",
			err:         errors.New("execution reverted: strategy already in queue"),
			wantDecoded: "strategy already in queue",
		},
		{
			name: "no reason",
			err:  errors.New("out of gas"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := BuildExecutionError(tt.err, to, []byte{0xaa})
			require.NotNil(t, got)
			assert.Equal(t, to, got.To)
			assert.Equal(t, tt.wantDecoded, got.DecodedRevertReason)
			assert.Equal(t, tt.wantRaw, got.RawRevertReason != nil)
			require.ErrorIs(t, got, tt.err)
			if tt.wantDecoded != "" {
				assert.Contains(t, got.Error(), "revert reason: "+tt.wantDecoded)
			}
		})
	}
}

func TestBuildExecutionError_Nil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, BuildExecutionError(nil, common.Address{}, nil))
}

func TestIsNotReadyRevert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{
			name: "legacy revert string",
			err: BuildExecutionError(&dataError{msg: "execution reverted",
				data: hexutil.Encode(revertString(t, timelockNotReadyReason))}, common.Address{}, nil),
			want: true,
		},
		{
			name: "custom error",
			err: BuildExecutionError(&dataError{msg: "execution reverted",
				data: hexutil.Encode(notReadyCustomError(t))}, common.Address{}, nil),
			want: true,
		},
		{
			name: "wrapped",
			err: fmt.Errorf("execute: %w", BuildExecutionError(
				errors.New("execution reverted: "+timelockNotReadyReason), common.Address{}, nil)),
			want: true,
		},
		{
			name: "underlying call reverted",
			err: BuildExecutionError(&dataError{msg: "execution reverted",
				data: hexutil.Encode(revertString(t, "TimelockController: underlying transaction reverted"))}, common.Address{}, nil),
			want: false,
		},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsNotReadyRevert(tt.err))
		})
	}
}

func TestCustomErrorData(t *testing.T) {
	t.Parallel()

	data := &CustomErrorData{Selector: [4]byte{0x08, 0xc3, 0x79, 0xa0}, Data: []byte{0x01}}
	assert.Equal(t, "08c379a0", data.HexSelector())
	assert.Equal(t, []byte{0x08, 0xc3, 0x79, 0xa0, 0x01}, data.Combined())

	b, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"selector":"0x08c379a0","data":"0x01"}`, string(b))

	var nilData *CustomErrorData
	assert.Empty(t, nilData.HexSelector())
	assert.Nil(t, nilData.Combined())
	b, err = nilData.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestExecutionError_Format(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress("0x0a")
	custom := &ExecutionError{
		To:              to,
		Data:            []byte{0xab},
		RawRevertReason: &CustomErrorData{Selector: [4]byte{0xde, 0xad, 0xbe, 0xef}, Data: []byte{0x01}},
		OriginalError:   errors.New("execution reverted"),
	}
	assert.Equal(t, "execution failed: execution reverted (unknown error selector deadbeef, data: 01)", custom.Error())

	b, err := json.Marshal(custom)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"to": "0x000000000000000000000000000000000000000a",
		"data": "0xab",
		"rawRevertReason": {"selector": "0xdeadbeef", "data": "0x01"},
		"error": "execution reverted"
	}`, string(b))

	reason := &ExecutionError{To: to, DecodedRevertReason: "caller is not a manager", OriginalError: errors.New("execution reverted")}
	b, err = json.Marshal(reason)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"to": "0x000000000000000000000000000000000000000a",
		"revertReason": "caller is not a manager",
		"error": "execution reverted"
	}`, string(b))
}
