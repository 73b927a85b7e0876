package evm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// hexPattern matches "0x" followed by one or more hex characters
	hexPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
)

const (
	selectorSize          = 4
	executionRevertedText = "execution reverted:"

	// timelockNotReadyReason is the revert string of TimelockController releases before 5.0.
	timelockNotReadyReason = "TimelockController: operation is not ready"
	// timelockNotReadyError is the custom error that replaced it.
	timelockNotReadyError = "TimelockUnexpectedOperationState"
)

// CustomErrorData contains the error selector and its arguments separately.
type CustomErrorData struct {
	Selector [4]byte // 4-byte error selector
	Data     []byte  // Error arguments (ABI-encoded)
}

// MarshalJSON renders the selector/data as hex strings for readability.
func (c *CustomErrorData) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}

	payload := struct {
		Selector string `json:"selector"`
		Data     string `json:"data,omitempty"`
	}{
		Selector: hexutil.Encode(c.Selector[:]),
	}
	if len(c.Data) > 0 {
		payload.Data = hexutil.Encode(c.Data)
	}

	return json.Marshal(payload)
}

// Combined returns the full revert data (selector + data) as a byte slice.
func (c *CustomErrorData) Combined() []byte {
	if c == nil {
		return nil
	}

	return append(c.Selector[:], c.Data...)
}

// HexSelector returns the hex-encoded selector without prefix (e.g., "08c379a0").
func (c *CustomErrorData) HexSelector() string {
	if c == nil {
		return ""
	}

	return common.Bytes2Hex(c.Selector[:])
}

// ExecutionError is returned when the ledger refuses a call during simulation or gas estimation.
// The revert reason is kept as the ledger reported it.
type ExecutionError struct {
	// To and Data identify the refused call.
	To   common.Address
	Data []byte
	// RawRevertReason contains the error selector and raw data from the contract
	RawRevertReason *CustomErrorData
	// DecodedRevertReason is the human-readable revert reason, e.g. a require string or
	// "TimelockUnexpectedOperationState(...)".
	DecodedRevertReason string
	// OriginalError is the error returned by the RPC
	OriginalError error `json:"-"`
}

func (e *ExecutionError) Error() string {
	if e.DecodedRevertReason != "" {
		return fmt.Sprintf("execution failed: %v (revert reason: %s)", e.OriginalError, e.DecodedRevertReason)
	}
	if e.RawRevertReason != nil {
		return fmt.Sprintf("execution failed: %v (unknown error selector %s, data: %s)",
			e.OriginalError, e.RawRevertReason.HexSelector(), common.Bytes2Hex(e.RawRevertReason.Data))
	}

	return fmt.Sprintf("execution failed: %v", e.OriginalError)
}

// MarshalJSON renders the refused call and its revert reason with hex-encoded bytes.
func (e *ExecutionError) MarshalJSON() ([]byte, error) {
	payload := struct {
		To     common.Address   `json:"to"`
		Data   hexutil.Bytes    `json:"data,omitempty"`
		Raw    *CustomErrorData `json:"rawRevertReason,omitempty"`
		Reason string           `json:"revertReason,omitempty"`
		Error  string           `json:"error,omitempty"`
	}{
		To:     e.To,
		Data:   e.Data,
		Raw:    e.RawRevertReason,
		Reason: e.DecodedRevertReason,
	}
	if e.OriginalError != nil {
		payload.Error = e.OriginalError.Error()
	}

	return json.Marshal(payload)
}

func (e *ExecutionError) Unwrap() error {
	return e.OriginalError
}

// BuildExecutionError creates an ExecutionError from a failed call or gas estimation.
// It returns nil when err is nil.
func BuildExecutionError(err error, to common.Address, data []byte) *ExecutionError {
	if err == nil {
		return nil
	}

	execErr := &ExecutionError{
		To:            to,
		Data:          data,
		OriginalError: err,
	}

	raw := revertDataFromError(err)
	if len(raw) >= selectorSize {
		var selector [selectorSize]byte
		copy(selector[:], raw[:selectorSize])
		execErr.RawRevertReason = &CustomErrorData{Selector: selector, Data: raw[selectorSize:]}
		execErr.DecodedRevertReason = decodeRevertReason(raw)
	}
	if execErr.DecodedRevertReason == "" {
		execErr.DecodedRevertReason = revertReasonFromMessage(err.Error())
	}

	return execErr
}

// IsNotReadyRevert reports whether err is the timelock refusing an operation whose delay has
// not elapsed yet, as opposed to the scheduled call itself reverting.
func IsNotReadyRevert(err error) bool {
	if err == nil {
		return false
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		reason := execErr.DecodedRevertReason
		if strings.Contains(reason, timelockNotReadyReason) || strings.HasPrefix(reason, timelockNotReadyError) {
			return true
		}
	}

	return strings.Contains(err.Error(), timelockNotReadyReason)
}

// revertDataFromError extracts the raw revert bytes, preferring the structured RPC error data.
func revertDataFromError(err error) []byte {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		switch data := dataErr.ErrorData().(type) {
		case string:
			if b, decodeErr := hexutil.Decode(data); decodeErr == nil {
				return b
			}
		case []byte:
			return data
		}
	}

	return extractHexEncodedRevertData(err.Error())
}

// extractHexEncodedRevertData extracts hex-encoded revert data (0x...) from an error string.
// Returns the extracted bytes if found, nil otherwise.
func extractHexEncodedRevertData(errStr string) []byte {
	hexStr := hexPattern.FindString(errStr)
	if hexStr == "" {
		return nil
	}

	if data := common.FromHex(hexStr); len(data) > 0 {
		return data
	}

	return nil
}

// revertReasonFromMessage returns the plain reason following "execution reverted:".
func revertReasonFromMessage(msg string) string {
	idx := strings.Index(msg, executionRevertedText)
	if idx == -1 {
		return ""
	}

	return strings.TrimSpace(msg[idx+len(executionRevertedText):])
}

// decodeRevertReason decodes the revert reason from ABI-encoded data.
// Custom errors of the known contracts are tried first, then Error(string) and Panic(uint256).
// Returns empty string if all decoding fails.
func decodeRevertReason(data []byte) string {
	if len(data) < selectorSize {
		return ""
	}

	for _, contractABI := range []*abi.ABI{TimelockABI, VaultABI} {
		if decoded := decodeErrorBySelector(data, contractABI); decoded != "" {
			return decoded
		}
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}

	return ""
}

// decodeErrorBySelector finds an error in the ABI by matching the selector, then decodes its arguments.
func decodeErrorBySelector(data []byte, contractABI *abi.ABI) string {
	for name, errDef := range contractABI.Errors {
		if string(errDef.ID[:selectorSize]) != string(data[:selectorSize]) {
			continue
		}

		decoded, err := errDef.Unpack(data)
		if err != nil {
			continue
		}

		var values []any
		if decodedSlice, ok := decoded.([]any); ok {
			values = decodedSlice
		} else {
			values = []any{decoded}
		}

		return formatDecodedError(name, values)
	}

	return ""
}

// formatDecodedError formats a decoded error as "ErrorName(arg1, arg2, ...)".
func formatDecodedError(errorName string, decodedValues []any) string {
	if len(decodedValues) == 0 {
		return errorName
	}

	parts := make([]string, 0, len(decodedValues))
	for _, val := range decodedValues {
		switch v := val.(type) {
		case [32]byte:
			parts = append(parts, hexutil.Encode(v[:]))
		default:
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}

	return fmt.Sprintf("%s(%s)", errorName, strings.Join(parts, ", "))
}
