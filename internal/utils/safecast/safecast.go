// Package safecast implements functions to safely cast types to avoid panics
package safecast

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

const errNegative = "value %d is negative, cannot convert to %s"

// Uint64ToInt safely converts a uint64 to int using cast and checks for overflow
func Uint64ToInt(value uint64) (int, error) {
	if value > math.MaxInt {
		return 0, fmt.Errorf("value %d exceeds int range", value)
	}

	return cast.ToIntE(value)
}

// Uint64ToInt64 safely converts a uint64 to int64 using cast and checks for overflow
func Uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds int64 range", value)
	}

	return cast.ToInt64E(value)
}

// Int64ToUint64 safely converts an int64 to uint64 using cast and checks for sign
func Int64ToUint64(value int64) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf(errNegative, value, "uint64")
	}

	return cast.ToUint64E(value)
}

// IntToUint64 safely converts an int to uint64 using cast and checks for sign
func IntToUint64(value int) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf(errNegative, value, "uint64")
	}

	return cast.ToUint64E(value)
}
