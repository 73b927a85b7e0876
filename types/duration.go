package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Duration wraps time.Duration with JSON support for both "72h" strings and integer seconds,
// the unit timelock contracts use for delays.
type Duration struct {
	time.Duration
}

// NewDuration wraps a time.Duration with a Duration.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// ParseDuration accepts a time.Duration string ("500ms", "72h") or a bare integer,
// which is read as milliseconds to match the MAX_TX_TIME convention.
func ParseDuration(s string) (Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return Duration{}, fmt.Errorf("negative duration: %d", ms)
		}

		return NewDuration(time.Duration(ms) * time.Millisecond), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, err
	}

	return NewDuration(d), nil
}

// MustParseDuration is ParseDuration that panics. Meant for tests.
func MustParseDuration(s string) Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}

	return d
}

// WholeSeconds returns the duration in seconds, rounded up so a delay is never shortened.
func (d Duration) WholeSeconds() uint64 {
	if d.Duration <= 0 {
		return 0
	}
	secs := d.Duration / time.Second
	if d.Duration%time.Second != 0 {
		secs++
	}

	return uint64(secs)
}

// String returns a string representing the duration in the form "72h3m0.5s".
func (d Duration) String() string {
	return d.Duration.String()
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler. Numbers are seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case string:
		var err error
		if d.Duration, err = time.ParseDuration(value); err != nil {
			return err
		}

		return nil
	case float64:
		if value < 0 {
			return fmt.Errorf("negative duration: %v", value)
		}
		d.Duration = time.Duration(value * float64(time.Second))

		return nil
	default:
		return fmt.Errorf("invalid duration type: %T", v)
	}
}
