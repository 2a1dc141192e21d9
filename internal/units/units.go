package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// NanoExp is the exponent used by ConvertToNano.
const NanoExp = 9

// MaxExponent bounds both the decimals argument and the exponent of parsed
// input, so a shift cannot overflow int32 or expand to an unbounded string.
const MaxExponent = 1000

var (
	ErrInvalidNumber     = errors.New("invalid numeric input")
	ErrInvalidBaseUnits  = errors.New("invalid base units value")
	ErrInvalidMultiplier = errors.New("invalid multiplier")
)

// InputError is returned when an argument cannot be parsed as a decimal.
// Kind is one of the Err* values above and is matched by errors.Is.
type InputError struct {
	Kind  error
	Input string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Input)
}

func (e *InputError) Unwrap() error {
	return e.Kind
}

func parse(s string, kind error) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !exponentInRange(int64(d.Exponent())) {
		return decimal.Zero, &InputError{Kind: kind, Input: s}
	}
	return d, nil
}

func exponentInRange(e int64) bool {
	return e >= -MaxExponent && e <= MaxExponent
}

func checkDecimals(decimals int32) error {
	if !exponentInRange(int64(decimals)) {
		return fmt.Errorf("%w: decimals %d out of range", ErrInvalidNumber, decimals)
	}
	return nil
}

// FromBaseUnits returns value * 10^-decimals in plain decimal notation.
// Trailing fractional zeros are removed. decimals and the exponent of the
// input must be within ±MaxExponent.
func FromBaseUnits(valueInBaseUnits string, decimals int32) (string, error) {
	if err := checkDecimals(decimals); err != nil {
		return "", err
	}
	d, err := parse(valueInBaseUnits, ErrInvalidNumber)
	if err != nil {
		return "", err
	}
	return d.Shift(-decimals).String(), nil
}

// ConvertToNano converts whole units to nano units.
func ConvertToNano(value string) (string, error) {
	return FromBaseUnits(value, -NanoExp)
}

// ToBaseUnits returns display * 10^decimals truncated to an integer.
func ToBaseUnits(display string, decimals int32) (string, error) {
	if err := checkDecimals(decimals); err != nil {
		return "", err
	}
	d, err := parse(display, ErrInvalidNumber)
	if err != nil {
		return "", err
	}
	return d.Shift(decimals).Truncate(0).String(), nil
}

// MultiplyBaseUnits multiplies baseUnits by multiplier and truncates the
// product towards zero. The result is always an integer string.
//
// multiplier may be a string, json.Number, decimal.Decimal, any Go integer
// type, float32 or float64.
func MultiplyBaseUnits(baseUnits string, multiplier interface{}) (string, error) {
	b, err := parse(baseUnits, ErrInvalidBaseUnits)
	if err != nil {
		return "", err
	}
	m, err := parseMultiplier(multiplier)
	if err != nil {
		return "", err
	}
	return b.Mul(m).Truncate(0).String(), nil
}

func parseMultiplier(v interface{}) (decimal.Decimal, error) {
	switch m := v.(type) {
	case string:
		return parse(m, ErrInvalidMultiplier)
	case json.Number:
		return parse(string(m), ErrInvalidMultiplier)
	case decimal.Decimal:
		if !exponentInRange(int64(m.Exponent())) {
			return decimal.Zero, &InputError{Kind: ErrInvalidMultiplier, Input: m.String()}
		}
		return m, nil
	case int:
		return decimal.New(int64(m), 0), nil
	case int8:
		return decimal.New(int64(m), 0), nil
	case int16:
		return decimal.New(int64(m), 0), nil
	case int32:
		return decimal.New(int64(m), 0), nil
	case int64:
		return decimal.New(m, 0), nil
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(m)), 0), nil
	case uint8:
		return decimal.New(int64(m), 0), nil
	case uint16:
		return decimal.New(int64(m), 0), nil
	case uint32:
		return decimal.New(int64(m), 0), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(m), 0), nil
	case float32:
		if math.IsNaN(float64(m)) || math.IsInf(float64(m), 0) {
			return decimal.Zero, &InputError{Kind: ErrInvalidMultiplier, Input: fmt.Sprint(m)}
		}
		return decimal.NewFromFloat32(m), nil
	case float64:
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return decimal.Zero, &InputError{Kind: ErrInvalidMultiplier, Input: fmt.Sprint(m)}
		}
		// Shortest representation that round-trips, so 0.1 stays 0.1.
		return decimal.NewFromFloat(m), nil
	default:
		return decimal.Zero, &InputError{Kind: ErrInvalidMultiplier, Input: fmt.Sprintf("%v", v)}
	}
}
