package entropy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidValue is returned when an entropy value cannot be parsed or is negative.
var ErrInvalidValue = errors.New("invalid entropy value")

// Value is an arbitrary-precision non-negative integer delivered by a
// verifiable randomness source (Pyth Entropy, VRF, ...).
//
// A Value is immutable: every accessor returns a copy of the underlying
// integer, so it is safe to share between goroutines. The zero Value is 0.
type Value struct {
	n *big.Int
}

// Zero is the entropy value 0.
var Zero = Value{}

// FromBig copies x into a new Value. Negative inputs are rejected.
func FromBig(x *big.Int) (Value, error) {
	if x == nil {
		return Zero, nil
	}
	if x.Sign() < 0 {
		return Zero, fmt.Errorf("%w: negative value %s", ErrInvalidValue, x.String())
	}
	return Value{n: new(big.Int).Set(x)}, nil
}

// FromUint64 builds a Value from a machine integer.
func FromUint64(v uint64) Value {
	return Value{n: new(big.Int).SetUint64(v)}
}

// FromBytes interprets b as a big-endian unsigned integer, which is how
// 32-byte random outputs are delivered on chain.
func FromBytes(b []byte) Value {
	return Value{n: new(big.Int).SetBytes(b)}
}

// Parse accepts a decimal string or a 0x-prefixed hex string.
func Parse(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidValue)
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
		if digits == "" {
			return Zero, fmt.Errorf("%w: empty hex string", ErrInvalidValue)
		}
	}

	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return Zero, fmt.Errorf("%w: signed value %q", ErrInvalidValue, s)
	}

	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return Zero, fmt.Errorf("%w: %q is not a base-%d integer", ErrInvalidValue, s, base)
	}
	return Value{n: n}, nil
}

// MustParse is Parse that panics, for tests and literals.
func MustParse(s string) Value {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Big returns a copy of the value as a big.Int.
func (v Value) Big() *big.Int {
	if v.n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v.n)
}

// String returns the decimal representation.
func (v Value) String() string {
	if v.n == nil {
		return "0"
	}
	return v.n.String()
}

// Hex returns the 0x-prefixed lowercase hex representation.
func (v Value) Hex() string {
	if v.n == nil {
		return "0x0"
	}
	return "0x" + v.n.Text(16)
}

// IsZero reports whether the value is 0.
func (v Value) IsZero() bool {
	return v.n == nil || v.n.Sign() == 0
}

// BitLen returns the minimal number of bits needed to represent the value.
func (v Value) BitLen() int {
	if v.n == nil {
		return 0
	}
	return v.n.BitLen()
}

// Cmp compares v and w and returns -1, 0 or +1.
func (v Value) Cmp(w Value) int {
	return v.Big().Cmp(w.Big())
}

// Equal reports whether v and w hold the same integer.
func (v Value) Equal(w Value) bool {
	return v.Cmp(w) == 0
}

// Add returns v + delta.
func (v Value) Add(delta uint64) Value {
	n := v.Big()
	n.Add(n, new(big.Int).SetUint64(delta))
	return Value{n: n}
}

// Mod returns v mod m as a machine integer. m must be positive; the result
// is always in [0, m).
func (v Value) Mod(m uint64) uint64 {
	if m == 0 {
		panic("entropy: modulus must be positive")
	}
	r := new(big.Int).Mod(v.Big(), new(big.Int).SetUint64(m))
	return r.Uint64()
}

// MarshalJSON encodes the value as a decimal JSON string so no precision is
// lost across JSON boundaries.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts a decimal or hex JSON string, or a bare JSON number.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidValue)
	}

	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	} else {
		s = string(data)
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Value) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
