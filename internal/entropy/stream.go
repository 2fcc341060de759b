package entropy

import "math/big"

// Stream draws bounded integers out of a single entropy value, consuming it
// like a mixed-radix number: each Draw(n) yields seed mod n and continues
// with seed / n.
//
// When the working seed is exhausted (reaches zero) it is reseeded with
// entropy + step, where step is the 0-based index of the draw that exhausted
// it. This keeps small entropy values from locking every later draw at 0.
// A Stream is not safe for concurrent use; create one per evaluation.
type Stream struct {
	source *big.Int
	seed   *big.Int
	step   uint64

	quo, rem, div big.Int
}

// NewStream starts a stream at the given entropy value.
func NewStream(v Value) *Stream {
	return &Stream{
		source: v.Big(),
		seed:   v.Big(),
	}
}

// Draw returns the next value in [0, n). n must be positive.
func (s *Stream) Draw(n uint64) uint64 {
	if n == 0 {
		panic("entropy: draw bound must be positive")
	}

	s.div.SetUint64(n)
	s.quo.QuoRem(s.seed, &s.div, &s.rem)
	out := s.rem.Uint64()

	s.seed.Set(&s.quo)
	if s.seed.Sign() == 0 {
		s.seed.Add(s.source, new(big.Int).SetUint64(s.step))
	}
	s.step++

	return out
}

// Steps returns how many draws have been taken.
func (s *Stream) Steps() uint64 {
	return s.step
}

// Draws is a convenience that takes count draws with the same bound.
func Draws(v Value, n uint64, count int) []uint64 {
	s := NewStream(v)
	out := make([]uint64, count)
	for i := range out {
		out[i] = s.Draw(n)
	}
	return out
}
