// Package bitvec defines a fixed granularity bit vector used for
// free lists of pooled blocks.
package bitvec

import (
	"iter"
	"math/bits"
)

// wordBits is the number of bits per storage word.
const wordBits = 64

// V is a growable bit vector. A set bit marks a used block.
type V struct {
	s   []uint64
	n   int // number of addressable bits
	rem int // number of unset bits among the addressable ones
}

// New returns a vector of n unset bits.
func New(n int) V {
	var v V
	v.Grow(n)
	return v
}

// Len returns the number of addressable bits.
func (v *V) Len() int { return v.n }

// Rem returns the number of unset bits.
func (v *V) Rem() int { return v.rem }

// Count returns the number of set bits.
func (v *V) Count() int { return v.n - v.rem }

// Grow appends n unset bits and returns the index of the first one.
func (v *V) Grow(n int) (index int) {
	index = v.n
	if n <= 0 {
		return
	}
	v.n += n
	v.rem += n
	if need := (v.n + wordBits - 1) / wordBits; need > len(v.s) {
		v.s = append(v.s, make([]uint64, need-len(v.s))...)
	}

	return
}

// Set sets a given bit.
func (v *V) Set(index int) {
	i, b := index/wordBits, uint64(1)<<(index%wordBits)
	if v.s[i]&b == 0 {
		v.s[i] |= b
		v.rem--
	}
}

// Unset unsets a given bit.
func (v *V) Unset(index int) {
	i, b := index/wordBits, uint64(1)<<(index%wordBits)
	if v.s[i]&b != 0 {
		v.s[i] &^= b
		v.rem++
	}
}

// IsSet checks whether a given bit is set.
func (v *V) IsSet(index int) bool {
	return v.s[index/wordBits]&(uint64(1)<<(index%wordBits)) != 0
}

// Search locates the lowest unset bit.
// It fails only when v.Rem() == 0.
func (v *V) Search() (index int, ok bool) {
	if v.rem == 0 {
		return
	}
	for i, x := range v.s {
		if x == ^uint64(0) {
			continue
		}
		index = i*wordBits + bits.TrailingZeros64(^x)
		if index >= v.n {
			return 0, false
		}
		return index, true
	}

	return
}

// Clear unsets every bit.
func (v *V) Clear() {
	clear(v.s)
	v.rem = v.n
}

// SetBits returns an iterator over the indices of set bits, in increasing order.
func (v *V) SetBits() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, x := range v.s {
			for x != 0 {
				b := bits.TrailingZeros64(x)
				if !yield(i*wordBits + b) {
					return
				}
				x &^= uint64(1) << b
			}
		}
	}
}
