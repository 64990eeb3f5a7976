// Some helpers for bit-width arithmetic on hardware signals
package bitutil

import "math/bits"

// ClogBase2 returns the number of bits needed to address n distinct
// values. n must be positive.
func ClogBase2(n int) int {
	if n <= 0 {
		panic("clog2 of non-positive value")
	}

	return bits.Len(uint(n - 1))
}

// Mask returns a mask with the lowest width bits set.
func Mask(width int) uint64 {
	if width < 0 || width > 64 {
		panic("mask width out of range")
	}

	if width == 64 {
		return ^uint64(0)
	}

	return (uint64(1) << width) - 1
}
