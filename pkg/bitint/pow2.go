/*
Package bitint provides the power-of-2 helpers used to vet FFT frame sizes.

Both functions are O(1), allocation free and safe to call from the audio
callback.

	bitint.IsPowerOfTwo(1024)  // true, radix-2 FFT path
	bitint.NextPowerOfTwo(1000) // 1024, nearest radix-2 size for a hint

NextPowerOfTwo subtracts one before taking the bit length so an exact power
of 2 maps to itself: for 8, Len(7) = 3 and 1<<3 = 8. Without the
subtraction Len(8) = 4 would double it to 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive
// input yields 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of 2 has
// a single set bit, so clearing the lowest set bit with n&(n-1) leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
