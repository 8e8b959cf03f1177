// Package mathx collects small numeric helpers shared by the control loops:
// clamping, linear mapping and ceiling division. Grounded on
// jangala-dev-devicecode-go's x/mathx package, generalized from uint16-only
// helpers to the generic-constraint form the controller's float and integer
// math both need.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Min/Max for convenience.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Abs for signed numeric types.
func Abs[T ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// MapFloat maps x in [inMin,inMax] to [outMin,outMax] linearly. Does not
// clamp the result; callers compose with Clamp where that's required
// (see the fan loop's u_raw -> u_lin step).
func MapFloat(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return outMin + (x-inMin)*(outMax-outMin)/(inMax-inMin)
}

// CeilDiv returns ceil(a/b) for positive integers, used for BMS multi-frame
// response counts (cells/3, cells/7, ...).
func CeilDiv[T ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
