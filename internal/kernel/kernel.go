// Package kernel holds the shared numeric batch kernels used by the flux
// recovery pipeline: widening raw 16-bit interval samples to 32-bit tick
// values and flat min/max/sum reductions.
//
// Every kernel exists in two forms: a scalar reference implementation and a
// blocked implementation that processes fixed-width chunks so the compiler
// can keep the hot loop in registers. The two forms are required to produce
// bit-identical output; all arithmetic is integer accumulation with any
// float conversion deferred to the final step. The active form is chosen
// once at init and can be overridden (tests run both over the same input).
package kernel

// Strategy selects which kernel implementation executes batch operations.
type Strategy int

const (
	// Scalar runs the one-element-at-a-time reference implementation.
	Scalar Strategy = iota
	// Blocked8 runs the 8-wide blocked implementation.
	Blocked8
)

func (s Strategy) String() string {
	switch s {
	case Scalar:
		return "scalar"
	case Blocked8:
		return "blocked8"
	default:
		return "unknown"
	}
}

var active = Blocked8

// SelectStrategy overrides the active kernel strategy.
func SelectStrategy(s Strategy) {
	if s != Scalar && s != Blocked8 {
		s = Scalar
	}
	active = s
}

// ActiveStrategy reports the strategy batch kernels currently run with.
func ActiveStrategy() Strategy { return active }

// WidenIntervals converts big-endian 16-bit flux interval samples to 32-bit
// values in ticks of the given scale. A zero 16-bit sample is not an
// interval: it is an overflow marker that carries 65536 into the next
// non-zero sample, so the output can be shorter than the input. Trailing
// overflow markers with no closing sample are dropped. raw must hold an
// even number of bytes; a trailing odd byte is ignored.
func WidenIntervals(raw []byte, scale uint32) []uint32 {
	if len(raw) < 2 || scale == 0 {
		return nil
	}
	if active == Blocked8 {
		return widenBlocked(raw, scale)
	}
	return widenScalar(raw, scale)
}

func widenScalar(raw []byte, scale uint32) []uint32 {
	n := len(raw) / 2
	out := make([]uint32, 0, n)
	var carry uint32
	for i := 0; i < n; i++ {
		v := uint32(raw[2*i])<<8 | uint32(raw[2*i+1])
		if v == 0 {
			carry += 65536
			continue
		}
		out = append(out, (v+carry)*scale)
		carry = 0
	}
	return out
}

// widenBlocked processes 8 samples per iteration. Blocks containing an
// overflow marker fall back to per-sample handling so the carry chain stays
// exact; marker-free blocks take the straight-line path.
func widenBlocked(raw []byte, scale uint32) []uint32 {
	n := len(raw) / 2
	out := make([]uint32, 0, n)
	var carry uint32

	i := 0
	for ; i+8 <= n; i += 8 {
		b := raw[2*i : 2*i+16]
		var v [8]uint32
		hasZero := false
		for j := 0; j < 8; j++ {
			v[j] = uint32(b[2*j])<<8 | uint32(b[2*j+1])
			if v[j] == 0 {
				hasZero = true
			}
		}
		if !hasZero && carry == 0 {
			out = append(out,
				v[0]*scale, v[1]*scale, v[2]*scale, v[3]*scale,
				v[4]*scale, v[5]*scale, v[6]*scale, v[7]*scale)
			continue
		}
		for j := 0; j < 8; j++ {
			if v[j] == 0 {
				carry += 65536
				continue
			}
			out = append(out, (v[j]+carry)*scale)
			carry = 0
		}
	}
	for ; i < n; i++ {
		v := uint32(raw[2*i])<<8 | uint32(raw[2*i+1])
		if v == 0 {
			carry += 65536
			continue
		}
		out = append(out, (v+carry)*scale)
		carry = 0
	}
	return out
}

// MinMaxSum reduces a flat sample array to its minimum, maximum and exact
// 64-bit sum. Zero-length input yields all zeros.
func MinMaxSum(v []uint32) (min, max uint32, sum uint64) {
	if len(v) == 0 {
		return 0, 0, 0
	}
	if active == Blocked8 {
		return minMaxSumBlocked(v)
	}
	return minMaxSumScalar(v)
}

func minMaxSumScalar(v []uint32) (min, max uint32, sum uint64) {
	min, max = v[0], v[0]
	for _, x := range v {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
		sum += uint64(x)
	}
	return min, max, sum
}

func minMaxSumBlocked(v []uint32) (min, max uint32, sum uint64) {
	min, max = v[0], v[0]
	var s0, s1, s2, s3 uint64

	i := 0
	for ; i+4 <= len(v); i += 4 {
		a, b, c, d := v[i], v[i+1], v[i+2], v[i+3]
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
		if b < min {
			min = b
		}
		if b > max {
			max = b
		}
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		s0 += uint64(a)
		s1 += uint64(b)
		s2 += uint64(c)
		s3 += uint64(d)
	}
	sum = s0 + s1 + s2 + s3
	for ; i < len(v); i++ {
		x := v[i]
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
		sum += uint64(x)
	}
	return min, max, sum
}

// Mean returns the arithmetic mean of v, or 0 for empty input. The division
// happens once on the exact integer sum so both strategies agree bitwise.
func Mean(v []uint32) float64 {
	if len(v) == 0 {
		return 0
	}
	_, _, sum := MinMaxSum(v)
	return float64(sum) / float64(len(v))
}
