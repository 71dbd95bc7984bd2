// Package integrate provides the time-integration and grid-reconciliation
// kernels used to rebuild whole-run cumulative quantities from per-sub-run
// rate series (the re-application case).
package integrate

import (
	"fmt"
	"math"
	"slices"
)

// KeepFirst drops rows whose time value repeats an earlier one, keeping the
// first occurrence. Composite runs stitched from sub-runs repeat the boundary
// time sample; keep-first is the documented resolution policy (never sum or
// average).
func KeepFirst(time, vals []float64) (outT, outV []float64) {
	seen := make(map[float64]bool, len(time))
	for i, t := range time {
		if seen[t] {
			continue
		}
		seen[t] = true
		outT = append(outT, t)
		outV = append(outV, vals[i])
	}
	return outT, outV
}

// CumTrapz returns the cumulative trapezoidal integral of rate over time,
// defined as zero at the first time point. Duplicate time values must be
// removed first (see KeepFirst).
func CumTrapz(rate, time []float64) ([]float64, error) {
	if len(rate) != len(time) {
		return nil, fmt.Errorf("integrate: rate has %d samples, time has %d", len(rate), len(time))
	}
	if len(time) == 0 {
		return nil, nil
	}
	out := make([]float64, len(time))
	for i := 1; i < len(time); i++ {
		out[i] = out[i-1] + 0.5*(rate[i]+rate[i-1])*(time[i]-time[i-1])
	}
	return out, nil
}

// UnionGrid merges two increasing time grids into their sorted union,
// dropping duplicates.
func UnionGrid(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Interp linearly interpolates the series (srcTime, srcVals) onto dstTime.
// Points outside the source range have nothing to interpolate from and come
// back NaN, which propagates downstream rather than raising.
func Interp(srcTime, srcVals, dstTime []float64) []float64 {
	out := make([]float64, len(dstTime))
	for i, t := range dstTime {
		out[i] = interpAt(srcTime, srcVals, t)
	}
	return out
}

func interpAt(xs, ys []float64, x float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	// find first xs[j] >= x
	j, found := slices.BinarySearch(xs, x)
	if found {
		return ys[j]
	}
	if j == 0 || j == len(xs) {
		return math.NaN()
	}
	x0, x1 := xs[j-1], xs[j]
	y0, y1 := ys[j-1], ys[j]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// ResampleIntegral reconciles an integral computed on its own grid with a
// target grid of different length: duplicate source times are dropped
// (keep-first), the integral is interpolated onto the union of the two grids,
// then restricted back to exactly the target time points.
func ResampleIntegral(srcTime, srcIntegral, targetTime []float64) []float64 {
	st, sv := KeepFirst(srcTime, srcIntegral)
	grid := UnionGrid(st, targetTime)
	onGrid := Interp(st, sv, grid)
	return Interp(grid, onGrid, targetTime)
}
