// Package vec provides lane-batched 3-vector arithmetic for the winding
// surface field kernels. A Vec3Batch carries Width independent scalar lanes
// per component, so one pass of an accumulation loop advances Width
// evaluation points simultaneously against a single source node. All
// operations are lane-wise with no cross-lane dependency.
package vec

import "math"

// Width is the number of scalar lanes processed per batch. Four float64
// lanes match the 256-bit vector width the hot loops are sized for; the
// compiler keeps a [4]float64 in registers for the lane-wise operations
// below.
const Width = 4

// Lanes is one batch of independent scalars.
type Lanes [Width]float64

// Vec3Batch is a 3-vector with Width independent lanes per component.
type Vec3Batch struct {
	X, Y, Z Lanes
}

// Splat broadcasts a single 3-vector into every lane.
func Splat(x, y, z float64) Vec3Batch {
	var v Vec3Batch
	for k := 0; k < Width; k++ {
		v.X[k] = x
		v.Y[k] = y
		v.Z[k] = z
	}
	return v
}

// Gather loads up to klimit consecutive points starting at row of a flat
// (N,3) row-major array into the batch lanes. Lanes at or beyond klimit
// stay zero.
func Gather(data []float64, row, klimit int) Vec3Batch {
	var v Vec3Batch
	for k := 0; k < klimit; k++ {
		v.X[k] = data[3*(row+k)+0]
		v.Y[k] = data[3*(row+k)+1]
		v.Z[k] = data[3*(row+k)+2]
	}
	return v
}

// Scatter writes the first klimit lanes, scaled by s, into rows of a flat
// (N,3) row-major array starting at row. Inactive tail lanes are never
// written.
func (v Vec3Batch) Scatter(data []float64, row, klimit int, s float64) {
	for k := 0; k < klimit; k++ {
		data[3*(row+k)+0] = s * v.X[k]
		data[3*(row+k)+1] = s * v.Y[k]
		data[3*(row+k)+2] = s * v.Z[k]
	}
}

// Add returns v + w lane-wise.
func (v Vec3Batch) Add(w Vec3Batch) Vec3Batch {
	for k := 0; k < Width; k++ {
		v.X[k] += w.X[k]
		v.Y[k] += w.Y[k]
		v.Z[k] += w.Z[k]
	}
	return v
}

// Sub returns v - w lane-wise.
func (v Vec3Batch) Sub(w Vec3Batch) Vec3Batch {
	for k := 0; k < Width; k++ {
		v.X[k] -= w.X[k]
		v.Y[k] -= w.Y[k]
		v.Z[k] -= w.Z[k]
	}
	return v
}

// Normsq returns the lane-wise squared Euclidean norm.
func (v Vec3Batch) Normsq() Lanes {
	var a Lanes
	for k := 0; k < Width; k++ {
		a[k] = v.X[k]*v.X[k] + v.Y[k]*v.Y[k] + v.Z[k]*v.Z[k]
	}
	return a
}

// Cross returns v x w lane-wise.
func (v Vec3Batch) Cross(w Vec3Batch) Vec3Batch {
	var c Vec3Batch
	for k := 0; k < Width; k++ {
		c.X[k] = v.Y[k]*w.Z[k] - v.Z[k]*w.Y[k]
		c.Y[k] = v.Z[k]*w.X[k] - v.X[k]*w.Z[k]
		c.Z[k] = v.X[k]*w.Y[k] - v.Y[k]*w.X[k]
	}
	return c
}

// AccumMul accumulates w scaled lane-wise by a into v, component by
// component: v += w * a.
func (v *Vec3Batch) AccumMul(w Vec3Batch, a Lanes) {
	for k := 0; k < Width; k++ {
		v.X[k] += w.X[k] * a[k]
		v.Y[k] += w.Y[k] * a[k]
		v.Z[k] += w.Z[k] * a[k]
	}
}

// Rsqrt returns the lane-wise reciprocal square root 1/sqrt(a).
func Rsqrt(a Lanes) Lanes {
	for k := 0; k < Width; k++ {
		a[k] = 1.0 / math.Sqrt(a[k])
	}
	return a
}

// Mul returns the lane-wise product a * b.
func (a Lanes) Mul(b Lanes) Lanes {
	for k := 0; k < Width; k++ {
		a[k] *= b[k]
	}
	return a
}

// Scale returns the lanes multiplied by a single scalar.
func (a Lanes) Scale(s float64) Lanes {
	for k := 0; k < Width; k++ {
		a[k] *= s
	}
	return a
}
