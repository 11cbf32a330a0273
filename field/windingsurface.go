// Package field evaluates the magnetic field, magnetic vector potential and
// their spatial Jacobians induced by a surface current density discretized
// on a winding-surface quadrature grid.
//
// Every evaluator is a Biot-Savart-type quadrature sum, not a true surface
// integral: accuracy depends entirely on the density of the caller's grid.
// Inputs follow one shared contract: points is the (N,3) evaluation set;
// wsPoints, wsNormal and K are (M,3) with one row per quadrature node, where
// the magnitude of each wsNormal row is the local area element so the
// quadrature weight rides along with the geometry. All four must be
// contiguous row-major; a strided view is rejected before any output is
// allocated. Coincident evaluation and source points are not guarded:
// the caller must keep the evaluation set off the winding surface, or
// accept Inf/NaN in the affected rows.
package field

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/WSKernel/utils"
	"github.com/notargets/WSKernel/vec"
)

// fak is mu0 / (4 pi) in SI units: currents in amperes, lengths in meters.
// It is applied once per output row at write-back rather than per
// accumulation term.
const fak = 1e-7

// batchChunk is the number of lane batches one parallel work item owns.
const batchChunk = 16

func checkInputs(points, wsPoints, wsNormal, K *mat.Dense) error {
	return utils.CheckRowMajorAll(map[string]*mat.Dense{
		"points":                 points,
		"winding surface points": wsPoints,
		"winding surface normal": wsNormal,
		"surface current":        K,
	}, []string{"points", "winding surface points", "winding surface normal", "surface current"})
}

// nodeMag returns |row j| of a flat (M,3) array.
func nodeMag(data []float64, j int) float64 {
	x, y, z := data[3*j], data[3*j+1], data[3*j+2]
	return math.Sqrt(x*x + y*y + z*z)
}

// B evaluates the magnetic field at points induced by the surface current K
// on the winding surface, returning an (N,3) array.
func B(points, wsPoints, wsNormal, K *mat.Dense) (*mat.Dense, error) {
	if err := checkInputs(points, wsPoints, wsNormal, K); err != nil {
		return nil, err
	}
	numPoints, _ := points.Dims()
	numWS, _ := wsPoints.Dims()
	pts := points.RawMatrix().Data
	wsp := wsPoints.RawMatrix().Data
	wsn := wsNormal.RawMatrix().Data
	cur := K.RawMatrix().Data

	out := mat.NewDense(numPoints, 3, nil)
	outData := out.RawMatrix().Data

	numBatches := (numPoints + vec.Width - 1) / vec.Width
	utils.ParallelRange(numBatches, batchChunk, func(lo, hi int) {
		for bi := lo; bi < hi; bi++ {
			i := bi * vec.Width
			klimit := min(vec.Width, numPoints-i)
			pointI := vec.Gather(pts, i, klimit)
			var acc vec.Vec3Batch
			// Surface integral over the winding surface, fixed source order.
			for j := 0; j < numWS; j++ {
				rJ := vec.Splat(wsp[3*j], wsp[3*j+1], wsp[3*j+2])
				kJ := vec.Splat(cur[3*j], cur[3*j+1], cur[3*j+2])
				nmag := nodeMag(wsn, j)
				r := pointI.Sub(rJ)
				rinv := vec.Rsqrt(r.Normsq())
				rinv3 := rinv.Mul(rinv).Mul(rinv)
				acc.AccumMul(kJ.Cross(r), rinv3.Scale(nmag))
			}
			acc.Scatter(outData, i, klimit, fak)
		}
	})
	return out, nil
}

// A evaluates the magnetic vector potential at points induced by the surface
// current K on the winding surface, returning an (N,3) array.
func A(points, wsPoints, wsNormal, K *mat.Dense) (*mat.Dense, error) {
	if err := checkInputs(points, wsPoints, wsNormal, K); err != nil {
		return nil, err
	}
	numPoints, _ := points.Dims()
	numWS, _ := wsPoints.Dims()
	pts := points.RawMatrix().Data
	wsp := wsPoints.RawMatrix().Data
	wsn := wsNormal.RawMatrix().Data
	cur := K.RawMatrix().Data

	out := mat.NewDense(numPoints, 3, nil)
	outData := out.RawMatrix().Data

	numBatches := (numPoints + vec.Width - 1) / vec.Width
	utils.ParallelRange(numBatches, batchChunk, func(lo, hi int) {
		for bi := lo; bi < hi; bi++ {
			i := bi * vec.Width
			klimit := min(vec.Width, numPoints-i)
			pointI := vec.Gather(pts, i, klimit)
			var acc vec.Vec3Batch
			for j := 0; j < numWS; j++ {
				rJ := vec.Splat(wsp[3*j], wsp[3*j+1], wsp[3*j+2])
				kJ := vec.Splat(cur[3*j], cur[3*j+1], cur[3*j+2])
				nmag := nodeMag(wsn, j)
				r := pointI.Sub(rJ)
				rinv := vec.Rsqrt(r.Normsq())
				acc.AccumMul(kJ, rinv.Scale(nmag))
			}
			acc.Scatter(outData, i, klimit, fak)
		}
	})
	return out, nil
}

// DB evaluates the spatial Jacobian of the magnetic field at points,
// returning an (N,9) array where element a*3+b of row i is dB_b/dx_a.
func DB(points, wsPoints, wsNormal, K *mat.Dense) (*mat.Dense, error) {
	if err := checkInputs(points, wsPoints, wsNormal, K); err != nil {
		return nil, err
	}
	numPoints, _ := points.Dims()
	numWS, _ := wsPoints.Dims()
	pts := points.RawMatrix().Data
	wsp := wsPoints.RawMatrix().Data
	wsn := wsNormal.RawMatrix().Data
	cur := K.RawMatrix().Data

	out := mat.NewDense(numPoints, 9, nil)
	outData := out.RawMatrix().Data

	numBatches := (numPoints + vec.Width - 1) / vec.Width
	utils.ParallelRange(numBatches, batchChunk, func(lo, hi int) {
		for bi := lo; bi < hi; bi++ {
			i := bi * vec.Width
			klimit := min(vec.Width, numPoints-i)
			pointI := vec.Gather(pts, i, klimit)
			var dB1, dB2, dB3 vec.Vec3Batch
			for j := 0; j < numWS; j++ {
				rJ := vec.Splat(wsp[3*j], wsp[3*j+1], wsp[3*j+2])
				kx, ky, kz := cur[3*j], cur[3*j+1], cur[3*j+2]
				kJ := vec.Splat(kx, ky, kz)
				nmag := nodeMag(wsn, j)
				r := pointI.Sub(rJ)
				rinv := vec.Rsqrt(r.Normsq())
				rinv3 := rinv.Mul(rinv).Mul(rinv)
				rinv5 := rinv3.Mul(rinv).Mul(rinv)
				kxr := kJ.Cross(r)
				// K x e_a for the three axis directions, per source node.
				kxEx := vec.Splat(0, kz, -ky)
				kxEy := vec.Splat(-kz, 0, kx)
				kxEz := vec.Splat(ky, -kx, 0)
				// dB[a] += |n| (K x e_a rinv^3 - 3 (K x r) rinv^5 r_a)
				w3 := rinv3.Scale(nmag)
				w5 := rinv5.Scale(-3.0 * nmag)
				dB1.AccumMul(kxEx, w3)
				dB1.AccumMul(kxr, w5.Mul(r.X))
				dB2.AccumMul(kxEy, w3)
				dB2.AccumMul(kxr, w5.Mul(r.Y))
				dB3.AccumMul(kxEz, w3)
				dB3.AccumMul(kxr, w5.Mul(r.Z))
			}
			scatterJacobian(outData, i, klimit, dB1, dB2, dB3)
		}
	})
	return out, nil
}

// DA evaluates the spatial Jacobian of the vector potential at points,
// returning an (N,9) array where element a*3+b of row i is dA_b/dx_a.
func DA(points, wsPoints, wsNormal, K *mat.Dense) (*mat.Dense, error) {
	if err := checkInputs(points, wsPoints, wsNormal, K); err != nil {
		return nil, err
	}
	numPoints, _ := points.Dims()
	numWS, _ := wsPoints.Dims()
	pts := points.RawMatrix().Data
	wsp := wsPoints.RawMatrix().Data
	wsn := wsNormal.RawMatrix().Data
	cur := K.RawMatrix().Data

	out := mat.NewDense(numPoints, 9, nil)
	outData := out.RawMatrix().Data

	numBatches := (numPoints + vec.Width - 1) / vec.Width
	utils.ParallelRange(numBatches, batchChunk, func(lo, hi int) {
		for bi := lo; bi < hi; bi++ {
			i := bi * vec.Width
			klimit := min(vec.Width, numPoints-i)
			pointI := vec.Gather(pts, i, klimit)
			var dA1, dA2, dA3 vec.Vec3Batch
			for j := 0; j < numWS; j++ {
				rJ := vec.Splat(wsp[3*j], wsp[3*j+1], wsp[3*j+2])
				kJ := vec.Splat(cur[3*j], cur[3*j+1], cur[3*j+2])
				nmag := nodeMag(wsn, j)
				r := pointI.Sub(rJ)
				rinv := vec.Rsqrt(r.Normsq())
				rinv3 := rinv.Mul(rinv).Mul(rinv)
				// dA[a] += -|n| K r_a rinv^3
				w := rinv3.Scale(-nmag)
				dA1.AccumMul(kJ, w.Mul(r.X))
				dA2.AccumMul(kJ, w.Mul(r.Y))
				dA3.AccumMul(kJ, w.Mul(r.Z))
			}
			scatterJacobian(outData, i, klimit, dA1, dA2, dA3)
		}
	})
	return out, nil
}

// scatterJacobian writes the first klimit lanes of the three per-axis
// accumulators into rows of a flat (N,9) array, scaled by fak.
func scatterJacobian(data []float64, row, klimit int, d1, d2, d3 vec.Vec3Batch) {
	for k := 0; k < klimit; k++ {
		base := 9 * (row + k)
		data[base+0] = fak * d1.X[k]
		data[base+1] = fak * d1.Y[k]
		data[base+2] = fak * d1.Z[k]
		data[base+3] = fak * d2.X[k]
		data[base+4] = fak * d2.Y[k]
		data[base+5] = fak * d2.Z[k]
		data[base+6] = fak * d3.X[k]
		data[base+7] = fak * d3.Y[k]
		data[base+8] = fak * d3.Z[k]
	}
}
