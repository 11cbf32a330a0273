// Package surface provides a circular-cross-section torus discretized on a
// uniform (zeta, theta) quadrature grid, in the geometry contract the field
// and regcoil kernels consume: flat (M,3) point, tangent and area-weighted
// normal arrays in zeta-major node order.
package surface

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Torus is an axisymmetric torus of major radius R0 and minor radius R,
// sampled at NZeta*NTheta quadrature nodes. Normal rows are scaled so that
// the magnitude of each row equals the area element owned by that node,
// which makes a plain sum over nodes a surface-integral quadrature.
type Torus struct {
	R0, R         float64
	NZeta, NTheta int

	QuadZeta, QuadTheta []float64

	Gamma      *mat.Dense // (M,3) quadrature points
	Normal     *mat.Dense // (M,3) outward, area-weighted
	Gammadash1 *mat.Dense // (M,3) d gamma / d theta, unit parameter
	Gammadash2 *mat.Dense // (M,3) d gamma / d zeta, unit parameter
}

// NewTorus builds the torus geometry arrays. The quadrature parameters are
// uniform in [0,1) with nZeta*nTheta nodes.
func NewTorus(r0Major, r0Minor float64, nZeta, nTheta int) (*Torus, error) {
	if r0Major <= 0 || r0Minor <= 0 || r0Minor >= r0Major {
		return nil, fmt.Errorf("invalid torus radii: R0=%g, r=%g", r0Major, r0Minor)
	}
	if nZeta < 1 || nTheta < 1 {
		return nil, fmt.Errorf("invalid quadrature resolution: nZeta=%d, nTheta=%d", nZeta, nTheta)
	}
	t := &Torus{
		R0: r0Major, R: r0Minor,
		NZeta: nZeta, NTheta: nTheta,
		QuadZeta:   uniformGrid(nZeta),
		QuadTheta:  uniformGrid(nTheta),
		Gamma:      mat.NewDense(nZeta*nTheta, 3, nil),
		Normal:     mat.NewDense(nZeta*nTheta, 3, nil),
		Gammadash1: mat.NewDense(nZeta*nTheta, 3, nil),
		Gammadash2: mat.NewDense(nZeta*nTheta, 3, nil),
	}
	t.build()
	return t, nil
}

func uniformGrid(n int) []float64 {
	g := make([]float64, n)
	for i := range g {
		g[i] = float64(i) / float64(n)
	}
	return g
}

func (t *Torus) build() {
	twoPi := 2 * math.Pi
	// Per-node quadrature weight: d zeta * d theta on the unit square.
	w := 1.0 / float64(t.NZeta*t.NTheta)
	for iz, qz := range t.QuadZeta {
		phi := twoPi * qz
		cphi, sphi := math.Cos(phi), math.Sin(phi)
		for it, qt := range t.QuadTheta {
			vth := twoPi * qt
			cth, sth := math.Cos(vth), math.Sin(vth)
			row := iz*t.NTheta + it

			ring := t.R0 + t.R*cth
			t.Gamma.SetRow(row, []float64{ring * cphi, ring * sphi, t.R * sth})

			// Tangents with respect to the unit quadrature parameters.
			d1 := []float64{-twoPi * t.R * sth * cphi, -twoPi * t.R * sth * sphi, twoPi * t.R * cth}
			d2 := []float64{-twoPi * ring * sphi, twoPi * ring * cphi, 0}
			t.Gammadash1.SetRow(row, d1)
			t.Gammadash2.SetRow(row, d2)

			// Outward normal gammadash2 x gammadash1, scaled by the node
			// weight so |row| is the node's area element.
			nx := d2[1]*d1[2] - d2[2]*d1[1]
			ny := d2[2]*d1[0] - d2[0]*d1[2]
			nz := d2[0]*d1[1] - d2[1]*d1[0]
			t.Normal.SetRow(row, []float64{w * nx, w * ny, w * nz})
		}
	}
}

// Area returns the exact surface area 4 pi^2 R0 r, the value the summed
// normal magnitudes converge to.
func (t *Torus) Area() float64 {
	return 4 * math.Pi * math.Pi * t.R0 * t.R
}
