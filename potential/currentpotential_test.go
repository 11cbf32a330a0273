package potential

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/WSKernel/field"
	"github.com/notargets/WSKernel/surface"
)

func quadGrid(n int) []float64 {
	g := make([]float64, n)
	for i := range g {
		g[i] = float64(i) / float64(n)
	}
	return g
}

func TestNumDofs(t *testing.T) {
	cases := []struct {
		mpol, ntor int
		stellsym   bool
		want       int
	}{
		{0, 0, true, 0},
		{0, 0, false, 1},
		{1, 0, true, 1},
		{0, 2, true, 2},
		{2, 3, true, 17},
		{2, 3, false, 35},
		{4, 0, true, 4},
		{4, 0, false, 9},
		{3, 2, true, 17},
		{3, 2, false, 35},
	}
	for _, c := range cases {
		cp, err := NewCurrentPotentialFourier(c.mpol, c.ntor, 1, c.stellsym, nil, nil, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, c.want, cp.NumDofs(), "mpol=%d ntor=%d stellsym=%v", c.mpol, c.ntor, c.stellsym)
		assert.Len(t, cp.GetDofs(), c.want)
	}
}

func TestDofRoundTrip(t *testing.T) {
	for _, stellsym := range []bool{true, false} {
		for _, dims := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {2, 3}, {3, 2}} {
			cp, err := NewCurrentPotentialFourier(dims[0], dims[1], 2, stellsym, nil, nil, 0, 0)
			require.NoError(t, err)

			dofs := make([]float64, cp.NumDofs())
			for i := range dofs {
				dofs[i] = float64(i+1) * 0.125
			}
			require.NoError(t, cp.SetDofs(dofs))
			assert.Equal(t, dofs, cp.GetDofs(),
				"mpol=%d ntor=%d stellsym=%v", dims[0], dims[1], stellsym)
		}
	}
}

func TestStructurallyFixedCoefficients(t *testing.T) {
	cp, err := NewCurrentPotentialFourier(2, 2, 1, false, nil, nil, 0, 0)
	require.NoError(t, err)

	dofs := make([]float64, cp.NumDofs())
	for i := range dofs {
		dofs[i] = 1.0
	}
	require.NoError(t, cp.SetDofs(dofs))

	// phis entries with m=0, n<=0 never receive dof values; phic likewise
	// except for the n=0 constant slot the asymmetric packing keeps.
	for n := -cp.Ntor; n <= 0; n++ {
		assert.Zero(t, cp.Phis.At(0, n+cp.Ntor), "phis(0,%d)", n)
	}
	for n := -cp.Ntor; n < 0; n++ {
		assert.Zero(t, cp.Phic.At(0, n+cp.Ntor), "phic(0,%d)", n)
	}
}

func TestSetDofsWrongLength(t *testing.T) {
	cp, err := NewCurrentPotentialFourier(2, 2, 1, true, nil, nil, 0, 0)
	require.NoError(t, err)

	err = cp.SetDofs(make([]float64, cp.NumDofs()+1))
	assert.ErrorContains(t, err, "dof vector")
	err = cp.SetDofs(nil)
	assert.Error(t, err)

	// A failed set leaves the grids untouched.
	assert.Equal(t, make([]float64, cp.NumDofs()), cp.GetDofs())
}

func TestModeNumbersScaledByNfp(t *testing.T) {
	cp, err := NewCurrentPotentialFourier(1, 1, 3, true, nil, nil, 0, 0)
	require.NoError(t, err)
	m, n := cp.ModeNumbers()
	require.Len(t, m, cp.NumDofs())
	for i, md := range cp.Modes() {
		assert.Equal(t, md.M, m[i])
		assert.Equal(t, md.N*3, n[i])
	}
}

func TestPhiSingleMode(t *testing.T) {
	const nfp = 2
	cp, err := NewCurrentPotentialFourier(2, 1, nfp, true, nil, nil, 0, 0)
	require.NoError(t, err)

	// Set phis(m=1, n=1) alone through the dof contract.
	dofs := make([]float64, cp.NumDofs())
	for i, md := range cp.Modes() {
		if md.M == 1 && md.N == 1 && !md.Cos {
			dofs[i] = 0.75
		}
	}
	require.NoError(t, cp.SetDofs(dofs))

	qz := quadGrid(5)
	qt := quadGrid(7)
	phi := cp.Phi(qz, qt)
	for k1, z := range qz {
		for k2, th := range qt {
			want := 0.75 * math.Sin(2*math.Pi*th-float64(nfp)*2*math.Pi*z)
			assert.InDelta(t, want, phi.At(k1, k2), 1e-14, "node (%d,%d)", k1, k2)
		}
	}
}

func TestPhidashFiniteDifference(t *testing.T) {
	qz := quadGrid(4)
	qt := quadGrid(5)
	cp, err := NewCurrentPotentialFourier(2, 2, 3, false, qz, qt, 0, 0)
	require.NoError(t, err)

	dofs := make([]float64, cp.NumDofs())
	for i := range dofs {
		dofs[i] = math.Sin(float64(i) + 1) // deterministic, mixed-sign values
	}
	require.NoError(t, cp.SetDofs(dofs))

	pd1 := cp.Phidash1()
	pd2 := cp.Phidash2()

	const h = 1e-7
	shift := func(g []float64, d float64) []float64 {
		out := make([]float64, len(g))
		for i, v := range g {
			out[i] = v + d
		}
		return out
	}
	phiTp := cp.Phi(qz, shift(qt, h))
	phiTm := cp.Phi(qz, shift(qt, -h))
	phiZp := cp.Phi(shift(qz, h), qt)
	phiZm := cp.Phi(shift(qz, -h), qt)

	for k1 := range qz {
		for k2 := range qt {
			fd1 := (phiTp.At(k1, k2) - phiTm.At(k1, k2)) / (2 * h)
			fd2 := (phiZp.At(k1, k2) - phiZm.At(k1, k2)) / (2 * h)
			assert.InDelta(t, fd1, pd1.At(k1, k2), 1e-5, "Phidash1 node (%d,%d)", k1, k2)
			assert.InDelta(t, fd2, pd2.At(k1, k2), 1e-5, "Phidash2 node (%d,%d)", k1, k2)
		}
	}
}

// TestDPhidashByDcoeff verifies that the coefficient-derivative matrices
// reproduce Phidash exactly when contracted with the dof vector, which they
// must since Phidash is linear in the coefficients.
func TestDPhidashByDcoeff(t *testing.T) {
	qz := quadGrid(3)
	qt := quadGrid(4)
	for _, stellsym := range []bool{true, false} {
		cp, err := NewCurrentPotentialFourier(2, 1, 2, stellsym, qz, qt, 0, 0)
		require.NoError(t, err)

		dofs := make([]float64, cp.NumDofs())
		for i := range dofs {
			dofs[i] = math.Cos(float64(2*i) + 0.5)
		}
		require.NoError(t, cp.SetDofs(dofs))

		dofVec := mat.NewVecDense(len(dofs), dofs)
		for name, pair := range map[string]struct {
			deriv *mat.Dense
			want  *mat.Dense
		}{
			"Phidash1": {cp.DPhidash1ByDcoeff(), cp.Phidash1()},
			"Phidash2": {cp.DPhidash2ByDcoeff(), cp.Phidash2()},
		} {
			var got mat.VecDense
			got.MulVec(pair.deriv, dofVec)
			wantFlat := pair.want.RawMatrix().Data
			for i, w := range wantFlat {
				assert.InDelta(t, w, got.AtVec(i), 1e-12*math.Abs(w)+1e-13,
					"%s stellsym=%v node %d", name, stellsym, i)
			}
		}
	}
}

func TestSurfaceCurrentNetTermsOnly(t *testing.T) {
	torus, err := surface.NewTorus(1.0, 0.4, 6, 6)
	require.NoError(t, err)

	const G, I = 3.0e5, 4.0e4
	cp, err := NewCurrentPotentialFourier(1, 1, 1, true, torus.QuadZeta, torus.QuadTheta, G, I)
	require.NoError(t, err)

	// All dofs zero: K reduces to the secular term (G g1 - I g2)/|n| with
	// |n| the bare area element, independent of any normal scaling.
	K, err := cp.K(torus.Gammadash1, torus.Gammadash2)
	require.NoError(t, err)

	numNodes, _ := K.Dims()
	for j := 0; j < numNodes; j++ {
		g1 := torus.Gammadash1.RawRowView(j)
		g2 := torus.Gammadash2.RawRowView(j)
		nx := g2[1]*g1[2] - g2[2]*g1[1]
		ny := g2[2]*g1[0] - g2[0]*g1[2]
		nz := g2[0]*g1[1] - g2[1]*g1[0]
		nmag := math.Sqrt(nx*nx + ny*ny + nz*nz)
		for d := 0; d < 3; d++ {
			want := (G*g1[d] - I*g2[d]) / nmag
			assert.InDelta(t, want, K.At(j, d), 1e-9*math.Abs(want)+1e-12, "node %d component %d", j, d)
		}
	}

	// K is tangential: no component along the surface normal.
	for j := 0; j < numNodes; j++ {
		nx, ny, nz := torus.Normal.At(j, 0), torus.Normal.At(j, 1), torus.Normal.At(j, 2)
		nmag := math.Sqrt(nx*nx + ny*ny + nz*nz)
		dot := (K.At(j, 0)*nx + K.At(j, 1)*ny + K.At(j, 2)*nz) / nmag
		kmag := math.Sqrt(K.At(j, 0)*K.At(j, 0) + K.At(j, 1)*K.At(j, 1) + K.At(j, 2)*K.At(j, 2))
		assert.InDelta(t, 0, dot, 1e-10*kmag, "node %d", j)
	}
}

// TestNetPoloidalCurrentAxisField feeds the zero-dof surface current into
// the Biot-Savart evaluator and checks the realized field at the center of
// the tube against the textbook toroidal-solenoid value mu0 G / (2 pi R0).
// The quadrature weight enters exactly once on this path, through the
// area-weighted normals consumed by the field sum.
func TestNetPoloidalCurrentAxisField(t *testing.T) {
	const (
		r0Major = 1.0
		r0Minor = 0.55
		G       = 1.0e6
	)
	torus, err := surface.NewTorus(r0Major, r0Minor, 24, 24)
	require.NoError(t, err)
	cp, err := NewCurrentPotentialFourier(2, 2, 1, true, torus.QuadZeta, torus.QuadTheta, G, 0)
	require.NoError(t, err)

	K, err := cp.K(torus.Gammadash1, torus.Gammadash2)
	require.NoError(t, err)

	points := mat.NewDense(2, 3, []float64{
		r0Major, 0, 0,
		0, r0Major, 0,
	})
	B, err := field.B(points, torus.Gamma, torus.Normal, K)
	require.NoError(t, err)

	// The poloidal current descends on the inboard side, so the toroidal
	// field inside the tube points along -phi.
	want := -4 * math.Pi * 1e-7 * G / (2 * math.Pi * r0Major)
	assert.InDelta(t, want, B.At(0, 1), 1e-5*math.Abs(want), "toroidal component at phi=0")
	assert.InDelta(t, -want, B.At(1, 0), 1e-5*math.Abs(want), "toroidal component at phi=pi/2")
	for _, idx := range [][2]int{{0, 0}, {0, 2}, {1, 1}, {1, 2}} {
		assert.InDelta(t, 0, B.At(idx[0], idx[1]), 1e-6*math.Abs(want),
			"component (%d,%d)", idx[0], idx[1])
	}
}

func TestKLayoutValidation(t *testing.T) {
	torus, err := surface.NewTorus(1.0, 0.4, 4, 4)
	require.NoError(t, err)
	cp, err := NewCurrentPotentialFourier(1, 1, 1, true, torus.QuadZeta, torus.QuadTheta, 1e5, 0)
	require.NoError(t, err)

	wide := mat.NewDense(16, 6, nil)
	strided := wide.Slice(0, 16, 0, 3).(*mat.Dense)

	_, err = cp.K(strided, torus.Gammadash2)
	assert.ErrorContains(t, err, "gammadash1")
	_, err = cp.K(torus.Gammadash1, strided)
	assert.ErrorContains(t, err, "gammadash2")
}

func TestInvalidConstruction(t *testing.T) {
	_, err := NewCurrentPotentialFourier(-1, 0, 1, true, nil, nil, 0, 0)
	assert.Error(t, err)
	_, err = NewCurrentPotentialFourier(1, -2, 1, true, nil, nil, 0, 0)
	assert.Error(t, err)
	_, err = NewCurrentPotentialFourier(1, 1, 0, true, nil, nil, 0, 0)
	assert.Error(t, err)
}
