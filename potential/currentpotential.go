// Package potential holds the truncated double Fourier series representing
// a winding-surface current potential, together with the flat dof-vector
// packing contract consumed by an external optimizer.
//
// Coefficient grids phis/phic have shape (mpol+1, 2*ntor+1), indexed by
// poloidal mode m in [0, mpol] and toroidal mode n in [-ntor, ntor] at
// column n+ntor. Entries with m=0 and n<=0 are structurally fixed: they are
// degenerate with the net-current terms and with an arbitrary additive
// constant in the potential, so they never appear in the dof vector.
package potential

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/WSKernel/utils"
)

// Mode identifies one free Fourier coefficient: the (m, n) mode numbers and
// the trigonometric family it multiplies. The dof vector is ordered by this
// table, which is computed once at construction so the free/fixed partition
// never re-derives flat-index arithmetic.
type Mode struct {
	M   int  // poloidal mode number
	N   int  // toroidal mode number, in units of nfp
	Cos bool // phic coefficient when true, phis otherwise
}

// CurrentPotentialFourier is the Fourier parametrization of a current
// potential on a winding surface with nfp field periods.
type CurrentPotentialFourier struct {
	Mpol, Ntor, Nfp int
	Stellsym        bool

	// Phis and Phic are the sine and cosine coefficient grids,
	// (Mpol+1, 2*Ntor+1) each. Phic stays zero under stellarator symmetry.
	Phis, Phic *mat.Dense

	NetPoloidalCurrentAmperes float64
	NetToroidalCurrentAmperes float64

	// Quadrature points of the owning winding surface, in [0,1).
	QuadZeta, QuadTheta []float64

	modes []Mode
}

// NewCurrentPotentialFourier allocates a zero-coefficient current potential.
func NewCurrentPotentialFourier(mpol, ntor, nfp int, stellsym bool,
	quadZeta, quadTheta []float64, netPoloidal, netToroidal float64) (*CurrentPotentialFourier, error) {

	if mpol < 0 || ntor < 0 {
		return nil, fmt.Errorf("invalid mode resolution: mpol=%d, ntor=%d", mpol, ntor)
	}
	if nfp < 1 {
		return nil, fmt.Errorf("invalid field period count: nfp=%d", nfp)
	}
	cp := &CurrentPotentialFourier{
		Mpol: mpol, Ntor: ntor, Nfp: nfp, Stellsym: stellsym,
		Phis:                      mat.NewDense(mpol+1, 2*ntor+1, nil),
		Phic:                      mat.NewDense(mpol+1, 2*ntor+1, nil),
		NetPoloidalCurrentAmperes: netPoloidal,
		NetToroidalCurrentAmperes: netToroidal,
		QuadZeta:                  quadZeta,
		QuadTheta:                 quadTheta,
	}
	cp.buildModeTable()
	return cp, nil
}

// buildModeTable enumerates the free coefficients in dof order: phis entries
// with flat index >= ntor+1, then, without stellarator symmetry, phic
// entries with flat index >= ntor.
func (cp *CurrentPotentialFourier) buildModeTable() {
	width := 2*cp.Ntor + 1
	shift := (cp.Mpol + 1) * width
	for i := cp.Ntor + 1; i < shift; i++ {
		cp.modes = append(cp.modes, Mode{M: i / width, N: i%width - cp.Ntor})
	}
	if !cp.Stellsym {
		for i := cp.Ntor; i < shift; i++ {
			cp.modes = append(cp.modes, Mode{M: i / width, N: i%width - cp.Ntor, Cos: true})
		}
	}
}

// NumDofs returns the number of free coefficients:
// mpol*(2*ntor+1) + ntor with stellarator symmetry, and
// 2*(mpol+1)*(2*ntor+1) - 2*ntor - 1 without.
func (cp *CurrentPotentialFourier) NumDofs() int {
	return len(cp.modes)
}

// Modes returns the (m, n, family) key of every dof slot, in dof order.
func (cp *CurrentPotentialFourier) Modes() []Mode {
	out := make([]Mode, len(cp.modes))
	copy(out, cp.modes)
	return out
}

// ModeNumbers returns the poloidal and toroidal mode-number arrays in dof
// order, the form the regcoil sensitivity builder consumes. Toroidal mode
// numbers are scaled by nfp.
func (cp *CurrentPotentialFourier) ModeNumbers() (m, n []int) {
	m = make([]int, len(cp.modes))
	n = make([]int, len(cp.modes))
	for i, md := range cp.modes {
		m[i] = md.M
		n[i] = md.N * cp.Nfp
	}
	return m, n
}

func (cp *CurrentPotentialFourier) grid(md Mode) *mat.Dense {
	if md.Cos {
		return cp.Phic
	}
	return cp.Phis
}

// SetDofs writes the flat dof vector into the coefficient grids. The vector
// length must equal NumDofs exactly; anything else is a contract violation
// and nothing is written.
func (cp *CurrentPotentialFourier) SetDofs(dofs []float64) error {
	if len(dofs) != len(cp.modes) {
		return fmt.Errorf("dof vector has length %d, want %d", len(dofs), len(cp.modes))
	}
	for i, md := range cp.modes {
		cp.grid(md).Set(md.M, md.N+cp.Ntor, dofs[i])
	}
	return nil
}

// GetDofs packs the free coefficients into a flat vector, the exact inverse
// of SetDofs over the free-coefficient subset.
func (cp *CurrentPotentialFourier) GetDofs() []float64 {
	dofs := make([]float64, len(cp.modes))
	for i, md := range cp.modes {
		dofs[i] = cp.grid(md).At(md.M, md.N+cp.Ntor)
	}
	return dofs
}

// Phi evaluates the single-valued current potential on the tensor grid of
// the given quadrature points (both in [0,1)), returning a
// (len(quadZeta), len(quadTheta)) matrix.
func (cp *CurrentPotentialFourier) Phi(quadZeta, quadTheta []float64) *mat.Dense {
	data := mat.NewDense(len(quadZeta), len(quadTheta), nil)
	for k1, qz := range quadZeta {
		zeta := 2 * math.Pi * qz
		for k2, qt := range quadTheta {
			theta := 2 * math.Pi * qt
			sum := 0.0
			for m := 0; m <= cp.Mpol; m++ {
				for i := 0; i < 2*cp.Ntor+1; i++ {
					n := i - cp.Ntor
					angle := float64(m)*theta - float64(n*cp.Nfp)*zeta
					sum += cp.Phis.At(m, i) * math.Sin(angle)
					if !cp.Stellsym {
						sum += cp.Phic.At(m, i) * math.Cos(angle)
					}
				}
			}
			data.Set(k1, k2, sum)
		}
	}
	return data
}

// Phidash1 evaluates the poloidal derivative of the potential with respect
// to the unit theta parameter on the object's own quadrature grid,
// returning (len(QuadZeta), len(QuadTheta)).
func (cp *CurrentPotentialFourier) Phidash1() *mat.Dense {
	data := mat.NewDense(len(cp.QuadZeta), len(cp.QuadTheta), nil)
	for k1, qz := range cp.QuadZeta {
		zeta := 2 * math.Pi * qz
		for k2, qt := range cp.QuadTheta {
			theta := 2 * math.Pi * qt
			sum := 0.0
			for m := 0; m <= cp.Mpol; m++ {
				fac := 2 * math.Pi * float64(m)
				for i := 0; i < 2*cp.Ntor+1; i++ {
					n := i - cp.Ntor
					angle := float64(m)*theta - float64(n*cp.Nfp)*zeta
					sum += cp.Phis.At(m, i) * fac * math.Cos(angle)
					if !cp.Stellsym {
						sum -= cp.Phic.At(m, i) * fac * math.Sin(angle)
					}
				}
			}
			data.Set(k1, k2, sum)
		}
	}
	return data
}

// Phidash2 evaluates the toroidal derivative of the potential with respect
// to the unit zeta parameter on the object's own quadrature grid,
// returning (len(QuadZeta), len(QuadTheta)).
func (cp *CurrentPotentialFourier) Phidash2() *mat.Dense {
	data := mat.NewDense(len(cp.QuadZeta), len(cp.QuadTheta), nil)
	for k1, qz := range cp.QuadZeta {
		zeta := 2 * math.Pi * qz
		for k2, qt := range cp.QuadTheta {
			theta := 2 * math.Pi * qt
			sum := 0.0
			for m := 0; m <= cp.Mpol; m++ {
				for i := 0; i < 2*cp.Ntor+1; i++ {
					n := i - cp.Ntor
					fac := -2 * math.Pi * float64(n*cp.Nfp)
					angle := float64(m)*theta - float64(n*cp.Nfp)*zeta
					sum += cp.Phis.At(m, i) * fac * math.Cos(angle)
					if !cp.Stellsym {
						sum -= cp.Phic.At(m, i) * fac * math.Sin(angle)
					}
				}
			}
			data.Set(k1, k2, sum)
		}
	}
	return data
}

// DPhidash1ByDcoeff returns the derivative of Phidash1 at every node of the
// object's quadrature grid with respect to every dof, shape
// (len(QuadZeta)*len(QuadTheta), NumDofs) with zeta-major node ordering.
func (cp *CurrentPotentialFourier) DPhidash1ByDcoeff() *mat.Dense {
	return cp.dPhidashByDcoeff(func(md Mode, angle float64) float64 {
		fac := 2 * math.Pi * float64(md.M)
		if md.Cos {
			return -fac * math.Sin(angle)
		}
		return fac * math.Cos(angle)
	})
}

// DPhidash2ByDcoeff returns the derivative of Phidash2 with respect to every
// dof, in the same layout as DPhidash1ByDcoeff.
func (cp *CurrentPotentialFourier) DPhidash2ByDcoeff() *mat.Dense {
	return cp.dPhidashByDcoeff(func(md Mode, angle float64) float64 {
		fac := -2 * math.Pi * float64(md.N*cp.Nfp)
		if md.Cos {
			return -fac * math.Sin(angle)
		}
		return fac * math.Cos(angle)
	})
}

func (cp *CurrentPotentialFourier) dPhidashByDcoeff(term func(md Mode, angle float64) float64) *mat.Dense {
	nz, nt := len(cp.QuadZeta), len(cp.QuadTheta)
	data := mat.NewDense(nz*nt, len(cp.modes), nil)
	for k1, qz := range cp.QuadZeta {
		zeta := 2 * math.Pi * qz
		for k2, qt := range cp.QuadTheta {
			theta := 2 * math.Pi * qt
			row := k1*nt + k2
			for d, md := range cp.modes {
				angle := float64(md.M)*theta - float64(md.N*cp.Nfp)*zeta
				data.Set(row, d, term(md, angle))
			}
		}
	}
	return data
}

// K evaluates the surface current density on the winding surface quadrature
// grid. gammadash1/gammadash2 are the surface tangents with respect to the
// unit theta and zeta parameters, (M,3) with M =
// len(QuadZeta)*len(QuadTheta) in zeta-major node order. The current is the
// surface gradient of the total potential rotated about the outward normal
// gammadash2 x gammadash1, with the secular net-current terms included:
//
//	K = ((dPhi/dzeta + G) gammadash1 - (dPhi/dtheta + I) gammadash2) / |n|
//
// with G and I the net poloidal and toroidal currents in amperes and |n| =
// |gammadash2 x gammadash1| the local area element. K carries no quadrature
// weight; the field evaluators pick that up from their area-weighted
// normals.
func (cp *CurrentPotentialFourier) K(gammadash1, gammadash2 *mat.Dense) (*mat.Dense, error) {
	err := utils.CheckRowMajorAll(map[string]*mat.Dense{
		"gammadash1": gammadash1,
		"gammadash2": gammadash2,
	}, []string{"gammadash1", "gammadash2"})
	if err != nil {
		return nil, err
	}
	numNodes := len(cp.QuadZeta) * len(cp.QuadTheta)
	pd1 := cp.Phidash1().RawMatrix().Data
	pd2 := cp.Phidash2().RawMatrix().Data
	g1 := gammadash1.RawMatrix().Data
	g2 := gammadash2.RawMatrix().Data
	G := cp.NetPoloidalCurrentAmperes
	I := cp.NetToroidalCurrentAmperes

	K := mat.NewDense(numNodes, 3, nil)
	kd := K.RawMatrix().Data
	for j := 0; j < numNodes; j++ {
		g1x, g1y, g1z := g1[3*j], g1[3*j+1], g1[3*j+2]
		g2x, g2y, g2z := g2[3*j], g2[3*j+1], g2[3*j+2]
		nx := g2y*g1z - g2z*g1y
		ny := g2z*g1x - g2x*g1z
		nz := g2x*g1y - g2y*g1x
		nmag := math.Sqrt(nx*nx + ny*ny + nz*nz)
		ct := (pd2[j] + G) / nmag
		cz := (pd1[j] + I) / nmag
		kd[3*j+0] = ct*g1x - cz*g2x
		kd[3*j+1] = ct*g1y - cz*g2y
		kd[3*j+2] = ct*g1z - cz*g2z
	}
	return K, nil
}
