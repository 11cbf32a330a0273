// Package regcoil builds the normal-field sensitivity and inductance
// matrices used by the REGCOIL least-squares current-potential design
// method, plus the secular normal-field contribution of the net poloidal
// and toroidal currents.
package regcoil

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/WSKernel/utils"
)

// fak is mu0 / (4 pi) in SI units.
const fak = 1e-7

// rowChunk is the number of plasma points one parallel work item owns.
const rowChunk = 32

// Bn assembles the REGCOIL normal-field sensitivity matrices.
//
// plasmaPoints/plasmaNormal are (Np,3) and coilPoints/coilNormal (Nc,3);
// normals are un-normalized, their magnitudes carrying the area element.
// zetaCoil/thetaCoil are the coil-surface quadrature angles (length Nc) and
// m/n the Fourier mode numbers of the ndofs basis functions. The returned
// gj is (Np, ndofs): the double-layer kernel projected onto the basis
// angle m*theta - n*zeta, summing the sine and the cosine projection into
// the same column. A stellarator-symmetric caller passes stellsym=true and
// a mode list containing only the sine family, so the extra cosine term is
// the one it would not use anyway; the evaluated behavior is identical for
// both flag values. Ajk is the (ndofs, ndofs) Gram matrix of gj under the
// 1/|n_plasma| weighted inner product over plasma points, the normal-form
// system matrix of the least-squares solve. An empty mode list has no dense
// matrix representation and is reported as an error.
func Bn(plasmaPoints, plasmaNormal, coilPoints, coilNormal *mat.Dense,
	stellsym bool, zetaCoil, thetaCoil []float64, m, n []int) (*mat.Dense, *mat.SymDense, error) {

	err := utils.CheckRowMajorAll(map[string]*mat.Dense{
		"plasma points": plasmaPoints,
		"plasma normal": plasmaNormal,
		"coil points":   coilPoints,
		"coil normal":   coilNormal,
	}, []string{"plasma points", "plasma normal", "coil points", "coil normal"})
	if err != nil {
		return nil, nil, err
	}

	numPlasma, _ := plasmaNormal.Dims()
	numCoil, _ := coilNormal.Dims()
	ndofs := len(m)
	if ndofs == 0 {
		return nil, nil, fmt.Errorf("mode arrays are empty, the Fourier basis needs at least one function")
	}

	pp := plasmaPoints.RawMatrix().Data
	np := plasmaNormal.RawMatrix().Data
	cp := coilPoints.RawMatrix().Data
	nc := coilNormal.RawMatrix().Data

	// Stage 1: pairwise double-layer kernel over (plasma, coil) pairs.
	gij := make([]float64, numPlasma*numCoil)
	utils.ParallelRange(numPlasma, rowChunk, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			npx, npy, npz := np[3*i], np[3*i+1], np[3*i+2]
			for j := 0; j < numCoil; j++ {
				ncx, ncy, ncz := nc[3*j], nc[3*j+1], nc[3*j+2]
				rx := pp[3*i] - cp[3*j]
				ry := pp[3*i+1] - cp[3*j+1]
				rz := pp[3*i+2] - cp[3*j+2]
				rmag2 := rx*rx + ry*ry + rz*rz
				rinv := 1.0 / math.Sqrt(rmag2)
				rinv3 := rinv * rinv * rinv
				rinv5 := rinv3 * rinv * rinv
				npDotNc := npx*ncx + npy*ncy + npz*ncz
				rDotNp := rx*npx + ry*npy + rz*npz
				rDotNc := rx*ncx + ry*ncy + rz*ncz
				gij[i*numCoil+j] = fak * (npDotNc*rinv3 - 3.0*rDotNp*rDotNc*rinv5)
			}
		}
	})

	// Stage 2: project onto the Fourier basis (Eq. A10 of the REGCOIL
	// paper). The basis weights depend only on (dof, coil node), so they
	// are tabulated once instead of per plasma point.
	basis := make([]float64, ndofs*numCoil)
	for j := 0; j < ndofs; j++ {
		for k := 0; k < numCoil; k++ {
			angle := float64(m[j])*thetaCoil[k] - float64(n[j])*zetaCoil[k]
			s, c := math.Sincos(angle)
			basis[j*numCoil+k] = s + c
		}
	}
	gj := mat.NewDense(numPlasma, ndofs, nil)
	gjData := gj.RawMatrix().Data
	utils.ParallelRange(numPlasma, rowChunk, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := gij[i*numCoil : (i+1)*numCoil]
			for j := 0; j < ndofs; j++ {
				b := basis[j*numCoil : (j+1)*numCoil]
				sum := 0.0
				for k := 0; k < numCoil; k++ {
					sum += b[k] * row[k]
				}
				gjData[i*ndofs+j] = sum
			}
		}
	})

	// Stage 3: Gram matrix under the 1/|n_plasma| weight. Each (j,k) cell
	// is accumulated sequentially in plasma-point order, so the result does
	// not depend on the worker count.
	weight := make([]float64, numPlasma)
	for i := 0; i < numPlasma; i++ {
		weight[i] = 1.0 / math.Sqrt(np[3*i]*np[3*i]+np[3*i+1]*np[3*i+1]+np[3*i+2]*np[3*i+2])
	}
	Ajk := mat.NewSymDense(ndofs, nil)
	utils.ParallelRange(ndofs, 1, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			for k := j; k < ndofs; k++ {
				sum := 0.0
				for i := 0; i < numPlasma; i++ {
					sum += gjData[i*ndofs+j] * gjData[i*ndofs+k] * weight[i]
				}
				Ajk.SetSym(j, k, sum)
			}
		}
	})
	return gj, Ajk, nil
}

// BnGI computes the baseline normal field on the plasma surface produced by
// the uniform net poloidal current G and net toroidal current I, the secular
// part of the current potential that the truncated Fourier basis cannot
// represent. gammadash1 and gammadash2 are the coil-surface tangents with
// respect to the unit poloidal and toroidal parameters, each (Nc,3) on a
// uniform grid over the unit square, whose quadrature weight 1/Nc scales
// the coil sum. The result has one scalar per plasma point and adds to the
// Fourier-basis contribution from Bn to form the full normal field.
func BnGI(plasmaPoints, plasmaNormal, coilPoints *mat.Dense,
	G, I float64, gammadash1, gammadash2 *mat.Dense) ([]float64, error) {

	err := utils.CheckRowMajorAll(map[string]*mat.Dense{
		"plasma points": plasmaPoints,
		"plasma normal": plasmaNormal,
		"coil points":   coilPoints,
		"gammadash1":    gammadash1,
		"gammadash2":    gammadash2,
	}, []string{"plasma points", "plasma normal", "coil points", "gammadash1", "gammadash2"})
	if err != nil {
		return nil, err
	}

	numPlasma, _ := plasmaNormal.Dims()
	numCoil, _ := coilPoints.Dims()
	pp := plasmaPoints.RawMatrix().Data
	np := plasmaNormal.RawMatrix().Data
	cp := coilPoints.RawMatrix().Data
	g1 := gammadash1.RawMatrix().Data
	g2 := gammadash2.RawMatrix().Data

	weight := 1.0 / float64(numCoil)
	BGI := make([]float64, numPlasma)
	utils.ParallelRange(numPlasma, rowChunk, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			nx, ny, nz := np[3*i], np[3*i+1], np[3*i+2]
			nmag := math.Sqrt(nx*nx + ny*ny + nz*nz)
			nx, ny, nz = nx/nmag, ny/nmag, nz/nmag
			sum := 0.0
			for j := 0; j < numCoil; j++ {
				rx := pp[3*i] - cp[3*j]
				ry := pp[3*i+1] - cp[3*j+1]
				rz := pp[3*i+2] - cp[3*j+2]
				rmag2 := rx*rx + ry*ry + rz*rz
				rinv := 1.0 / math.Sqrt(rmag2)
				rinv3 := rinv * rinv * rinv
				// Net-current-equivalent tangent current at this node: the
				// poloidal tangent carries G, the toroidal tangent I.
				gix := G*g1[3*j] - I*g2[3*j]
				giy := G*g1[3*j+1] - I*g2[3*j+1]
				giz := G*g1[3*j+2] - I*g2[3*j+2]
				crossDotN := nx*(giy*rz-giz*ry) + ny*(giz*rx-gix*rz) + nz*(gix*ry-giy*rx)
				sum += fak * crossDotN * rinv3
			}
			BGI[i] = weight * sum
		}
	})
	return BGI, nil
}
