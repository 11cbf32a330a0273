package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CheckRowMajor verifies that a matrix is backed by contiguous row-major
// storage, i.e. its stride equals its column count. Views produced by
// Dense.Slice keep the parent's stride and therefore fail this check.
// The field kernels index the raw backing slice directly, so this is
// validated for every input before any computation starts.
func CheckRowMajor(name string, a *mat.Dense) error {
	raw := a.RawMatrix()
	if raw.Stride != raw.Cols {
		return fmt.Errorf("%s needs to be in contiguous row-major storage order (stride %d, cols %d)",
			name, raw.Stride, raw.Cols)
	}
	return nil
}

// CheckRowMajorAll validates a set of named matrices in order and returns the
// first violation found.
func CheckRowMajorAll(named map[string]*mat.Dense, order []string) error {
	for _, name := range order {
		if err := CheckRowMajor(name, named[name]); err != nil {
			return err
		}
	}
	return nil
}
