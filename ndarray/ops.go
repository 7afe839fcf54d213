package ndarray

import (
	"slices"

	"cogentcore.org/lab/tensor"
	"github.com/pkg/errors"
)

// AsType returns a converted copy using Go conversion rules, so narrowing
// integer conversions wrap.
func (a *Array) AsType(dtype DType) (*Array, error) {
	out, err := Zeros(dtype, a.Shape()...)
	if err != nil {
		return nil, err
	}
	out.tsr.CopyFrom(a.tsr)
	return out, nil
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{dtype: a.dtype, tsr: tensor.Clone(a.tsr)}
}

// Column extracts column j of a 2-D array as a vector.
func (a *Array) Column(j int) (*Array, error) {
	if a.NDim() != 2 || j < 0 || j >= a.Cols() {
		return nil, errors.Wrapf(ErrShape, "column %d of %v", j, a.Shape())
	}
	rows, cols := a.Len(), a.Cols()
	out, err := Zeros(a.dtype, rows)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out.tsr.CopyCellsFrom(a.tsr, i, i*cols+j, 1)
	}
	return out, nil
}

// Stack joins equal length vectors as the columns of a 2-D array.
func Stack(columns ...*Array) (*Array, error) {
	if len(columns) == 0 {
		return nil, errors.Wrap(ErrShape, "nothing to stack")
	}
	first := columns[0]
	rows, cols := first.Len(), len(columns)
	for _, c := range columns {
		if c.dtype != first.dtype {
			return nil, errors.Wrapf(ErrMixedDTypes, "%s and %s", first.dtype, c.dtype)
		}
		if c.NDim() != 1 || c.Len() != rows {
			return nil, errors.Wrapf(ErrShape, "stacking %v onto %d rows", c.Shape(), rows)
		}
	}
	out, err := Zeros(first.dtype, rows, cols)
	if err != nil {
		return nil, err
	}
	for j, c := range columns {
		for i := range rows {
			out.tsr.CopyCellsFrom(c.tsr, i*cols+j, i, 1)
		}
	}
	return out, nil
}

// Concat joins arrays along the first axis. Trailing dimensions and dtypes
// must agree.
func Concat(arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, errors.Wrap(ErrShape, "nothing to concatenate")
	}
	first := arrays[0]
	inner := first.Shape()[1:]
	rows := 0
	for _, a := range arrays {
		if a.dtype != first.dtype {
			return nil, errors.Wrapf(ErrMixedDTypes, "%s and %s", first.dtype, a.dtype)
		}
		if !slices.Equal(a.Shape()[1:], inner) {
			return nil, errors.Wrapf(ErrShape, "concatenating %v with %v", a.Shape(), first.Shape())
		}
		rows += a.Len()
	}
	out, err := Zeros(first.dtype, append([]int{rows}, inner...)...)
	if err != nil {
		return nil, err
	}
	at := 0
	for _, a := range arrays {
		out.tsr.CopyCellsFrom(a.tsr, at, 0, a.Size())
		at += a.Size()
	}
	return out, nil
}

// Rows returns a copy of rows [from, to).
func (a *Array) Rows(from, to int) (*Array, error) {
	if from < 0 || to > a.Len() || from > to {
		return nil, errors.Wrapf(ErrShape, "rows [%d, %d) of %v", from, to, a.Shape())
	}
	shape := a.Shape()
	shape[0] = to - from
	out, err := Zeros(a.dtype, shape...)
	if err != nil {
		return nil, err
	}
	out.tsr.CopyCellsFrom(a.tsr, 0, from*a.Cols(), out.Size())
	return out, nil
}

// Equal reports whether both arrays have the same dtype, shape and elements.
func (a *Array) Equal(b *Array) bool {
	if a.dtype != b.dtype || !slices.Equal(a.Shape(), b.Shape()) {
		return false
	}
	for i := range a.Size() {
		if a.Format(i) != b.Format(i) {
			return false
		}
	}
	return true
}
