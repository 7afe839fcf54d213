package ndarray

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShape(t *testing.T) {
	a := New([]float32{1, 2, 3, 4, 5, 6}, 3, 2)
	assert.Equal(t, Float32, a.DType())
	assert.Equal(t, []int{3, 2}, a.Shape())
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 2, a.Cols())
	assert.Equal(t, 6, a.Size())

	assert.Panics(t, func() { New([]int8{1, 2, 3}, 2, 2) })

	_, err := Zeros(Uint8)
	assert.True(t, errors.Is(err, ErrShape))
}

type vertexIndex int32

func TestNewNamedType(t *testing.T) {
	a := New([]vertexIndex{4, 5})
	assert.Equal(t, Int32, a.DType())
	d, ok := Data[int32](a)
	require.True(t, ok)
	assert.Equal(t, []int32{4, 5}, d)
}

func TestTensorSharesData(t *testing.T) {
	a := New([]uint16{1, 2, 3, 4}, 2, 2)
	tsr := a.Tensor()
	assert.Equal(t, []int{2, 2}, tsr.Shape().Sizes)
	tsr.SetInt1D(9, 3)
	assert.Equal(t, int64(9), a.Int64(3))

	back, err := FromTensor(tsr)
	require.NoError(t, err)
	assert.Equal(t, Uint16, back.DType())
	assert.True(t, back.Equal(a))

	c := a.Clone()
	c.Tensor().SetInt1D(0, 0)
	assert.Equal(t, int64(1), a.Int64(0))
}

func TestColumnAndStack(t *testing.T) {
	pts := New([]float64{0, 1, 2, 10, 11, 12}, 2, 3)
	y, err := pts.Column(1)
	require.NoError(t, err)
	assert.Equal(t, "1", y.Format(0))
	assert.Equal(t, "11", y.Format(1))

	x, _ := pts.Column(0)
	z, _ := pts.Column(2)
	back, err := Stack(x, y, z)
	require.NoError(t, err)
	assert.True(t, back.Equal(pts))

	_, err = pts.Column(3)
	assert.True(t, errors.Is(err, ErrShape))

	_, err = Stack(x, New([]float32{1, 2}))
	assert.True(t, errors.Is(err, ErrMixedDTypes))
}

func TestConcatAndRows(t *testing.T) {
	tris := New([]int32{0, 1, 2, 1, 2, 3}, 2, 3)
	more := New([]int32{3, 4, 5}, 1, 3)
	all, err := Concat(tris, more)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, all.Shape())
	assert.Equal(t, int64(5), all.Int64(8))

	tail, err := all.Rows(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, tail.Shape())
	assert.Equal(t, int64(1), tail.Int64(0))

	_, err = Concat(tris, New([]int32{1, 2, 3, 4}, 1, 4))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestAsType(t *testing.T) {
	a := New([]int64{1, -2, 1 << 20}, 3)
	b, err := a.AsType(Int32)
	require.NoError(t, err)
	assert.Equal(t, Int32, b.DType())
	d, ok := Data[int32](b)
	require.True(t, ok)
	assert.Equal(t, []int32{1, -2, 1 << 20}, d)

	f, err := New([]float32{1.75, -2.5}).AsType(Int16)
	require.NoError(t, err)
	assert.Equal(t, "1", f.Format(0))
	assert.Equal(t, "-2", f.Format(1))

	u, err := New([]uint64{1 << 63}).AsType(Uint64)
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775808", u.Format(0))

	// the source is not touched
	assert.Equal(t, Int64, a.DType())

	_, err = a.AsType("complex128")
	assert.True(t, errors.Is(err, ErrUnknownDType))
}

func TestBytesRoundTrip(t *testing.T) {
	for _, a := range []*Array{
		New([]int8{-1, 2}),
		New([]uint16{65535, 7}),
		New([]float32{0.1, -3.5, 1e30, 2}, 2, 2),
		New([]float64{0.1, 1.0 / 3.0}),
		New([]uint64{1 << 63}),
	} {
		back, err := FromBytes(a.DType(), a.Shape(), a.Bytes())
		require.NoError(t, err)
		assert.True(t, a.Equal(back), "%s", a)
	}

	_, err := FromBytes(Int32, []int{4}, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestParseStringsFormat(t *testing.T) {
	a, err := ParseStrings(Float64, []string{"0.1", "2", "-1e-9"})
	require.NoError(t, err)
	assert.Equal(t, "0.1", a.Format(0))
	assert.Equal(t, "-1e-09", a.Format(2))

	f, err := ParseStrings(Float32, []string{"0.1"})
	require.NoError(t, err)
	assert.Equal(t, "0.1", f.Format(0))

	_, err = ParseStrings(Uint8, []string{"256"})
	assert.Error(t, err)

	_, err = ParseStrings(Int16, []string{"1", "2", "3"}, 2, 2)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestDTypeProps(t *testing.T) {
	assert.Equal(t, 8, Float64.Size())
	assert.False(t, DType("bool").Valid())
	assert.Equal(t, uint64(255), Uint8.MaxInt())
	assert.True(t, Uint32.IsUnsigned())
	assert.True(t, Float32.IsFloat())
}
