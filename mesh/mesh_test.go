package mesh

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recolude/plyzarr/ndarray"
)

func square() *Mesh {
	pts := ndarray.New([]float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 2, 0, 0}, 5, 3)
	m := New(pts,
		Block(ndarray.New([]int32{0, 1, 2}, 1, 3)),
		Block(ndarray.New([]int32{0, 1, 2, 3}, 1, 4)),
		Block(ndarray.New([]int32{1, 4, 2}, 1, 3)),
	)
	m.PointData.Add("weight", ndarray.New([]float32{1, 2, 3, 4, 5}))
	m.CellData.Add("group", []*ndarray.Array{
		ndarray.New([]uint8{1}), ndarray.New([]uint8{2}), ndarray.New([]uint8{3}),
	})
	return m
}

func TestTypeForArity(t *testing.T) {
	assert.Equal(t, Triangle, TypeForArity(3))
	assert.Equal(t, Quad, TypeForArity(4))
	assert.Equal(t, Polygon, TypeForArity(5))
	assert.Equal(t, Polygon, TypeForArity(2))
}

func TestCounts(t *testing.T) {
	m := square()
	assert.Equal(t, 5, m.NumPoints())
	assert.Equal(t, 3, m.Dim())
	assert.Equal(t, 3, m.NumCells())
	assert.Equal(t, 4, m.Cells[1].Arity())
	require.NoError(t, m.Validate())
}

func TestCellsDict(t *testing.T) {
	d, err := square().CellsDict()
	require.NoError(t, err)
	assert.Equal(t, []string{Triangle, Quad}, d.Keys())
	tris := d.ValueByKey(Triangle)
	assert.Equal(t, []int{2, 3}, tris.Shape())
	assert.Equal(t, int64(4), tris.Int64(4))
}

func TestCloneIsolatesContainers(t *testing.T) {
	m := square()
	c := m.Clone()
	c.Cells[0] = Block(ndarray.New([]int64{0, 1, 2}, 1, 3))
	c.PointData.Add("extra", ndarray.New([]float32{0, 0, 0, 0, 0}))

	assert.Equal(t, ndarray.Int32, m.Cells[0].Data.DType())
	assert.Equal(t, 1, m.PointData.Len())
	assert.Equal(t, 2, c.PointData.Len())
}

func TestValidate(t *testing.T) {
	m := square()
	m.PointData.Add("short", ndarray.New([]float32{1}))
	assert.True(t, errors.Is(m.Validate(), ErrInvalid))

	m = square()
	m.CellData.Add("partial", []*ndarray.Array{ndarray.New([]uint8{1})})
	assert.True(t, errors.Is(m.Validate(), ErrInvalid))

	m = square()
	m.Cells = append(m.Cells, Block(ndarray.New([]float32{0, 1, 2}, 1, 3)))
	assert.True(t, errors.Is(m.Validate(), ErrInvalid))

	m = New(ndarray.New([]float64{1, 2, 3, 4}, 1, 4))
	assert.True(t, errors.Is(m.Validate(), ErrInvalid))
}
