// Package mesh is the polygon mesh exchanged at the edges of the converter:
// a point matrix, per-point attributes, polygon blocks of uniform arity and
// per-block face attributes.
package mesh

import (
	"cogentcore.org/core/base/ordmap"
	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/ndarray"
)

// Polygon type tags.
const (
	Triangle = "triangle"
	Quad     = "quad"
	Polygon  = "polygon"
)

var ErrInvalid = errors.New("invalid mesh")

// TypeForArity names the polygon type of faces with k vertices.
func TypeForArity(k int) string {
	switch k {
	case 3:
		return Triangle
	case 4:
		return Quad
	}
	return Polygon
}

// CellBlock is a run of faces that all have the same number of vertices.
// Data has one row per face and one column per vertex index.
type CellBlock struct {
	Type string
	Data *ndarray.Array
}

// Arity is the number of vertices per face in the block.
func (b CellBlock) Arity() int {
	return b.Data.Cols()
}

func (b CellBlock) Len() int {
	return b.Data.Len()
}

type Mesh struct {
	// Points is an N x 2 or N x 3 coordinate matrix.
	Points *ndarray.Array

	// PointData maps attribute names to arrays of length N.
	PointData *ordmap.Map[string, *ndarray.Array]

	Cells []CellBlock

	// CellData maps attribute names to one array per entry of Cells.
	CellData *ordmap.Map[string, []*ndarray.Array]
}

// New builds a mesh with empty attribute maps.
func New(points *ndarray.Array, cells ...CellBlock) *Mesh {
	return &Mesh{
		Points:    points,
		PointData: ordmap.New[string, *ndarray.Array](),
		Cells:     cells,
		CellData:  ordmap.New[string, []*ndarray.Array](),
	}
}

// Block makes a cell block tagged from the arity of data.
func Block(data *ndarray.Array) CellBlock {
	return CellBlock{Type: TypeForArity(data.Cols()), Data: data}
}

func (m *Mesh) NumPoints() int {
	if m.Points == nil {
		return 0
	}
	return m.Points.Len()
}

// Dim is the number of coordinate axes.
func (m *Mesh) Dim() int {
	if m.Points == nil {
		return 0
	}
	return m.Points.Cols()
}

// NumCells is the total face count over all blocks.
func (m *Mesh) NumCells() int {
	n := 0
	for _, b := range m.Cells {
		n += b.Len()
	}
	return n
}

// Clone returns a mesh with its own attribute maps and cell slice. Arrays are
// shared with m.
func (m *Mesh) Clone() *Mesh {
	c := New(m.Points, append([]CellBlock(nil), m.Cells...)...)
	if m.PointData != nil {
		c.PointData.Copy(m.PointData)
	}
	if m.CellData != nil {
		for _, kv := range m.CellData.Order {
			c.CellData.Add(kv.Key, append([]*ndarray.Array(nil), kv.Value...))
		}
	}
	return c
}

// CellsDict concatenates the blocks sharing a type tag, in order of first
// appearance.
func (m *Mesh) CellsDict() (*ordmap.Map[string, *ndarray.Array], error) {
	grouped := ordmap.New[string, []*ndarray.Array]()
	for _, b := range m.Cells {
		grouped.Add(b.Type, append(grouped.ValueByKey(b.Type), b.Data))
	}
	out := ordmap.New[string, *ndarray.Array]()
	for _, kv := range grouped.Order {
		joined, err := ndarray.Concat(kv.Value...)
		if err != nil {
			return nil, errors.Wrapf(err, "joining %s blocks", kv.Key)
		}
		out.Add(kv.Key, joined)
	}
	return out, nil
}

// Validate checks that attribute lengths agree with the points and blocks.
func (m *Mesh) Validate() error {
	if m.Points == nil || m.Points.NDim() != 2 {
		return errors.Wrap(ErrInvalid, "points must be a 2-D array")
	}
	if d := m.Dim(); d < 2 || d > 3 {
		return errors.Wrapf(ErrInvalid, "points have %d coordinates", d)
	}
	n := m.NumPoints()
	if m.PointData != nil {
		for _, kv := range m.PointData.Order {
			if kv.Value.Len() != n {
				return errors.Wrapf(ErrInvalid, "point attribute %q has %d rows for %d points", kv.Key, kv.Value.Len(), n)
			}
		}
	}
	for i, b := range m.Cells {
		if b.Data == nil || b.Data.NDim() != 2 {
			return errors.Wrapf(ErrInvalid, "cell block %d is not a 2-D array", i)
		}
		if b.Data.DType().IsFloat() {
			return errors.Wrapf(ErrInvalid, "cell block %d has %s indices", i, b.Data.DType())
		}
	}
	if m.CellData != nil {
		for _, kv := range m.CellData.Order {
			if len(kv.Value) != len(m.Cells) {
				return errors.Wrapf(ErrInvalid, "cell attribute %q has %d blocks for %d cell blocks", kv.Key, len(kv.Value), len(m.Cells))
			}
			for i, a := range kv.Value {
				if a.Len() != m.Cells[i].Len() {
					return errors.Wrapf(ErrInvalid, "cell attribute %q block %d has %d rows for %d faces", kv.Key, i, a.Len(), m.Cells[i].Len())
				}
			}
		}
	}
	return nil
}
