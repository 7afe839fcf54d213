package meshio

import (
	"io"
	"slices"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/ndarray"
)

var ErrNotTriangles = errors.New("polyform only holds triangle meshes and point clouds")

// Scalar columns a polyform vector attribute is split into.
var float3Columns = map[string][3]string{
	modeling.NormalAttribute: {"nx", "ny", "nz"},
	modeling.ColorAttribute:  {"red", "green", "blue"},
}

func columnsFor(attr string) [3]string {
	if cols, ok := float3Columns[attr]; ok {
		return cols
	}
	return [3]string{attr + "_x", attr + "_y", attr + "_z"}
}

// FromPolyform converts a polyform mesh. Positions become float64 points,
// other vector attributes become three scalar point attributes each.
// Triangle topology becomes one int32 triangle block.
func FromPolyform(pm *modeling.Mesh) (*mesh.Mesh, error) {
	view := pm.View()
	positions, ok := view.Float3Data[modeling.PositionAttribute]
	if !ok {
		return nil, errors.Wrap(ErrNoCoordinates, "polyform mesh has no positions")
	}
	m := mesh.New(float3Array(positions))

	names := lo.Keys(view.Float3Data)
	slices.Sort(names)
	for _, name := range names {
		if name == modeling.PositionAttribute {
			continue
		}
		values := float3Array(view.Float3Data[name])
		for j, col := range columnsFor(name) {
			c, err := values.Column(j)
			if err != nil {
				return nil, err
			}
			m.PointData.Add(col, c)
		}
	}

	switch pm.Topology() {
	case modeling.PointTopology:
	case modeling.TriangleTopology:
		indices := make([]int32, len(view.Indices))
		for i, v := range view.Indices {
			indices[i] = int32(v)
		}
		m.Cells = append(m.Cells, mesh.Block(ndarray.New(indices, len(indices)/3, 3)))
	default:
		return nil, errors.Errorf("unimplemented topology: %d", pm.Topology())
	}
	return m, nil
}

func float3Array(vs []vector3.Float64) *ndarray.Array {
	flat := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		flat = append(flat, v.X(), v.Y(), v.Z())
	}
	return ndarray.New(flat, len(vs), 3)
}

// vectors reads three columns as vectors. Missing columns read as zero.
func vectors(n int, cols ...*ndarray.Array) []vector3.Float64 {
	out := make([]vector3.Float64, n)
	for i := range out {
		var xyz [3]float64
		for j, c := range cols {
			if c != nil {
				xyz[j] = c.Float64(i)
			}
		}
		out[i] = vector3.New(xyz[0], xyz[1], xyz[2])
	}
	return out
}

func pointColumns(m *mesh.Mesh, names [3]string) ([]*ndarray.Array, bool) {
	cols := make([]*ndarray.Array, 3)
	for j, name := range names {
		c, ok := m.PointData.ValueByKeyTry(name)
		if !ok {
			return nil, false
		}
		cols[j] = c
	}
	return cols, true
}

// ToPolyform converts a point cloud or an all triangle mesh. Normals and
// colors carried as nx/ny/nz and red/green/blue point data come along;
// integer colors are scaled from 0-255 to 0-1.
func ToPolyform(m *mesh.Mesh) (modeling.Mesh, error) {
	if err := m.Validate(); err != nil {
		return modeling.Mesh{}, err
	}
	n := m.NumPoints()
	axes := make([]*ndarray.Array, 3)
	for j := 0; j < m.Dim(); j++ {
		var err error
		if axes[j], err = m.Points.Column(j); err != nil {
			return modeling.Mesh{}, err
		}
	}
	positions := vectors(n, axes...)

	var colors []vector3.Float64
	if cols, ok := pointColumns(m, float3Columns[modeling.ColorAttribute]); ok {
		colors = vectors(n, cols...)
		if !cols[0].DType().IsFloat() {
			for i, c := range colors {
				colors[i] = c.DivByConstant(255.)
			}
		}
	}

	if len(m.Cells) == 0 {
		data := map[string][]vector3.Vector[float64]{
			modeling.PositionAttribute: positions,
		}
		if colors != nil {
			data[modeling.ColorAttribute] = colors
		}
		return modeling.NewPointCloud(data, nil, nil, nil), nil
	}

	var indices []int
	for _, b := range m.Cells {
		if b.Arity() != 3 {
			return modeling.Mesh{}, errors.Wrapf(ErrNotTriangles, "%s block of arity %d", b.Type, b.Arity())
		}
		for i := 0; i < b.Data.Size(); i++ {
			indices = append(indices, int(b.Data.Int64(i)))
		}
	}
	out := modeling.NewMesh(indices).
		SetFloat3Attribute(modeling.PositionAttribute, positions)
	if cols, ok := pointColumns(m, float3Columns[modeling.NormalAttribute]); ok {
		out = out.SetFloat3Attribute(modeling.NormalAttribute, vectors(n, cols...))
	}
	if colors != nil {
		out = out.SetFloat3Attribute(modeling.ColorAttribute, colors)
	}
	return out, nil
}

// WriteBinary writes m as binary little endian PLY through polyform.
func WriteBinary(w io.Writer, m *mesh.Mesh) error {
	pm, err := ToPolyform(m)
	if err != nil {
		return err
	}
	return errors.Wrap(ply.WriteBinary(w, pm), "writing binary ply")
}
