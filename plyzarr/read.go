package plyzarr

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/meshio"
	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/store"
)

func isBucket(key string) bool {
	return key != "" && strings.Trim(key, "0123456789") == ""
}

// arities returns the purely numeric child group names of g as integers,
// smallest first.
func arities(g store.Group) ([]int, error) {
	keys, err := g.GroupKeys()
	if err != nil {
		return nil, err
	}
	out := lo.FilterMap(keys, func(k string, _ int) (int, bool) {
		if !isBucket(k) {
			return 0, false
		}
		n, err := strconv.Atoi(k)
		return n, err == nil
	})
	slices.Sort(out)
	return out, nil
}

func loadColumn(g store.Group, name string, rows int) (*ndarray.Array, error) {
	a, err := g.Array(name)
	if err != nil {
		return nil, err
	}
	if a.Len() != rows {
		return nil, errors.Wrapf(ErrSizeMismatch, "%s has %d rows, header says %d", name, a.Len(), rows)
	}
	return a, nil
}

// Read rebuilds the mesh stored in g. Coordinates come from whichever of x,
// y and z the header lists, every other vertex property becomes point data.
// Each numeric child group is one block, smallest arity first. Other child
// groups are ignored.
func (mp *Mapper) Read(g store.Group) (*mesh.Mesh, error) {
	h, err := ReadHeader(g)
	if err != nil {
		return nil, err
	}
	vertex := h.Element("vertex")
	if vertex == nil {
		return nil, errors.Wrap(meshio.ErrNoCoordinates, "header has no vertex element")
	}
	names := vertex.PropertyNames()
	axes := lo.Filter(meshio.Axes, func(axis string, _ int) bool {
		return slices.Contains(names, axis)
	})
	if len(axes) < 2 {
		return nil, meshio.ErrNoCoordinates
	}

	points, err := g.Group(PointsGroup)
	if err != nil {
		return nil, err
	}
	cols := make([]*ndarray.Array, len(axes))
	for j, axis := range axes {
		if cols[j], err = loadColumn(points, axis, vertex.Size); err != nil {
			return nil, err
		}
	}
	if len(lo.UniqBy(cols, (*ndarray.Array).DType)) > 1 {
		for j, c := range cols {
			if cols[j], err = c.AsType(ndarray.Float64); err != nil {
				return nil, errors.Wrapf(err, "promoting %s", axes[j])
			}
		}
	}
	stacked, err := ndarray.Stack(cols...)
	if err != nil {
		return nil, err
	}
	m := mesh.New(stacked)
	for _, name := range names {
		if slices.Contains(axes, name) {
			continue
		}
		a, err := loadColumn(points, name, vertex.Size)
		if err != nil {
			return nil, err
		}
		m.PointData.Add(name, a)
	}

	var faceProps []string
	if face := h.Element("face"); face != nil {
		faceProps = lo.Filter(face.PropertyNames(), func(name string, _ int) bool {
			return !meshio.IsIndexProperty(name)
		})
	}
	ks, err := arities(g)
	if err != nil {
		return nil, err
	}
	for _, k := range ks {
		bucket, err := g.Group(strconv.Itoa(k))
		if err != nil {
			return nil, err
		}
		idx, err := bucket.Array(meshio.IndexProperty)
		if err != nil {
			return nil, errors.Wrapf(err, "group %d", k)
		}
		if idx.NDim() != 2 || idx.Cols() != k {
			return nil, errors.Wrapf(ErrSizeMismatch, "group %d holds indices shaped %v", k, idx.Shape())
		}
		m.Cells = append(m.Cells, mesh.CellBlock{Type: mesh.TypeForArity(k), Data: idx})
		for _, name := range faceProps {
			a, err := loadColumn(bucket, name, idx.Len())
			if err != nil {
				return nil, errors.Wrapf(err, "group %d", k)
			}
			m.CellData.Add(name, append(m.CellData.ValueByKey(name), a))
		}
	}

	if face := h.Element("face"); face != nil && face.Size != m.NumCells() {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d faces stored, header says %d", m.NumCells(), face.Size)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
