package plyzarr

import (
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/meshio"
	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/store"
)

// Write stores m in g and returns the mesh that was actually written (see
// DeriveHeader). Blocks sharing an arity are joined into one group, their
// face attributes joined in the same order.
//
// Whatever an earlier Write left in g is cleared first, so the group always
// holds exactly one mesh. The header is derived before anything is cleared or
// stored, so a mesh that cannot be described leaves g untouched. Failures
// while storing can leave g half written.
func (mp *Mapper) Write(g store.Group, m *mesh.Mesh) (*mesh.Mesh, error) {
	h, out, err := mp.DeriveHeader(m)
	if err != nil {
		return nil, err
	}
	if err := clearMesh(g); err != nil {
		return nil, errors.Wrap(err, "clearing previous mesh")
	}
	if err := storeHeader(g, h); err != nil {
		return nil, errors.Wrap(err, "storing header")
	}

	points, err := g.CreateGroup(PointsGroup)
	if err != nil {
		return nil, err
	}
	for j, axis := range meshio.Axes[:out.Dim()] {
		col, err := out.Points.Column(j)
		if err != nil {
			return nil, err
		}
		if err := points.SetArray(axis, col); err != nil {
			return nil, errors.Wrapf(err, "storing %s", axis)
		}
	}
	for _, kv := range out.PointData.Order {
		if err := points.SetArray(kv.Key, kv.Value); err != nil {
			return nil, errors.Wrapf(err, "storing point attribute %s", kv.Key)
		}
	}

	byArity := lo.GroupBy(lo.Range(len(out.Cells)), func(i int) int {
		return out.Cells[i].Arity()
	})
	arities := lo.Keys(byArity)
	slices.Sort(arities)
	for _, k := range arities {
		if err := mp.writeBucket(g, out, k, byArity[k]); err != nil {
			return nil, errors.Wrapf(err, "storing %d-gons", k)
		}
	}
	return out, nil
}

// clearMesh drops the header attributes, the points group and every arity
// bucket from g. Other children are left alone.
func clearMesh(g store.Group) error {
	for _, key := range []string{FormatAttr, CommentsAttr, ElementsAttr} {
		if err := g.RemoveAttr(key); err != nil {
			return err
		}
	}
	keys, err := g.GroupKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key != PointsGroup && !isBucket(key) {
			continue
		}
		if err := g.RemoveGroup(key); err != nil {
			return errors.Wrapf(err, "group %s", key)
		}
	}
	return nil
}

func (mp *Mapper) writeBucket(g store.Group, m *mesh.Mesh, k int, blocks []int) error {
	bucket, err := g.CreateGroup(strconv.Itoa(k))
	if err != nil {
		return err
	}
	indices, err := ndarray.Concat(lo.Map(blocks, func(i, _ int) *ndarray.Array {
		return m.Cells[i].Data
	})...)
	if err != nil {
		return err
	}
	if err := bucket.SetArray(meshio.IndexProperty, indices); err != nil {
		return err
	}
	for _, kv := range m.CellData.Order {
		values, err := ndarray.Concat(lo.Map(blocks, func(i, _ int) *ndarray.Array {
			return kv.Value[i]
		})...)
		if err != nil {
			return errors.Wrapf(err, "joining %s", kv.Key)
		}
		if err := bucket.SetArray(kv.Key, values); err != nil {
			return err
		}
	}
	return nil
}
