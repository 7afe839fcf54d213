package plyzarr

import (
	"fmt"
	"strings"

	"cogentcore.org/core/base/ordmap"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/meshio"
	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/plyheader"
	"github.com/recolude/plyzarr/store"
)

var (
	ErrUnsupportedDType   = errors.New("no ply type for dtype")
	ErrHeterogeneousCells = errors.New("could not write header from mesh: cell blocks disagree on index type")
	ErrArityOverflow      = errors.New("face has more vertices than the count type can hold")
	ErrAttributeName      = errors.New("attribute name cannot be written to a header")
)

// Layout of the timestamp in the generated comment.
const commentTime = "2006-01-02T15:04:05.000000"

func (mp *Mapper) typeName(dt ndarray.DType) (string, error) {
	name, ok := mp.cfg.Types[dt]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedDType, "%s", dt)
	}
	return name, nil
}

func checkName(name string) error {
	if err := store.ValidKey(name); err != nil || strings.ContainsAny(name, " \t\r\n") {
		return errors.Wrapf(ErrAttributeName, "%q", name)
	}
	return nil
}

// DeriveHeader builds the header describing m, along with the copy of m that
// header actually describes: multidimensional attributes dropped and 64-bit
// face indices narrowed. m itself is left alone.
//
// The header is produced as text and parsed back so stored headers always
// come out of the same parser as headers read from files.
func (mp *Mapper) DeriveHeader(m *mesh.Mesh) (*plyheader.Header, *mesh.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	out := m.Clone()
	log := mp.cfg.Logger

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	line(plyheader.Magic)
	line("format %s", plyheader.FormatASCII)
	line("comment Created by %s v%s, %s", mp.cfg.Tool, mp.cfg.Version, mp.cfg.Now().Format(commentTime))

	line("element vertex %d", m.NumPoints())
	pointType, err := mp.typeName(m.Points.DType())
	if err != nil {
		return nil, nil, errors.Wrap(err, "points")
	}
	for _, axis := range meshio.Axes[:m.Dim()] {
		line("property %s %s", pointType, axis)
	}

	pointData := out.PointData
	out.PointData = ordmap.New[string, *ndarray.Array]()
	for _, kv := range pointData.Order {
		if kv.Value.NDim() > 1 {
			log.Warn("multidimensional point attributes are not supported, skipping", "attribute", kv.Key, "shape", kv.Value.Shape())
			continue
		}
		if lo.Contains(meshio.Axes, kv.Key) {
			log.Warn("point attribute shadows a coordinate, skipping", "attribute", kv.Key)
			continue
		}
		if err := checkName(kv.Key); err != nil {
			return nil, nil, err
		}
		name, err := mp.typeName(kv.Value.DType())
		if err != nil {
			return nil, nil, errors.Wrapf(err, "point attribute %s", kv.Key)
		}
		line("property %s %s", name, kv.Key)
		out.PointData.Add(kv.Key, kv.Value)
	}

	if total := m.NumCells(); total > 0 {
		line("element face %d", total)
		if err := mp.faceProperties(out, line); err != nil {
			return nil, nil, err
		}
	} else {
		out.Cells = nil
		out.CellData.Reset()
	}
	line(plyheader.EndHeader)

	h, err := plyheader.ParseString(b.String())
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing derived header")
	}
	return h, out, nil
}

func (mp *Mapper) faceProperties(out *mesh.Mesh, line func(string, ...any)) error {
	log := mp.cfg.Logger

	cast := false
	for i, blk := range out.Cells {
		if dt := blk.Data.DType(); dt == ndarray.Int64 || dt == ndarray.Uint64 {
			narrowed, err := blk.Data.AsType(mp.cfg.IndexType)
			if err != nil {
				return err
			}
			out.Cells[i] = mesh.CellBlock{Type: blk.Type, Data: narrowed}
			cast = true
		}
	}
	if cast {
		log.Warn("ply has no 64-bit integer index type, casting down", "to", mp.cfg.IndexType)
	}

	dtypes := lo.Uniq(lo.Map(out.Cells, func(blk mesh.CellBlock, _ int) ndarray.DType {
		return blk.Data.DType()
	}))
	if len(dtypes) != 1 {
		return errors.Wrapf(ErrHeterogeneousCells, "found %v", dtypes)
	}
	indexType, err := mp.typeName(dtypes[0])
	if err != nil {
		return errors.Wrap(err, "face indices")
	}

	countDType, ok := plyheader.LookupType(mp.cfg.CountType)
	if !ok || countDType.IsFloat() {
		return errors.Wrapf(ErrUnsupportedDType, "count type %q", mp.cfg.CountType)
	}
	widest := lo.Max(lo.Map(out.Cells, func(blk mesh.CellBlock, _ int) int { return blk.Arity() }))
	if uint64(widest) > countDType.MaxInt() {
		return errors.Wrapf(ErrArityOverflow, "%d vertices with %s counts", widest, mp.cfg.CountType)
	}
	line("property list %s %s %s", mp.cfg.CountType, indexType, meshio.IndexProperty)

	cellData := out.CellData
	out.CellData = ordmap.New[string, []*ndarray.Array]()
	for _, kv := range cellData.Order {
		if lo.ContainsBy(kv.Value, func(a *ndarray.Array) bool { return a.NDim() > 1 }) {
			log.Warn("multidimensional cell attributes are not supported, skipping", "attribute", kv.Key)
			continue
		}
		if meshio.IsIndexProperty(kv.Key) {
			log.Warn("cell attribute shadows the face indices, skipping", "attribute", kv.Key)
			continue
		}
		if err := checkName(kv.Key); err != nil {
			return err
		}
		types := lo.Uniq(lo.Map(kv.Value, func(a *ndarray.Array, _ int) ndarray.DType { return a.DType() }))
		if len(types) != 1 {
			return errors.Wrapf(ErrHeterogeneousCells, "cell attribute %s has types %v", kv.Key, types)
		}
		name, err := mp.typeName(types[0])
		if err != nil {
			return errors.Wrapf(err, "cell attribute %s", kv.Key)
		}
		line("property %s %s", name, kv.Key)
		out.CellData.Add(kv.Key, kv.Value)
	}
	return nil
}
