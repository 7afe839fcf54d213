package meshio

import (
	"bufio"
	"io"
	"slices"
	"strconv"

	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/plyheader"
)

var ErrHeaderMismatch = errors.New("header does not describe mesh")

// WriteASCII writes h followed by an ASCII body for m. Rows follow the
// property order of h; every property must be backed by the mesh.
func WriteASCII(w io.Writer, h *plyheader.Header, m *mesh.Mesh) error {
	if h.Format != plyheader.FormatASCII {
		return errors.Wrapf(ErrUnsupportedFormat, "writing %q", h.Format)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := h.WriteTo(bw); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, kv := range h.Elements.Order {
		var err error
		switch kv.Key {
		case "vertex":
			err = writeVertices(bw, kv.Value, m)
		case "face":
			err = writeFaces(bw, kv.Value, m)
		default:
			if kv.Value.Size != 0 {
				err = errors.Wrapf(ErrHeaderMismatch, "no data for element %s", kv.Key)
			}
		}
		if err != nil {
			return err
		}
	}
	return errors.Wrap(bw.Flush(), "writing ply body")
}

type rowWriter struct {
	w   *bufio.Writer
	buf []byte
}

func (r *rowWriter) value(s string) {
	if len(r.buf) > 0 {
		r.buf = append(r.buf, ' ')
	}
	r.buf = append(r.buf, s...)
}

func (r *rowWriter) end() error {
	r.buf = append(r.buf, '\n')
	_, err := r.w.Write(r.buf)
	r.buf = r.buf[:0]
	return err
}

func writeVertices(w *bufio.Writer, el *plyheader.Element, m *mesh.Mesh) error {
	n, dim := m.NumPoints(), m.Dim()
	if el.Size != n {
		return errors.Wrapf(ErrHeaderMismatch, "vertex size %d for %d points", el.Size, n)
	}
	type source struct {
		a      *ndarray.Array
		stride int
		offset int
	}
	sources := make([]source, len(el.Properties))
	for j, p := range el.Properties {
		if p.IsList() {
			return errors.Wrapf(ErrHeaderMismatch, "list property %s on vertex", p.Name)
		}
		if axis := slices.Index(Axes, p.Name); axis >= 0 && axis < dim {
			sources[j] = source{a: m.Points, stride: dim, offset: axis}
			continue
		}
		a, ok := m.PointData.ValueByKeyTry(p.Name)
		if !ok {
			return errors.Wrapf(ErrHeaderMismatch, "no point data for %s", p.Name)
		}
		sources[j] = source{a: a, stride: 1}
	}
	rw := &rowWriter{w: w}
	for i := 0; i < n; i++ {
		for _, s := range sources {
			rw.value(s.a.Format(i*s.stride + s.offset))
		}
		if err := rw.end(); err != nil {
			return errors.Wrap(err, "writing vertex")
		}
	}
	return nil
}

func writeFaces(w *bufio.Writer, el *plyheader.Element, m *mesh.Mesh) error {
	if el.Size != m.NumCells() {
		return errors.Wrapf(ErrHeaderMismatch, "face size %d for %d faces", el.Size, m.NumCells())
	}
	for _, p := range el.Properties {
		if p.IsList() && !IsIndexProperty(p.Name) {
			return errors.Wrapf(ErrHeaderMismatch, "unknown face list property %s", p.Name)
		}
		if !p.IsList() {
			if _, ok := m.CellData.ValueByKeyTry(p.Name); !ok {
				return errors.Wrapf(ErrHeaderMismatch, "no cell data for %s", p.Name)
			}
		}
	}
	rw := &rowWriter{w: w}
	for b, block := range m.Cells {
		k := block.Arity()
		for i := 0; i < block.Len(); i++ {
			for _, p := range el.Properties {
				if p.IsList() {
					rw.value(strconv.Itoa(k))
					for j := 0; j < k; j++ {
						rw.value(block.Data.Format(i*k + j))
					}
					continue
				}
				rw.value(m.CellData.ValueByKey(p.Name)[b].Format(i))
			}
			if err := rw.end(); err != nil {
				return errors.Wrap(err, "writing face")
			}
		}
	}
	return nil
}
