// Package meshio reads and writes whole PLY files. ASCII bodies are handled
// here; binary files go through polyform.
package meshio

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/plyheader"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported ply format")
	ErrUnknownType       = errors.New("unknown ply type")
	ErrBody              = errors.New("malformed ply body")
	ErrNoCoordinates     = errors.New("vertex element has no x and y")
)

// Coordinate property names, in column order.
var Axes = []string{"x", "y", "z"}

// IndexProperty is the face list property holding vertex indices.
const IndexProperty = "vertex_indices"

// IsIndexProperty accepts the common spelling and the singular one Greg
// Turk's sample files use.
func IsIndexProperty(name string) bool {
	return name == IndexProperty || name == "vertex_index"
}

type readConfig struct {
	log *slog.Logger
}

type ReadOption func(*readConfig)

// WithLogger sends warnings about skipped elements and properties to l
// instead of slog.Default().
func WithLogger(l *slog.Logger) ReadOption {
	return func(c *readConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Read decodes a whole PLY stream.
func Read(r io.Reader, opts ...ReadOption) (*mesh.Mesh, error) {
	cfg := readConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading ply")
	}
	br := bufio.NewReader(bytes.NewReader(data))
	h, err := plyheader.Parse(br)
	if err != nil {
		return nil, err
	}
	if h.IsBinary() {
		pm, err := ply.ReadMesh(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "reading binary ply")
		}
		return FromPolyform(pm)
	}
	if !strings.HasPrefix(h.Format, "ascii") {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", h.Format)
	}
	return readASCII(br, h, cfg.log)
}

type tokenizer struct {
	s *bufio.Scanner
}

func (t *tokenizer) next() (string, error) {
	if !t.s.Scan() {
		if err := t.s.Err(); err != nil {
			return "", errors.Wrap(err, "reading ply body")
		}
		return "", errors.Wrap(ErrBody, "unexpected end of body")
	}
	return t.s.Text(), nil
}

// column collects the text of one property, plus list lengths for list
// properties.
type column struct {
	prop   plyheader.Property
	values []string
	counts []int
}

func readElement(tok *tokenizer, name string, el *plyheader.Element) ([]*column, error) {
	cols := make([]*column, len(el.Properties))
	for i, p := range el.Properties {
		cols[i] = &column{prop: p}
	}
	for row := 0; row < el.Size; row++ {
		for _, c := range cols {
			if !c.prop.IsList() {
				v, err := tok.next()
				if err != nil {
					return nil, errors.Wrapf(err, "%s %d %s", name, row, c.prop.Name)
				}
				c.values = append(c.values, v)
				continue
			}
			v, err := tok.next()
			if err != nil {
				return nil, errors.Wrapf(err, "%s %d %s", name, row, c.prop.Name)
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, errors.Wrapf(ErrBody, "%s %d: bad list length %q", name, row, v)
			}
			c.counts = append(c.counts, n)
			for k := 0; k < n; k++ {
				v, err := tok.next()
				if err != nil {
					return nil, errors.Wrapf(err, "%s %d %s", name, row, c.prop.Name)
				}
				c.values = append(c.values, v)
			}
		}
	}
	return cols, nil
}

func lookup(typ string) (ndarray.DType, error) {
	dt, ok := plyheader.LookupType(typ)
	if !ok {
		return "", errors.Wrapf(ErrUnknownType, "%q", typ)
	}
	return dt, nil
}

func readASCII(r io.Reader, h *plyheader.Header, log *slog.Logger) (*mesh.Mesh, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	s.Split(bufio.ScanWords)
	tok := &tokenizer{s: s}

	var m *mesh.Mesh
	var faces []*column
	for _, kv := range h.Elements.Order {
		cols, err := readElement(tok, kv.Key, kv.Value)
		if err != nil {
			return nil, err
		}
		switch kv.Key {
		case "vertex":
			if m, err = buildPoints(cols, log); err != nil {
				return nil, err
			}
		case "face":
			faces = cols
		default:
			log.Warn("skipping unsupported ply element", "element", kv.Key, "rows", kv.Value.Size)
		}
	}
	if m == nil {
		return nil, errors.Wrap(ErrNoCoordinates, "no vertex element")
	}
	if faces != nil {
		if err := buildCells(m, faces, log); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func buildPoints(cols []*column, log *slog.Logger) (*mesh.Mesh, error) {
	var axes []*ndarray.Array
	for _, want := range Axes {
		for _, c := range cols {
			if c.prop.Name == want && !c.prop.IsList() {
				dt, err := lookup(c.prop.Type)
				if err != nil {
					return nil, err
				}
				a, err := ndarray.ParseStrings(dt, c.values)
				if err != nil {
					return nil, errors.Wrapf(ErrBody, "vertex %s: %v", want, err)
				}
				axes = append(axes, a)
			}
		}
	}
	if len(axes) < 2 {
		return nil, ErrNoCoordinates
	}
	if !allSameDType(axes) {
		for i, a := range axes {
			var err error
			if axes[i], err = a.AsType(ndarray.Float64); err != nil {
				return nil, errors.Wrapf(err, "promoting vertex %s", Axes[i])
			}
		}
	}
	points, err := ndarray.Stack(axes...)
	if err != nil {
		return nil, err
	}
	m := mesh.New(points)

	for _, c := range cols {
		if slices.Contains(Axes, c.prop.Name) {
			continue
		}
		if c.prop.IsList() {
			log.Warn("skipping list property on vertex element", "property", c.prop.Name)
			continue
		}
		dt, err := lookup(c.prop.Type)
		if err != nil {
			return nil, err
		}
		a, err := ndarray.ParseStrings(dt, c.values)
		if err != nil {
			return nil, errors.Wrapf(ErrBody, "vertex %s: %v", c.prop.Name, err)
		}
		m.PointData.Add(c.prop.Name, a)
	}
	return m, nil
}

func allSameDType(arrays []*ndarray.Array) bool {
	for _, a := range arrays[1:] {
		if a.DType() != arrays[0].DType() {
			return false
		}
	}
	return true
}

// buildCells splits faces into one block per arity, smallest arity first,
// keeping file order inside a block. Scalar face properties follow the same
// split.
func buildCells(m *mesh.Mesh, cols []*column, log *slog.Logger) error {
	var index *column
	for _, c := range cols {
		if c.prop.IsList() && IsIndexProperty(c.prop.Name) {
			index = c
			break
		}
	}
	if index == nil {
		log.Warn("face element has no vertex index list, faces dropped")
		return nil
	}
	idxType, err := lookup(index.prop.Type)
	if err != nil {
		return err
	}

	// rows of each arity, as positions in file order
	byArity := map[int][]int{}
	offsets := make([]int, len(index.counts))
	at := 0
	for row, k := range index.counts {
		byArity[k] = append(byArity[k], row)
		offsets[row] = at
		at += k
	}
	arities := make([]int, 0, len(byArity))
	for k := range byArity {
		arities = append(arities, k)
	}
	slices.Sort(arities)

	scalars := []*column{}
	for _, c := range cols {
		switch {
		case c == index:
		case c.prop.IsList():
			log.Warn("skipping list property on face element", "property", c.prop.Name)
		default:
			scalars = append(scalars, c)
		}
	}

	for _, k := range arities {
		rows := byArity[k]
		vals := make([]string, 0, len(rows)*k)
		for _, row := range rows {
			vals = append(vals, index.values[offsets[row]:offsets[row]+k]...)
		}
		block, err := ndarray.ParseStrings(idxType, vals, len(rows), k)
		if err != nil {
			return errors.Wrapf(ErrBody, "face indices: %v", err)
		}
		m.Cells = append(m.Cells, mesh.Block(block))

		for _, c := range scalars {
			dt, err := lookup(c.prop.Type)
			if err != nil {
				return err
			}
			picked := make([]string, len(rows))
			for i, row := range rows {
				picked[i] = c.values[row]
			}
			a, err := ndarray.ParseStrings(dt, picked)
			if err != nil {
				return errors.Wrapf(ErrBody, "face %s: %v", c.prop.Name, err)
			}
			m.CellData.Add(c.prop.Name, append(m.CellData.ValueByKey(c.prop.Name), a))
		}
	}
	return nil
}
