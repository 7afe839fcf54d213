// Package plyzarr lays PLY meshes out in a hierarchical array store and reads
// them back.
//
// A stored mesh looks like this:
//
//	root            attrs: format, comments, elements (the PLY header)
//	├── 3           one group per face arity
//	│   ├── vertex_indices (n3, 3)
//	│   └── <face attribute> (n3,)
//	├── 4
//	│   └── vertex_indices (n4, 4)
//	└── points
//	    ├── x, y, z
//	    └── <vertex attribute>
package plyzarr

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/meshio"
	"github.com/recolude/plyzarr/plyheader"
	"github.com/recolude/plyzarr/store"
)

// Attribute keys and group names of the layout.
const (
	FormatAttr   = "format"
	CommentsAttr = "comments"
	ElementsAttr = "elements"
	PointsGroup  = "points"
)

var (
	ErrNoHeader     = errors.New("group holds no ply header")
	ErrSizeMismatch = errors.New("stored arrays disagree with the header")
)

// Mapper converts between meshes and store groups.
type Mapper struct {
	cfg Config
}

// New makes a mapper. Unset fields of cfg take their DefaultConfig values.
func New(cfg Config) *Mapper {
	return &Mapper{cfg: cfg.withDefaults()}
}

func (mp *Mapper) Config() Config {
	return mp.cfg
}

func storeHeader(g store.Group, h *plyheader.Header) error {
	elements, err := h.ElementsJSON()
	if err != nil {
		return errors.Wrap(err, "encoding elements")
	}
	comments := h.Comments
	if comments == nil {
		comments = []string{}
	}
	if err := g.SetAttr(FormatAttr, h.Format); err != nil {
		return err
	}
	if err := g.SetAttr(CommentsAttr, comments); err != nil {
		return err
	}
	return g.SetAttr(ElementsAttr, json.RawMessage(elements))
}

// ReadHeader returns the header stored on g.
func ReadHeader(g store.Group) (*plyheader.Header, error) {
	var format string
	if err := g.Attr(FormatAttr, &format); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrNoHeader, err.Error())
		}
		return nil, err
	}
	h := plyheader.New(format)
	if err := g.Attr(CommentsAttr, &h.Comments); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	var elements json.RawMessage
	if err := g.Attr(ElementsAttr, &elements); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrNoHeader, err.Error())
		}
		return nil, err
	}
	if err := h.SetElementsJSON(elements); err != nil {
		return nil, err
	}
	return h, nil
}

// ToPly reads the mesh stored in g and writes it to w as ASCII PLY under a
// freshly derived header.
func (mp *Mapper) ToPly(g store.Group, w io.Writer) error {
	m, err := mp.Read(g)
	if err != nil {
		return err
	}
	h, out, err := mp.DeriveHeader(m)
	if err != nil {
		return err
	}
	return meshio.WriteASCII(w, h, out)
}

// Import reads a PLY stream and writes the mesh into g. g is not touched
// when r cannot be decoded.
func (mp *Mapper) Import(r io.Reader, g store.Group) (*mesh.Mesh, error) {
	m, err := meshio.Read(r, meshio.WithLogger(mp.cfg.Logger))
	if err != nil {
		return nil, err
	}
	return mp.Write(g, m)
}

func DeriveHeader(m *mesh.Mesh) (*plyheader.Header, *mesh.Mesh, error) {
	return New(DefaultConfig()).DeriveHeader(m)
}

func Write(g store.Group, m *mesh.Mesh) (*mesh.Mesh, error) {
	return New(DefaultConfig()).Write(g, m)
}

func Read(g store.Group) (*mesh.Mesh, error) {
	return New(DefaultConfig()).Read(g)
}

func ToPly(g store.Group, w io.Writer) error {
	return New(DefaultConfig()).ToPly(g, w)
}

func Import(r io.Reader, g store.Group) (*mesh.Mesh, error) {
	return New(DefaultConfig()).Import(r, g)
}
