// Package plyheader reads and writes the text header of a PLY file.
//
// A header looks like
//
//	ply
//	format ascii 1.0
//	comment made by Greg Turk
//	element vertex 8
//	property float x
//	property float y
//	property float z
//	element face 6
//	property list uchar int vertex_indices
//	end_header
//
// and is held as a Header: the format tag, the comments in order and the
// elements in declaration order, each with its row count and properties.
package plyheader

import (
	"strings"

	"cogentcore.org/core/base/ordmap"
)

const (
	Magic     = "ply"
	EndHeader = "end_header"
	ListToken = "list"

	FormatASCII           = "ascii 1.0"
	FormatBinaryLittle    = "binary_little_endian 1.0"
	FormatBinaryBigEndian = "binary_big_endian 1.0"
)

type Header struct {
	Format   string
	Comments []string
	Elements *ordmap.Map[string, *Element]
}

type Element struct {
	Size       int
	Properties []Property
}

// Property is a column of an element. CountType is only set for list
// properties, in which case Type is the type of the list values.
type Property struct {
	Name      string
	Type      string
	CountType string
}

// New returns an empty header with the given format.
func New(format string) *Header {
	return &Header{
		Format:   format,
		Comments: []string{},
		Elements: ordmap.New[string, *Element](),
	}
}

func Scalar(typ, name string) Property {
	return Property{Name: name, Type: typ}
}

func List(countType, valueType, name string) Property {
	return Property{Name: name, Type: valueType, CountType: countType}
}

func (p Property) IsList() bool {
	return p.CountType != ""
}

// Tokens are the words following "property" on a header line.
func (p Property) Tokens() []string {
	if p.IsList() {
		return []string{ListToken, p.CountType, p.Type, p.Name}
	}
	return []string{p.Type, p.Name}
}

// Element returns the named element or nil.
func (h *Header) Element(name string) *Element {
	e, _ := h.Elements.ValueByKeyTry(name)
	return e
}

// AddElement declares an element, replacing an earlier one of the same name
// at its first position.
func (h *Header) AddElement(name string, size int, props ...Property) *Element {
	e := &Element{Size: size, Properties: props}
	if e.Properties == nil {
		e.Properties = []Property{}
	}
	h.Elements.Add(name, e)
	return e
}

// PropertyNames lists the property names of the element in order.
func (e *Element) PropertyNames() []string {
	names := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		names[i] = p.Name
	}
	return names
}

// Property finds a property by name.
func (e *Element) Property(name string) (Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// IsBinary reports whether the format tag names a binary encoding.
func (h *Header) IsBinary() bool {
	return strings.HasPrefix(h.Format, "binary_")
}
