package plyheader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const cubeHeader = `ply
format ascii 1.0
comment made by Greg Turk
comment this file is a cube
element vertex 8
property float x
property float y
property float z
property float color
element face 6
property list uchar int vertex_indices
end_header
`

func TestParseCube(t *testing.T) {
	f, err := os.Open("testdata/cube.ply")
	require.NoError(t, err)
	defer f.Close()

	h, err := Parse(f)
	require.NoError(t, err)
	assert.Equal(t, FormatASCII, h.Format)
	assert.Equal(t, []string{"made by Greg Turk", "this file is a cube"}, h.Comments)
	assert.Equal(t, []string{"vertex", "face"}, h.Elements.Keys())

	vertex := h.Element("vertex")
	require.NotNil(t, vertex)
	assert.Equal(t, 8, vertex.Size)
	assert.Equal(t, []string{"x", "y", "z", "color"}, vertex.PropertyNames())

	face := h.Element("face")
	require.NotNil(t, face)
	assert.Equal(t, 6, face.Size)
	require.Len(t, face.Properties, 1)
	assert.Equal(t, List("uchar", "int", "vertex_indices"), face.Properties[0])
	assert.True(t, face.Properties[0].IsList())

	// a second parse of the same stream rewinds and sees the same header
	again, err := Parse(f)
	require.NoError(t, err)
	assert.Equal(t, h.String(), again.String())
}

func TestSerializeReproducesHeaderText(t *testing.T) {
	h, err := ParseString(cubeHeader)
	require.NoError(t, err)
	// the text ends with "end_header\n" and no blank line after it
	assert.Equal(t, cubeHeader, h.String())

	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(cubeHeader)), n)
	assert.Equal(t, cubeHeader, buf.String())
}

func TestRecordRoundTrip(t *testing.T) {
	h := New(FormatBinaryLittle)
	h.Comments = append(h.Comments, "first", "second  comment")
	h.AddElement("vertex", 3, Scalar("double", "x"), Scalar("double", "y"))
	h.AddElement("face", 1, List("uint8", "int32", "vertex_indices"), Scalar("uint8", "group"))
	h.AddElement("edge", 0)

	back, err := ParseString(h.String())
	require.NoError(t, err)
	assert.Equal(t, h.Format, back.Format)
	// runs of spaces collapse when a line is tokenized
	assert.Equal(t, []string{"first", "second comment"}, back.Comments)
	assert.Equal(t, h.Elements.Keys(), back.Elements.Keys())
	for _, name := range h.Elements.Keys() {
		assert.Equal(t, *h.Element(name), *back.Element(name), name)
	}
	assert.True(t, back.IsBinary())
	assert.True(t, New(FormatBinaryBigEndian).IsBinary())
	assert.False(t, New(FormatASCII).IsBinary())
}

func TestParseStopsAtEndHeader(t *testing.T) {
	br := bufio.NewReader(strings.NewReader(cubeHeader + "0 0 0 0.5\n"))
	_, err := Parse(br)
	require.NoError(t, err)
	rest, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 0.5\n", rest)
}

func TestParseLineKinds(t *testing.T) {
	h, err := ParseString("ply\nformat ascii 1.0\nobj_info scanned\nformat binary_little_endian 1.0\n" +
		"element vertex 1\nproperty float x\nelement face 2\nelement vertex 4\nproperty int y\nend_header\n")
	require.NoError(t, err)
	// last format wins
	assert.Equal(t, FormatBinaryLittle, h.Format)
	// a re-declared element replaces the first in place
	assert.Equal(t, []string{"vertex", "face"}, h.Elements.Keys())
	assert.Equal(t, 4, h.Element("vertex").Size)
	assert.Equal(t, []string{"y"}, h.Element("vertex").PropertyNames())
}

func TestParseErrors(t *testing.T) {
	_, err := ParseString("not-ply\nformat ascii 1.0\nend_header\n")
	assert.True(t, errors.Is(err, ErrNotPLY))

	_, err = ParseString("")
	assert.True(t, errors.Is(err, ErrNotPLY))

	_, err = ParseString("ply\nformat ascii 1.0\nproperty float x\nend_header\n")
	assert.True(t, errors.Is(err, ErrNoElement))

	_, err = ParseString("ply\nelement vertex many\nend_header\n")
	assert.True(t, errors.Is(err, ErrElementSize))

	_, err = ParseString("ply\nelement vertex -1\nend_header\n")
	assert.True(t, errors.Is(err, ErrElementSize))

	_, err = ParseString("ply\nelement vertex 1\nproperty list uchar x\nend_header\n")
	assert.True(t, errors.Is(err, ErrMalformedLine))
}

func TestParseWithoutEndHeader(t *testing.T) {
	h, err := ParseString("ply\r\nformat ascii 1.0\r\nelement vertex 2")
	require.NoError(t, err)
	assert.Equal(t, FormatASCII, h.Format)
	assert.Equal(t, 2, h.Element("vertex").Size)
}

func TestJSONKeepsElementOrder(t *testing.T) {
	h := New(FormatASCII)
	h.AddElement("zeta", 1, Scalar("float", "a"))
	h.AddElement("alpha", 2, List("uint8", "int32", "vertex_indices"))

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"format":"ascii 1.0","comments":[],"elements":{
		"zeta":{"size":1,"properties":[["float","a"]]},
		"alpha":{"size":2,"properties":[["list","uint8","int32","vertex_indices"]]}}}`, string(data))
	assert.Less(t, strings.Index(string(data), "zeta"), strings.Index(string(data), "alpha"))

	var back Header
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zeta", "alpha"}, back.Elements.Keys())
	assert.Equal(t, h.String(), back.String())

	require.Error(t, back.SetElementsJSON([]byte(`{"v":{"size":1,"properties":[["x"]]}}`)))
	require.Error(t, back.SetElementsJSON([]byte(`[]`)))
}

func TestYAMLKeepsElementOrder(t *testing.T) {
	h, err := ParseString(cubeHeader)
	require.NoError(t, err)
	out, err := yaml.Marshal(h)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "format: ascii 1.0")
	assert.Contains(t, text, "size: 8")
	assert.Contains(t, text, "[list, uchar, int, vertex_indices]")
	assert.Less(t, strings.Index(text, "vertex:"), strings.Index(text, "face:"))
}

func TestLookupType(t *testing.T) {
	dt, ok := LookupType("uchar")
	assert.True(t, ok)
	assert.Equal(t, "uint8", string(dt))
	dt, ok = LookupType("double")
	assert.True(t, ok)
	assert.Equal(t, "float64", string(dt))
	_, ok = LookupType("string")
	assert.False(t, ok)
}
