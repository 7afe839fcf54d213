package meshio

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recolude/plyzarr/mesh"
	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/plyheader"
)

func readFile(t *testing.T, path string) *mesh.Mesh {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	m, err := Read(f)
	require.NoError(t, err)
	return m
}

func TestReadCube(t *testing.T) {
	m := readFile(t, "testdata/cube.ply")
	assert.Equal(t, 8, m.NumPoints())
	assert.Equal(t, 3, m.Dim())
	assert.Equal(t, ndarray.Float32, m.Points.DType())
	assert.Equal(t, []string{"color"}, m.PointData.Keys())
	require.Len(t, m.Cells, 1)
	assert.Equal(t, mesh.Quad, m.Cells[0].Type)
	assert.Equal(t, []int{6, 4}, m.Cells[0].Data.Shape())
	assert.Equal(t, ndarray.Int32, m.Cells[0].Data.DType())
	assert.Equal(t, int64(7), m.Cells[0].Data.Int64(4))
}

func TestReadMixedArities(t *testing.T) {
	m := readFile(t, "testdata/mixed.ply")
	assert.Equal(t, 5, m.NumPoints())
	assert.Equal(t, "1.25", m.Points.Format(14))

	quality, ok := m.PointData.ValueByKeyTry("quality")
	require.True(t, ok)
	assert.Equal(t, ndarray.Uint8, quality.DType())

	require.Len(t, m.Cells, 2)
	assert.Equal(t, mesh.Triangle, m.Cells[0].Type)
	assert.Equal(t, []int{2, 3}, m.Cells[0].Data.Shape())
	assert.Equal(t, mesh.Quad, m.Cells[1].Type)
	assert.Equal(t, []int{1, 4}, m.Cells[1].Data.Shape())
	// file order is kept inside a block
	assert.Equal(t, int64(1), m.Cells[0].Data.Int64(3))

	groups := m.CellData.ValueByKey("group")
	require.Len(t, groups, 2)
	assert.Equal(t, "7", groups[0].Format(0))
	assert.Equal(t, "9", groups[0].Format(1))
	assert.Equal(t, "8", groups[1].Format(0))
	require.NoError(t, m.Validate())
}

func TestReadPromotesMixedCoordinates(t *testing.T) {
	m, err := Read(strings.NewReader("ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty double y\nproperty int z\nend_header\n0.5 0.25 3\n1 2 -4\n"))
	require.NoError(t, err)
	assert.Equal(t, ndarray.Float64, m.Points.DType())
	assert.Equal(t, "0.25", m.Points.Format(1))
	assert.Equal(t, "-4", m.Points.Format(5))

	cloud, err := ToPolyform(m)
	require.NoError(t, err)
	back, err := FromPolyform(&cloud)
	require.NoError(t, err)
	assert.Equal(t, float64(-4), back.Points.Float64(5))
}

func TestReadLogsSkippedParts(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	f, err := os.Open("testdata/mixed.ply")
	require.NoError(t, err)
	defer f.Close()
	_, err = Read(f, WithLogger(log))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "element=camera")

	logs.Reset()
	_, err = Read(strings.NewReader("ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty list uchar int tags\nend_header\n0 0 2 5 6\n"), WithLogger(log))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "property=tags")
}

func mixedHeader(m *mesh.Mesh) *plyheader.Header {
	h := plyheader.New(plyheader.FormatASCII)
	h.AddElement("vertex", m.NumPoints(),
		plyheader.Scalar("double", "x"), plyheader.Scalar("double", "y"), plyheader.Scalar("double", "z"),
		plyheader.Scalar("uchar", "quality"))
	h.AddElement("face", m.NumCells(),
		plyheader.List("uchar", "int", "vertex_indices"), plyheader.Scalar("uchar", "group"))
	return h
}

func TestWriteASCIIRoundTrip(t *testing.T) {
	m := readFile(t, "testdata/mixed.ply")
	var buf bytes.Buffer
	require.NoError(t, WriteASCII(&buf, mixedHeader(m), m))

	text := buf.String()
	assert.Contains(t, text, "end_header\n0 0 0 10\n")
	assert.Contains(t, text, "\n0.5 0.5 1.25 50\n")
	assert.Contains(t, text, "\n3 1 2 4 9\n4 0 1 2 3 8\n")

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.True(t, m.Points.Equal(back.Points))
	require.Len(t, back.Cells, 2)
	for i := range m.Cells {
		assert.True(t, m.Cells[i].Data.Equal(back.Cells[i].Data))
	}
	assert.Equal(t, m.CellData.Keys(), back.CellData.Keys())
}

func TestWriteASCIIMismatch(t *testing.T) {
	m := readFile(t, "testdata/mixed.ply")
	h := mixedHeader(m)
	h.Element("vertex").Size = 4
	assert.True(t, errors.Is(WriteASCII(&bytes.Buffer{}, h, m), ErrHeaderMismatch))

	h = mixedHeader(m)
	h.Element("vertex").Properties = append(h.Element("vertex").Properties, plyheader.Scalar("float", "missing"))
	assert.True(t, errors.Is(WriteASCII(&bytes.Buffer{}, h, m), ErrHeaderMismatch))

	h = mixedHeader(m)
	h.Format = plyheader.FormatBinaryLittle
	assert.True(t, errors.Is(WriteASCII(&bytes.Buffer{}, h, m), ErrUnsupportedFormat))
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("not-ply\n"))
	assert.True(t, errors.Is(err, plyheader.ErrNotPLY))

	_, err = Read(strings.NewReader("ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nend_header\n0 0\n1\n"))
	assert.True(t, errors.Is(err, ErrBody))

	_, err = Read(strings.NewReader("ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nend_header\n0\n"))
	assert.True(t, errors.Is(err, ErrNoCoordinates))

	_, err = Read(strings.NewReader("ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nproperty float y\nend_header\n0 0\n"))
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestFromPolyformPointCloud(t *testing.T) {
	pc := modeling.NewPointCloud(
		map[string][]vector3.Vector[float64]{
			modeling.PositionAttribute: {vector3.New(1., 2., 3.), vector3.New(4., 5., 6.)},
			modeling.ColorAttribute:    {vector3.New(1., 0., 0.), vector3.New(0., 1., 0.)},
		},
		nil,
		nil,
		nil,
	)
	m, err := FromPolyform(&pc)
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumPoints())
	assert.Equal(t, float64(5), m.Points.Float64(4))
	assert.Equal(t, []string{"red", "green", "blue"}, m.PointData.Keys())
	assert.Empty(t, m.Cells)
}

func TestToPolyformRejectsQuads(t *testing.T) {
	m := readFile(t, "testdata/cube.ply")
	_, err := ToPolyform(m)
	assert.True(t, errors.Is(err, ErrNotTriangles))
}
