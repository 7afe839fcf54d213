package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"

	"github.com/recolude/plyzarr/ndarray"
)

// DefaultChunkRows is the number of rows stored per chunk file.
const DefaultChunkRows = 65536

// Directory is a Group laid out on disk as a zarr v2 hierarchy: one
// directory per group or array, JSON metadata files, and one file per chunk
// along the first axis.
type Directory struct {
	path       string
	chunkRows  int
	compressor string
}

type DirectoryOption func(*Directory)

// WithChunkRows sets how many rows go in each chunk.
func WithChunkRows(n int) DirectoryOption {
	return func(d *Directory) {
		if n > 0 {
			d.chunkRows = n
		}
	}
}

// WithCompressor selects CompressorLZF, or no compression for "".
func WithCompressor(id string) DirectoryOption {
	return func(d *Directory) {
		d.compressor = id
	}
}

// OpenDirectory opens the group rooted at path, creating it when missing.
func OpenDirectory(path string, opts ...DirectoryOption) (*Directory, error) {
	d := &Directory{path: path, chunkRows: DefaultChunkRows}
	for _, opt := range opts {
		opt(d)
	}
	if d.compressor != "" && d.compressor != CompressorLZF {
		return nil, errors.Errorf("unsupported compressor %q", d.compressor)
	}
	if exists(filepath.Join(path, arrayMetaFile)) {
		return nil, errors.Wrapf(ErrExists, "%s is an array", path)
	}
	if err := d.initGroup(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) Path() string {
	return d.path
}

func (d *Directory) initGroup() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return errors.Wrap(err, "creating group directory")
	}
	meta := filepath.Join(d.path, groupMetaFile)
	if exists(meta) {
		return nil
	}
	return writeJSON(meta, groupMeta{ZarrFormat: zarrFormat})
}

func (d *Directory) child(name string) *Directory {
	return &Directory{path: filepath.Join(d.path, name), chunkRows: d.chunkRows, compressor: d.compressor}
}

func (d *Directory) readAttrs() (map[string]json.RawMessage, error) {
	attrs := map[string]json.RawMessage{}
	raw, err := os.ReadFile(filepath.Join(d.path, attrsFile))
	if os.IsNotExist(err) {
		return attrs, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading attributes")
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", filepath.Join(d.path, attrsFile))
	}
	return attrs, nil
}

func (d *Directory) SetAttr(key string, v any) error {
	attrs, err := d.readAttrs()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding attribute %s", key)
	}
	attrs[key] = raw
	return writeJSON(filepath.Join(d.path, attrsFile), attrs)
}

func (d *Directory) Attr(key string, v any) error {
	attrs, err := d.readAttrs()
	if err != nil {
		return err
	}
	raw, ok := attrs[key]
	if !ok {
		return errors.Wrapf(ErrNotFound, "attribute %s", key)
	}
	return errors.Wrapf(json.Unmarshal(raw, v), "decoding attribute %s", key)
}

func (d *Directory) AttrKeys() ([]string, error) {
	attrs, err := d.readAttrs()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Directory) RemoveAttr(key string) error {
	attrs, err := d.readAttrs()
	if err != nil {
		return err
	}
	if _, ok := attrs[key]; !ok {
		return nil
	}
	delete(attrs, key)
	return writeJSON(filepath.Join(d.path, attrsFile), attrs)
}

func (d *Directory) CreateGroup(name string) (Group, error) {
	if err := ValidKey(name); err != nil {
		return nil, err
	}
	c := d.child(name)
	if exists(filepath.Join(c.path, arrayMetaFile)) {
		return nil, errors.Wrapf(ErrExists, "%s is an array", name)
	}
	if err := c.initGroup(); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Directory) Group(name string) (Group, error) {
	if err := ValidKey(name); err != nil {
		return nil, err
	}
	c := d.child(name)
	if !exists(filepath.Join(c.path, groupMetaFile)) {
		return nil, errors.Wrapf(ErrNotFound, "group %s", name)
	}
	return c, nil
}

func (d *Directory) RemoveGroup(name string) error {
	return d.remove(name, arrayMetaFile, "an array")
}

func (d *Directory) RemoveArray(name string) error {
	return d.remove(name, groupMetaFile, "a group")
}

// remove deletes the child directory name unless it holds otherMeta, the
// metadata file of the other node kind.
func (d *Directory) remove(name, otherMeta, kind string) error {
	if err := ValidKey(name); err != nil {
		return err
	}
	dir := filepath.Join(d.path, name)
	if exists(filepath.Join(dir, otherMeta)) {
		return errors.Wrapf(ErrExists, "%s is %s", name, kind)
	}
	return errors.Wrapf(os.RemoveAll(dir), "removing %s", name)
}

func (d *Directory) GroupKeys() ([]string, error) {
	return d.childrenWith(groupMetaFile)
}

func (d *Directory) ArrayKeys() ([]string, error) {
	return d.childrenWith(arrayMetaFile)
}

// childrenWith lists child directories holding the given metadata file, in
// lexical order.
func (d *Directory) childrenWith(metaFile string) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.Wrap(err, "listing group")
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() && exists(filepath.Join(d.path, e.Name(), metaFile)) {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

func (d *Directory) SetArray(name string, a *ndarray.Array) error {
	if err := ValidKey(name); err != nil {
		return err
	}
	dir := filepath.Join(d.path, name)
	if exists(filepath.Join(dir, groupMetaFile)) {
		return errors.Wrapf(ErrExists, "%s is a group", name)
	}
	code, err := dtypeCode(a.DType())
	if err != nil {
		return err
	}
	// stale chunks from an earlier, longer array must not survive
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "replacing array %s", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating array %s", name)
	}

	shape := a.Shape()
	chunks := append([]int(nil), shape...)
	if len(chunks) > 0 {
		chunks[0] = max(1, min(d.chunkRows, shape[0]))
	}
	meta := arrayMeta{
		Chunks:     chunks,
		DType:      code,
		Order:      "C",
		Shape:      shape,
		ZarrFormat: zarrFormat,
	}
	if d.compressor != "" {
		meta.Compressor = &compressorConfig{ID: d.compressor}
	}
	if err := writeJSON(filepath.Join(dir, arrayMetaFile), meta); err != nil {
		return err
	}

	rows := a.Len()
	for i, from := 0, 0; from < rows; i, from = i+1, from+chunks[0] {
		part, err := a.Rows(from, min(from+chunks[0], rows))
		if err != nil {
			return err
		}
		// chunks are always full size; the tail is zero padded
		raw := make([]byte, chunks[0]*a.Cols()*a.DType().Size())
		copy(raw, part.Bytes())
		if err := d.writeChunk(filepath.Join(dir, chunkKey(i, a.NDim())), raw); err != nil {
			return errors.Wrapf(err, "array %s", name)
		}
	}
	return nil
}

func (d *Directory) writeChunk(path string, raw []byte) error {
	if d.compressor == CompressorLZF && len(raw) > 0 {
		out := make([]byte, len(raw)+len(raw)/16+64)
		n, err := lzf.Compress(raw, out)
		if err != nil {
			return errors.Wrap(err, "compressing chunk")
		}
		raw = out[:n]
	}
	return errors.Wrap(os.WriteFile(path, raw, 0o644), "writing chunk")
}

func (d *Directory) Array(name string) (*ndarray.Array, error) {
	if err := ValidKey(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(d.path, name)
	var meta arrayMeta
	raw, err := os.ReadFile(filepath.Join(dir, arrayMetaFile))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "array %s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading array %s", name)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, errors.Wrapf(err, "decoding %s metadata", name)
	}
	dt, bigEndian, err := parseDTypeCode(meta.DType)
	if err != nil {
		return nil, err
	}
	compressor := ""
	if meta.Compressor != nil {
		compressor = meta.Compressor.ID
	}
	if compressor != "" && compressor != CompressorLZF {
		return nil, errors.Errorf("array %s: unsupported compressor %q", name, compressor)
	}

	out, err := ndarray.Zeros(dt, meta.Shape...)
	if err != nil {
		return nil, err
	}
	chunkRows := 1
	if len(meta.Chunks) > 0 && meta.Chunks[0] > 0 {
		chunkRows = meta.Chunks[0]
	}
	chunkShape := append([]int{chunkRows}, meta.Shape[1:]...)
	parts := []*ndarray.Array{}
	rows := meta.Shape[0]
	for i, from := 0, 0; from < rows; i, from = i+1, from+chunkRows {
		chunk, err := d.readChunk(filepath.Join(dir, chunkKey(i, len(meta.Shape))), compressor, dt, bigEndian, chunkShape)
		if err != nil {
			return nil, errors.Wrapf(err, "array %s", name)
		}
		part, err := chunk.Rows(0, min(chunkRows, rows-from))
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return out, nil
	}
	return ndarray.Concat(parts...)
}

// readChunk decodes one chunk file. A missing chunk reads as zeros, the fill
// value every array is written with.
func (d *Directory) readChunk(path, compressor string, dt ndarray.DType, bigEndian bool, shape []int) (*ndarray.Array, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ndarray.Zeros(dt, shape...)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading chunk")
	}
	want := dt.Size()
	for _, s := range shape {
		want *= s
	}
	if compressor == CompressorLZF && want > 0 {
		dec := make([]byte, want)
		n, err := lzf.Decompress(raw, dec)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing chunk")
		}
		if n != want {
			return nil, errors.Errorf("chunk decompressed to %d bytes, want %d", n, want)
		}
		raw = dec
	}
	if bigEndian {
		swapBytes(raw, dt.Size())
	}
	return ndarray.FromBytes(dt, shape, raw)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, raw, 0o644), "writing %s", path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
