package plyzarr

import (
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/ndarray"
	"github.com/recolude/plyzarr/plyheader"
	"github.com/recolude/plyzarr/store"
)

const (
	Tool    = "ply-zarr"
	Version = "0.0.1"
)

// DefaultTypes names each dtype the way header lines spell it. Floats use
// the legacy names most readers expect.
func DefaultTypes() map[ndarray.DType]string {
	return map[ndarray.DType]string{
		ndarray.Int8:    "int8",
		ndarray.Int16:   "int16",
		ndarray.Int32:   "int32",
		ndarray.Int64:   "int64",
		ndarray.Uint8:   "uint8",
		ndarray.Uint16:  "uint16",
		ndarray.Uint32:  "uint32",
		ndarray.Uint64:  "uint64",
		ndarray.Float32: "float",
		ndarray.Float64: "double",
	}
}

// Config carries everything the mapper would otherwise hardcode.
type Config struct {
	// Types maps array dtypes to header type names. A dtype missing here
	// cannot be written.
	Types map[ndarray.DType]string

	// CountType is the list length type of vertex_indices. It bounds the
	// number of vertices a single face may have.
	CountType string

	// IndexType is what 64-bit face indices are narrowed to.
	IndexType ndarray.DType

	Tool    string
	Version string

	// Now stamps the header comment.
	Now func() time.Time

	Logger *slog.Logger

	// Directory store layout, used when the mapper opens stores itself.
	ChunkRows  int
	Compressor string
}

func DefaultConfig() Config {
	return Config{
		Types:     DefaultTypes(),
		CountType: "uint8",
		IndexType: ndarray.Int32,
		Tool:      Tool,
		Version:   Version,
		Now:       time.Now,
		Logger:    slog.Default(),
		ChunkRows: store.DefaultChunkRows,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Types == nil {
		c.Types = def.Types
	}
	if c.CountType == "" {
		c.CountType = def.CountType
	}
	if c.IndexType == "" {
		c.IndexType = def.IndexType
	}
	if c.Tool == "" {
		c.Tool = def.Tool
	}
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.ChunkRows <= 0 {
		c.ChunkRows = def.ChunkRows
	}
	return c
}

// OpenDirectory opens a directory store laid out as c asks.
func (c Config) OpenDirectory(path string) (*store.Directory, error) {
	c = c.withDefaults()
	return store.OpenDirectory(path, store.WithChunkRows(c.ChunkRows), store.WithCompressor(c.Compressor))
}

type fileConfig struct {
	Types      map[string]string `toml:"types"`
	CountType  string            `toml:"count_type"`
	IndexType  string            `toml:"index_type"`
	Tool       string            `toml:"tool"`
	ChunkRows  int               `toml:"chunk_rows"`
	Compressor string            `toml:"compressor"`
}

// LoadConfig reads a TOML file on top of DefaultConfig. Entries under
// [types] replace single rows of the default table:
//
//	count_type = "uint16"
//	chunk_rows = 4096
//	compressor = "lzf"
//
//	[types]
//	float32 = "float32"
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}

	for k, v := range fc.Types {
		dt := ndarray.DType(k)
		if !dt.Valid() {
			return cfg, errors.Wrapf(ndarray.ErrUnknownDType, "config types: %q", k)
		}
		if _, ok := plyheader.LookupType(v); !ok {
			return cfg, errors.Wrapf(ErrUnsupportedDType, "config types: %s = %q", k, v)
		}
		cfg.Types[dt] = v
	}
	if fc.CountType != "" {
		dt, ok := plyheader.LookupType(fc.CountType)
		if !ok || dt.IsFloat() {
			return cfg, errors.Wrapf(ErrUnsupportedDType, "count_type %q", fc.CountType)
		}
		cfg.CountType = fc.CountType
	}
	if fc.IndexType != "" {
		dt := ndarray.DType(fc.IndexType)
		if !dt.Valid() || dt.IsFloat() {
			return cfg, errors.Wrapf(ErrUnsupportedDType, "index_type %q", fc.IndexType)
		}
		cfg.IndexType = dt
	}
	if fc.Tool != "" {
		cfg.Tool = fc.Tool
	}
	if fc.ChunkRows != 0 {
		if fc.ChunkRows < 0 {
			return cfg, errors.Errorf("chunk_rows must be positive, got %d", fc.ChunkRows)
		}
		cfg.ChunkRows = fc.ChunkRows
	}
	cfg.Compressor = fc.Compressor
	return cfg, nil
}
