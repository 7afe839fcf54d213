package store

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/ndarray"
)

const zarrFormat = 2

const (
	groupMetaFile = ".zgroup"
	arrayMetaFile = ".zarray"
	attrsFile     = ".zattrs"
)

// CompressorLZF is the only codec the directory store writes besides none.
const CompressorLZF = "lzf"

// arrayMeta is the .zarray document of a zarr v2 array.
type arrayMeta struct {
	Chunks     []int             `json:"chunks"`
	Compressor *compressorConfig `json:"compressor"`
	DType      string            `json:"dtype"`
	FillValue  float64           `json:"fill_value"`
	Filters    []any             `json:"filters"`
	Order      string            `json:"order"`
	Shape      []int             `json:"shape"`
	ZarrFormat int               `json:"zarr_format"`
}

type compressorConfig struct {
	ID string `json:"id"`
}

type groupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

var dtypeCodes = map[ndarray.DType]string{
	ndarray.Int8:    "|i1",
	ndarray.Uint8:   "|u1",
	ndarray.Int16:   "<i2",
	ndarray.Uint16:  "<u2",
	ndarray.Int32:   "<i4",
	ndarray.Uint32:  "<u4",
	ndarray.Int64:   "<i8",
	ndarray.Uint64:  "<u8",
	ndarray.Float32: "<f4",
	ndarray.Float64: "<f8",
}

func dtypeCode(dt ndarray.DType) (string, error) {
	code, ok := dtypeCodes[dt]
	if !ok {
		return "", errors.Wrapf(ndarray.ErrUnknownDType, "%q", string(dt))
	}
	return code, nil
}

// parseDTypeCode decodes a numpy style type string such as "<f8". The second
// result is true for big endian data.
func parseDTypeCode(code string) (ndarray.DType, bool, error) {
	if len(code) < 3 {
		return "", false, errors.Wrapf(ndarray.ErrUnknownDType, "%q", code)
	}
	order, kind := code[0], code[1:]
	if order != '<' && order != '>' && order != '|' {
		return "", false, errors.Wrapf(ndarray.ErrUnknownDType, "%q", code)
	}
	for dt, c := range dtypeCodes {
		if c[1:] == kind {
			return dt, order == '>', nil
		}
	}
	return "", false, errors.Wrapf(ndarray.ErrUnknownDType, "unsupported or unknown dtype: %s", code)
}

// chunkKey names chunk i along the first axis; the remaining axes always fit
// in a single chunk.
func chunkKey(i, ndim int) string {
	key := fmt.Sprint(i)
	for d := 1; d < ndim; d++ {
		key += ".0"
	}
	return key
}

// swapBytes reverses the bytes of every element in place.
func swapBytes(raw []byte, size int) {
	for off := 0; off+size <= len(raw); off += size {
		for i, j := off, off+size-1; i < j; i, j = i+1, j-1 {
			raw[i], raw[j] = raw[j], raw[i]
		}
	}
}
