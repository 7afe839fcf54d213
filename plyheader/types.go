package plyheader

import "github.com/recolude/plyzarr/ndarray"

// From <https://en.wikipedia.org/wiki/PLY_(file_format)>: the type can be one
// of char uchar short ushort int uint float double, or one of int8 uint8
// int16 uint16 int32 uint32 float32 float64. int64 and uint64 are accepted
// as well.
var typeNames = map[string]ndarray.DType{
	"char":    ndarray.Int8,
	"uchar":   ndarray.Uint8,
	"short":   ndarray.Int16,
	"ushort":  ndarray.Uint16,
	"int":     ndarray.Int32,
	"uint":    ndarray.Uint32,
	"float":   ndarray.Float32,
	"double":  ndarray.Float64,
	"int8":    ndarray.Int8,
	"uint8":   ndarray.Uint8,
	"int16":   ndarray.Int16,
	"uint16":  ndarray.Uint16,
	"int32":   ndarray.Int32,
	"uint32":  ndarray.Uint32,
	"int64":   ndarray.Int64,
	"uint64":  ndarray.Uint64,
	"float32": ndarray.Float32,
	"float64": ndarray.Float64,
}

// LookupType maps a PLY type name to an element type.
func LookupType(name string) (ndarray.DType, bool) {
	dt, ok := typeNames[name]
	return dt, ok
}
