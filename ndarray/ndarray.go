// Package ndarray holds the typed, shaped numeric buffers that flow between
// meshes and array stores. Each Array wraps a cogent lab tensor.Number of the
// matching element type and adds the little endian byte codec and lossless
// text form the file formats need.
package ndarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"

	"cogentcore.org/lab/tensor"
	"github.com/pkg/errors"
)

type DType string

const (
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// DTypes lists every supported element type.
var DTypes = []DType{Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64}

var (
	ErrUnknownDType = errors.New("unknown dtype")
	ErrShape        = errors.New("shape does not match data")
	ErrMixedDTypes  = errors.New("arrays have different dtypes")
)

type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

var kinds = map[reflect.Kind]DType{
	reflect.Int8:    Int8,
	reflect.Int16:   Int16,
	reflect.Int32:   Int32,
	reflect.Int64:   Int64,
	reflect.Uint8:   Uint8,
	reflect.Uint16:  Uint16,
	reflect.Uint32:  Uint32,
	reflect.Uint64:  Uint64,
	reflect.Float32: Float32,
	reflect.Float64: Float64,
}

// Size returns the width in bytes of one element.
func (d DType) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

func (d DType) Valid() bool {
	return d.Size() > 0
}

func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

func (d DType) IsUnsigned() bool {
	switch d {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// MaxInt returns the largest integer representable by d.
func (d DType) MaxInt() uint64 {
	switch d {
	case Int8:
		return math.MaxInt8
	case Int16:
		return math.MaxInt16
	case Int32:
		return math.MaxInt32
	case Int64:
		return math.MaxInt64
	case Uint8:
		return math.MaxUint8
	case Uint16:
		return math.MaxUint16
	case Uint32:
		return math.MaxUint32
	case Uint64:
		return math.MaxUint64
	}
	return 0
}

func (d DType) String() string {
	return string(d)
}

// Array is an n-dimensional numeric buffer of at least one dimension.
type Array struct {
	dtype DType
	tsr   tensor.Values
}

func dtypeOf[T Number]() DType {
	var z T
	return kinds[reflect.TypeOf(z).Kind()]
}

func newTensor(dtype DType, shape []int) (tensor.Values, error) {
	switch dtype {
	case Int8:
		return tensor.NewNumber[int8](shape...), nil
	case Int16:
		return tensor.NewNumber[int16](shape...), nil
	case Int32:
		return tensor.NewNumber[int32](shape...), nil
	case Int64:
		return tensor.NewNumber[int64](shape...), nil
	case Uint8:
		return tensor.NewNumber[uint8](shape...), nil
	case Uint16:
		return tensor.NewNumber[uint16](shape...), nil
	case Uint32:
		return tensor.NewNumber[uint32](shape...), nil
	case Uint64:
		return tensor.NewNumber[uint64](shape...), nil
	case Float32:
		return tensor.NewNumber[float32](shape...), nil
	case Float64:
		return tensor.NewNumber[float64](shape...), nil
	}
	return nil, errors.Wrapf(ErrUnknownDType, "%q", string(dtype))
}

// New copies data into an Array. With no shape the array is 1-D. It panics when
// the shape does not cover the data exactly.
func New[T Number](data []T, shape ...int) *Array {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if product(shape) != len(data) {
		panic(fmt.Sprintf("ndarray: shape %v does not match %d elements", shape, len(data)))
	}
	a, err := Zeros(dtypeOf[T](), shape...)
	if err != nil {
		panic(err)
	}
	if t, ok := a.tsr.(*tensor.Number[T]); ok {
		copy(t.Values, data)
		return a
	}
	// named element types land in the tensor of their underlying type
	for i, v := range data {
		if a.dtype.IsFloat() {
			a.tsr.SetFloat1D(float64(v), i)
		} else {
			a.tsr.SetInt1D(int(v), i)
		}
	}
	return a
}

// FromTensor wraps t without copying.
func FromTensor(t tensor.Values) (*Array, error) {
	dtype, ok := kinds[t.DataType()]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDType, "tensor of %s", t.DataType())
	}
	if t.NumDims() == 0 {
		return nil, errors.Wrap(ErrShape, "scalar tensor")
	}
	return &Array{dtype: dtype, tsr: t}, nil
}

// Tensor exposes the backing tensor. Changes to it show through a.
func (a *Array) Tensor() tensor.Values {
	return a.tsr
}

// Zeros allocates a zero filled array.
func Zeros(dtype DType, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		return nil, errors.Wrap(ErrShape, "arrays need at least one dimension")
	}
	t, err := newTensor(dtype, shape)
	if err != nil {
		return nil, err
	}
	return &Array{dtype: dtype, tsr: t}, nil
}

// values is the typed backing slice, as encoding/binary wants it.
func (a *Array) values() any {
	switch t := a.tsr.(type) {
	case *tensor.Number[int8]:
		return t.Values
	case *tensor.Number[int16]:
		return t.Values
	case *tensor.Number[int32]:
		return t.Values
	case *tensor.Number[int64]:
		return t.Values
	case *tensor.Number[uint8]:
		return t.Values
	case *tensor.Number[uint16]:
		return t.Values
	case *tensor.Number[uint32]:
		return t.Values
	case *tensor.Number[uint64]:
		return t.Values
	case *tensor.Number[float32]:
		return t.Values
	case *tensor.Number[float64]:
		return t.Values
	}
	return nil
}

// FromBytes decodes little endian element data.
func FromBytes(dtype DType, shape []int, raw []byte) (*Array, error) {
	a, err := Zeros(dtype, shape...)
	if err != nil {
		return nil, err
	}
	want := a.Size() * dtype.Size()
	if len(raw) < want {
		return nil, errors.Wrapf(ErrShape, "need %d bytes for %v %s, have %d", want, shape, dtype, len(raw))
	}
	if err := binary.Read(bytes.NewReader(raw[:want]), binary.LittleEndian, a.values()); err != nil {
		return nil, errors.Wrap(err, "decoding array data")
	}
	return a, nil
}

// Bytes encodes the elements little endian.
func (a *Array) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(a.Size() * a.dtype.Size())
	// writes to a bytes.Buffer of a fixed-size slice cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, a.values())
	return buf.Bytes()
}

// ParseStrings builds an array from decimal text, one value per element.
func ParseStrings(dtype DType, values []string, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	if product(shape) != len(values) {
		return nil, errors.Wrapf(ErrShape, "%v for %d values", shape, len(values))
	}
	a, err := Zeros(dtype, shape...)
	if err != nil {
		return nil, err
	}
	bits := 8 * dtype.Size()
	for i, s := range values {
		switch {
		case dtype.IsFloat():
			v, err := strconv.ParseFloat(s, bits)
			if err != nil {
				return nil, errors.Wrapf(err, "value %d", i)
			}
			a.tsr.SetFloat1D(v, i)
		case dtype.IsUnsigned():
			v, err := strconv.ParseUint(s, 10, bits)
			if err != nil {
				return nil, errors.Wrapf(err, "value %d", i)
			}
			a.tsr.SetInt1D(int(v), i)
		default:
			v, err := strconv.ParseInt(s, 10, bits)
			if err != nil {
				return nil, errors.Wrapf(err, "value %d", i)
			}
			a.tsr.SetInt1D(int(v), i)
		}
	}
	return a, nil
}

func (a *Array) DType() DType { return a.dtype }

func (a *Array) Shape() []int { return slices.Clone(a.tsr.Shape().Sizes) }

func (a *Array) NDim() int { return a.tsr.NumDims() }

// Size is the total number of elements.
func (a *Array) Size() int { return product(a.tsr.Shape().Sizes) }

// Len is the extent of the first axis.
func (a *Array) Len() int { return a.tsr.DimSize(0) }

// Cols is the extent of the second axis, 1 for vectors.
func (a *Array) Cols() int {
	sizes := a.tsr.Shape().Sizes
	if len(sizes) < 2 {
		return 1
	}
	return product(sizes[1:])
}

// Data returns the underlying slice when T matches the dtype.
func Data[T Number](a *Array) ([]T, bool) {
	t, ok := a.tsr.(*tensor.Number[T])
	if !ok {
		return nil, false
	}
	return t.Values, true
}

// Float64 returns element i of the flat data.
func (a *Array) Float64(i int) float64 {
	return a.tsr.Float1D(i)
}

// Int64 returns element i of the flat data, truncating floats. uint64 values
// above math.MaxInt64 wrap.
func (a *Array) Int64(i int) int64 {
	if a.dtype.IsFloat() {
		return int64(a.tsr.Float1D(i))
	}
	return int64(a.tsr.Int1D(i))
}

// Format renders element i as text that parses back to the same value.
func (a *Array) Format(i int) string {
	switch {
	case a.dtype.IsFloat():
		return strconv.FormatFloat(a.tsr.Float1D(i), 'g', -1, 8*a.dtype.Size())
	case a.dtype.IsUnsigned():
		return strconv.FormatUint(uint64(a.tsr.Int1D(i)), 10)
	}
	return strconv.FormatInt(int64(a.tsr.Int1D(i)), 10)
}

func (a *Array) String() string {
	return fmt.Sprintf("ndarray.Array{%s %v}", a.dtype, a.Shape())
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
