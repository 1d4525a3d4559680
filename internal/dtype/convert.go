package dtype

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/heap"
	"github.com/l1ktools/l1kio/internal/message"
)

// Convert decodes n elements of dt from data into dest, which must point to
// a slice (or, for strings, to a single string). Variable-length strings
// need ConvertWithReader.
func Convert(dt *message.Datatype, data []byte, n uint64, dest interface{}) error {
	return ConvertWithReader(dt, data, n, dest, nil)
}

// ConvertWithReader is Convert with access to the file, which resolves
// variable-length strings through the global heap.
func ConvertWithReader(dt *message.Datatype, data []byte, n uint64, dest interface{}, r *binary.Reader) error {
	if dt == nil {
		return fmt.Errorf("nil datatype")
	}
	ptr := reflect.ValueOf(dest)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("dest must be a non-nil pointer, got %T", dest)
	}
	out := ptr.Elem()

	switch dt.Class {
	case message.ClassFixedPoint, message.ClassFloatPoint:
		if out.Kind() != reflect.Slice {
			return fmt.Errorf("numeric data needs a slice destination, got %s", out.Type())
		}
		return convertNumeric(dt, data, n, out)
	case message.ClassString:
		return setStrings(out, fixedStrings(dt, data, n))
	case message.ClassVarLen:
		if !dt.IsVarLenString {
			return fmt.Errorf("variable-length sequences are not supported")
		}
		strs, err := heapStrings(data, n, r)
		if err != nil {
			return err
		}
		return setStrings(out, strs)
	default:
		return fmt.Errorf("unsupported datatype class for conversion: %d", dt.Class)
	}
}

func convertNumeric(dt *message.Datatype, data []byte, n uint64, out reflect.Value) error {
	size := int(dt.Size)
	need := int(n) * size
	if need > len(data) {
		return fmt.Errorf("not enough data: need %d bytes, have %d", need, len(data))
	}

	elem := out.Type().Elem()
	s := reflect.MakeSlice(out.Type(), int(n), int(n))
	out.Set(s)
	if n == 0 {
		return nil
	}
	if canDirectCopy(dt, elem) {
		copy(unsafe.Slice((*byte)(s.UnsafePointer()), need), data[:need])
		return nil
	}

	order := byteOrder(dt)
	for i := 0; i < int(n); i++ {
		v, err := decodeNumber(dt, readUint(order, data[i*size:(i+1)*size]))
		if err != nil {
			return err
		}
		rv := reflect.ValueOf(v)
		if !rv.CanConvert(elem) {
			return fmt.Errorf("cannot store %s in %s", rv.Type(), elem)
		}
		s.Index(i).Set(rv.Convert(elem))
	}
	return nil
}

// decodeNumber turns the raw bits of one element into its natural Go value.
func decodeNumber(dt *message.Datatype, bits uint64) (interface{}, error) {
	if dt.Class == message.ClassFloatPoint {
		switch dt.Size {
		case 4:
			return math.Float32frombits(uint32(bits)), nil
		case 8:
			return math.Float64frombits(bits), nil
		}
		return nil, fmt.Errorf("unsupported float size: %d", dt.Size)
	}

	switch dt.Size {
	case 1:
		if dt.Signed {
			return int8(bits), nil
		}
		return uint8(bits), nil
	case 2:
		if dt.Signed {
			return int16(bits), nil
		}
		return uint16(bits), nil
	case 4:
		if dt.Signed {
			return int32(bits), nil
		}
		return uint32(bits), nil
	case 8:
		if dt.Signed {
			return int64(bits), nil
		}
		return bits, nil
	}
	return nil, fmt.Errorf("unsupported integer size: %d", dt.Size)
}

// canDirectCopy reports whether little-endian elements of dt already have
// the memory layout of elem.
func canDirectCopy(dt *message.Datatype, elem reflect.Type) bool {
	if dt.ByteOrder != message.OrderLE || uintptr(dt.Size) != elem.Size() {
		return false
	}
	switch elem.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return dt.Class == message.ClassFixedPoint && dt.Signed
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return dt.Class == message.ClassFixedPoint && !dt.Signed
	case reflect.Float32, reflect.Float64:
		return dt.Class == message.ClassFloatPoint
	}
	return false
}

// fixedStrings splits fixed-size string elements, dropping the terminator
// and any space padding.
func fixedStrings(dt *message.Datatype, data []byte, n uint64) []string {
	size := int(dt.Size)
	strs := make([]string, n)
	for i := range strs {
		off := i * size
		if off+size > len(data) {
			break
		}
		b := data[off : off+size]
		if j := bytes.IndexByte(b, 0); j >= 0 {
			b = b[:j]
		}
		if dt.StringPadding == message.PadSpacePad {
			b = bytes.TrimRight(b, " ")
		}
		strs[i] = string(b)
	}
	return strs
}

// heapStrings resolves variable-length string references. Each reference
// is a 4-byte length, a collection address and a 4-byte object index; a
// zero address is the empty string.
func heapStrings(data []byte, n uint64, r *binary.Reader) ([]string, error) {
	offsetSize := 8
	if r != nil {
		offsetSize = r.OffsetSize()
	}
	refSize := 8 + offsetSize

	strs := make([]string, n)
	collections := make(map[uint64]*heap.Global)
	for i := range strs {
		off := i * refSize
		if off+refSize > len(data) {
			break
		}
		id, err := heap.ParseID(data[off+4:off+refSize], offsetSize)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if id.Collection == 0 {
			continue
		}
		if r == nil {
			return nil, fmt.Errorf("element %d: global heap at 0x%x needs a file reader", i, id.Collection)
		}

		gh, ok := collections[id.Collection]
		if !ok {
			if gh, err = heap.ReadGlobal(r, id.Collection); err != nil {
				return nil, err
			}
			collections[id.Collection] = gh
		}
		if strs[i], err = gh.String(uint16(id.Index)); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return strs, nil
}

func setStrings(out reflect.Value, strs []string) error {
	switch {
	case out.Kind() == reflect.String:
		if len(strs) > 0 {
			out.SetString(strs[0])
		}
	case out.Kind() == reflect.Slice && out.Type().Elem().Kind() == reflect.String:
		s := reflect.MakeSlice(out.Type(), len(strs), len(strs))
		for i, v := range strs {
			s.Index(i).SetString(v)
		}
		out.Set(s)
	default:
		return fmt.Errorf("string data needs a string or []string destination, got %s", out.Type())
	}
	return nil
}
