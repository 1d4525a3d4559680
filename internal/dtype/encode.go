package dtype

import (
	"fmt"
	"math"
	"reflect"

	"github.com/l1ktools/l1kio/internal/message"
)

// Encode converts a Go value, slice or array to raw bytes of type dt.
func Encode(dt *message.Datatype, src interface{}) ([]byte, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}

	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if k := v.Kind(); k != reflect.Slice && k != reflect.Array {
		one := reflect.MakeSlice(reflect.SliceOf(v.Type()), 1, 1)
		one.Index(0).Set(v)
		v = one
	}

	switch dt.Class {
	case message.ClassFixedPoint, message.ClassFloatPoint:
		return encodeNumeric(dt, v)
	case message.ClassString:
		return encodeString(dt, v)
	default:
		return nil, fmt.Errorf("unsupported datatype class for encoding: %d", dt.Class)
	}
}

func encodeNumeric(dt *message.Datatype, v reflect.Value) ([]byte, error) {
	size := int(dt.Size)
	order := byteOrder(dt)
	float := dt.Class == message.ClassFloatPoint
	data := make([]byte, v.Len()*size)

	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		var bits uint64
		switch {
		case float && elem.CanFloat() && size == 4:
			bits = uint64(math.Float32bits(float32(elem.Float())))
		case float && elem.CanFloat():
			bits = math.Float64bits(elem.Float())
		case !float && elem.CanInt():
			bits = uint64(elem.Int())
		case !float && elem.CanUint():
			bits = elem.Uint()
		default:
			return nil, fmt.Errorf("cannot encode %v as %s", elem.Kind(), classWord(dt))
		}
		putUint(order, data[i*size:(i+1)*size], bits)
	}
	return data, nil
}

func encodeString(dt *message.Datatype, v reflect.Value) ([]byte, error) {
	size := int(dt.Size)
	data := make([]byte, v.Len()*size)

	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		if elem.Kind() != reflect.String {
			return nil, fmt.Errorf("cannot encode %v as string", elem.Kind())
		}
		field := data[i*size : (i+1)*size]
		n := copy(field, elem.String())
		if dt.StringPadding == message.PadSpacePad {
			for j := n; j < size; j++ {
				field[j] = ' '
			}
		}
	}
	return data, nil
}

// GoTypeToDatatype returns the little-endian datatype for a Go element type,
// looking through pointers, slices and arrays. Strings map to the
// variable-length string type.
func GoTypeToDatatype(t reflect.Type) (*message.Datatype, error) {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return message.NewFixedPointDatatype(uint32(t.Size()), true, message.OrderLE), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return message.NewFixedPointDatatype(uint32(t.Size()), false, message.OrderLE), nil
	case reflect.Float32, reflect.Float64:
		return message.NewFloatDatatype(uint32(t.Size()), message.OrderLE), nil
	case reflect.String:
		return message.NewVarLenStringDatatype(message.CharsetUTF8), nil
	default:
		return nil, fmt.Errorf("unsupported Go type: %v", t)
	}
}
