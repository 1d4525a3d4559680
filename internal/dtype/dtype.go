package dtype

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/l1ktools/l1kio/internal/message"
)

var (
	stringType = reflect.TypeOf("")

	signedTypes = map[uint32]reflect.Type{
		1: reflect.TypeOf(int8(0)),
		2: reflect.TypeOf(int16(0)),
		4: reflect.TypeOf(int32(0)),
		8: reflect.TypeOf(int64(0)),
	}
	unsignedTypes = map[uint32]reflect.Type{
		1: reflect.TypeOf(uint8(0)),
		2: reflect.TypeOf(uint16(0)),
		4: reflect.TypeOf(uint32(0)),
		8: reflect.TypeOf(uint64(0)),
	}
	floatTypes = map[uint32]reflect.Type{
		4: reflect.TypeOf(float32(0)),
		8: reflect.TypeOf(float64(0)),
	}
)

// GoType returns the Go element type for dt. Classes without a mapping,
// such as compounds, arrays and enums, return an error.
func GoType(dt *message.Datatype) (reflect.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}

	var table map[uint32]reflect.Type
	switch dt.Class {
	case message.ClassFixedPoint:
		table = unsignedTypes
		if dt.Signed {
			table = signedTypes
		}
	case message.ClassFloatPoint:
		table = floatTypes
	case message.ClassString:
		return stringType, nil
	case message.ClassVarLen:
		if dt.IsVarLenString {
			return stringType, nil
		}
		return nil, fmt.Errorf("variable-length sequences are not supported")
	default:
		return nil, fmt.Errorf("unsupported datatype class: %d", dt.Class)
	}

	t, ok := table[dt.Size]
	if !ok {
		return nil, fmt.Errorf("unsupported %s size: %d", classWord(dt), dt.Size)
	}
	return t, nil
}

func classWord(dt *message.Datatype) string {
	if dt.Class == message.ClassFloatPoint {
		return "float"
	}
	return "fixed-point"
}

func byteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// readUint reads one element of one, two, four or eight bytes.
func readUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

func putUint(order binary.ByteOrder, b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	default:
		order.PutUint64(b, v)
	}
}
