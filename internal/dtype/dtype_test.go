package dtype

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	binpkg "github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

func TestGoType(t *testing.T) {
	tests := []struct {
		name string
		dt   *message.Datatype
		want reflect.Type
	}{
		{"int8", message.NewFixedPointDatatype(1, true, message.OrderLE), reflect.TypeOf(int8(0))},
		{"uint16", message.NewFixedPointDatatype(2, false, message.OrderLE), reflect.TypeOf(uint16(0))},
		{"int32 big-endian", message.NewFixedPointDatatype(4, true, message.OrderBE), reflect.TypeOf(int32(0))},
		{"uint64", message.NewFixedPointDatatype(8, false, message.OrderLE), reflect.TypeOf(uint64(0))},
		{"float32", message.NewFloatDatatype(4, message.OrderLE), reflect.TypeOf(float32(0))},
		{"float64", message.NewFloatDatatype(8, message.OrderLE), reflect.TypeOf(float64(0))},
		{"fixed string", &message.Datatype{Class: message.ClassString, Size: 8}, reflect.TypeOf("")},
		{"vlen string", message.NewVarLenStringDatatype(message.CharsetUTF8), reflect.TypeOf("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoType(tt.dt)
			if err != nil {
				t.Fatalf("GoType: %v", err)
			}
			if got != tt.want {
				t.Errorf("GoType = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGoTypeUnsupported(t *testing.T) {
	for name, dt := range map[string]*message.Datatype{
		"nil":          nil,
		"compound":     {Class: message.ClassCompound, Size: 8},
		"array":        {Class: message.ClassArray, Size: 8},
		"enum":         {Class: message.ClassEnum, Size: 4},
		"3-byte int":   {Class: message.ClassFixedPoint, Size: 3},
		"half float":   {Class: message.ClassFloatPoint, Size: 2},
		"vlen integer": {Class: message.ClassVarLen, Size: 16},
	} {
		if _, err := GoType(dt); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestConvertInt32(t *testing.T) {
	dt := message.NewFixedPointDatatype(4, true, message.OrderLE)
	data := []byte{
		0x01, 0x00, 0x00, 0x00,
		0xff, 0xff, 0xff, 0xff,
		0x00, 0x01, 0x00, 0x00,
	}

	var got []int32
	if err := Convert(dt, data, 3, &got); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []int32{1, -1, 256}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Widening goes through the element-by-element path.
	var wide []int64
	if err := Convert(dt, data, 3, &wide); err != nil {
		t.Fatalf("Convert to int64: %v", err)
	}
	if !reflect.DeepEqual(wide, []int64{1, -1, 256}) {
		t.Errorf("widened = %v", wide)
	}
}

func TestConvertBigEndianFloat(t *testing.T) {
	dt := message.NewFloatDatatype(4, message.OrderBE)
	bits := math.Float32bits(1.5)
	data := []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}

	var got []float32
	if err := Convert(dt, data, 1, &got); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(got) != 1 || got[0] != 1.5 {
		t.Errorf("got %v, want [1.5]", got)
	}
}

func TestConvertShortData(t *testing.T) {
	dt := message.NewFloatDatatype(8, message.OrderLE)
	var got []float64
	if err := Convert(dt, make([]byte, 12), 2, &got); err == nil {
		t.Error("expected error for truncated data")
	}
	if err := Convert(dt, make([]byte, 16), 2, got); err == nil {
		t.Error("expected error for non-pointer destination")
	}
}

func TestConvertString(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassString, Size: 6, StringPadding: message.PadSpacePad}
	data := []byte("ab    xyz\x00\x00\x00")

	var got []string
	if err := Convert(dt, data, 2, &got); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"ab", "xyz"}) {
		t.Errorf("got %q", got)
	}

	var first string
	if err := Convert(dt, data, 2, &first); err != nil {
		t.Fatalf("Convert to string: %v", err)
	}
	if first != "ab" {
		t.Errorf("first = %q", first)
	}
}

func TestConvertVarLenStringNeedsReader(t *testing.T) {
	dt := message.NewVarLenStringDatatype(message.CharsetUTF8)

	// A null reference decodes to the empty string without a reader.
	var got []string
	if err := Convert(dt, make([]byte, 16), 1, &got); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("got %q", got)
	}

	ref := make([]byte, 16)
	ref[4] = 0x40
	if err := Convert(dt, ref, 1, &got); err == nil {
		t.Error("expected error resolving heap reference without a reader")
	}
}

func TestConvertVarLenStringFromHeap(t *testing.T) {
	cfg := binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
	objects := binpkg.NewBuffer(cfg)
	for i, s := range []string{"BRD-K12345", "DMSO"} {
		objects.Uint16(uint16(i + 1))
		objects.Zeros(6)
		objects.Length(uint64(len(s)))
		objects.Raw([]byte(s))
		objects.Zeros((8 - len(s)%8) % 8)
	}
	file := binpkg.NewBuffer(cfg)
	file.Zeros(8)
	file.Raw([]byte("GCOL"))
	file.Uint8(1)
	file.Zeros(3)
	file.Length(uint64(16 + objects.Len()))
	file.Raw(objects.Bytes())

	refs := binpkg.NewBuffer(cfg)
	for _, index := range []uint32{2, 0, 1} {
		refs.Uint32(4)
		if index == 0 {
			refs.Zeros(12)
			continue
		}
		refs.Offset(8)
		refs.Uint32(index)
	}

	r := binpkg.NewReader(bytes.NewReader(file.Bytes()), cfg)
	dt := message.NewVarLenStringDatatype(message.CharsetUTF8)
	var got []string
	if err := ConvertWithReader(dt, refs.Bytes(), 3, &got, r); err != nil {
		t.Fatalf("ConvertWithReader: %v", err)
	}
	if want := []string{"DMSO", "", "BRD-K12345"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, src := range []interface{}{
		[]int16{-3, 0, 7},
		[]uint32{1, 1 << 31},
		[]float32{0.5, -2},
		[]float64{math.Pi},
		int64(-9),
	} {
		dt, err := GoTypeToDatatype(reflect.TypeOf(src))
		if err != nil {
			t.Fatalf("GoTypeToDatatype(%T): %v", src, err)
		}
		raw, err := Encode(dt, src)
		if err != nil {
			t.Fatalf("Encode(%T): %v", src, err)
		}

		v := reflect.ValueOf(src)
		n := 1
		sliceType := reflect.SliceOf(v.Type())
		if v.Kind() == reflect.Slice {
			n = v.Len()
			sliceType = v.Type()
		}
		dest := reflect.New(sliceType)
		if err := Convert(dt, raw, uint64(n), dest.Interface()); err != nil {
			t.Fatalf("Convert(%T): %v", src, err)
		}
		got := dest.Elem()
		if v.Kind() != reflect.Slice {
			got = got.Index(0)
		}
		if !reflect.DeepEqual(got.Interface(), src) {
			t.Errorf("round trip %T: got %v, want %v", src, got.Interface(), src)
		}
	}
}

func TestEncodeBigEndian(t *testing.T) {
	raw, err := Encode(message.NewFixedPointDatatype(2, false, message.OrderBE), []uint16{0x0102})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !reflect.DeepEqual(raw, []byte{0x01, 0x02}) {
		t.Errorf("raw = % x", raw)
	}
}

func TestEncodeFixedString(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassString, Size: 4, StringPadding: message.PadSpacePad}
	raw, err := Encode(dt, []string{"ab", "wxyz!"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(raw) != "ab  wxyz" {
		t.Errorf("raw = %q", raw)
	}

	if _, err := Encode(dt, []int{1}); err == nil {
		t.Error("expected error encoding ints as strings")
	}
	if _, err := Encode(message.NewFloatDatatype(4, message.OrderLE), []int{1}); err == nil {
		t.Error("expected error encoding ints as floats")
	}
}

func TestGoTypeToDatatype(t *testing.T) {
	dt, err := GoTypeToDatatype(reflect.TypeOf(&[]uint8{}))
	if err != nil {
		t.Fatalf("GoTypeToDatatype: %v", err)
	}
	if dt.Class != message.ClassFixedPoint || dt.Size != 1 || dt.Signed {
		t.Errorf("got %+v", dt)
	}
	if dt, _ = GoTypeToDatatype(reflect.TypeOf("")); dt.Class != message.ClassVarLen {
		t.Errorf("string class = %v", dt.Class)
	}
	if _, err := GoTypeToDatatype(reflect.TypeOf(struct{}{})); err == nil {
		t.Error("expected error for struct")
	}
}
