package psd

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// descReader wraps an in-memory buffer as the *Reader ReadDescriptor
// needs, since test fixtures never come from a real file.
func descReader(b []byte) *Reader {
	return NewReader(bytes.NewReader(b))
}

func writeTestUnicodeString(buf *bytes.Buffer, s string) {
	runes := []rune(s)
	binary.Write(buf, binary.BigEndian, uint32(len(runes)))
	for _, r := range runes {
		binary.Write(buf, binary.BigEndian, uint16(r))
	}
}

func writeTestKey(buf *bytes.Buffer, s string) {
	if len(s) == 4 {
		binary.Write(buf, binary.BigEndian, uint32(0))
		buf.WriteString(s)
	} else {
		binary.Write(buf, binary.BigEndian, uint32(len(s)))
		buf.WriteString(s)
	}
}

func descriptorHeader(buf *bytes.Buffer, className, classID string, itemCount uint32) {
	writeTestUnicodeString(buf, className)
	writeTestKey(buf, classID)
	binary.Write(buf, binary.BigEndian, itemCount)
}

func TestReadDescriptor_Bool(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "bool")
	buf.WriteString("bool")
	buf.WriteByte(1)

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("bool")
	require.True(t, ok)
	assert.Equal(t, VBool(true), v)
}

func TestReadDescriptor_Integer(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "num")
	buf.WriteString("long")
	binary.Write(buf, binary.BigEndian, int32(42))

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("num")
	require.True(t, ok)
	assert.Equal(t, VInteger(42), v)
}

func TestReadDescriptor_Double(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "val")
	buf.WriteString("doub")
	binary.Write(buf, binary.BigEndian, float64(3.14))

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("val")
	require.True(t, ok)
	assert.InDelta(t, 3.14, float64(v.(VDouble)), 0.0001)
}

func TestReadDescriptor_Text(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "text")
	buf.WriteString("TEXT")
	writeTestUnicodeString(buf, "Hello World")

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("text")
	require.True(t, ok)
	assert.Equal(t, VString("Hello World"), v)
}

func TestReadDescriptor_Enum(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "mode")
	buf.WriteString("enum")
	writeTestKey(buf, "Type")
	writeTestKey(buf, "Val ")

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("mode")
	require.True(t, ok)
	assert.Equal(t, VEnum{Type: "Type", Value: "Val "}, v)
}

func TestReadDescriptor_List(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "list")
	buf.WriteString("VlLs")
	binary.Write(buf, binary.BigEndian, uint32(3))
	for i := int32(1); i <= 3; i++ {
		buf.WriteString("long")
		binary.Write(buf, binary.BigEndian, i)
	}

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("list")
	require.True(t, ok)
	list := v.(VList)
	require.Len(t, list, 3)
	assert.Equal(t, VInteger(1), list[0])
	assert.Equal(t, VInteger(2), list[1])
	assert.Equal(t, VInteger(3), list[2])
}

func TestReadDescriptor_NestedObject(t *testing.T) {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Outer", 1)
	writeTestKey(buf, "inner")
	buf.WriteString("Objc")
	descriptorHeader(buf, "", "Inner", 1)
	writeTestKey(buf, "flag")
	buf.WriteString("bool")
	buf.WriteByte(0)

	d, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)

	v, ok := d.Get("inner")
	require.True(t, ok)
	inner := v.(VDescriptor)
	assert.Equal(t, "Inner", inner.ClassID)
	flag, ok := inner.Get("flag")
	require.True(t, ok)
	assert.Equal(t, VBool(false), flag)
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := &Descriptor{
		ClassID: "Test",
		Items: []DescriptorItem{
			{Key: "num", Value: VInteger(7)},
			{Key: "text", Value: VString("hi")},
			{Key: "nested", Value: VDescriptor{Descriptor: &Descriptor{
				ClassID: "Nest",
				Items:   []DescriptorItem{{Key: "bool", Value: VBool(true)}},
			}}},
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&nopWriteSeeker{Buffer: &buf})
	require.NoError(t, WriteDescriptor(w, d))

	got, err := ReadDescriptor(descReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Test", got.ClassID)

	v, ok := got.Get("num")
	require.True(t, ok)
	assert.Equal(t, VInteger(7), v)
}

// nopWriteSeeker adapts a bytes.Buffer (which has no Seek) into a
// WriteSeeker for tests that never need LengthBlock's seek-back.
type nopWriteSeeker struct {
	*bytes.Buffer
}

func (n *nopWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	return int64(n.Buffer.Len()), nil
}
