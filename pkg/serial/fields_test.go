package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	f := Extract(weaponBytes)

	require.NotNil(t, f.HeaderBE)
	require.NotNil(t, f.HeaderLE)
	assert.Equal(t, uint32(0xdc1442a7), *f.HeaderBE)
	assert.Equal(t, uint32(0xa74214dc), *f.HeaderLE)
	assert.Equal(t, uint32(0x017d25ee), *f.Field2LE)
	assert.Equal(t, uint32(0x7265bd81), *f.Field3LE)

	assert.Len(t, f.Bytes, len(weaponBytes))
	assert.Equal(t, 5340, f.Words[0])
	assert.Equal(t, 2034, f.Words[12])
	assert.NotContains(t, f.Words, 20)

	assert.Equal(t, []Candidate{
		{Offset: 0, Value: 5340},
		{Offset: 4, Value: 9710},
		{Offset: 6, Value: 381},
		{Offset: 12, Value: 2034},
	}, f.PotentialStats)
	assert.Equal(t, []Candidate{
		{Offset: 1, Value: 20},
		{Offset: 2, Value: 66},
		{Offset: 5, Value: 37},
		{Offset: 7, Value: 1},
		{Offset: 13, Value: 7},
		{Offset: 16, Value: 76},
	}, f.PotentialFlags)
}

func TestExtract_ShortBuffers(t *testing.T) {
	testCases := []struct {
		name   string
		data   []byte
		header bool
		field2 bool
		field3 bool
	}{
		{name: "empty", data: nil},
		{name: "three bytes", data: []byte{1, 2, 3}},
		{name: "header only", data: []byte{1, 2, 3, 4}, header: true},
		{name: "header and field2", data: make([]byte, 8), header: true, field2: true},
		{name: "all words", data: make([]byte, 12), header: true, field2: true, field3: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Extract(tc.data)
			assert.Equal(t, tc.header, f.HeaderBE != nil)
			assert.Equal(t, tc.field2, f.Field2LE != nil)
			assert.Equal(t, tc.field3, f.Field3LE != nil)
			assert.Len(t, f.Bytes, len(tc.data))
		})
	}
}

func TestExtract_DoesNotModifyInput(t *testing.T) {
	data := append([]byte(nil), weaponBytes...)
	Extract(data)
	assert.Equal(t, weaponBytes, data)
}

func TestRawFields_Lookup(t *testing.T) {
	f := Extract(weaponBytes)

	testCases := []struct {
		key  string
		want int64
		ok   bool
	}{
		{key: "header_be", want: 0xdc1442a7, ok: true},
		{key: "header_le", want: 0xa74214dc, ok: true},
		{key: "field2_le", want: 0x017d25ee, ok: true},
		{key: "byte_7", want: 1, ok: true},
		{key: "byte_21", want: 0x60, ok: true},
		{key: "byte_22", ok: false},
		{key: "byte_x", ok: false},
		{key: "val16_at_12", want: 2034, ok: true},
		{key: "val16_at_13", ok: false},
		{key: "nope", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			got, ok := f.Lookup(tc.key)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRawFields_Keys(t *testing.T) {
	keys := Extract([]byte{1, 2, 3, 4, 5}).Keys()
	assert.Equal(t, []string{
		"header_le", "header_be",
		"val16_at_0", "val16_at_2",
		"byte_0", "byte_1", "byte_2", "byte_3", "byte_4",
	}, keys)
}
