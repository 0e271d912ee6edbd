package rfc2217

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeTable(t *testing.T) {
	type mode int
	table := NewCodeTable[mode]("mode").Add(1, 10).Add(2, 20).Add(3, 20)

	b, ok := table.Encode(2)
	assert.True(t, ok)
	assert.EqualValues(t, 20, b)

	b, ok = table.Encode(3)
	assert.True(t, ok)
	assert.EqualValues(t, 20, b)

	_, ok = table.Encode(4)
	assert.False(t, ok)

	v, err := table.Decode(20)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, v, "first registration wins on decode")

	_, err = table.Decode(30)
	var mm *MalformedMessageError
	if assert.True(t, errors.As(err, &mm)) {
		assert.Equal(t, 30, mm.Value)
		assert.Contains(t, mm.Error(), "unmapped mode")
	}

	assert.True(t, table.Contains(10))
	assert.False(t, table.Contains(11))
}

func TestUnsignedConversion(t *testing.T) {
	raw := []byte{0, 1, 44, 127, 128, 254, 255}
	ints := ToUnsigned(raw)
	assert.Equal(t, []int{0, 1, 44, 127, 128, 254, 255}, ints)

	back, err := FromUnsigned(ints)
	assert.NoError(t, err)
	assert.Equal(t, raw, back)

	_, err = FromUnsigned([]int{1, 256})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = FromUnsigned([]int{-1})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestSignedConversion(t *testing.T) {
	raw := []byte{0, 127, 128, 255}
	signed := ToSigned(raw)
	assert.Equal(t, []int8{0, 127, -128, -1}, signed)
	assert.Equal(t, raw, FromSigned(signed))
}
