package rdram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		virtual  uint32
		physical uint32
	}){
		{"kseg0_base", 0x80000000, 0x00000000},
		{"kseg0_vector", 0x80000400, 0x00000400},
		{"kseg1_vector", 0xa0000400, 0x20000400 & PHYS_MASK},
		{"identity", 0x00001234, 0x00001234},
		{"high_bits", 0xffffffff, 0x1fffffff},
	}

	for _, entry := range table {
		assert.Equal(entry.physical, Translate(entry.virtual), entry.name)
	}
}

func TestWordBounds(t *testing.T) {
	assert := assert.New(t)

	rm := NewRam()

	ok := rm.PutWord(0x400, 0x20080001)
	assert.True(ok)

	word, ok := rm.Word(0x400)
	assert.True(ok)
	assert.Equal(uint32(0x20080001), word)

	// A word can end exactly at the image boundary.
	last := uint32(rm.Size() - WORD_SIZE)
	assert.True(rm.Contains(last))
	_, ok = rm.Word(last)
	assert.True(ok)

	// But not straddle it.
	assert.False(rm.Contains(last + 1))
	_, ok = rm.Word(last + 1)
	assert.False(ok)
	assert.False(rm.PutWord(last+1, 0))
}

func TestLoadBigEndian(t *testing.T) {
	assert := assert.New(t)

	rm := NewRam()

	n := rm.Load([]byte{0x80, 0x37, 0x12, 0x40, 0xaa})
	assert.Equal(5, n)

	word, ok := rm.Word(0)
	assert.True(ok)
	assert.Equal(uint32(0x80371240), word)

	word, ok = rm.Word(1)
	assert.True(ok)
	assert.Equal(uint32(0x371240aa), word)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	rm := NewRam()
	rm.PutWord(0, 0xdeadbeef)
	rm.Reset()

	word, ok := rm.Word(0)
	assert.True(ok)
	assert.Equal(uint32(0), word)
}
