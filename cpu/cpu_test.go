package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// imageOf builds a bootable image with words placed at entry.
func imageOf(entry uint32, words ...Ins) []byte {
	prog := &Program{Entry: entry}
	for n, in := range words {
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Addr: entry + uint32(n)*4,
			Ins:  in,
		})
	}

	return prog.Image()
}

// loadWords loads words at the reset vector and returns a CPU about to
// execute the first of them.
func loadWords(t *testing.T, words ...Ins) (c *Cpu) {
	c = NewCpu()
	_, err := c.LoadImage(imageOf(RESET_VECTOR, words...))
	assert.NoError(t, err)
	return
}

func TestAdd(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		rs   uint32
		rt   uint32
		sum  uint32
	}){
		{"small", 2, 3, 5},
		{"wrap", 0xffffffff, 1, 0},
		{"wrap_big", 0x80000000, 0x80000001, 1},
		{"zero", 0, 0, 0},
	}

	for _, entry := range table {
		c := loadWords(t, MakeInsR(FUNCT_ADD, REG_T2, REG_T0, REG_T1))
		c.Register[REG_T0] = entry.rs
		c.Register[REG_T1] = entry.rt

		c.Step()

		assert.Equal(entry.sum, c.Register[REG_T2], entry.name)
		assert.Equal(RESET_VECTOR+4, c.Pc, entry.name)
		assert.Equal(uint64(1), c.Cycles, entry.name)
	}
}

func TestAddiSignExtend(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		rs   uint32
		imm  uint16
		out  uint32
	}){
		{"plus_one", 10, 0x0001, 11},
		{"minus_one", 10, 0xffff, 9},
		{"minus_one_wrap", 0, 0xffff, 0xffffffff},
		{"max_positive", 0, 0x7fff, 0x7fff},
		{"min_negative", 0x10000, 0x8000, 0x8000},
	}

	for _, entry := range table {
		c := loadWords(t, MakeInsI(OP_ADDI, REG_T1, REG_T0, entry.imm))
		c.Register[REG_T0] = entry.rs

		c.Step()

		assert.Equal(entry.out, c.Register[REG_T1], entry.name)
	}
}

func TestLui(t *testing.T) {
	assert := assert.New(t)

	c := loadWords(t,
		MakeInsI(OP_LUI, REG_T0, REG_ZERO, 0xffff),
		MakeInsI(OP_LUI, REG_T0, REG_ZERO, 0x8037),
	)

	// Prior low bits must be cleared by LUI.
	c.Register[REG_T0] = 0x12345678

	c.Step()
	assert.Equal(uint32(0xffff0000), c.Register[REG_T0])

	c.Step()
	assert.Equal(uint32(0x80370000), c.Register[REG_T0])
}

func TestBne(t *testing.T) {
	assert := assert.New(t)

	// Taken: rs != rt, word offset 4 lands offset*4 past the branch.
	c := loadWords(t, MakeInsI(OP_BNE, REG_T1, REG_T0, 0x0004))
	c.Register[REG_T0] = 1
	c.Register[REG_T1] = 2

	c.Step()
	assert.Equal(RESET_VECTOR+4*4, c.Pc)

	// Fallthrough: rs == rt.
	c = loadWords(t, MakeInsI(OP_BNE, REG_T1, REG_T0, 0x0004))
	c.Register[REG_T0] = 7
	c.Register[REG_T1] = 7

	c.Step()
	assert.Equal(RESET_VECTOR+4, c.Pc)

	// Backward branch: word offset -1 lands one word before the branch.
	c = loadWords(t, INS_NOP, MakeInsI(OP_BNE, REG_T1, REG_T0, 0xffff))
	c.Register[REG_T1] = 1
	c.Step() // nop
	c.Step() // bne, offset -1
	assert.Equal(RESET_VECTOR, c.Pc)
}

func TestJ(t *testing.T) {
	assert := assert.New(t)

	// Top 4 bits of the PC are preserved, low 28 replaced.
	c := loadWords(t, MakeInsJ(OP_J, 0x00100000))
	c.Step()
	assert.Equal(uint32(0x80400000), c.Pc)

	// The jump target is relative to nothing: absolute within the
	// current 256 MiB region.
	c = loadWords(t, MakeInsJ(OP_J, RESET_VECTOR>>2))
	c.Step()
	assert.Equal(RESET_VECTOR, c.Pc)
}

func TestLoadImage(t *testing.T) {
	assert := assert.New(t)

	// Entry point is the big-endian word at offset 0x8.
	image := make([]byte, 16)
	copy(image[8:], []byte{0x00, 0x00, 0x04, 0x00})

	c := NewCpu()
	entry, err := c.LoadImage(image)
	assert.NoError(err)
	assert.Equal(uint32(0x00000400), entry)
	assert.Equal(uint32(0x00000400), c.Pc)
	assert.True(c.Loaded)

	// Too short for an entry point: fails atomically, PC unchanged.
	c = NewCpu()
	_, err = c.LoadImage([]byte{0x80, 0x37, 0x12, 0x40})
	assert.ErrorIs(err, ErrImageTruncated)
	assert.Equal(RESET_VECTOR, c.Pc)
	assert.False(c.Loaded)

	_, err = c.LoadImage(nil)
	assert.ErrorIs(err, ErrImageTruncated)
}

func TestLoadImageNoRegisterClear(t *testing.T) {
	assert := assert.New(t)

	c := NewCpu()
	c.Register[REG_S0] = 0xcafe

	_, err := c.LoadImage(imageOf(RESET_VECTOR, INS_NOP))
	assert.NoError(err)
	assert.Equal(uint32(0xcafe), c.Register[REG_S0])
}

func TestCycleAlwaysCounts(t *testing.T) {
	assert := assert.New(t)

	// An unrecognized opcode executes as NOP but still costs a cycle.
	unknown := Ins(uint32(0x3f) << 26)
	c := loadWords(t, unknown, Ins(uint32(0x11)<<26), INS_NOP)

	for n := range 3 {
		c.Step()
		assert.Equal(uint64(n+1), c.Cycles)
	}

	assert.Equal(RESET_VECTOR+12, c.Pc)
}

func TestSwLwInert(t *testing.T) {
	assert := assert.New(t)

	// SW is recognized but writes no memory; LW writes no register.
	c := loadWords(t,
		MakeInsI(OP_SW, REG_T0, REG_SP, 0x0008),
		MakeInsI(OP_LW, REG_T1, REG_SP, 0x0008),
	)
	c.Register[REG_T0] = 0xdeadbeef
	c.Register[REG_T1] = 0x1234
	c.Register[REG_SP] = 0x80001000

	c.Step()
	word, ok := c.Ram.Word(0x1008)
	assert.True(ok)
	assert.Equal(uint32(0), word)

	c.Step()
	assert.Equal(uint32(0x1234), c.Register[REG_T1])
	assert.Equal(uint64(2), c.Cycles)
}

func TestZeroRegisterDiscard(t *testing.T) {
	assert := assert.New(t)

	c := loadWords(t,
		MakeInsI(OP_ADDI, REG_ZERO, REG_T0, 0x0001),
		MakeInsI(OP_LUI, REG_ZERO, REG_ZERO, 0xffff),
		MakeInsR(FUNCT_ADD, REG_ZERO, REG_T0, REG_T0),
		MakeInsR(FUNCT_ADD, REG_T1, REG_ZERO, REG_T0),
	)
	c.Register[REG_T0] = 99

	for range 3 {
		c.Step()
		assert.Equal(uint32(0), c.Register[REG_ZERO])
	}

	// And reads of zero always see 0.
	c.Step()
	assert.Equal(uint32(99), c.Register[REG_T1])
}

func TestPausedStep(t *testing.T) {
	assert := assert.New(t)

	c := loadWords(t, MakeInsI(OP_ADDI, REG_T0, REG_T0, 1))
	c.Paused = true

	c.Step()
	assert.Equal(uint64(0), c.Cycles)
	assert.Equal(RESET_VECTOR, c.Pc)
	assert.Equal(uint32(0), c.Register[REG_T0])

	c.Paused = false
	c.Step()
	assert.Equal(uint64(1), c.Cycles)
	assert.Equal(uint32(1), c.Register[REG_T0])
}

func TestFetchOutOfBounds(t *testing.T) {
	assert := assert.New(t)

	c := loadWords(t, MakeInsI(OP_ADDI, REG_T0, REG_T0, 1))

	// A runaway PC self-heals to the reset vector and executes the
	// instruction found there; the cycle still counts.
	c.Pc = 0x9f000000
	c.Step()

	assert.Equal(uint64(1), c.Cycles)
	assert.Equal(RESET_VECTOR+4, c.Pc)
	assert.Equal(uint32(1), c.Register[REG_T0])
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	c := loadWords(t,
		MakeInsI(OP_ADDI, REG_T0, REG_T0, 5),
		MakeInsI(OP_LUI, REG_SP, REG_ZERO, 0x8000),
	)
	c.Step()
	c.Step()
	c.Running = true
	c.Paused = true

	c.Reset()

	for reg := range Register(NUM_REGS) {
		assert.Equal(uint32(0), c.Register[reg], reg.String())
	}
	assert.Equal(RESET_VECTOR, c.Pc)
	assert.Equal(uint64(0), c.Cycles)
	assert.False(c.Loaded)
	assert.False(c.Running)
	assert.False(c.Paused)
}

func TestStateString(t *testing.T) {
	assert := assert.New(t)

	c := NewCpu()
	c.Register[REG_RA] = 0xdeadbeef

	text := c.String()
	assert.Contains(text, "pc: 80000400")
	assert.Contains(text, "ra: deadbeef")
	assert.Contains(text, "zero: 00000000")
}
