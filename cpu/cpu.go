package cpu

import (
	"encoding/binary"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/r4300/rdram"
)

const (
	RESET_VECTOR = uint32(0x80000400) // Power-up / reset program counter.
	ENTRY_OFFSET = 0x8                // Image byte offset of the entry-point word.
	HEADER_MAGIC = uint32(0x80371240) // Big-endian (z64) image magic word.
	HEADER_SIZE  = 12                 // Minimum image size to carry an entry point.
	NUM_REGS     = 32                 // General-purpose register count.
)

var _cpu_defines = map[string]string{
	"RESET_VECTOR": fmt.Sprintf("%#x", RESET_VECTOR),
	"ENTRY_OFFSET": fmt.Sprintf("%#x", ENTRY_OFFSET),
	"HEADER_MAGIC": fmt.Sprintf("%#x", HEADER_MAGIC),
	"NUM_REGS":     fmt.Sprintf("%#v", NUM_REGS),
}

// Cpu is the interpreter context for the MIPS core.
//
// All fields are mutated only on the goroutine that calls Step; cross
// thread access goes through the emulator package.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Ram *rdram.Ram // Reference to the RDRAM image.

	Register [NUM_REGS]uint32 // Register bank, index 0 always reads 0.
	Pc       uint32           // Current program counter (virtual address).

	Cycles uint64 // Executed instruction counter.

	Loaded  bool // An image has been loaded and is live.
	Running bool // The controller wants the program advanced.
	Paused  bool // Execution temporarily suspended.
}

// NewCpu creates a new CPU with a zeroed RDRAM image, with the program
// counter at the reset vector.
func NewCpu() (c *Cpu) {
	c = &Cpu{
		Ram: rdram.NewRam(),
		Pc:  RESET_VECTOR,
	}

	return
}

// Defines for the cpu.
func (c *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (c *Cpu) String() (text string) {
	text = fmt.Sprintf("   pc: %08x  cycles: %v\n", c.Pc, c.Cycles)
	for n := 0; n < NUM_REGS; n += 4 {
		for m := range 4 {
			reg := Register(n + m)
			text += fmt.Sprintf("% 5s: %08x", reg, c.Register[reg])
		}
		text += "\n"
	}

	return
}

// Reset the CPU state.
//   - Clears the register bank and cycle counter.
//   - Restores the program counter to the reset vector.
//   - Marks the core stopped; the RDRAM image is left intact.
func (c *Cpu) Reset() {
	if c.Verbose {
		log.Printf("cpu: reset, pc %#08x", RESET_VECTOR)
	}

	clear(c.Register[:])
	c.Pc = RESET_VECTOR
	c.Cycles = 0
	c.Loaded = false
	c.Running = false
	c.Paused = false
}

// LoadImage copies a machine-code image into RDRAM at physical offset 0
// and sets the program counter to the big-endian entry-point word at
// byte offset ENTRY_OFFSET of the input. Bytes beyond the RDRAM capacity
// are dropped.
//
// An input too short to carry an entry point fails with
// ErrImageTruncated before any state is mutated. Registers are not
// implicitly cleared by a load.
func (c *Cpu) LoadImage(data []byte) (entry uint32, err error) {
	if len(data) < HEADER_SIZE {
		err = ErrImageTruncated
		return
	}

	if c.Verbose {
		magic := binary.BigEndian.Uint32(data)
		log.Printf("cpu: image magic %08x (z64 is %08x)", magic, HEADER_MAGIC)
	}

	n := c.Ram.Load(data)

	// Entry point is read from the input, not the truncated copy.
	entry = binary.BigEndian.Uint32(data[ENTRY_OFFSET:])
	c.Pc = entry
	c.Loaded = true

	if c.Verbose {
		log.Printf("cpu: loaded %v bytes, entry point %08x", n, entry)
	}

	return
}

// fetched is the outcome of an instruction fetch. A faulted fetch is
// deliberately collapsed to NOP by Step rather than raised as an error.
type fetched struct {
	Ins   Ins
	Fault bool
}

// fetch translates the program counter and reads the instruction word.
// A program counter past the end of the image wraps back to the reset
// vector before translation.
func (c *Cpu) fetch() (res fetched) {
	physical := rdram.Translate(c.Pc)
	if !c.Ram.Contains(physical) {
		c.Pc = RESET_VECTOR
		physical = rdram.Translate(c.Pc)
	}

	word, ok := c.Ram.Word(physical)
	if !ok {
		res = fetched{Ins: INS_NOP, Fault: true}
		return
	}

	res = fetched{Ins: Ins(word)}
	return
}

// execFn applies a decoded instruction to the machine state.
type execFn func(c *Cpu, in Ins)

// opTable dispatches on the 6-bit primary opcode. A nil entry executes
// as NOP.
var opTable = [64]execFn{
	OP_SPECIAL: (*Cpu).execSpecial,
	OP_J:       (*Cpu).execJ,
	OP_BNE:     (*Cpu).execBne,
	OP_ADDI:    (*Cpu).execAddi,
	OP_LUI:     (*Cpu).execLui,
	OP_LW:      (*Cpu).execLw,
	OP_SW:      (*Cpu).execSw,
}

// functTable dispatches the R-type group on the 6-bit funct field.
var functTable = [64]execFn{
	FUNCT_SLL: nil, // sll 0,0,0 is NOP; shifts are otherwise unimplemented
	FUNCT_ADD: (*Cpu).execAdd,
}

// Step executes a single instruction: fetch, advance the program
// counter, dispatch, count the cycle.
//
// Step never fails. Unknown opcodes, out-of-range fetches and short
// reads all degrade to NOP-equivalent behavior. While paused, Step is a
// pure no-op and consumes no cycle.
func (c *Cpu) Step() {
	if c.Paused {
		return
	}

	res := c.fetch()
	in := res.Ins
	if res.Fault {
		in = INS_NOP
	}

	if c.Verbose {
		log.Printf("cpu: %08x: %v", c.Pc, in)
	}

	// The PC advances before dispatch; branch handlers compensate.
	// This intentionally ignores true branch-delay-slot semantics.
	c.Pc += 4

	if exec := opTable[in.Op()]; exec != nil {
		exec(c, in)
	}

	c.Cycles++
}

// setReg writes a general-purpose register. Writes to the zero register
// are discarded, so index 0 always reads 0.
func (c *Cpu) setReg(reg Register, value uint32) {
	if reg == REG_ZERO {
		return
	}

	c.Register[reg] = value
}

// execSpecial dispatches the R-type group on its funct field.
func (c *Cpu) execSpecial(in Ins) {
	if exec := functTable[in.Funct()]; exec != nil {
		exec(c, in)
	}
}

// execAdd implements ADD: rd = rs + rt, wrapping modulo 2^32.
func (c *Cpu) execAdd(in Ins) {
	c.setReg(in.Rd(), c.Register[in.Rs()]+c.Register[in.Rt()])
}

// execAddi implements ADDI: rt = rs + sign-extended immediate.
func (c *Cpu) execAddi(in Ins) {
	c.setReg(in.Rt(), c.Register[in.Rs()]+uint32(in.SignedImm()))
}

// execLui implements LUI: rt = imm << 16, low 16 bits cleared.
func (c *Cpu) execLui(in Ins) {
	c.setReg(in.Rt(), uint32(in.Imm())<<16)
}

// execSw is a stub: SW is recognized but performs no memory write.
func (c *Cpu) execSw(in Ins) {
}

// execLw is a stub: LW is recognized but performs no register write.
func (c *Cpu) execLw(in Ins) {
}

// execBne implements BNE against the already advanced program counter;
// the -4 compensates the advance, landing at branch + offset*4.
func (c *Cpu) execBne(in Ins) {
	if c.Register[in.Rs()] != c.Register[in.Rt()] {
		c.Pc += uint32(in.SignedImm()<<2) - 4
	}
}

// execJ implements J: the word-aligned 26-bit target replaces the low
// 28 bits of the program counter, preserving the top 4 bits.
func (c *Cpu) execJ(in Ins) {
	c.Pc = (c.Pc & 0xf0000000) | (in.Target() << 2)
}
