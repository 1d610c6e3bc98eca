package cpu

import (
	"encoding/binary"
	"iter"

	"github.com/ezrec/r4300/rdram"
)

// Opcode represents a line of assembled code with its source location
// and generated instruction.
type Opcode struct {
	LineNo    int
	Addr      uint32
	Words     []string
	Ins       Ins
	LinkLabel string
}

// Program is an assembled listing.
type Program struct {
	Entry   uint32
	Opcodes []Opcode
}

// Codes iterates the assembled instruction words by virtual address.
func (prog *Program) Codes() iter.Seq2[uint32, Ins] {
	return func(yield func(addr uint32, in Ins) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Addr, op.Ins) {
				return
			}
		}
	}
}

// Debug returns the opcode assembled at a virtual address, or nil.
func (prog *Program) Debug(addr uint32) (op *Opcode) {
	for n := range prog.Opcodes {
		if prog.Opcodes[n].Addr == addr {
			op = &prog.Opcodes[n]
			break
		}
	}

	return
}

// Image emits a bootable big-endian machine image: the magic word at
// offset 0x0, the entry point at ENTRY_OFFSET, and every instruction
// word at the physical offset its virtual address translates to.
func (prog *Program) Image() (image []byte) {
	end := uint32(HEADER_SIZE)
	for addr := range prog.Codes() {
		phys := rdram.Translate(addr) + rdram.WORD_SIZE
		if phys > end {
			end = phys
		}
	}

	image = make([]byte, end)
	binary.BigEndian.PutUint32(image[0:], HEADER_MAGIC)
	binary.BigEndian.PutUint32(image[ENTRY_OFFSET:], prog.Entry)

	for addr, in := range prog.Codes() {
		binary.BigEndian.PutUint32(image[rdram.Translate(addr):], uint32(in))
	}

	return
}
