package cpu

import (
	"fmt"
)

// Op is the 6-bit primary opcode in bits 31-26 of an instruction word.
type Op int

const (
	OP_SPECIAL = Op(0x00) // R-type group, selected by funct
	OP_J       = Op(0x02) // j
	OP_BNE     = Op(0x05) // bne
	OP_ADDI    = Op(0x08) // addi
	OP_LUI     = Op(0x0f) // lui
	OP_LW      = Op(0x23) // lw
	OP_SW      = Op(0x2b) // sw
)

// Funct is the 6-bit secondary selector in bits 5-0 of an R-type word.
type Funct int

const (
	FUNCT_SLL = Funct(0x00) // sll (sll 0,0,0 is the canonical NOP)
	FUNCT_ADD = Funct(0x20) // add
)

// Register is an index into the general-purpose register file.
type Register int

const (
	REG_ZERO = Register(0)  // zero
	REG_AT   = Register(1)  // at
	REG_V0   = Register(2)  // v0
	REG_V1   = Register(3)  // v1
	REG_A0   = Register(4)  // a0
	REG_A1   = Register(5)  // a1
	REG_A2   = Register(6)  // a2
	REG_A3   = Register(7)  // a3
	REG_T0   = Register(8)  // t0
	REG_T1   = Register(9)  // t1
	REG_T2   = Register(10) // t2
	REG_T3   = Register(11) // t3
	REG_T4   = Register(12) // t4
	REG_T5   = Register(13) // t5
	REG_T6   = Register(14) // t6
	REG_T7   = Register(15) // t7
	REG_S0   = Register(16) // s0
	REG_S1   = Register(17) // s1
	REG_S2   = Register(18) // s2
	REG_S3   = Register(19) // s3
	REG_S4   = Register(20) // s4
	REG_S5   = Register(21) // s5
	REG_S6   = Register(22) // s6
	REG_S7   = Register(23) // s7
	REG_T8   = Register(24) // t8
	REG_T9   = Register(25) // t9
	REG_K0   = Register(26) // k0
	REG_K1   = Register(27) // k1
	REG_GP   = Register(28) // gp
	REG_SP   = Register(29) // sp
	REG_FP   = Register(30) // fp
	REG_RA   = Register(31) // ra
)

// regName maps register indexes to their canonical MIPS names.
var regName = [NUM_REGS]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// String returns the canonical register name.
func (reg Register) String() string {
	if reg < 0 || int(reg) >= len(regName) {
		return fmt.Sprintf("r%d", int(reg))
	}

	return regName[reg]
}

// regMap maps register names to register file indexes.
var regMap = map[string]Register{}

func init() {
	for n, name := range regName {
		regMap[name] = Register(n)
	}
}

// Ins is a single big-endian 32-bit instruction word.
type Ins uint32

// INS_NOP is the NOP encoding (sll zero, zero, 0). Unknown opcodes and
// faulted fetches execute as this value.
const INS_NOP = Ins(0x00000000)

// MakeInsR creates an R-type instruction word.
func MakeInsR(funct Funct, rd, rs, rt Register) Ins {
	return Ins((uint32(rs)&0x1f)<<21 | (uint32(rt)&0x1f)<<16 |
		(uint32(rd)&0x1f)<<11 | uint32(funct)&0x3f)
}

// MakeInsI creates an I-type (immediate) instruction word.
func MakeInsI(op Op, rt, rs Register, imm uint16) Ins {
	return Ins((uint32(op)&0x3f)<<26 | (uint32(rs)&0x1f)<<21 |
		(uint32(rt)&0x1f)<<16 | uint32(imm))
}

// MakeInsJ creates a J-type instruction word from a 26-bit word target.
func MakeInsJ(op Op, target uint32) Ins {
	return Ins((uint32(op)&0x3f)<<26 | target&0x03ffffff)
}

// Op returns the 6-bit primary opcode from bits 31-26.
func (in Ins) Op() Op {
	return Op((uint32(in) >> 26) & 0x3f)
}

// Funct returns the 6-bit secondary selector from bits 5-0.
func (in Ins) Funct() Funct {
	return Funct(uint32(in) & 0x3f)
}

// Rs returns the source register index from bits 25-21.
func (in Ins) Rs() Register {
	return Register((uint32(in) >> 21) & 0x1f)
}

// Rt returns the target register index from bits 20-16.
func (in Ins) Rt() Register {
	return Register((uint32(in) >> 16) & 0x1f)
}

// Rd returns the destination register index from bits 15-11.
func (in Ins) Rd() Register {
	return Register((uint32(in) >> 11) & 0x1f)
}

// Imm returns the 16-bit immediate field.
func (in Ins) Imm() uint16 {
	return uint16(uint32(in) & 0xffff)
}

// SignedImm returns the immediate field sign extended to 32 bits.
func (in Ins) SignedImm() int32 {
	return int32(int16(in.Imm()))
}

// Target returns the 26-bit word-aligned jump target field.
func (in Ins) Target() uint32 {
	return uint32(in) & 0x03ffffff
}

// String returns the assembly language representation of the word.
func (in Ins) String() (out string) {
	switch in.Op() {
	case OP_SPECIAL:
		switch in.Funct() {
		case FUNCT_SLL:
			out = "nop"
		case FUNCT_ADD:
			out = fmt.Sprintf("add %v, %v, %v", in.Rd(), in.Rs(), in.Rt())
		default:
			out = fmt.Sprintf(".word %#08x", uint32(in))
		}
	case OP_ADDI:
		out = fmt.Sprintf("addi %v, %v, %d", in.Rt(), in.Rs(), in.SignedImm())
	case OP_LUI:
		out = fmt.Sprintf("lui %v, %#04x", in.Rt(), in.Imm())
	case OP_LW:
		out = fmt.Sprintf("lw %v, %d(%v)", in.Rt(), in.SignedImm(), in.Rs())
	case OP_SW:
		out = fmt.Sprintf("sw %v, %d(%v)", in.Rt(), in.SignedImm(), in.Rs())
	case OP_BNE:
		out = fmt.Sprintf("bne %v, %v, %d", in.Rs(), in.Rt(), in.SignedImm())
	case OP_J:
		out = fmt.Sprintf("j %#08x", in.Target()<<2)
	default:
		out = fmt.Sprintf(".word %#08x", uint32(in))
	}

	return
}
