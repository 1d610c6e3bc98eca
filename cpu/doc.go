// Package cpu implements the MIPS instruction engine and assembler for
// the r4300 core.
//
// The engine is a fetch-decode-execute interpreter over a 32-entry
// register file, a 32-bit program counter, and the flat RDRAM image.
// Decode dispatches through a static 64-entry opcode table, nested with
// a funct table for the R-type group. Execution anomalies (unknown
// opcodes, runaway program counters, short reads) degrade to NOP
// behavior: Step never fails.
//
// The assembler provides a small assembly language for the implemented
// subset, supporting labels, equates, and compile-time expression
// evaluation.
package cpu
