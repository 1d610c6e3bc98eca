// Copyright 2026, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":       "0",
	"RESET_VECTOR": fmt.Sprintf("%#x", RESET_VECTOR),
	"ENTRY_OFFSET": fmt.Sprintf("%#x", ENTRY_OFFSET),
	"HEADER_MAGIC": fmt.Sprintf("%#x", HEADER_MAGIC),
}

// Assembler is a single pass assembler for the implemented MIPS subset.
//
// Syntax: one instruction or directive per line, '#' comments, optional
// commas between operands, 'name:' labels, '.equ NAME VALUE',
// '.org ADDR', '.word VALUE', and compile-time $(...) expressions
// evaluated with equates as predefined values.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]uint32 // Map of labels to virtual addresses.
	Equate    map[string]string // Map of equates.

	addr      uint32 // Current assembly address.
	entry     uint32 // Entry point (address of the first instruction).
	haveEntry bool
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrImmediateRange
		return
	}

	value = uint32(v64)
	return
}

// regOf returns the register index for a name like 't0', '$sp', or '8'.
func (asm *Assembler) regOf(word string) (reg Register, err error) {
	word = strings.TrimPrefix(word, "$")

	reg, ok := regMap[word]
	if ok {
		return
	}

	n, nerr := strconv.Atoi(word)
	if nerr != nil || n < 0 || n >= NUM_REGS {
		err = ErrRegisterInvalid
		return
	}

	reg = Register(n)
	return
}

// imm16 returns a value encodable in the 16-bit immediate field,
// accepting unsigned 0..0xffff and signed -0x8000..0x7fff forms.
func (asm *Assembler) imm16(word string) (imm uint16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value > 0xffff && value < 0xffff8000 {
		err = ErrImmediateRange
		return
	}

	imm = uint16(value)
	return
}

// memRe matches an 'offset(base)' memory operand.
var memRe = regexp.MustCompile(`^([^()]*)\(([^()]+)\)$`)

// memOperand splits an 'offset(base)' operand. An empty offset is 0.
func (asm *Assembler) memOperand(word string) (base Register, imm uint16, err error) {
	m := memRe.FindStringSubmatch(word)
	if m == nil {
		err = ErrOpcodeMissing
		return
	}

	if len(m[1]) != 0 {
		imm, err = asm.imm16(m[1])
		if err != nil {
			return
		}
	}

	base, err = asm.regOf(m[2])
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parenRe matches a compile-time $(...) expression.
var parenRe = regexp.MustCompile(`\$\([^\$]*\)`)

// parseLine expands a source line into operand words: comment and comma
// stripping, $() evaluation, equate handling and substitution, labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	line = parenRe.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	line = strings.ReplaceAll(line, ",", " ")
	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]uint32, 16)
		}
		asm.Label[label] = asm.addr
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// emit appends an assembled instruction at the current address.
func (asm *Assembler) emit(lineno int, words []string, in Ins, label string) {
	if !asm.haveEntry {
		asm.entry = asm.addr
		asm.haveEntry = true
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		LineNo:    lineno,
		Addr:      asm.addr,
		Words:     words,
		Ins:       in,
		LinkLabel: label,
	})
	asm.addr += 4
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	args := words[1:]

	argCount := func(want int) error {
		if len(args) < want {
			return ErrOpcodeMissing
		}
		if len(args) > want {
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	switch words[0] {
	case ".org":
		if err = argCount(1); err != nil {
			err = ErrOrgSyntax
			return
		}
		asm.addr, err = asm.valueOf(args[0])
	case ".word":
		if err = argCount(1); err != nil {
			err = ErrWordSyntax
			return
		}
		var value uint32
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		asm.emit(lineno, words, Ins(value), "")
	case "nop":
		if err = argCount(0); err != nil {
			return
		}
		asm.emit(lineno, words, INS_NOP, "")
	case "add":
		// add rd rs rt
		if err = argCount(3); err != nil {
			return
		}
		var rd, rs, rt Register
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs, err = asm.regOf(args[1]); err != nil {
			return
		}
		if rt, err = asm.regOf(args[2]); err != nil {
			return
		}
		asm.emit(lineno, words, MakeInsR(FUNCT_ADD, rd, rs, rt), "")
	case "addi":
		// addi rt rs imm
		if err = argCount(3); err != nil {
			return
		}
		var rt, rs Register
		var imm uint16
		if rt, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs, err = asm.regOf(args[1]); err != nil {
			return
		}
		if imm, err = asm.imm16(args[2]); err != nil {
			return
		}
		asm.emit(lineno, words, MakeInsI(OP_ADDI, rt, rs, imm), "")
	case "lui":
		// lui rt imm
		if err = argCount(2); err != nil {
			return
		}
		var rt Register
		var imm uint16
		if rt, err = asm.regOf(args[0]); err != nil {
			return
		}
		if imm, err = asm.imm16(args[1]); err != nil {
			return
		}
		asm.emit(lineno, words, MakeInsI(OP_LUI, rt, REG_ZERO, imm), "")
	case "lw", "sw":
		// lw/sw rt offset(base)
		if err = argCount(2); err != nil {
			return
		}
		op := OP_LW
		if words[0] == "sw" {
			op = OP_SW
		}
		var rt, base Register
		var imm uint16
		if rt, err = asm.regOf(args[0]); err != nil {
			return
		}
		if base, imm, err = asm.memOperand(args[1]); err != nil {
			return
		}
		asm.emit(lineno, words, MakeInsI(op, rt, base, imm), "")
	case "bne":
		// bne rs rt label-or-word-offset
		if err = argCount(3); err != nil {
			return
		}
		var rs, rt Register
		if rs, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rt, err = asm.regOf(args[1]); err != nil {
			return
		}
		var imm uint16
		imm, immErr := asm.imm16(args[2])
		if immErr == nil {
			asm.emit(lineno, words, MakeInsI(OP_BNE, rt, rs, imm), "")
			return
		}
		asm.emit(lineno, words, MakeInsI(OP_BNE, rt, rs, 0), args[2])
	case "j":
		// j label-or-address
		if err = argCount(1); err != nil {
			return
		}
		target, targetErr := asm.valueOf(args[0])
		if targetErr == nil {
			asm.emit(lineno, words, MakeInsJ(OP_J, target>>2), "")
			return
		}
		asm.emit(lineno, words, MakeInsJ(OP_J, 0), args[0])
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

// link resolves label references recorded during the parse pass.
func (asm *Assembler) link() (err error) {
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		target, ok := asm.Label[op.LinkLabel]
		if !ok {
			err = ErrLabelMissing(op.LinkLabel)
			return
		}

		switch op.Ins.Op() {
		case OP_BNE:
			// offset is in words, relative to the branch itself (the
			// core compensates its own pre-dispatch advance).
			diff := (int64(target) - int64(op.Addr)) >> 2
			if diff < -0x8000 || diff > 0x7fff {
				err = ErrBranchRange
				return
			}
			op.Ins |= Ins(uint16(diff))
		case OP_J:
			if (target & 0xf0000000) != ((op.Addr + 4) & 0xf0000000) {
				err = ErrJumpRange
				return
			}
			op.Ins |= Ins((target >> 2) & 0x03ffffff)
		}
	}

	return
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.addr = RESET_VECTOR
	asm.entry = RESET_VECTOR
	asm.haveEntry = false
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, "#")
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = asm.link()
	if err != nil {
		return
	}

	prog = &Program{
		Entry:   asm.entry,
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}
