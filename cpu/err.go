package cpu

import (
	"errors"

	"github.com/ezrec/r4300/translate"
)

var f = translate.From

var (
	// Image load errors
	ErrImageTruncated = errors.New(f("image too short for an entry point"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrWordSyntax         = errors.New(f(".word syntax"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrOpcodeMissing      = errors.New(f("operand missing"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrBranchRange        = errors.New(f("branch target out of range"))
	ErrJumpRange          = errors.New(f("jump target outside the current 256 MiB region"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}
