// Copyright 2026, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package rdram models the flat 8 MiB RDRAM image of the system.
//
// Virtual addresses in the KSEG0/KSEG1 windows are identity mapped onto
// the image by masking to the low 29 bits. All word access is big-endian.
package rdram

import (
	"encoding/binary"
	"fmt"
	"iter"
	"maps"
)

const (
	RDRAM_SIZE = 8 * 1024 * 1024  // 8 MiB of RDRAM.
	PHYS_MASK  = uint32(0x1fffffff) // Low 29 bits of a virtual address.
	WORD_SIZE  = 4                  // Bytes per instruction word.
)

var _rdram_defines = map[string]string{
	"RDRAM_SIZE": fmt.Sprintf("%#v", RDRAM_SIZE),
	"PHYS_MASK":  fmt.Sprintf("%#x", PHYS_MASK),
}

// Ram is the physical memory image.
type Ram struct {
	data []byte
}

// NewRam creates a zeroed RDRAM image.
func NewRam() (rm *Ram) {
	rm = &Ram{
		data: make([]byte, RDRAM_SIZE),
	}

	return
}

// Defines for the RDRAM model.
func (rm *Ram) Defines() iter.Seq2[string, string] {
	return maps.All(_rdram_defines)
}

// Translate maps a virtual address to a physical offset into the image.
func Translate(virtual uint32) (physical uint32) {
	physical = virtual & PHYS_MASK
	return
}

// Size returns the image capacity in bytes.
func (rm *Ram) Size() int {
	return len(rm.data)
}

// Contains reports whether a full word at the physical offset lies
// inside the image.
func (rm *Ram) Contains(physical uint32) bool {
	return int(physical)+WORD_SIZE <= len(rm.data)
}

// Word reads a big-endian 32-bit word at the physical offset.
// ok is false when the read would pass the end of the image.
func (rm *Ram) Word(physical uint32) (word uint32, ok bool) {
	if !rm.Contains(physical) {
		return
	}

	word = binary.BigEndian.Uint32(rm.data[physical:])
	ok = true
	return
}

// PutWord writes a big-endian 32-bit word at the physical offset.
// ok is false when the write would pass the end of the image.
func (rm *Ram) PutWord(physical uint32, word uint32) (ok bool) {
	if !rm.Contains(physical) {
		return
	}

	binary.BigEndian.PutUint32(rm.data[physical:], word)
	ok = true
	return
}

// Load copies an image into RDRAM starting at physical offset 0.
// Bytes beyond the image capacity are dropped. Returns the byte count
// actually copied.
func (rm *Ram) Load(data []byte) (n int) {
	n = copy(rm.data, data)
	return
}

// Reset zeroes the entire image.
func (rm *Ram) Reset() {
	clear(rm.data)
}
