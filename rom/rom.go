// Package rom reads machine-code image files for the emulator.
//
// The loader is byte-order tolerant: v64 (16-bit byte-swapped) and n64
// (32-bit little-endian) images are normalized to the native big-endian
// layout by sniffing the magic word. The magic check is informational
// only and never blocks a load.
package rom

import (
	"crypto/sha1"
	"fmt"
	"log"
	"os"
	"slices"
)

// Image byte-order magic words, as they appear in the first four bytes.
const (
	MAGIC_Z64 = "\x80\x37\x12\x40" // native big-endian
	MAGIC_V64 = "\x37\x80\x40\x12" // 16-bit byte-swapped
	MAGIC_N64 = "\x40\x12\x37\x80" // 32-bit little-endian
)

// Loader reads a single ROM image file.
type Loader struct {
	Filename string // Path of the image file.

	// After a successful Load: the byte-order normalized image data
	// and the SHA1 hash of the original file contents.
	Data []byte
	Hash string
}

// Load reads and normalizes the image file. Any I/O failure is
// recoverable; no partial state is kept.
func (ld *Loader) Load() (data []byte, err error) {
	data, err = os.ReadFile(ld.Filename)
	if err != nil {
		return
	}

	ld.Hash = fmt.Sprintf("%x", sha1.Sum(data))

	if len(data) >= 4 {
		switch string(data[:4]) {
		case MAGIC_Z64:
			// native order
		case MAGIC_V64:
			data = swapped(data, 2)
		case MAGIC_N64:
			data = swapped(data, 4)
		default:
			log.Printf("rom: %v: unknown magic % x", ld.Filename, data[:4])
		}
	}

	ld.Data = data
	return
}

// swapped returns a copy of data with every n-byte group reversed. A
// trailing partial group is copied unchanged.
func swapped(data []byte, n int) (out []byte) {
	out = slices.Clone(data)
	for at := 0; at+n <= len(out); at += n {
		slices.Reverse(out[at : at+n])
	}

	return
}
