// Copyright 2026, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"iter"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ezrec/r4300/cpu"
	"github.com/ezrec/r4300/internal"
	"github.com/ezrec/r4300/rom"
)

const (
	BURST_SIZE   = 100                    // Steps per burst between yields.
	BURST_YIELD  = 500 * time.Microsecond // Yield after an executed burst.
	IDLE_DELAY   = 100 * time.Millisecond // Poll delay while not advancing.
	STOP_TIMEOUT = time.Second            // Bounded wait for worker exit.
)

// Emulator drives a Cpu from a single background worker goroutine.
//
// The worker owns all mutation of the Cpu. The mutex serializes bursts
// against snapshots and image loads, and is never held longer than one
// burst; the active and paused flags are polled at burst boundaries
// only, so an in-flight burst always completes.
type Emulator struct {
	Verbose  bool // If set, enables verbose logging.
	*cpu.Cpu      // Reference to the CPU simulation.

	Program *cpu.Program // Optional listing for source-level debug.

	mu     sync.Mutex    // Guards the Cpu between worker and callers.
	active atomic.Bool   // Worker lifecycle flag.
	paused atomic.Bool   // Checked at burst boundaries.
	done   chan struct{} // Closed when the worker exits.
}

// NewEmulator creates a new emulator around a fresh CPU.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu: cpu.NewCpu(),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		emu.Cpu.Ram.Defines(),
	)
}

// Start spawns the worker running the burst loop. Calling Start while a
// worker is already active is a no-op. A core with a loaded image
// resumes execution with its register and PC state intact; no implicit
// reset occurs.
func (emu *Emulator) Start() {
	if !emu.active.CompareAndSwap(false, true) {
		return
	}

	emu.mu.Lock()
	if emu.Cpu.Loaded {
		emu.Cpu.Running = true
	}
	emu.mu.Unlock()

	emu.done = make(chan struct{})
	go emu.run(emu.done)

	if emu.Verbose {
		log.Printf("emulator: worker started")
	}
}

// Stop clears the worker flag, marks the core not running, and waits
// for the worker to observe the flag and exit. Shutdown is cooperative:
// a worker that has not exited within STOP_TIMEOUT is reported with
// ErrStopTimeout and left to finish its burst. Calling Stop with no
// active worker is a no-op.
func (emu *Emulator) Stop() (err error) {
	if !emu.active.CompareAndSwap(true, false) {
		return
	}

	emu.mu.Lock()
	emu.Cpu.Running = false
	emu.mu.Unlock()

	select {
	case <-emu.done:
		if emu.Verbose {
			log.Printf("emulator: worker stopped")
		}
	case <-time.After(STOP_TIMEOUT):
		err = ErrStopTimeout
	}

	return
}

// run is the worker body: execute a burst while running and unpaused,
// yield briefly, poll longer while idle or paused.
func (emu *Emulator) run(done chan struct{}) {
	defer close(done)

	for emu.active.Load() {
		emu.mu.Lock()
		advancing := emu.Cpu.Running && !emu.paused.Load()
		if advancing {
			for range BURST_SIZE {
				emu.Cpu.Step()
			}
		}
		emu.mu.Unlock()

		if advancing {
			time.Sleep(BURST_YIELD)
		} else {
			time.Sleep(IDLE_DELAY)
		}
	}
}

// SetPaused pauses or resumes execution. Takes effect at the next burst
// boundary; an in-flight burst always completes, so no register update
// is ever torn by a pause.
func (emu *Emulator) SetPaused(paused bool) {
	emu.paused.Store(paused)

	emu.mu.Lock()
	emu.Cpu.Paused = paused
	emu.mu.Unlock()

	if emu.Verbose {
		log.Printf("emulator: paused %v", paused)
	}
}

// Pause suspends execution at the next burst boundary.
func (emu *Emulator) Pause() {
	emu.SetPaused(true)
}

// Resume continues execution after a Pause.
func (emu *Emulator) Resume() {
	emu.SetPaused(false)
}

// Reset restores the core to power-up state: zeroed registers and cycle
// counter, PC at the reset vector, stopped.
func (emu *Emulator) Reset() {
	emu.paused.Store(false)

	emu.mu.Lock()
	emu.Cpu.Reset()
	emu.mu.Unlock()
}

// LoadImage loads a machine image into the core and marks it running.
// The load is serialized with the worker, so it only ever applies at a
// burst boundary. On failure the previous core state is untouched.
func (emu *Emulator) LoadImage(data []byte) (entry uint32, err error) {
	emu.mu.Lock()
	defer emu.mu.Unlock()

	entry, err = emu.Cpu.LoadImage(data)
	if err != nil {
		return
	}

	emu.Cpu.Running = true
	return
}

// LoadRom reads a ROM image file and loads it into the core. Failures
// (I/O errors included) are recoverable: false is returned and the
// previous core state is left untouched.
func (emu *Emulator) LoadRom(path string) (ok bool) {
	loader := rom.Loader{Filename: path}

	data, err := loader.Load()
	if err != nil {
		log.Printf("emulator: %v: %v", path, err)
		return
	}

	entry, err := emu.LoadImage(data)
	if err != nil {
		log.Printf("emulator: %v: %v", path, err)
		return
	}

	if emu.Verbose {
		log.Printf("emulator: %v: sha1 %v, entry %08x", path, loader.Hash, entry)
	}

	ok = true
	return
}
