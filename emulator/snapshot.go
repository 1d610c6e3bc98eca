package emulator

import (
	"fmt"

	"github.com/ezrec/r4300/cpu"
)

// View is an immutable copy of the displayable core state. It never
// aliases the live machine: a collaborator UI polls Snapshot on its own
// timer and renders the copy.
type View struct {
	State  State
	Pc     uint32
	T0, T1 uint32
	Sp, Ra uint32
	Cycles uint64
}

// String formats the view for a debug overlay.
func (view View) String() string {
	return fmt.Sprintf("PC: 0x%08x\nT0: 0x%08x  T1: 0x%08x\nSP: 0x%08x  RA: 0x%08x\nCycles: %d",
		view.Pc, view.T0, view.T1, view.Sp, view.Ra, view.Cycles)
}

// Snapshot copies the displayable core state. The copy is taken under
// the burst lock, so no field is ever read mid-write; across snapshots
// the cycle count is monotonically non-decreasing.
func (emu *Emulator) Snapshot() (view View) {
	emu.mu.Lock()
	defer emu.mu.Unlock()

	c := emu.Cpu
	view = View{
		State:  emu.stateLocked(),
		Pc:     c.Pc,
		T0:     c.Register[cpu.REG_T0],
		T1:     c.Register[cpu.REG_T1],
		Sp:     c.Register[cpu.REG_SP],
		Ra:     c.Register[cpu.REG_RA],
		Cycles: c.Cycles,
	}

	return
}

// State reports the current run state.
func (emu *Emulator) State() State {
	emu.mu.Lock()
	defer emu.mu.Unlock()

	return emu.stateLocked()
}

func (emu *Emulator) stateLocked() State {
	switch {
	case !emu.Cpu.Running:
		return STATE_STOPPED
	case emu.paused.Load():
		return STATE_PAUSED
	default:
		return STATE_RUNNING
	}
}
