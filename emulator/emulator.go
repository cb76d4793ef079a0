// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/chip8/chip8"
	"github.com/ezrec/chip8/internal"
)

const (
	FRAME_HZ                 = 60 // Display refresh and timer rate.
	DEFAULT_CYCLES_PER_FRAME = 10 // Instruction cycles per 60Hz frame.
)

var _emulator_defines = map[string]string{
	"FRAME_HZ": fmt.Sprintf("%v", FRAME_HZ),
}

// Emulator drives a Chip8 machine at the frame cadence, with the ROM
// image and optional source listing for error reporting.
type Emulator struct {
	Verbose bool // If set, enables verbose logging.
	*chip8.Chip8
	Program *chip8.Program // Currently running program listing, if assembled.

	Rom            []byte // ROM image loaded on Reset.
	CyclesPerFrame int    // Instruction cycles per frame.
}

// NewEmulator creates a new emulator around a reset machine.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Chip8:          chip8.NewChip8(),
		Program:        &chip8.Program{},
		CyclesPerFrame: DEFAULT_CYCLES_PER_FRAME,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Chip8.Defines(),
	)
}

// Reset the machine and reload the ROM image.
func (emu *Emulator) Reset() (err error) {
	emu.Chip8.Verbose = emu.Verbose

	emu.Chip8.Reset()

	err = emu.Chip8.Load(emu.Rom)

	return
}

// LineNo returns the source line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.PC)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.Opcode.LineNo
}

// Code returns the instruction word at the program counter.
func (emu *Emulator) Code() chip8.Code {
	code, err := emu.Chip8.FetchCode()
	if err != nil {
		return chip8.Code(0)
	}

	return code
}

// Idle reports whether the machine has settled into a jump-to-self
// loop, the conventional end of a CHIP-8 program.
func (emu *Emulator) Idle() bool {
	code, err := emu.Chip8.FetchCode()
	if err != nil {
		return false
	}

	return code.Decode() == chip8.INS_JP && code.Addr() == emu.PC
}

// Tick performs a single instruction cycle.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.Chip8.Verbose = emu.Verbose

	if emu.Idle() {
		done = true
		return
	}

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Chip8.Tick()

	return
}

// Frame runs one display frame: CyclesPerFrame instruction cycles,
// then one timer step. Timers count down at FRAME_HZ no matter how
// many cycles each frame runs.
func (emu *Emulator) Frame() (done bool, err error) {
	for range emu.CyclesPerFrame {
		done, err = emu.Tick()
		if done || err != nil {
			break
		}
	}

	emu.UpdateTimers()

	return
}

// Run executes frames until the program idles or faults.
func (emu *Emulator) Run(frames int) (err error) {
	for n := 0; frames <= 0 || n < frames; n++ {
		var done bool
		done, err = emu.Frame()
		if done || err != nil {
			return
		}
	}

	return
}
