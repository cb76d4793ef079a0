package chip8

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand"
)

// Machine geometry constants.
const (
	MEMORY_SIZE    = 4096          // Addressable bytes (0x000-0xfff).
	PROGRAM_START  = uint16(0x200) // Load and execution origin for programs.
	REGISTER_COUNT = 16            // General purpose registers V0-VF.
	KEY_COUNT      = 16            // Keys on the hexadecimal pad.
	DISPLAY_WIDTH  = 64            // Framebuffer columns.
	DISPLAY_HEIGHT = 32            // Framebuffer rows.
	FONT_BASE      = uint16(0x000) // Start of the built-in font table.
	FONT_HEIGHT    = 5             // Bytes per font glyph.
	TIMER_HZ       = 60            // Countdown rate of the delay and sound timers.
)

var _chip8_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("%v", MEMORY_SIZE),
	"PROGRAM_START":  fmt.Sprintf("%#v", PROGRAM_START),
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"KEY_COUNT":      fmt.Sprintf("%v", KEY_COUNT),
	"DISPLAY_WIDTH":  fmt.Sprintf("%v", DISPLAY_WIDTH),
	"DISPLAY_HEIGHT": fmt.Sprintf("%v", DISPLAY_HEIGHT),
	"FONT_BASE":      fmt.Sprintf("%#v", FONT_BASE),
	"FONT_HEIGHT":    fmt.Sprintf("%v", FONT_HEIGHT),
	"STACK_LIMIT":    fmt.Sprintf("%v", STACK_LIMIT),
	"TIMER_HZ":       fmt.Sprintf("%v", TIMER_HZ),
}

// Chip8 is the simulation context for the CHIP-8 virtual machine.
type Chip8 struct {
	Verbose bool // Set to enable verbose logging.

	Memory [MEMORY_SIZE]byte    // Main memory; font table at FONT_BASE.
	V      [REGISTER_COUNT]byte // Register bank; VF is the flag register.
	I      uint16               // Index register, used for memory addressing.
	PC     uint16               // Program counter.
	Stack  Stack                // Subroutine return stack.

	DelayTimer byte // Counts down at TIMER_HZ while nonzero.
	SoundTimer byte // Counts down at TIMER_HZ while nonzero; audible while nonzero.

	Display  [DISPLAY_HEIGHT][DISPLAY_WIDTH]byte // Framebuffer, one cell per pixel (0 or 1).
	DrawFlag bool                                // Set on any draw; cleared by the host after redrawing.

	Keys [KEY_COUNT]bool // Pad state, written by the host.

	Rand func() byte // Random byte source for the rnd instruction.

	Ticks int // Instruction cycle counter.
}

// NewChip8 creates a new machine in the reset state.
func NewChip8() (vm *Chip8) {
	vm = &Chip8{
		Rand: func() byte { return byte(rand.Intn(256)) },
	}

	vm.Reset()

	return
}

// Defines for the machine.
func (vm *Chip8) Defines() iter.Seq2[string, string] {
	return maps.All(_chip8_defines)
}

// String returns the current machine state as a string.
func (vm *Chip8) String() (text string) {
	text = fmt.Sprintf("   pc: %03x    i: %03x   dt: %02x   st: %02x\n",
		vm.PC, vm.I, vm.DelayTimer, vm.SoundTimer)

	for n := 0; n < REGISTER_COUNT; n += 4 {
		text += fmt.Sprintf("   v%x: %02x   v%x: %02x   v%x: %02x   v%x: %02x\n",
			n, vm.V[n], n+1, vm.V[n+1], n+2, vm.V[n+2], n+3, vm.V[n+3])
	}

	top, ok := vm.Stack.Peek()
	if ok {
		text += fmt.Sprintf("stack: %03x (depth %v)\n", top, len(vm.Stack.Data))
	} else {
		text += "stack: ---\n"
	}

	return
}

// Reset the machine state.
// - Zeros memory and reloads the font table.
// - Clears the registers, stack, timers, framebuffer, and pad.
// - Sets the program counter to PROGRAM_START.
func (vm *Chip8) Reset() {
	if vm.Verbose {
		log.Printf("chip8: reset")
	}

	clear(vm.Memory[:])
	copy(vm.Memory[FONT_BASE:], fontTable[:])

	clear(vm.V[:])
	vm.I = 0
	vm.PC = PROGRAM_START
	vm.Stack.Reset()

	vm.DelayTimer = 0
	vm.SoundTimer = 0

	for row := range vm.Display {
		clear(vm.Display[row][:])
	}
	vm.DrawFlag = false

	clear(vm.Keys[:])

	vm.Ticks = 0
}

// Load copies a program image into memory at PROGRAM_START.
func (vm *Chip8) Load(rom []byte) (err error) {
	return vm.LoadAt(rom, PROGRAM_START)
}

// LoadAt copies a program image into memory at an arbitrary origin.
// Memory is untouched if the image would extend past the end of memory.
func (vm *Chip8) LoadAt(rom []byte, origin uint16) (err error) {
	if int(origin)+len(rom) > MEMORY_SIZE {
		err = ErrProgramTooLarge
		return
	}

	copy(vm.Memory[origin:], rom)

	if vm.Verbose {
		log.Printf("chip8: loaded %v bytes at 0x%03x", len(rom), origin)
	}

	return
}

// UpdateTimers decrements the delay and sound timers while nonzero.
// The host must call this at TIMER_HZ, independent of instruction throughput.
func (vm *Chip8) UpdateTimers() {
	if vm.DelayTimer > 0 {
		vm.DelayTimer -= 1
	}
	if vm.SoundTimer > 0 {
		vm.SoundTimer -= 1
	}
}

// SoundActive reports whether the host should be emitting audio.
func (vm *Chip8) SoundActive() bool {
	return vm.SoundTimer > 0
}

// SetKey records a pad key press or release. The index is masked to the pad range.
func (vm *Chip8) SetKey(key byte, pressed bool) {
	vm.Keys[key&0xf] = pressed
}

// KeyPressed reports the state of a pad key. The index is masked to the pad range.
func (vm *Chip8) KeyPressed(key byte) bool {
	return vm.Keys[key&0xf]
}

// firstKey returns the lowest-indexed pressed key.
func (vm *Chip8) firstKey() (key byte, ok bool) {
	for n := range vm.Keys {
		if vm.Keys[n] {
			return byte(n), true
		}
	}

	return
}

// FetchCode fetches the instruction word at the program counter.
func (vm *Chip8) FetchCode() (code Code, err error) {
	if int(vm.PC)+1 >= MEMORY_SIZE {
		err = ErrAddressFault
		return
	}

	code = Code(uint16(vm.Memory[vm.PC])<<8 | uint16(vm.Memory[vm.PC+1]))

	return
}

// Tick executes a single instruction cycle.
func (vm *Chip8) Tick() (err error) {
	code, err := vm.FetchCode()
	if err != nil {
		return
	}

	// Default advance. Control flow in Execute redirects the program
	// counter, adds a further 2 to skip, or rolls it back to retry.
	vm.PC += 2

	err = vm.Execute(code)
	if err != nil {
		return
	}

	vm.Ticks += 1

	return
}

// flag converts a predicate into a VF flag value.
func flag(set bool) byte {
	if set {
		return 1
	}
	return 0
}

// Execute executes a single instruction word. The program counter must
// already have been advanced past it; Tick does this.
//
// Flag-setting arithmetic latches its operands first and writes VF last,
// so VF holds the flag even when it is named as the destination.
func (vm *Chip8) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()
	if vm.Verbose {
		log.Printf("%03x: %v", vm.PC-2, code)
	}

	x := code.X()
	y := code.Y()
	kk := code.Byte()

	switch code.Decode() {
	case INS_SYS:
		// Legacy machine-code call. Recognized, never executed.
	case INS_CLS:
		for row := range vm.Display {
			clear(vm.Display[row][:])
		}
		vm.DrawFlag = true
	case INS_RET:
		addr, ok := vm.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		vm.PC = addr
	case INS_JP:
		vm.PC = code.Addr()
	case INS_CALL:
		if vm.Stack.Full() {
			err = ErrStackFull
			return
		}
		vm.Stack.Push(vm.PC)
		vm.PC = code.Addr()
	case INS_SE_B:
		if vm.V[x] == kk {
			vm.PC += 2
		}
	case INS_SNE_B:
		if vm.V[x] != kk {
			vm.PC += 2
		}
	case INS_SE_R:
		if vm.V[x] == vm.V[y] {
			vm.PC += 2
		}
	case INS_LD_B:
		vm.V[x] = kk
	case INS_ADD_B:
		// Mod 256, no carry flag.
		vm.V[x] = byte(uint16(vm.V[x]) + uint16(kk))
	case INS_LD_R:
		vm.V[x] = vm.V[y]
	case INS_OR:
		vm.V[x] |= vm.V[y]
	case INS_AND:
		vm.V[x] &= vm.V[y]
	case INS_XOR:
		vm.V[x] ^= vm.V[y]
	case INS_ADD_R:
		// Mod 256; VF = 1 iff the unsigned sum exceeds 255.
		a, b := vm.V[x], vm.V[y]
		sum := uint16(a) + uint16(b)
		vm.V[x] = byte(sum)
		vm.V[0xf] = flag(sum > 0xff)
	case INS_SUB:
		// Mod 256 (two's-complement wrap); VF = 1 iff no borrow (Vx >= Vy).
		a, b := vm.V[x], vm.V[y]
		vm.V[x] = byte((int16(a) - int16(b)) & 0xff)
		vm.V[0xf] = flag(a >= b)
	case INS_SHR:
		// VF captures bit 0 before the shift.
		v := vm.V[x]
		vm.V[x] = v >> 1
		vm.V[0xf] = v & 0x1
	case INS_SUBN:
		// Mod 256; VF = 1 iff no borrow (Vy >= Vx).
		a, b := vm.V[x], vm.V[y]
		vm.V[x] = byte((int16(b) - int16(a)) & 0xff)
		vm.V[0xf] = flag(b >= a)
	case INS_SHL:
		// Mod 256; VF captures bit 7 before the shift.
		v := vm.V[x]
		vm.V[x] = v << 1
		vm.V[0xf] = (v & 0x80) >> 7
	case INS_SNE_R:
		if vm.V[x] != vm.V[y] {
			vm.PC += 2
		}
	case INS_LD_I:
		vm.I = code.Addr()
	case INS_JP_V0:
		// May leave the counter past the end of memory; the next fetch faults.
		vm.PC = code.Addr() + uint16(vm.V[0])
	case INS_RND:
		vm.V[x] = vm.Rand() & kk
	case INS_DRW:
		err = vm.drawSprite(vm.V[x], vm.V[y], code.N())
	case INS_SKP:
		if vm.Keys[vm.V[x]&0xf] {
			vm.PC += 2
		}
	case INS_SKNP:
		if !vm.Keys[vm.V[x]&0xf] {
			vm.PC += 2
		}
	case INS_LD_DT:
		vm.V[x] = vm.DelayTimer
	case INS_LD_KEY:
		key, ok := vm.firstKey()
		if !ok {
			// Retry on the next cycle. The host's step loop and timer
			// cadence keep running while we wait.
			vm.PC -= 2
			return
		}
		vm.V[x] = key
	case INS_ST_DT:
		vm.DelayTimer = vm.V[x]
	case INS_ST_ST:
		vm.SoundTimer = vm.V[x]
	case INS_ADD_I:
		// Mod 65536, no flag.
		vm.I = (vm.I + uint16(vm.V[x])) & 0xffff
	case INS_LD_FONT:
		vm.I = FONT_BASE + uint16(vm.V[x]&0xf)*FONT_HEIGHT
	case INS_BCD:
		if int(vm.I)+2 >= MEMORY_SIZE {
			err = ErrAddressFault
			return
		}
		v := vm.V[x]
		vm.Memory[vm.I+0] = v / 100
		vm.Memory[vm.I+1] = (v / 10) % 10
		vm.Memory[vm.I+2] = v % 10
	case INS_SAVE:
		if int(vm.I)+int(x) >= MEMORY_SIZE {
			err = ErrAddressFault
			return
		}
		copy(vm.Memory[vm.I:], vm.V[:x+1])
	case INS_RESTORE:
		if int(vm.I)+int(x) >= MEMORY_SIZE {
			err = ErrAddressFault
			return
		}
		copy(vm.V[:x+1], vm.Memory[vm.I:])
	case INS_UNKNOWN:
		// Tolerated: data regions executed as code are common in the wild.
		log.Printf("chip8: unknown opcode 0x%04x at 0x%03x", uint16(code), vm.PC-2)
	}

	return
}

// drawSprite XORs a sprite of `height` rows read from the index register
// onto the framebuffer. The top-left corner wraps around the screen; rows
// and columns running off the edge are clipped, not wrapped. VF is set to
// 1 iff any pixel is erased.
func (vm *Chip8) drawSprite(xv, yv, height byte) (err error) {
	x0 := int(xv) % DISPLAY_WIDTH
	y0 := int(yv) % DISPLAY_HEIGHT

	vm.V[0xf] = 0
	vm.DrawFlag = true

	for row := range int(height) {
		if y0+row >= DISPLAY_HEIGHT {
			break
		}
		if int(vm.I)+row >= MEMORY_SIZE {
			err = ErrAddressFault
			return
		}
		bits := vm.Memory[int(vm.I)+row]

		for col := range 8 {
			if x0+col >= DISPLAY_WIDTH {
				break
			}
			if (bits>>(7-col))&0x1 == 0 {
				continue
			}

			px := &vm.Display[y0+row][x0+col]
			if *px != 0 {
				vm.V[0xf] = 1
			}
			*px ^= 1
		}
	}

	return
}
