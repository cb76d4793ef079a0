package chip8

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and
// generated instruction words or data bytes.
type Opcode struct {
	LineNo    int
	Addr      int      // Memory address of the first emitted byte.
	Words     []string // Source words after expansion.
	Codes     []Code   // Encoded instruction words.
	Data      []byte   // Raw bytes emitted by .db.
	LinkLabel string   // Label patched into the final code's address field.
}

// Size returns the number of bytes this line occupies in memory.
func (op *Opcode) Size() int {
	return len(op.Codes)*2 + len(op.Data)
}

// Program is an assembled listing, loadable at PROGRAM_START.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Offset int
}

// Debug locates the source line covering a memory address.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+op.Size() {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Offset: int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// Binary returns the loadable program image, instruction words big-endian.
func (prog *Program) Binary() (rom []byte) {
	for _, op := range prog.Opcodes {
		for _, code := range op.Codes {
			rom = append(rom, byte(code>>8), byte(code))
		}
		rom = append(rom, op.Data...)
	}

	return
}

// Codes iterates the instruction words of the program with their addresses.
// Data bytes emitted by .db are not yielded.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			addr := uint16(op.Addr)
			for n, code := range op.Codes {
				if !yield(addr+uint16(n*2), code) {
					return
				}
			}
		}
	}
}
