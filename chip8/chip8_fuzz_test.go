package chip8

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzExecute(f *testing.F) {
	for family := 0; family < 16; family++ {
		f.Add(uint16(family<<12), byte(0), byte(0), false)
		f.Add(uint16(family<<12)|0x0fff, byte(0xff), byte(0x80), true)
	}
	f.Add(uint16(0x00e0), byte(0), byte(0), false)
	f.Add(uint16(0x00ee), byte(0), byte(0), false)

	f.Fuzz(func(t *testing.T, opcode uint16, vx byte, vy byte, key bool) {
		assert := assert.New(t)

		code := Code(opcode)

		vm := NewChip8()
		vm.Rand = func() byte { return 0x5a }
		vm.V[code.X()] = vx
		vm.V[code.Y()] = vy
		vm.I = 0x300
		vm.Stack.Push(0x234)
		if key {
			vm.SetKey(vx, true)
		}

		pre_pc := vm.PC
		pre_depth := len(vm.Stack.Data)

		err := vm.Execute(code)

		code_str := fmt.Sprintf("0x%04x (%v) vx:%#x vy:%#x key:%v\nvm:%v",
			opcode, code, vx, vy, key, vm.String())

		if err != nil {
			// Every failure carries the faulting word, and only the
			// memory and stack faults are possible here.
			assert.ErrorIs(err, ErrOpcode(code), code_str)
			fault := errors.Is(err, ErrAddressFault) ||
				errors.Is(err, ErrStackEmpty) ||
				errors.Is(err, ErrStackFull)
			assert.True(fault, code_str)
			return
		}

		// The stack moves by at most one frame per instruction.
		depth := len(vm.Stack.Data)
		assert.LessOrEqual(depth, STACK_LIMIT, code_str)
		assert.LessOrEqual(depth, pre_depth+1, code_str)
		assert.GreaterOrEqual(depth, pre_depth-1, code_str)

		// Framebuffer cells stay boolean.
		for row := range vm.Display {
			for col := range vm.Display[row] {
				cell := vm.Display[row][col]
				if cell > 1 {
					t.Fatalf("cell %v,%v = %v\n%v", col, row, cell, code_str)
				}
			}
		}

		// The program counter only moves by control flow.
		switch code.Decode() {
		case INS_JP, INS_CALL:
			assert.Equal(code.Addr(), vm.PC, code_str)
		case INS_JP_V0:
			assert.Equal(code.Addr()+uint16(vm.V[0]), vm.PC, code_str)
		case INS_RET:
			assert.Equal(uint16(0x234), vm.PC, code_str)
		case INS_LD_KEY:
			if key {
				assert.Equal(pre_pc, vm.PC, code_str)
			} else {
				assert.Equal(pre_pc-2, vm.PC, code_str)
			}
		case INS_SE_B, INS_SNE_B, INS_SE_R, INS_SNE_R, INS_SKP, INS_SKNP:
			skipped := vm.PC == pre_pc+2
			assert.True(skipped || vm.PC == pre_pc, code_str)
		default:
			assert.Equal(pre_pc, vm.PC, code_str)
		}
	})
}

func FuzzAssembleRoundTrip(f *testing.F) {
	f.Add(uint16(0x00e0))
	f.Add(uint16(0x6a42))
	f.Add(uint16(0x8124))
	f.Add(uint16(0xd125))
	f.Add(uint16(0xf10a))

	f.Fuzz(func(t *testing.T, opcode uint16) {
		assert := assert.New(t)

		code := Code(opcode)
		if code.Decode() == INS_UNKNOWN {
			return
		}

		// Every defined word renders as text that assembles back to
		// an equivalent word.
		asm := &Assembler{}
		prog, err := asm.Parse(strings.NewReader(code.String()))
		assert.NoError(err, code.String())
		if err != nil {
			return
		}

		if !assert.Equal(1, len(prog.Opcodes), code.String()) {
			return
		}
		codes := prog.Opcodes[0].Codes
		if assert.Equal(1, len(codes), code.String()) {
			assert.Equal(code.Decode(), codes[0].Decode(), code.String())
			assert.Equal(code.X(), codes[0].X(), code.String())
		}
	})
}
