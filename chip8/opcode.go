package chip8

import (
	"fmt"
)

// Code is a single 16-bit CHIP-8 instruction word, fetched big-endian
// (high byte first) from two consecutive memory bytes.
type Code uint16

// Instruction is the decoded kind of an instruction word. Every defined
// opcode maps to exactly one Instruction; anything else is INS_UNKNOWN.
type Instruction int

//go:generate go tool stringer -linecomment -type=Instruction
const (
	INS_UNKNOWN = Instruction(iota) // ???
	INS_SYS                         // sys
	INS_CLS                         // cls
	INS_RET                         // ret
	INS_JP                          // jp
	INS_CALL                        // call
	INS_SE_B                        // se
	INS_SNE_B                       // sne
	INS_SE_R                        // se
	INS_LD_B                        // ld
	INS_ADD_B                       // add
	INS_LD_R                        // ld
	INS_OR                          // or
	INS_AND                         // and
	INS_XOR                         // xor
	INS_ADD_R                       // add
	INS_SUB                         // sub
	INS_SHR                         // shr
	INS_SUBN                        // subn
	INS_SHL                         // shl
	INS_SNE_R                       // sne
	INS_LD_I                        // ld
	INS_JP_V0                       // jp
	INS_RND                         // rnd
	INS_DRW                         // drw
	INS_SKP                         // skp
	INS_SKNP                        // sknp
	INS_LD_DT                       // ld
	INS_LD_KEY                      // ld
	INS_ST_DT                       // ld
	INS_ST_ST                       // ld
	INS_ADD_I                       // add
	INS_LD_FONT                     // ld
	INS_BCD                         // ld
	INS_SAVE                        // ld
	INS_RESTORE                     // ld
)

// The two fixed-encoding instructions.
const (
	CODE_CLS = Code(0x00e0)
	CODE_RET = Code(0x00ee)
)

// Addr returns the 12-bit address field (low 12 bits).
func (code Code) Addr() uint16 {
	return uint16(code) & 0x0fff
}

// X returns the first register index field (bits 8-11).
func (code Code) X() byte {
	return byte(code>>8) & 0x0f
}

// Y returns the second register index field (bits 4-7).
func (code Code) Y() byte {
	return byte(code>>4) & 0x0f
}

// N returns the low nibble.
func (code Code) N() byte {
	return byte(code) & 0x0f
}

// Byte returns the 8-bit immediate field (low byte).
func (code Code) Byte() byte {
	return byte(code)
}

// MakeCodeAddr packs a family nibble and a 12-bit address.
func MakeCodeAddr(family byte, addr uint16) Code {
	return Code(uint16(family&0xf)<<12 | addr&0x0fff)
}

// MakeCodeRegByte packs a family nibble, a register index, and an immediate byte.
func MakeCodeRegByte(family byte, x byte, kk byte) Code {
	return Code(uint16(family&0xf)<<12 | uint16(x&0xf)<<8 | uint16(kk))
}

// MakeCodeRegReg packs a family nibble, two register indexes, and a sub-opcode nibble.
func MakeCodeRegReg(family byte, x, y, n byte) Code {
	return Code(uint16(family&0xf)<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4 | uint16(n&0xf))
}

// Decode maps the instruction word to its Instruction kind.
func (code Code) Decode() Instruction {
	switch byte(code >> 12) {
	case 0x0:
		switch code {
		case CODE_CLS:
			return INS_CLS
		case CODE_RET:
			return INS_RET
		}
		// Any other 0nnn is the legacy machine-code call.
		return INS_SYS
	case 0x1:
		return INS_JP
	case 0x2:
		return INS_CALL
	case 0x3:
		return INS_SE_B
	case 0x4:
		return INS_SNE_B
	case 0x5:
		if code.N() == 0x0 {
			return INS_SE_R
		}
	case 0x6:
		return INS_LD_B
	case 0x7:
		return INS_ADD_B
	case 0x8:
		switch code.N() {
		case 0x0:
			return INS_LD_R
		case 0x1:
			return INS_OR
		case 0x2:
			return INS_AND
		case 0x3:
			return INS_XOR
		case 0x4:
			return INS_ADD_R
		case 0x5:
			return INS_SUB
		case 0x6:
			return INS_SHR
		case 0x7:
			return INS_SUBN
		case 0xe:
			return INS_SHL
		}
	case 0x9:
		if code.N() == 0x0 {
			return INS_SNE_R
		}
	case 0xa:
		return INS_LD_I
	case 0xb:
		return INS_JP_V0
	case 0xc:
		return INS_RND
	case 0xd:
		return INS_DRW
	case 0xe:
		switch code.Byte() {
		case 0x9e:
			return INS_SKP
		case 0xa1:
			return INS_SKNP
		}
	case 0xf:
		switch code.Byte() {
		case 0x07:
			return INS_LD_DT
		case 0x0a:
			return INS_LD_KEY
		case 0x15:
			return INS_ST_DT
		case 0x18:
			return INS_ST_ST
		case 0x1e:
			return INS_ADD_I
		case 0x29:
			return INS_LD_FONT
		case 0x33:
			return INS_BCD
		case 0x55:
			return INS_SAVE
		case 0x65:
			return INS_RESTORE
		}
	}

	return INS_UNKNOWN
}

// String returns the assembly language representation of this instruction word.
func (code Code) String() (out string) {
	ins := code.Decode()

	switch ins {
	case INS_CLS, INS_RET:
		out = ins.String()
	case INS_SYS, INS_JP, INS_CALL:
		out = fmt.Sprintf("%v 0x%03x", ins, code.Addr())
	case INS_JP_V0:
		out = fmt.Sprintf("%v v0 0x%03x", ins, code.Addr())
	case INS_SE_B, INS_SNE_B, INS_LD_B, INS_ADD_B, INS_RND:
		out = fmt.Sprintf("%v v%x 0x%02x", ins, code.X(), code.Byte())
	case INS_SE_R, INS_SNE_R, INS_LD_R, INS_OR, INS_AND, INS_XOR, INS_ADD_R, INS_SUB, INS_SUBN:
		out = fmt.Sprintf("%v v%x v%x", ins, code.X(), code.Y())
	case INS_SHR, INS_SHL, INS_SKP, INS_SKNP:
		out = fmt.Sprintf("%v v%x", ins, code.X())
	case INS_LD_I:
		out = fmt.Sprintf("%v i 0x%03x", ins, code.Addr())
	case INS_DRW:
		out = fmt.Sprintf("%v v%x v%x 0x%x", ins, code.X(), code.Y(), code.N())
	case INS_LD_DT:
		out = fmt.Sprintf("%v v%x dt", ins, code.X())
	case INS_LD_KEY:
		out = fmt.Sprintf("%v v%x k", ins, code.X())
	case INS_ST_DT:
		out = fmt.Sprintf("%v dt v%x", ins, code.X())
	case INS_ST_ST:
		out = fmt.Sprintf("%v st v%x", ins, code.X())
	case INS_ADD_I:
		out = fmt.Sprintf("%v i v%x", ins, code.X())
	case INS_LD_FONT:
		out = fmt.Sprintf("%v f v%x", ins, code.X())
	case INS_BCD:
		out = fmt.Sprintf("%v b v%x", ins, code.X())
	case INS_SAVE:
		out = fmt.Sprintf("%v [i] v%x", ins, code.X())
	case INS_RESTORE:
		out = fmt.Sprintf("%v v%x [i]", ins, code.X())
	default:
		out = fmt.Sprintf("%v 0x%04x", ins, uint16(code))
	}

	return
}
