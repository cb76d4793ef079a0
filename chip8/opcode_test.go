package chip8

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		ins  Instruction
	}){
		{0x0123, INS_SYS},
		{0x00e0, INS_CLS},
		{0x00ee, INS_RET},
		{0x1abc, INS_JP},
		{0x2abc, INS_CALL},
		{0x3142, INS_SE_B},
		{0x4142, INS_SNE_B},
		{0x5120, INS_SE_R},
		{0x5121, INS_UNKNOWN},
		{0x6142, INS_LD_B},
		{0x7142, INS_ADD_B},
		{0x8120, INS_LD_R},
		{0x8121, INS_OR},
		{0x8122, INS_AND},
		{0x8123, INS_XOR},
		{0x8124, INS_ADD_R},
		{0x8125, INS_SUB},
		{0x8126, INS_SHR},
		{0x8127, INS_SUBN},
		{0x812e, INS_SHL},
		{0x8128, INS_UNKNOWN},
		{0x812f, INS_UNKNOWN},
		{0x9120, INS_SNE_R},
		{0x9121, INS_UNKNOWN},
		{0xaabc, INS_LD_I},
		{0xbabc, INS_JP_V0},
		{0xc142, INS_RND},
		{0xd125, INS_DRW},
		{0xe19e, INS_SKP},
		{0xe1a1, INS_SKNP},
		{0xe1ff, INS_UNKNOWN},
		{0xf107, INS_LD_DT},
		{0xf10a, INS_LD_KEY},
		{0xf115, INS_ST_DT},
		{0xf118, INS_ST_ST},
		{0xf11e, INS_ADD_I},
		{0xf129, INS_LD_FONT},
		{0xf133, INS_BCD},
		{0xf155, INS_SAVE},
		{0xf165, INS_RESTORE},
		{0xf1ff, INS_UNKNOWN},
	}

	for _, entry := range table {
		assert.Equal(entry.ins, entry.code.Decode(), entry.code.String())
	}
}

func TestCodeFields(t *testing.T) {
	assert := assert.New(t)

	code := Code(0xd12e)
	assert.Equal(uint16(0x12e), code.Addr())
	assert.Equal(byte(0x1), code.X())
	assert.Equal(byte(0x2), code.Y())
	assert.Equal(byte(0xe), code.N())
	assert.Equal(byte(0x2e), code.Byte())
}

func TestMakeCode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Code(0x1abc), MakeCodeAddr(0x1, 0xabc))
	assert.Equal(Code(0x6342), MakeCodeRegByte(0x6, 0x3, 0x42))
	assert.Equal(Code(0xd125), MakeCodeRegReg(0xd, 0x1, 0x2, 0x5))

	// Out-of-range fields are masked.
	assert.Equal(Code(0x1abc), MakeCodeAddr(0x1, 0xfabc))
	assert.Equal(Code(0x6342), MakeCodeRegByte(0x6, 0x13, 0x42))
}

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		text string
	}){
		{0x00e0, "cls"},
		{0x00ee, "ret"},
		{0x0333, "sys 0x333"},
		{0x1abc, "jp 0xabc"},
		{0x2abc, "call 0xabc"},
		{0xbabc, "jp v0 0xabc"},
		{0x3142, "se v1 0x42"},
		{0x4142, "sne v1 0x42"},
		{0x5120, "se v1 v2"},
		{0x6142, "ld v1 0x42"},
		{0x7142, "add v1 0x42"},
		{0x8120, "ld v1 v2"},
		{0x8121, "or v1 v2"},
		{0x8126, "shr v1"},
		{0x812e, "shl v1"},
		{0x9120, "sne v1 v2"},
		{0xaabc, "ld i 0xabc"},
		{0xc142, "rnd v1 0x42"},
		{0xd125, "drw v1 v2 0x5"},
		{0xe19e, "skp v1"},
		{0xe1a1, "sknp v1"},
		{0xf107, "ld v1 dt"},
		{0xf10a, "ld v1 k"},
		{0xf115, "ld dt v1"},
		{0xf118, "ld st v1"},
		{0xf11e, "add i v1"},
		{0xf129, "ld f v1"},
		{0xf133, "ld b v1"},
		{0xf155, "ld [i] v1"},
		{0xf165, "ld v1 [i]"},
		{0xffff, "??? 0xffff"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, entry.code.String())
	}
}
