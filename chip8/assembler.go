// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package chip8

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

func init() {
	maps.Copy(sysEquate, _chip8_defines)
}

// Assembler is a single pass macro assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to memory addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	v64, perr := strconv.ParseInt(word, 0, 32)
	if perr != nil || v64 < 0 {
		err = ErrParseNumber(word)
		return
	}
	if v64 > 0xffff {
		err = ErrValueRange(v64)
		return
	}

	value = uint16(v64)

	return
}

// regOf parses a register name v0-vf.
func regOf(word string) (reg byte, ok bool) {
	if len(word) != 2 || word[0] != 'v' {
		return
	}

	switch {
	case word[1] >= '0' && word[1] <= '9':
		reg = word[1] - '0'
	case word[1] >= 'a' && word[1] <= 'f':
		reg = word[1] - 'a' + 10
	default:
		return
	}

	ok = true
	return
}

// regArg parses a register operand, or fails.
func regArg(word string) (reg byte, err error) {
	reg, ok := regOf(word)
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// byteArg parses an 8-bit immediate operand.
func (asm *Assembler) byteArg(word string) (kk byte, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if value > 0xff {
		err = ErrValueRange(value)
		return
	}

	kk = byte(value)
	return
}

// nibbleArg parses a 4-bit immediate operand.
func (asm *Assembler) nibbleArg(word string) (n byte, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if value > 0xf {
		err = ErrValueRange(value)
		return
	}

	n = byte(value)
	return
}

// addrArg parses a 12-bit address operand. A word that is not a number
// becomes a link label, resolved at the end of the parse.
func (asm *Assembler) addrArg(word string) (addr uint16, label string, err error) {
	value, verr := asm.valueOf(word)
	if verr == nil {
		if value > 0x0fff {
			err = ErrValueRange(value)
			return
		}
		addr = value
		return
	}

	label = word
	return
}

// countArgs validates the operand count for a mnemonic.
func countArgs(words []string, want int) (err error) {
	switch {
	case len(words) < want+1:
		err = ErrOpcodeMissing
	case len(words) > want+1:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, line := range macro.Lines {
			macro_lineno := macro.LineNo + n

			// Labels with an @ marker become unique per call site.
			line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))
			words, err = asm.parseLine(line, macro_lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: macro_lineno, Err: err}
				err = &ErrSyntax{LineNo: macro_lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, macro_lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: macro_lineno, Err: err}
				err = &ErrSyntax{LineNo: macro_lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the memory address following the last emitted opcode.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return int(PROGRAM_START)
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + last.Size()
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		line = strings.ReplaceAll(line, ",", " ")
		all_words := strings.Split(line, " ")

		var words []string
		for _, single := range all_words {
			if len(single) > 0 {
				words = append(words, single)
			}
		}

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels into 12-bit address fields.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		linked := &op.Codes[len(op.Codes)-1]
		*linked = (*linked & 0xf000) | Code(uint16(addr)&0x0fff)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// subMap maps register-register mnemonics to their 8xyN sub-opcodes.
var subMap = map[string]byte{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"subn": 0x7,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 && len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Codes: codes, Data: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	var x, y, kk, n byte
	var addr uint16

	switch words[0] {
	case ".db":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		for _, word := range words[1:] {
			kk, err = asm.byteArg(word)
			if err != nil {
				return
			}
			data = append(data, kk)
		}
	case "cls":
		err = countArgs(words, 0)
		if err != nil {
			return
		}
		codes = append(codes, CODE_CLS)
	case "ret":
		err = countArgs(words, 0)
		if err != nil {
			return
		}
		codes = append(codes, CODE_RET)
	case "sys":
		err = countArgs(words, 1)
		if err != nil {
			return
		}
		addr, label, err = asm.addrArg(words[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAddr(0x0, addr))
	case "jp":
		switch {
		case len(words) == 3 && words[1] == "v0":
			addr, label, err = asm.addrArg(words[2])
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeAddr(0xb, addr))
		case len(words) == 2:
			addr, label, err = asm.addrArg(words[1])
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeAddr(0x1, addr))
		default:
			err = countArgs(words, 1)
		}
	case "call":
		err = countArgs(words, 1)
		if err != nil {
			return
		}
		addr, label, err = asm.addrArg(words[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAddr(0x2, addr))
	case "se", "sne":
		err = countArgs(words, 2)
		if err != nil {
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		y, ok := regOf(words[2])
		if ok {
			family := byte(0x5)
			if words[0] == "sne" {
				family = 0x9
			}
			codes = append(codes, MakeCodeRegReg(family, x, y, 0x0))
		} else {
			kk, err = asm.byteArg(words[2])
			if err != nil {
				return
			}
			family := byte(0x3)
			if words[0] == "sne" {
				family = 0x4
			}
			codes = append(codes, MakeCodeRegByte(family, x, kk))
		}
	case "ld":
		err = countArgs(words, 2)
		if err != nil {
			return
		}
		dst, src := words[1], words[2]
		switch dst {
		case "i":
			addr, label, err = asm.addrArg(src)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeAddr(0xa, addr))
		case "dt":
			x, err = regArg(src)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0xf, x, 0x15))
		case "st":
			x, err = regArg(src)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0xf, x, 0x18))
		case "f":
			x, err = regArg(src)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0xf, x, 0x29))
		case "b":
			x, err = regArg(src)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0xf, x, 0x33))
		case "[i]":
			x, err = regArg(src)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0xf, x, 0x55))
		default:
			x, err = regArg(dst)
			if err != nil {
				return
			}
			switch src {
			case "dt":
				codes = append(codes, MakeCodeRegByte(0xf, x, 0x07))
			case "k":
				codes = append(codes, MakeCodeRegByte(0xf, x, 0x0a))
			case "[i]":
				codes = append(codes, MakeCodeRegByte(0xf, x, 0x65))
			default:
				y, ok := regOf(src)
				if ok {
					codes = append(codes, MakeCodeRegReg(0x8, x, y, 0x0))
				} else {
					kk, err = asm.byteArg(src)
					if err != nil {
						return
					}
					codes = append(codes, MakeCodeRegByte(0x6, x, kk))
				}
			}
		}
	case "add":
		err = countArgs(words, 2)
		if err != nil {
			return
		}
		if words[1] == "i" {
			x, err = regArg(words[2])
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0xf, x, 0x1e))
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		y, ok := regOf(words[2])
		if ok {
			codes = append(codes, MakeCodeRegReg(0x8, x, y, 0x4))
		} else {
			kk, err = asm.byteArg(words[2])
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeRegByte(0x7, x, kk))
		}
	case "or", "and", "xor", "sub", "subn":
		err = countArgs(words, 2)
		if err != nil {
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		y, err = regArg(words[2])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeRegReg(0x8, x, y, subMap[words[0]]))
	case "shr", "shl":
		err = countArgs(words, 1)
		if err != nil {
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		sub := byte(0x6)
		if words[0] == "shl" {
			sub = 0xe
		}
		codes = append(codes, MakeCodeRegReg(0x8, x, 0x0, sub))
	case "rnd":
		err = countArgs(words, 2)
		if err != nil {
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		kk, err = asm.byteArg(words[2])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeRegByte(0xc, x, kk))
	case "drw":
		err = countArgs(words, 3)
		if err != nil {
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		y, err = regArg(words[2])
		if err != nil {
			return
		}
		n, err = asm.nibbleArg(words[3])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeRegReg(0xd, x, y, n))
	case "skp", "sknp":
		err = countArgs(words, 1)
		if err != nil {
			return
		}
		x, err = regArg(words[1])
		if err != nil {
			return
		}
		kk = byte(0x9e)
		if words[0] == "sknp" {
			kk = 0xa1
		}
		codes = append(codes, MakeCodeRegByte(0xe, x, kk))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
