// Package chip8 implements the CHIP-8 virtual machine and assembler.
//
// The machine consists of 4KB of memory with a built-in hexadecimal font
// table, sixteen 8-bit registers (V0-VF, with VF doubling as the flag
// output of arithmetic and sprite operations), a 16-bit index register,
// a 16-deep return stack, two 60Hz countdown timers, a 64x32 monochrome
// framebuffer, and a 16-key pad. The interpreter is stepped one
// fetch-decode-execute cycle at a time by the host, which also owns the
// timer cadence, display, and input devices.
//
// The assembler provides a conventional CHIP-8 assembly language with
// labels, equates, macros, data bytes, and compile-time expression
// evaluation.
package chip8
