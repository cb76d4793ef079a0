// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"

	"github.com/ezrec/chip8/chip8"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/ui"
)

func main() {
	var compile string
	var rom string
	var output string
	var save bool
	var cycles int
	var scale int
	var mute bool
	var headless bool
	var frames int
	var verbose bool

	flag.StringVar(&compile, "c", "", ".c8 assembly file to compile")
	flag.StringVar(&rom, "r", "", ".ch8 ROM file to run")
	flag.StringVar(&output, "o", "-", "Assembled ROM output (with -s)")
	flag.BoolVar(&save, "s", false, "Save assembled ROM, do not execute")
	flag.IntVar(&cycles, "cycles", emulator.DEFAULT_CYCLES_PER_FRAME, "Instruction cycles per frame")
	flag.IntVar(&scale, "scale", 8, "Window scale factor")
	flag.BoolVar(&mute, "mute", false, "Disable the beeper")
	flag.BoolVar(&headless, "headless", false, "Run without a window")
	flag.IntVar(&frames, "frames", 0, "Frame limit in headless mode (0: until idle)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	prog := &chip8.Program{}
	var image []byte

	// Compile a new ROM image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &chip8.Assembler{Verbose: verbose}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		image = prog.Binary()
	} else if len(rom) != 0 {
		var err error
		image, err = os.ReadFile(rom)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
	} else {
		log.Fatalf("%v: Either -c or -r is required", os.Args[0])
	}

	if save {
		ouf := os.Stdout
		if output != "-" {
			var err error
			ouf, err = os.Create(output)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			defer ouf.Close()
		}
		_, err := ouf.Write(image)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu := emulator.NewEmulator()
	emu.Program = prog
	emu.Rom = image
	emu.Verbose = verbose
	emu.CyclesPerFrame = cycles

	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	if headless {
		err = emu.Run(frames)
		if err != nil {
			log.Fatal(err)
		}
		if verbose {
			log.Printf("final state:\n%v", emu.Chip8)
		}
		return
	}

	title := compile
	if len(title) == 0 {
		title = rom
	}

	app, err := ui.NewApp(ui.Config{Title: title, Scale: scale, Mute: mute}, emu)
	if err != nil {
		log.Fatal(err)
	}

	err = app.Run()
	if err != nil {
		log.Fatal(err)
	}
}
