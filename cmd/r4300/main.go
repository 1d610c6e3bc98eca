// Copyright 2026, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ezrec/r4300/cpu"
	"github.com/ezrec/r4300/emulator"
	"github.com/ezrec/r4300/internal"
)

func main() {
	var compile string
	var output string
	var romPath string
	var runFor time.Duration
	var defines bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s file to assemble")
	flag.StringVar(&output, "o", "", "write the assembled image to a file, do not execute")
	flag.StringVar(&romPath, "r", "", "ROM image to run")
	flag.DurationVar(&runFor, "t", time.Second, "how long to run")
	flag.BoolVar(&defines, "defines", false, "print hardware defines and exit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Cpu.Verbose = verbose

	if defines {
		for key, value := range internal.IterSeq2Sorted(emu.Defines()) {
			fmt.Printf("%v=%v\n", key, value)
		}
		return
	}

	var image []byte

	// Assemble a new image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		emu.Program = prog
		image = prog.Image()
	}

	if len(output) != 0 {
		if image == nil {
			log.Fatalf("%v: nothing assembled to save", os.Args[0])
		}
		err := os.WriteFile(output, image, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	switch {
	case image != nil:
		_, err := emu.LoadImage(image)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	case len(romPath) != 0:
		if !emu.LoadRom(romPath) {
			os.Exit(1)
		}
	default:
		log.Fatalf("%v: nothing to run; use -c or -r", os.Args[0])
	}

	emu.Start()

	deadline := time.After(runFor)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-deadline:
			break poll
		case <-ticker.C:
			if verbose && emu.Program != nil {
				view := emu.Snapshot()
				if op := emu.Program.Debug(view.Pc); op != nil {
					log.Printf("line %v: %v", op.LineNo, op.Ins)
				}
			}
		}
	}

	err := emu.Stop()
	if err != nil {
		log.Printf("%v: %v", os.Args[0], err)
	}

	fmt.Println(emu.Snapshot())
	if verbose {
		fmt.Print(emu.Cpu.String())
	}
}
