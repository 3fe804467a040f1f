package main

import (
	"fmt"
	"os"

	"github.com/pkg/term"

	"github.com/DaGuich/armcore/internal/armcpu"
	"github.com/DaGuich/armcore/internal/armisa"
)

// runInteractive steps sys one instruction per keypress, printing the
// instruction about to execute and the registers it changes. It puts the
// controlling terminal into raw mode for the duration of the run.
func runInteractive(sys *armcpu.System, start uint32, opts *armcpu.RunOptions) error {
	tty, err := term.Open("/dev/tty")
	if err != nil {
		return fmt.Errorf("opening controlling terminal: %w", err)
	}
	defer tty.Close()
	if err := tty.SetRaw(); err != nil {
		return fmt.Errorf("putting terminal in raw mode: %w", err)
	}
	defer tty.Restore()

	sys.SetPC(start)
	before := snapshot(sys)
	steps := 0
	buf := make([]byte, 1)
	for {
		if opts != nil && opts.HaltAddress != nil && sys.PC() == *opts.HaltAddress {
			fmt.Fprintf(os.Stdout, "\r\nhalted at 0x%08x\r\n", sys.PC())
			return nil
		}
		if opts != nil && opts.MaxSteps > 0 && steps >= opts.MaxSteps {
			return fmt.Errorf("exceeded instruction budget of %d", opts.MaxSteps)
		}

		pc := sys.PC()
		raw, err := sys.Memory().ReadWord(pc)
		if err != nil {
			return err
		}
		text, _ := armisa.Disassemble(raw)
		fmt.Fprintf(os.Stdout, "\r\n%08x: %-28s (press a key to step)\r\n", pc, text)

		if _, err := tty.Read(buf); err != nil {
			return fmt.Errorf("reading keypress: %w", err)
		}

		outcome, err := sys.Step()
		if err != nil {
			return err
		}
		printChangedRegisters(before, sys)
		before = snapshot(sys)
		if outcome != armcpu.Continue {
			fmt.Fprintf(os.Stdout, "\r\n%s\r\n", outcome)
			return nil
		}
		steps++
	}
}

type registerSnapshot [16]uint32

func snapshot(sys *armcpu.System) registerSnapshot {
	var s registerSnapshot
	for r := armisa.Register(0); r < 16; r++ {
		s[r], _ = sys.GetRegister(r)
	}
	return s
}

func printChangedRegisters(before registerSnapshot, sys *armcpu.System) {
	for r := armisa.Register(0); r < 16; r++ {
		after, _ := sys.GetRegister(r)
		if after != before[r] {
			fmt.Fprintf(os.Stdout, "  %-4s %08x -> %08x\r\n", r.String(), before[r], after)
		}
	}
}
