// Command armrun loads a raw binary image into an armcore System and runs
// it, optionally tracing each retired instruction or stepping it one
// keypress at a time.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/text/message"

	"github.com/DaGuich/armcore/internal/armcpu"
	"github.com/DaGuich/armcore/internal/armisa"
	"github.com/DaGuich/armcore/internal/armlog"
	"github.com/DaGuich/armcore/internal/armmem"
	"github.com/DaGuich/armcore/internal/armstats"
)

var printer = message.NewPrinter(message.MatchLanguage("en-US"))

func main() {
	var (
		imagePath   = flag.String("image", "", "path to the raw binary image to load")
		loadAddr    = flag.Uint("load", 0, "address the image is loaded at")
		runAddr     = flag.Uint("run", 0, "address execution starts from (defaults to -load)")
		haltAddr    = flag.String("halt", "", "stop once pc reaches this address (hex or decimal); unset means run until halted or out of budget")
		maxSteps    = flag.Uint("steps", 0, "maximum instructions to execute (0 means unbounded)")
		capacity    = flag.Uint("mem", armmem.DefaultCapacity, "memory capacity in bytes")
		verbose     = flag.Bool("v", false, "trace every retired instruction")
		interactive = flag.Bool("interactive", false, "single-step with a keypress instead of running freely")
		stats       = flag.Bool("statsview", false, "launch the live statsview dashboard (requires building with -tags statsview)")
		decodeCache = flag.Bool("decode-cache", false, "cache decoded instructions by fetch word, useful for tight loops")
	)
	flag.Parse()

	if *imagePath == "" {
		log.Fatal("armrun: -image is required")
	}
	image, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatalf("armrun: %v", err)
	}
	if *loadAddr != 0 {
		if uint64(*loadAddr)+uint64(len(image)) > uint64(*capacity) {
			log.Fatalf("armrun: image loaded at 0x%x does not fit in %d bytes of memory", *loadAddr, *capacity)
		}
		placed := make([]byte, int(*loadAddr)+len(image))
		copy(placed[*loadAddr:], image)
		image = placed
	}

	mem, err := armmem.NewFromImage(image, uint32(*capacity))
	if err != nil {
		log.Fatalf("armrun: %v", err)
	}
	sys := armcpu.New(mem)
	if *decodeCache {
		sys.EnableDecodeCache()
	}

	start := uint32(*runAddr)
	if !flagWasSet("run") {
		start = uint32(*loadAddr)
	}

	opts := &armcpu.RunOptions{MaxSteps: int(*maxSteps)}
	if *haltAddr != "" {
		addr, err := parseAddress(*haltAddr)
		if err != nil {
			log.Fatalf("armrun: -halt: %v", err)
		}
		opts.HaltAddress = &addr
	}

	if *stats {
		armstats.Launch(os.Stderr)
	}

	if *verbose {
		sys.Trace = func(pc uint32, text string) {
			armstats.RecordStep()
			armlog.Printf("%08x: %s", pc, text)
			printer.Printf("%08x  %s\n", pc, text)
		}
	} else {
		sys.Trace = func(uint32, string) { armstats.RecordStep() }
	}

	if *interactive {
		if err := runInteractive(sys, start, opts); err != nil {
			log.Fatalf("armrun: %v", err)
		}
	} else {
		if err := sys.RunFrom(start, opts); err != nil {
			log.Fatalf("armrun: %v", err)
		}
	}

	dumpRegisters(sys)
}

// flagWasSet reports whether a flag was explicitly passed on the command
// line, so -run can default to -load without forcing the caller to repeat
// the value.
func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseAddress(s string) (uint32, error) {
	var v uint32
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err == nil {
		return v, nil
	}
	_, err = fmt.Sscanf(s, "%d", &v)
	return v, err
}

func dumpRegisters(sys *armcpu.System) {
	for r := armisa.Register(0); r < 16; r++ {
		v, _ := sys.GetRegister(r)
		printer.Printf("%-4s = %08x\n", r.String(), v)
	}
	printer.Printf("n=%v z=%v c=%v v=%v\n", sys.Negative(), sys.Zero(), sys.Carry(), sys.Overflow())
}
