// Command dcengine runs the SH-4/PowerVR2 emulation core with an embedded
// GDB remote stub, following the same flag.FlagSet-driven cmd/ pattern the
// rest of this module's tooling uses.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dcshade/dcore/internal/gdbstub"
	"github.com/dcshade/dcore/internal/scheduler"
	"github.com/dcshade/dcore/internal/sh4"
)

func main() {
	gdbAddr := flag.String("gdb", "", "listen address for the embedded GDB stub (e.g. :1234); empty disables it")
	entry := flag.Uint("entry", 0x8c010000, "guest entry address to begin core-thread translation at")
	flag.Parse()

	logger := log.New(os.Stderr, "[dcengine] ", log.LstdFlags)

	sched := scheduler.New()
	core, err := newCoreThread(logger, uint32(*entry))
	if err != nil {
		logger.Fatalf("core init: %v", err)
	}

	if *gdbAddr != "" {
		srv := gdbstub.NewServer(*gdbAddr, core)
		go func() {
			logger.Printf("gdb stub listening on %s", *gdbAddr)
			if err := srv.ListenAndServe(); err != nil {
				logger.Printf("gdb stub exited: %v", err)
			}
		}()
	}

	sched.ScheduleEvery(16_666_667, func(now uint64) {
		sched.HandoffRenderContext(core.currentFrame())
	})

	logger.Printf("starting core thread at %#08x", *entry)
	sched.Run(func(budgetNanos uint64) {
		core.RunFor(budgetNanos)
	})
	fmt.Fprintln(os.Stderr, "dcengine: scheduler drained, exiting")
}

// coreThread adapts the SH-4 frontend + a flat guest memory image to the
// gdbstub.Target interface, giving a connected debugger register/memory/
// breakpoint access to the running core.
type coreThread struct {
	logger *log.Logger
	ctx    sh4.Context
	ram    []byte
	ramBase uint32
	frontend *sh4.Frontend

	breakpoints map[uint32]bool
	haltReq     bool
}

func newCoreThread(logger *log.Logger, entry uint32) (*coreThread, error) {
	c := &coreThread{
		logger:      logger,
		ram:         make([]byte, 16<<20),
		ramBase:     0x8c000000,
		breakpoints: make(map[uint32]bool),
	}
	c.ctx.PC = entry
	c.frontend = sh4.NewFrontend(c)
	return c, nil
}

// ReadCode16 implements sh4.MemoryReader.
func (c *coreThread) ReadCode16(addr uint32) uint16 {
	off := addr - c.ramBase
	if int(off)+2 > len(c.ram) {
		return 0x000b // RTS: translating past mapped RAM behaves as a safe stop
	}
	return uint16(c.ram[off]) | uint16(c.ram[off+1])<<8
}

// RunFor translates and (conceptually) executes guest code for roughly
// budgetNanos of emulated time. Host code generation and dispatch are out
// of scope for this module; RunFor's job here is to keep the frontend and
// scheduler wired together so translation units are produced on a
// realistic cadence.
func (c *coreThread) RunFor(budgetNanos uint64) {
	if c.haltReq {
		return
	}
	u := c.frontend.Translate(c.ctx.PC, c.ctx.FPSCRPrec, c.ctx.FPSCRSz)
	if len(u.Blocks()) == 0 {
		c.logger.Printf("translation at %#08x produced no blocks", c.ctx.PC)
	}
}

func (c *coreThread) currentFrame() any { return nil }

// --- gdbstub.Target -------------------------------------------------------

func (c *coreThread) ReadRegisters() []byte {
	out := make([]byte, 16*4+4)
	for i, r := range c.ctx.R {
		putLE32(out[i*4:], r)
	}
	putLE32(out[16*4:], c.ctx.PC)
	return out
}

func (c *coreThread) WriteRegisters(data []byte) error {
	for i := 0; i < 16 && (i+1)*4 <= len(data); i++ {
		c.ctx.R[i] = getLE32(data[i*4:])
	}
	if len(data) >= 17*4 {
		c.ctx.PC = getLE32(data[16*4:])
	}
	return nil
}

func (c *coreThread) ReadMemory(addr uint32, length int) ([]byte, error) {
	off := addr - c.ramBase
	if int(off)+length > len(c.ram) || length < 0 {
		return nil, fmt.Errorf("dcengine: read out of range: %#08x+%d", addr, length)
	}
	out := make([]byte, length)
	copy(out, c.ram[off:int(off)+length])
	return out, nil
}

func (c *coreThread) WriteMemory(addr uint32, data []byte) error {
	off := addr - c.ramBase
	if int(off)+len(data) > len(c.ram) {
		return fmt.Errorf("dcengine: write out of range: %#08x+%d", addr, len(data))
	}
	copy(c.ram[off:], data)
	return nil
}

func (c *coreThread) SetBreakpoint(addr uint32) error {
	c.breakpoints[addr] = true
	return nil
}

func (c *coreThread) ClearBreakpoint(addr uint32) error {
	delete(c.breakpoints, addr)
	return nil
}

func (c *coreThread) Continue() (gdbstub.StopReason, error) {
	c.RunFor(1_000_000)
	return gdbstub.StopReason{Signal: 5}, nil
}

func (c *coreThread) Step() (gdbstub.StopReason, error) {
	c.RunFor(0)
	return gdbstub.StopReason{Signal: 5}, nil
}

func (c *coreThread) Halt() { c.haltReq = true }

func (c *coreThread) PC() uint32 { return c.ctx.PC }

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
