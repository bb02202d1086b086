// Package gdbstub implements an embedded GDB Remote Serial Protocol server
// so a connected debugger (gdb/lldb with a custom target, or a compatible
// IDE) can inspect and control a running guest CPU core.
package gdbstub

// Target is the debuggee interface the stub drives: register and memory
// access, single-step, and breakpoint management. The SH-4 core
// implements this directly against its Context (package sh4); nothing in
// this package depends on sh4 itself, so the stub can front any future
// guest core the same way.
type Target interface {
	// ReadRegisters returns all general-purpose + PC registers packed as
	// the target's native GDB register order, little-endian.
	ReadRegisters() []byte
	WriteRegisters(data []byte) error

	ReadMemory(addr uint32, length int) ([]byte, error)
	WriteMemory(addr uint32, data []byte) error

	// SetBreakpoint/ClearBreakpoint install/remove a software breakpoint
	// at addr. Data watchpoints are not part of this interface.
	SetBreakpoint(addr uint32) error
	ClearBreakpoint(addr uint32) error

	// Continue resumes execution; Step executes exactly one guest
	// instruction. Both block until the target stops (breakpoint hit,
	// step complete, or an external halt request).
	Continue() (StopReason, error)
	Step() (StopReason, error)

	// Halt requests the target stop at its next convenient point,
	// unblocking a Continue call from another goroutine (Ctrl-C / 0x03).
	Halt()

	PC() uint32
}

// StopReason describes why Continue/Step returned.
type StopReason struct {
	Signal      int    // POSIX-style signal number GDB expects (SIGTRAP=5 normally)
	Breakpoint  bool
	Description string
}
