package gdbstub

import (
	"fmt"
	"os"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// MacroHost runs Lua breakpoint-action scripts against a Target, the
// scripting counterpart to the original debug monitor's
// macros map[string][]string feature reimplemented with a real embedded
// language instead of canned command lists: a connected debugger registers
// a script (via the "monitor" remote command) against a breakpoint
// address, and RunForAddr runs it with the target's registers and memory
// exposed as Lua globals. Scripts run only when RunForAddr is called (the
// "run-macro" monitor command does so); nothing in this module calls it
// when a breakpoint is hit.
type MacroHost struct {
	target Target

	mu      sync.Mutex
	scripts map[uint32]string // breakpoint addr -> loaded script source
}

// NewMacroHost returns a macro host driving target.
func NewMacroHost(target Target) *MacroHost {
	return &MacroHost{target: target, scripts: make(map[uint32]string)}
}

// RunMonitorCommand implements the stub's "monitor" command surface:
//
//	monitor load-macro <addr-hex> <path.lua>
//	monitor run-macro <addr-hex>
//	monitor list-macros
func (h *MacroHost) RunMonitorCommand(cmd string) (string, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty monitor command")
	}
	switch fields[0] {
	case "load-macro":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: load-macro <addr-hex> <path.lua>")
		}
		return h.loadMacro(fields[1], fields[2])
	case "run-macro":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: run-macro <addr-hex>")
		}
		return h.RunForAddrHex(fields[1])
	case "list-macros":
		return h.list(), nil
	}
	return "", fmt.Errorf("unknown monitor command %q", fields[0])
}

func (h *MacroHost) loadMacro(addrHex, path string) (string, error) {
	addr, err := parseHexAddr(addrHex)
	if err != nil {
		return "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	h.mu.Lock()
	h.scripts[addr] = string(src)
	h.mu.Unlock()
	return fmt.Sprintf("registered %s at %#x\n", path, addr), nil
}

// RunForAddrHex parses a hex breakpoint address and runs its script, if
// one is registered.
func (h *MacroHost) RunForAddrHex(addrHex string) (string, error) {
	addr, err := parseHexAddr(addrHex)
	if err != nil {
		return "", err
	}
	return h.RunForAddr(addr)
}

// RunForAddr executes the breakpoint-action script registered at addr
// against the current target state. Within this module its only caller is
// the "run-macro" monitor command (through RunForAddrHex).
func (h *MacroHost) RunForAddr(addr uint32) (string, error) {
	h.mu.Lock()
	src, ok := h.scripts[addr]
	h.mu.Unlock()
	if !ok {
		return "", nil
	}

	var output strings.Builder
	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("pc", lua.LNumber(h.target.PC()))
	L.SetGlobal("read_reg", L.NewFunction(func(L *lua.LState) int {
		idx := L.CheckInt(1)
		regs := h.target.ReadRegisters()
		off := idx * 4
		if off+4 > len(regs) {
			L.Push(lua.LNil)
			return 1
		}
		v := uint32(regs[off]) | uint32(regs[off+1])<<8 | uint32(regs[off+2])<<16 | uint32(regs[off+3])<<24
		L.Push(lua.LNumber(v))
		return 1
	}))
	L.SetGlobal("read_mem", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckNumber(1))
		length := L.CheckInt(2)
		data, err := h.target.ReadMemory(addr, length)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		tbl := L.NewTable()
		for i, b := range data {
			tbl.RawSetInt(i+1, lua.LNumber(b))
		}
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		output.WriteString(strings.Join(parts, "\t"))
		output.WriteByte('\n')
		return 0
	}))

	if err := L.DoString(src); err != nil {
		return output.String(), fmt.Errorf("macro error: %w", err)
	}
	return output.String(), nil
}

func (h *MacroHost) list() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var b strings.Builder
	for addr := range h.scripts {
		fmt.Fprintf(&b, "%#08x\n", addr)
	}
	return b.String()
}

func parseHexAddr(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "0x")
	var addr uint32
	_, err := fmt.Sscanf(s, "%x", &addr)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}
