package gdbstub

import (
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
)

// GDBError reports a protocol or transport failure in the stub, following
// the teacher's typed-error-struct convention.
type GDBError struct {
	Operation string
	Details   string
	Err       error
}

func (e *GDBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gdbstub: %s: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("gdbstub: %s: %s", e.Operation, e.Details)
}
func (e *GDBError) Unwrap() error { return e.Err }

// handler is one entry in the dispatch table, keyed by the first byte of
// a packet's payload (GDB RSP commands are dispatched on their leading
// character, e.g. 'g' read-registers, 'm' read-memory).
type handler func(s *connState, payload string) []byte

// connState is the per-connection state a single attached debugger gets:
// its socket, packet parser, and the last packet sent (kept so a NACK can
// trigger a verbatim resend instead of recomputing the response).
type connState struct {
	conn      net.Conn
	parser    *Parser
	lastSent  []byte
	ackMode   bool
	target    Target
	macros    *MacroHost
	logger    *log.Logger
}

// Server listens for a single GDB client at a time, dropping any existing
// connection when a new one arrives — matching the original stub's
// single-client accept policy, since only one debugger ever attaches to an
// emulator session.
type Server struct {
	Target Target
	Addr   string
	Logger *log.Logger

	mu       sync.Mutex
	listener net.Listener
	active   *connState
	macros   *MacroHost
}

// NewServer constructs a stub bound to addr (e.g. ":1234") driving target.
func NewServer(addr string, target Target) *Server {
	return &Server{
		Addr:   addr,
		Target: target,
		Logger: log.New(os.Stderr, "[gdbstub] ", log.LstdFlags),
		macros: NewMacroHost(target),
	}
}

// ListenAndServe accepts connections until the listener is closed,
// handling at most one client at a time per the single-client policy
// above. It never returns a nil error on a clean Close — callers select on
// net.ErrClosed to distinguish a deliberate shutdown from a transport fault.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return &GDBError{Operation: "ListenAndServe", Details: s.Addr, Err: err}
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return &GDBError{Operation: "ListenAndServe", Details: "accept", Err: err}
		}
		s.mu.Lock()
		if s.active != nil {
			s.active.conn.Close() // drop the existing client for the new one
		}
		cs := &connState{
			conn:    conn,
			parser:  NewParser(),
			ackMode: true,
			target:  s.Target,
			macros:  s.macros,
			logger:  s.Logger,
		}
		s.active = cs
		s.mu.Unlock()

		go s.serveConn(cs)
	}
}

// Close shuts down the listener, terminating ListenAndServe's accept loop.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(cs *connState) {
	defer cs.conn.Close()
	buf := make([]byte, 4096)
	for {
		n, err := cs.conn.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i < n; i++ {
			ev := cs.parser.Feed(buf[i])
			switch ev.Kind {
			case EventPacket:
				s.handlePacket(cs, ev.Data)
			case EventNack:
				s.resend(cs)
			case EventInterrupt:
				cs.target.Halt()
			case EventAck:
				// nothing to do: the debugger acked our last send.
			}
		}
	}
}

// resend retransmits the last response verbatim, per
// gdb_server_send_packet/gdb_server_handle_nack's last_sent-based recovery
// from a corrupted transmission.
func (s *Server) resend(cs *connState) {
	if cs.lastSent == nil {
		return
	}
	cs.conn.Write(cs.lastSent)
}

func (s *Server) handlePacket(cs *connState, data []byte) {
	if cs.ackMode {
		cs.conn.Write([]byte{'+'})
	}
	payload := string(data)
	if len(payload) == 0 {
		s.send(cs, nil)
		return
	}
	h, ok := dispatchTable[payload[0]]
	if !ok {
		s.send(cs, nil) // empty reply means "unsupported", per RSP convention
		return
	}
	resp := h(cs, payload[1:])
	s.send(cs, resp)
}

func (s *Server) send(cs *connState, data []byte) {
	pkt := framePacket(data)
	cs.lastSent = pkt
	cs.conn.Write(pkt)
}

// dispatchTable maps a packet's leading byte to its handler. Keys follow
// the GDB RSP command set: '?' last-stop-reason, 'g'/'G' read/write all
// registers, 'm'/'M' read/write memory, 'c' continue, 's' step,
// 'Z'/'z' insert/remove breakpoint, 'q'/'Q' general query/set,
// 'p' read one register, 'H' set thread for subsequent operations (we run
// a single guest thread, so this is acked and ignored), 'D' detach.
var dispatchTable = map[byte]handler{
	'?': handleStopReason,
	'g': handleReadRegisters,
	'G': handleWriteRegisters,
	'p': handleReadRegister,
	'm': handleReadMemory,
	'M': handleWriteMemory,
	'c': handleContinue,
	's': handleStep,
	'Z': handleInsertBreakpoint,
	'z': handleRemoveBreakpoint,
	'q': handleQuery,
	'Q': handleSet,
	'H': handleSetThread,
	'D': handleDetach,
}

func handleStopReason(s *connState, _ string) []byte {
	return []byte(fmt.Sprintf("S%02x", 5)) // SIGTRAP
}

func handleReadRegisters(s *connState, _ string) []byte {
	return []byte(hex.EncodeToString(s.target.ReadRegisters()))
}

func handleWriteRegisters(s *connState, payload string) []byte {
	data, err := hex.DecodeString(payload)
	if err != nil {
		return []byte("E01")
	}
	if err := s.target.WriteRegisters(data); err != nil {
		return []byte("E02")
	}
	return []byte("OK")
}

func handleReadRegister(s *connState, payload string) []byte {
	idx, err := strconv.ParseInt(payload, 16, 32)
	if err != nil {
		return []byte("E01")
	}
	regs := s.target.ReadRegisters()
	const width = 4
	off := int(idx) * width
	if off+width > len(regs) {
		return []byte("E02")
	}
	return []byte(hex.EncodeToString(regs[off : off+width]))
}

func handleReadMemory(s *connState, payload string) []byte {
	addr, length, ok := parseAddrLength(payload)
	if !ok {
		return []byte("E01")
	}
	data, err := s.target.ReadMemory(addr, length)
	if err != nil {
		return []byte("E02")
	}
	return []byte(hex.EncodeToString(data))
}

func handleWriteMemory(s *connState, payload string) []byte {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return []byte("E01")
	}
	addr, _, ok := parseAddrLength(parts[0])
	if !ok {
		return []byte("E01")
	}
	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return []byte("E02")
	}
	if err := s.target.WriteMemory(addr, data); err != nil {
		return []byte("E03")
	}
	return []byte("OK")
}

func handleContinue(s *connState, _ string) []byte {
	reason, err := s.target.Continue()
	if err != nil {
		return []byte("E01")
	}
	return stopReplyPacket(reason)
}

func handleStep(s *connState, _ string) []byte {
	reason, err := s.target.Step()
	if err != nil {
		return []byte("E01")
	}
	return stopReplyPacket(reason)
}

func stopReplyPacket(r StopReason) []byte {
	return []byte(fmt.Sprintf("S%02x", r.Signal))
}

func handleInsertBreakpoint(s *connState, payload string) []byte {
	addr, ok := parseBreakpointAddr(payload)
	if !ok {
		return []byte("E01")
	}
	if err := s.target.SetBreakpoint(addr); err != nil {
		return []byte("E02")
	}
	return []byte("OK")
}

func handleRemoveBreakpoint(s *connState, payload string) []byte {
	addr, ok := parseBreakpointAddr(payload)
	if !ok {
		return []byte("E01")
	}
	if err := s.target.ClearBreakpoint(addr); err != nil {
		return []byte("E02")
	}
	return []byte("OK")
}

// parseBreakpointAddr parses the "type,addr,kind" payload of a Z/z packet,
// discarding type and kind: this stub only implements software breakpoints.
func parseBreakpointAddr(payload string) (uint32, bool) {
	parts := strings.Split(payload, ",")
	if len(parts) < 2 {
		return 0, false
	}
	addr, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(addr), true
}

func parseAddrLength(payload string) (uint32, int, bool) {
	parts := strings.SplitN(payload, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	addr, err1 := strconv.ParseUint(parts[0], 16, 32)
	length, err2 := strconv.ParseUint(parts[1], 16, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uint32(addr), int(length), true
}

func handleSetThread(s *connState, _ string) []byte { return []byte("OK") }

func handleDetach(s *connState, _ string) []byte {
	go s.conn.Close()
	return []byte("OK")
}

func handleQuery(s *connState, payload string) []byte {
	switch {
	case payload == "Supported" || strings.HasPrefix(payload, "Supported:"):
		return []byte("PacketSize=4000;QStartNoAckMode+")
	case payload == "Attached":
		return []byte("1")
	case strings.HasPrefix(payload, "Rcmd,"):
		return handleMonitorCommand(s, payload[len("Rcmd,"):])
	}
	return nil
}

func handleSet(s *connState, payload string) []byte {
	switch {
	case payload == "StartNoAckMode":
		s.ackMode = false
		s.parser.ackMode = false
		return []byte("OK")
	}
	return nil
}

// handleMonitorCommand decodes a hex-encoded "monitor" command string (the
// 'q''Rcmd,' convention GDB's `monitor` command uses), runs it at once
// through MacroHost.RunMonitorCommand, and returns the command's output
// (or its error text) hex-encoded.
func handleMonitorCommand(s *connState, hexCmd string) []byte {
	raw, err := hex.DecodeString(hexCmd)
	if err != nil {
		return []byte("E01")
	}
	out, err := s.macros.RunMonitorCommand(string(raw))
	if err != nil {
		return []byte(hex.EncodeToString([]byte(err.Error())))
	}
	return []byte(hex.EncodeToString([]byte(out)))
}
