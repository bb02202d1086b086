// Command dctrace is an interactive console for stepping through captured
// PowerVR2 render-context traces, independent of a live emulator session;
// it does not drive the scheduler.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dcshade/dcore/cmd/dctrace/rendertrace"
)

func main() {
	tracePath := flag.String("trace", "", "path to a captured render-context trace file")
	flag.Parse()

	logger := log.New(os.Stderr, "[dctrace] ", log.LstdFlags)

	var frames []rendertrace.Frame
	if *tracePath != "" {
		f, err := os.Open(*tracePath)
		if err != nil {
			logger.Fatalf("open trace: %v", err)
		}
		defer f.Close()
		frames, err = rendertrace.Load(f)
		if err != nil {
			logger.Fatalf("load trace: %v", err)
		}
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		runScripted(os.Stdin, frames, logger)
		return
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		logger.Fatalf("term.MakeRaw: %v", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	runInteractive(frames, logger)
}

// runInteractive drives a minimal line-editing REPL over the raw
// terminal: backspace, Ctrl-C to quit, and plain command echo. A raw
// terminal is needed so arrow-key history navigation (left as a TODO,
// since dctrace has no command history yet) can be added without
// switching I/O modes later.
func runInteractive(frames []rendertrace.Frame, logger *log.Logger) {
	cur := 0
	fmt.Fprint(os.Stdout, "dctrace> ")
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		b := buf[0]
		switch b {
		case 0x03: // Ctrl-C
			fmt.Fprint(os.Stdout, "\r\n")
			return
		case '\r', '\n':
			fmt.Fprint(os.Stdout, "\r\n")
			cur = execCommand(string(line), frames, cur, logger)
			line = line[:0]
			fmt.Fprint(os.Stdout, "dctrace> ")
		case 0x7f, 0x08: // backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(os.Stdout, "\b \b")
			}
		default:
			line = append(line, b)
			os.Stdout.Write([]byte{b})
		}
	}
}

// runScripted reads commands one per line from r (used when stdin isn't a
// TTY, e.g. piped input in tests or CI) without touching terminal state.
func runScripted(r io.Reader, frames []rendertrace.Frame, logger *log.Logger) {
	cur := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cur = execCommand(sc.Text(), frames, cur, logger)
	}
}

func execCommand(line string, frames []rendertrace.Frame, cur int, logger *log.Logger) int {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return cur
	}
	switch fields[0] {
	case "next":
		if cur+1 < len(frames) {
			cur++
		}
		printFrame(frames, cur)
	case "prev":
		if cur > 0 {
			cur--
		}
		printFrame(frames, cur)
	case "info":
		fmt.Fprintf(os.Stdout, "%d frames loaded\r\n", len(frames))
	case "view":
		if err := rendertrace.Run(frames); err != nil {
			logger.Printf("viewer exited: %v", err)
		}
	case "quit", "exit":
		os.Exit(0)
	default:
		logger.Printf("unknown command %q", fields[0])
	}
	return cur
}

func printFrame(frames []rendertrace.Frame, cur int) {
	if cur < 0 || cur >= len(frames) {
		fmt.Fprintf(os.Stdout, "no frame loaded\r\n")
		return
	}
	fmt.Fprintf(os.Stdout, "frame %d/%d: %d surfaces\r\n", cur, len(frames), frames[cur].SurfaceCount())
}
