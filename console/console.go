// Package console is an interactive single-key stepping front end for a
// session on a raw terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
)

const help = `keys:
  s  run one scheduling slice
  i  run one instruction
  c  continue until a breakpoint, a fault or exit
  p  pause a continue
  t  list threads
  r  registers of the last thread
  d  disassemble at its pc
  o  program output so far
  h  this help
  q  quit
`

type Console struct {
	sess *session.Session
	in   io.Reader
	out  io.Writer

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New reads keys from in and writes to out. Line feeds are written as CR LF,
// which a raw terminal needs.
func New(sess *session.Session, in io.Reader, out io.Writer) *Console {
	return &Console{sess: sess, in: in, out: out}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := fmt.Sprintf(format, args...)
	io.WriteString(c.out, strings.ReplaceAll(s, "\n", "\r\n"))
}

// Run handles keys until q, end of input or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	defer c.wg.Wait()
	c.printf("%s", help)

	buf := make([]byte, 1)
	for ctx.Err() == nil {
		n, err := c.in.Read(buf)
		if err == io.EOF {
			c.pauseRun()
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if !c.key(ctx, buf[0]) {
			return nil
		}
	}
	c.pauseRun()
	return ctx.Err()
}

// pauseRun stops a continue started from the console, if one is running.
func (c *Console) pauseRun() {
	if c.isRunning() {
		c.sess.Pause()
	}
}

func (c *Console) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// key handles one key press and reports whether to keep going.
func (c *Console) key(ctx context.Context, k byte) bool {
	switch k {
	case 'q', 3: // ctrl-c arrives as a byte in raw mode
		c.pauseRun()
		return false
	case 'h', '?':
		c.printf("%s", help)
		return true
	case 'p':
		c.pauseRun()
		return true
	case '\r', '\n', ' ':
		return true
	}

	if c.isRunning() {
		c.printf("running, press p to pause\n")
		return true
	}

	switch k {
	case 's':
		c.step(c.sess.Step)
	case 'i':
		c.step(c.sess.StepInstruction)
	case 'c':
		c.cont(ctx)
	case 't':
		c.threads()
	case 'r':
		c.registers()
	case 'd':
		c.disassemble()
	case 'o':
		c.printf("%s\n", c.sess.Output())
	default:
		c.printf("unknown key %q, h for help\n", k)
	}
	return true
}

func (c *Console) step(fn func() (kernel.SliceResult, error)) {
	res, err := fn()
	switch {
	case err != nil:
		c.printf("stopped: %v\n", err)
	case res.Idle:
		if c.sess.AliveThreadCount() == 0 {
			c.printf("all threads exited\n")
		} else {
			c.printf("idle, next wakeup at %dus\n", res.NextDeadline)
		}
	case res.Breakpoint != nil:
		c.printf("thread %d (%s) breakpoint at 0x%08X\n", res.Thread.ID, res.Thread.Name, res.Breakpoint.PC)
	default:
		c.printf("thread %d (%s) ran %d instructions, pc 0x%08X\n", res.Thread.ID, res.Thread.Name, res.Executed, res.Thread.Context.PC)
	}
}

func (c *Console) cont(ctx context.Context) {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reason, err := c.sess.Run(ctx)

		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		if err != nil {
			c.printf("%s: %v\n", reason, err)
			return
		}
		c.printf("%s\n", reason)
	}()
}

func (c *Console) threads() {
	for _, t := range c.sess.Threads() {
		wait := ""
		if t.Wait != nil {
			wait = " " + t.Wait.String()
		}
		c.printf("%4d %-24s prio 0x%02X %-8s pc 0x%08X%s\n", t.ID, t.Name, t.Priority, t.Status, t.PC, wait)
	}
}

func (c *Console) registers() {
	regs, err := c.sess.Registers(0)
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	var b strings.Builder
	for i := 0; i < 32; i++ {
		name := emulator.GprNames[i]
		fmt.Fprintf(&b, "%-4s %08X", name, regs[name])
		if i%4 == 3 {
			b.WriteString("\n")
		} else {
			b.WriteString("  ")
		}
	}
	for _, name := range []string{"pc", "npc", "hi", "lo"} {
		fmt.Fprintf(&b, "%-4s %08X  ", name, regs[name])
	}
	b.WriteString("\n")
	c.printf("%s", b.String())
}

func (c *Console) disassemble() {
	regs, err := c.sess.Registers(0)
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	lines, err := c.sess.Disassemble(regs["pc"], 8)
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	c.printf("%s\n", strings.Join(lines, "\n"))
}

// RunTerminal runs a console on stdin and stdout, in raw mode when stdin is a
// terminal.
func RunTerminal(ctx context.Context, sess *session.Session) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("console: failed to set raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}
	return New(sess, os.Stdin, os.Stdout).Run(ctx)
}
