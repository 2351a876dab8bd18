package conformance

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

const defaultTimeout = 5 * time.Second

// Runner runs every test of a suite on its own session.
type Runner struct {
	Config session.Config
	// Parallel bounds concurrently running programs, 0 means one per CPU.
	Parallel int
}

func NewRunner(config session.Config) *Runner {
	// results must not depend on how fast the host is
	config.Clock = session.ClockVirtual
	return &Runner{Config: config}
}

func (r *Runner) Run(ctx context.Context, suite *Suite) *GradescopeOutput {
	results := make([]GradescopeTest, len(suite.Tests))

	g, ctx := errgroup.WithContext(ctx)
	limit := r.Parallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for i := range suite.Tests {
		i := i
		g.Go(func() error {
			results[i] = r.runTest(ctx, suite, suite.Tests[i])
			return nil
		})
	}
	g.Wait()

	out := &GradescopeOutput{Tests: results}
	for _, t := range results {
		out.Score += float64(t.Score)
	}
	return out
}

func (r *Runner) runTest(ctx context.Context, suite *Suite, tc TestCase) GradescopeTest {
	result := CreateTestCase(tc.Name, tc.Points, tc.Visibility)

	timeout := defaultTimeout
	if tc.TimeoutMs > 0 {
		timeout = time.Duration(tc.TimeoutMs) * time.Millisecond
	} else if suite.TimeoutMs > 0 {
		timeout = time.Duration(suite.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sess, err := session.New(r.Config)
	if err != nil {
		result.OutputPrintLn(err.Error())
		result.SetStatus(false)
		return result
	}
	if _, err := sess.LoadProgram(tc.Source); err != nil {
		result.OutputPrintLn("Program did not assemble: " + err.Error())
		result.SetStatus(false)
		return result
	}
	var args []byte
	if tc.Args != "" {
		args = append([]byte(tc.Args), 0)
	}
	main, err := sess.CreateMainThread(args)
	if err != nil {
		result.OutputPrintLn(err.Error())
		result.SetStatus(false)
		return result
	}

	reason, runErr := runToEnd(ctx, sess)
	util.LogF("conformance: %s stopped: %s %v", tc.Name, reason, runErr)

	passed := true
	var fault *session.Fault
	switch {
	case errors.As(runErr, &fault):
		if !tc.ExpectFault {
			result.OutputPrintLn("Program faulted: " + fault.Error())
			passed = false
		}
	case tc.ExpectFault:
		result.OutputPrintLn("Expected a fault, but the program did not fault")
		passed = false
	case errors.Is(runErr, context.DeadlineExceeded):
		result.OutputPrintLn(fmt.Sprintf("Program did not finish within %v", timeout))
		passed = false
	case runErr != nil:
		result.OutputPrintLn("Program stopped: " + runErr.Error())
		passed = false
	}

	output := sess.Output()
	if tc.ExpectedOutput != nil && output != *tc.ExpectedOutput {
		result.OutputPrintLn(fmt.Sprintf("Expected output:\n%s\nActual output:\n%s", *tc.ExpectedOutput, output))
		passed = false
	}

	if len(tc.ExpectedRegisters) > 0 {
		regs, err := sess.Registers(main.ID)
		if err != nil {
			result.OutputPrintLn("Could not read registers: " + err.Error())
			passed = false
		}
		names := make([]string, 0, len(tc.ExpectedRegisters))
		for name := range tc.ExpectedRegisters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			want := tc.ExpectedRegisters[name]
			got, ok := regs[name]
			if !ok {
				result.OutputPrintLn(fmt.Sprintf("Unknown register %q", name))
				passed = false
				continue
			}
			if got != want {
				result.OutputPrintLn(fmt.Sprintf("Register %s: expected 0x%08X, got 0x%08X", name, want, got))
				passed = false
			}
		}
	}

	result.SetStatus(passed)
	return result
}

// runToEnd runs through breakpoints, which a suite program has no use for.
func runToEnd(ctx context.Context, sess *session.Session) (session.StopReason, error) {
	for {
		reason, err := sess.Run(ctx)
		if reason != session.StopBreakpoint || err != nil {
			return reason, err
		}
	}
}
