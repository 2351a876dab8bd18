package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/conformance"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/console"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/debugServer"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/monitor"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

const usage = `usage:
  emulator                          debug server on TCP
  emulator languageServer [debug]   debug server on stdin/stdout
  emulator serve [program.s]        debug server and websocket monitor
  emulator run program.s [args]     run to completion and print the output
  emulator console program.s        interactive stepping console
  emulator conformance suite.json [results.json]
  emulator assemble program.s`

func loadConfig() session.Config {
	path := os.Getenv("PSP_EMULATOR_CONFIG")
	if path == "" {
		path = session.DefaultConfigPath
		if _, err := os.Stat(path); err != nil {
			return session.DefaultConfig()
		}
	}
	cfg, err := session.LoadConfig(path)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	return cfg
}

// newInjector wires the services every command draws from.
func newInjector(cfg session.Config, programPath string) *do.Injector {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideNamedValue(injector, "programPath", programPath)
	do.Provide(injector, func(i *do.Injector) (*session.Session, error) {
		return loadSession(do.MustInvoke[session.Config](i), do.MustInvokeNamed[string](i, "programPath"))
	})
	do.Provide(injector, func(i *do.Injector) (*debugServer.Server, error) {
		return debugServer.NewServer(do.MustInvoke[session.Config](i))
	})
	do.Provide(injector, func(i *do.Injector) (*monitor.Hub, error) {
		return monitor.NewHub(), nil
	})
	return injector
}

func loadSession(cfg session.Config, path string) (*session.Session, error) {
	if path == "" {
		return nil, errors.New("no program given")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := sess.LoadProgram(string(b)); err != nil {
		var asmErr *session.AssembleError
		if errors.As(err, &asmErr) {
			printDiagnostics(path, asmErr.Diagnostics)
		}
		return nil, err
	}
	return sess, nil
}

func printDiagnostics(path string, diagnostics []assembler.Diagnostic) {
	for _, diag := range diagnostics {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", filepath.Base(path), diag.Range.Start.Line+1, diag.Range.Start.Char, diag.Message)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[1:]
	if len(args) >= 2 && args[len(args)-1] == "-v" {
		util.LoggingEnabled = true
		args = args[:len(args)-1]
	}
	cfg := loadConfig()

	command := ""
	if len(args) > 0 {
		command = args[0]
	}
	programPath := ""
	if len(args) > 1 {
		programPath = args[1]
	}
	injector := newInjector(cfg, programPath)
	defer injector.Shutdown()

	switch {
	case command == "":
		// tcp mode so the server can be debugged remotely
		srv := do.MustInvoke[*debugServer.Server](injector)
		if err := srv.ListenAndServeTCP(ctx, cfg.DebugAddress); err != nil {
			log.Fatalf("failed to listen for tcp traffic: %v", err)
		}
	case command == "languageServer" || command == "debug":
		if programPath == "debug" {
			util.LoggingEnabled = true
		}
		do.MustInvoke[*debugServer.Server](injector).ListenAndServe(ctx)
	case command == "serve":
		if err := serve(ctx, injector, cfg, programPath != ""); err != nil {
			log.Fatalln(err)
		}
	case command == "run" && programPath != "":
		os.Exit(run(ctx, injector, args[2:]))
	case command == "console" && programPath != "":
		sess := mustSession(injector)
		if _, err := sess.CreateMainThread(nil); err != nil {
			log.Fatalln(err)
		}
		if err := console.RunTerminal(ctx, sess); err != nil {
			log.Fatalln(err)
		}
	case command == "conformance" && programPath != "":
		os.Exit(runConformance(ctx, cfg, programPath, args[2:]))
	case command == "assemble" && programPath != "":
		// just for debugging!
		b, err := os.ReadFile(programPath)
		if err != nil {
			log.Fatalf("Could not read file %s: %v", programPath, err)
		}
		res := assembler.AssembleWithConfig(string(b), assembler.AssemblerConfig{Symbols: mustSymbols(cfg)})
		printDiagnostics(programPath, res.Diagnostics)
		for i, w := range res.ProgramText {
			fmt.Printf("%08X: %08X\n", res.TextBase+uint32(i*4), w)
		}
		if res.HasErrors() {
			os.Exit(1)
		}
	default:
		log.Fatalf("Invalid arguments: %v\n%s", os.Args, usage)
	}
}

func mustSession(injector *do.Injector) *session.Session {
	sess, err := do.Invoke[*session.Session](injector)
	if err != nil {
		log.Fatalf("Could not load program: %v", err)
	}
	return sess
}

func mustSymbols(cfg session.Config) map[string]uint32 {
	sess, err := session.New(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	return sess.Symbols()
}

func run(ctx context.Context, injector *do.Injector, programArgs []string) int {
	sess := mustSession(injector)
	var args []byte
	for _, a := range programArgs {
		args = append(append(args, a...), 0)
	}
	if _, err := sess.CreateMainThread(args); err != nil {
		log.Fatalln(err)
	}
	sess.Subscribe(func(ev session.Event) {
		if ev.Type == session.EventOutput {
			os.Stdout.WriteString(ev.Text)
		}
	})

	for {
		reason, err := sess.Run(ctx)
		switch {
		case reason == session.StopBreakpoint:
			continue
		case err != nil:
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", reason, err)
			return 1
		}
		return 0
	}
}

// serve runs the TCP debug server and the monitor together. The monitor
// follows whichever session the debug server loaded last.
func serve(ctx context.Context, injector *do.Injector, cfg session.Config, withProgram bool) error {
	srv := do.MustInvoke[*debugServer.Server](injector)
	hub := do.MustInvoke[*monitor.Hub](injector)
	srv.OnSession = hub.Attach

	g, ctx := errgroup.WithContext(ctx)
	if withProgram {
		sess := mustSession(injector)
		if _, err := sess.CreateMainThread(nil); err != nil {
			return err
		}
		hub.Attach(sess)
		runs := make(chan struct{}, 1)
		hub.OnRun = func() {
			select {
			case runs <- struct{}{}:
			default:
			}
		}
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-runs:
					reason, err := sess.Run(ctx)
					log.Printf("program stopped: %s %v", reason, err)
				}
			}
		})
	}
	g.Go(func() error {
		return srv.ListenAndServeTCP(ctx, cfg.DebugAddress)
	})
	g.Go(func() error {
		return hub.ListenAndServe(ctx, cfg.MonitorAddress)
	})
	return g.Wait()
}

func runConformance(ctx context.Context, cfg session.Config, suitePath string, rest []string) int {
	suite, err := conformance.LoadSuite(suitePath)
	if err != nil {
		log.Fatalln(err)
	}
	report := conformance.NewRunner(cfg).Run(ctx, suite)

	resultsPath := filepath.Join("results", "results.json")
	if len(rest) > 0 {
		resultsPath = rest[0]
	}
	if err := report.Save(resultsPath); err != nil {
		log.Fatalln(err)
	}
	fmt.Printf("%s: %d/%d tests passed, score %g\n", suite.Name, report.Passed(), len(report.Tests), report.Score)
	if report.Passed() != len(report.Tests) {
		return 1
	}
	return 0
}
