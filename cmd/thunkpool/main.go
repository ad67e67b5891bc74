package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/wippyai/thunk-runtime/config"
	thunkerrors "github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/host"
	"github.com/wippyai/thunk-runtime/thunk"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to HCL pool configuration")
		capacity    = flag.Int("capacity", 0, "Number of slots (overrides config)")
		strategy    = flag.String("strategy", "", "Slot search strategy: round-robin or free-list (overrides config)")
		bindCount   = flag.Int("bind", 4, "Number of delegates to bind")
		release     = flag.Int("release", 0, "Number of thunks to release after binding")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *capacity, *strategy, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *bindCount, *release); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, capacity int, strategy string, verbose bool) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if capacity != 0 {
		cfg.Capacity = capacity
	}
	if strategy != "" {
		cfg.Strategy = strategy
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config, bindCount, releaseCount int) error {
	ctx := context.Background()

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := newSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	fmt.Printf("Pool: %s\n", s.pool.ID())
	fmt.Printf("Capacity: %d, strategy: %s\n", s.pool.Capacity(), s.pool.Strategy())
	fmt.Printf("Shape: %s\n\n", s.key)

	var entries []thunk.EntryPoint
	for i := 0; i < bindCount; i++ {
		entry, k, err := s.bind()
		if errors.Is(err, thunkerrors.ErrPoolExhausted) {
			fmt.Printf("bind k=%d: pool exhausted\n", k)
			break
		}
		if err != nil {
			return fmt.Errorf("bind k=%d: %w", k, err)
		}
		entries = append(entries, entry)

		export, _ := host.EntryExport(s.pool, entry)
		res, err := s.call(ctx, entry, 10, 1)
		if err != nil {
			return fmt.Errorf("call entry %d: %w", entry, err)
		}
		fmt.Printf("entry %-4d %-10s k=%-3d f(10, 1) = %d\n", entry, export, k, res)
	}

	for i := 0; i < releaseCount && i < len(entries); i++ {
		if err := s.pool.ReleaseThunk(entries[i]); err != nil {
			return fmt.Errorf("release entry %d: %w", entries[i], err)
		}
		fmt.Printf("released entry %d\n", entries[i])
	}

	st := s.pool.Stats()
	fmt.Printf("\nBound: %d/%d, cursor: %d\n", st.Bound, st.Capacity, st.Cursor)
	fmt.Printf("Allocations: %d, releases: %d, exhaustions: %d\n", st.Allocations, st.Releases, st.Exhaustions)
	fmt.Printf("Invocations: %d, faults: %d\n", st.Invocations, st.Faults)

	return nil
}
