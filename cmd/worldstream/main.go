package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"worldstream/internal/config"
	"worldstream/internal/trace"
	"worldstream/internal/world"
)

const summaryEvery = 600

func main() {
	var (
		cfgPath     string
		ticks       int
		speed       float64
		pattern     string
		paceRange   float64
		previewPath string
		tracePath   string
		realtime    bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to world configuration file (json or yaml)")
	flag.IntVar(&ticks, "ticks", 3600, "number of ticks to simulate (0 runs until interrupted)")
	flag.Float64Var(&speed, "speed", 4, "observer displacement per tick in pixels")
	flag.StringVar(&pattern, "pattern", "walk", "observer movement: walk or pace")
	flag.Float64Var(&paceRange, "range", 5000, "half-width of the pace pattern in pixels")
	flag.StringVar(&previewPath, "preview", "", "write a PNG of the final window to this path")
	flag.StringVar(&tracePath, "trace", "", "write a zstd JSONL journal to this path (overrides trace.path)")
	flag.BoolVar(&realtime, "realtime", false, "pace ticks at tick.rate instead of running flat out")
	flag.Parse()

	logger := log.New(os.Stdout, "[worldstream] ", log.LstdFlags|log.Lmicroseconds)

	if wrote, err := writeConfigFromEnv(cfgPath); err != nil {
		logger.Fatalf("sync config from environment: %v", err)
	} else if wrote {
		logger.Printf("wrote environment configuration to %s", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if tracePath == "" {
		tracePath = cfg.Trace.Path
	}

	move, err := observerPattern(pattern, speed, paceRange)
	if err != nil {
		logger.Fatalf("observer: %v", err)
	}

	opts := world.Options{Logger: logger}
	var journal *trace.Journal
	if tracePath != "" {
		journal, err = trace.Open(tracePath)
		if err != nil {
			logger.Fatalf("open trace: %v", err)
		}
		opts.Sink = journal
		logger.Printf("journal %s run %s", tracePath, journal.RunID())
	}

	mgr, err := world.NewManager(cfg, 0, opts)
	if err != nil {
		logger.Fatalf("initialise world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	runErr := run(ctx, mgr, cfg, logger, ticks, move, realtime)

	if previewPath != "" {
		if err := mgr.SavePreview(previewPath); err != nil {
			logger.Printf("preview: %v", err)
		} else {
			logger.Printf("preview written to %s", previewPath)
		}
	}
	if journal != nil {
		if err := journal.Close(); err != nil {
			logger.Printf("close journal: %v", err)
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Fatalf("run: %v", runErr)
	}
}

func run(ctx context.Context, mgr *world.Manager, cfg *config.Config, logger *log.Logger, ticks int, move func(uint64) float64, realtime bool) error {
	dt := cfg.Tick.Rate.Duration()
	var ticker *time.Ticker
	if realtime && dt > 0 {
		ticker = time.NewTicker(dt)
		defer ticker.Stop()
	}

	var last world.TickReport
	for n := uint64(1); ticks <= 0 || n <= uint64(ticks); n++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				summarize(logger, mgr, last)
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			summarize(logger, mgr, last)
			return err
		}

		last = mgr.Tick(move(n), dt)
		if n%summaryEvery == 0 {
			summarize(logger, mgr, last)
			mgr.RecordTick(last)
		}
	}
	summarize(logger, mgr, last)
	return nil
}

func summarize(logger *log.Logger, mgr *world.Manager, r world.TickReport) {
	s := mgr.Stats()
	logger.Printf("tick=%d clock=%s window=%s blocks=%d trunks=%d leaves=%d falling=%d",
		r.Tick, r.Clock, r.Window, s.Blocks, s.Trunks, s.Leaves, s.FallingLeaves)
}

// observerPattern returns the observer x for tick n.
func observerPattern(name string, speed, halfRange float64) (func(uint64) float64, error) {
	switch name {
	case "walk":
		return func(n uint64) float64 { return float64(n) * speed }, nil
	case "pace":
		if halfRange <= 0 || speed <= 0 {
			return nil, fmt.Errorf("pace needs positive speed and range")
		}
		leg := 2 * halfRange
		return func(n uint64) float64 {
			d := float64(n) * speed
			cycle := d - leg*2*float64(int64(d/(2*leg)))
			if cycle < leg {
				return -halfRange + cycle
			}
			return halfRange - (cycle - leg)
		}, nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", name)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
