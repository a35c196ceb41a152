// Command simulate plays a generated season against a running matchday
// server and verifies its leaderboard.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/smfc/matchday/internal/simulate"
	"github.com/smfc/matchday/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("simulate: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop already called
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "simulate",
		Usage: "play a generated season against a matchday server (replaces its roster)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service", EnvVars: []string{"MATCHDAY_URL"}},
			&cli.IntFlag{Name: "players", Value: simulate.DefaultPlayers, Usage: "roster size"},
			&cli.IntFlag{Name: "matches", Value: simulate.DefaultMatches, Usage: "fixtures to play"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * 2, Usage: "concurrent prediction submitters"},
			&cli.DurationFlag{Name: "timeout", Value: simulate.DefaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "settle", Value: simulate.DefaultSettleTimeout, Usage: "how long to wait for queued predictions"},
			&cli.Float64Flag{Name: "duplicates", Value: simulate.DefaultDuplicateRate, Usage: "share of submissions sent twice"},
			&cli.Uint64Flag{Name: "seed", Usage: "generator seed (0 picks a random one)"},
			&cli.StringFlag{Name: "output", Usage: "write the season as JSON for squadctl score"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if c.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}

			ctx, cancel := context.WithTimeout(c.Context, defaultRunTimeout)
			defer cancel()

			_, err := simulate.Run(ctx, simulate.Config{
				BaseURL:       c.String("url"),
				Players:       c.Int("players"),
				Matches:       c.Int("matches"),
				Workers:       c.Int("workers"),
				Timeout:       c.Duration("timeout"),
				SettleTimeout: c.Duration("settle"),
				DuplicateRate: c.Float64("duplicates"),
				Seed:          c.Uint64("seed"),
				OutputFile:    c.String("output"),
			})
			return err
		},
	}
}
