// Command inklingd is the inkling daemon.
// It listens on a Unix domain socket for completion requests from inkling
// hosts and answers them from the configured completion service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	inkling "github.com/Paranoid-AF/inkling"
	"github.com/Paranoid-AF/inkling/complete"
	"github.com/Paranoid-AF/inkling/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "inklingd",
		Usage:   "Serve inline text suggestions over a Unix socket",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every request and response to stderr",
			},
			&cli.StringFlag{
				Name:    "socket",
				Usage:   "socket path",
				Sources: cli.EnvVars("INKLING_SOCKET"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "inklingd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	socketPath := cmd.String("socket")
	if socketPath == "" {
		socketPath = inkling.SocketPath()
	}

	st := store.Open(inkling.StorePath())
	defer st.Close()

	slog.Info("starting", "socket", socketPath, "config_dir", inkling.ConfigDir())

	srv, err := NewServer(socketPath, engineFactory(st))
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		srv.Close()
	}()

	slog.Info("ready")
	return srv.Serve()
}

// engineFactory builds completion clients from the config on disk, reading
// the API key and debug flag from st.
func engineFactory(st *store.Store) EngineFactory {
	return func() Engine {
		cfg, err := inkling.LoadConfig()
		if err != nil {
			slog.Warn("config load failed, using defaults", "error", err)
			cfg = inkling.DefaultConfig()
		}
		for _, w := range inkling.ValidateConfig(cfg) {
			slog.Warn("config", "warning", w)
		}
		client := complete.NewClientFromConfig(cfg, st)
		if !client.Configured() {
			slog.Warn("no API key configured", "hint", "run 'inkling key set <key>' or set INKLING_API_KEY")
		}
		return client
	}
}
