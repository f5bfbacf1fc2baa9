// Command inkling is an interactive terminal editor with inline ghost-text
// suggestions. Press ESC . (Alt-.) to request a continuation at the caret;
// Tab, Enter or → keep it and any other key discards it. Submitted lines
// are written to stdout as TOML.
//
// Usage:
//
//	inkling                   # interactive, TOML on screen
//	inkling > log.toml        # editor on screen, TOML to file
//	inkling --daemon          # complete through a running inklingd
//	inkling key set sk-...    # store the API key
//	inkling debug on          # answer "DUMMY RESPONSE" without network I/O
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	inkling "github.com/Paranoid-AF/inkling"
	"github.com/Paranoid-AF/inkling/complete"
	"github.com/Paranoid-AF/inkling/store"
	"github.com/Paranoid-AF/inkling/suggest"
	"github.com/Paranoid-AF/inkling/surface"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const prompt = "> "

func main() {
	cmd := &cli.Command{
		Name:    "inkling",
		Usage:   "Inline text suggestions in your terminal",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "daemon",
				Usage: "complete through a running inklingd instead of calling the service directly",
			},
			&cli.StringFlag{
				Name:    "socket",
				Usage:   "daemon socket path",
				Sources: cli.EnvVars("INKLING_SOCKET"),
			},
			&cli.StringFlag{
				Name:  "surface",
				Value: "plain",
				Usage: "editable region: plain (single line) or textbox (Enter adds a block, Ctrl-D submits)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "write logs to this file instead of stderr",
				Sources: cli.EnvVars("INKLING_LOG_FILE"),
			},
		},
		Action: runEditor,
		Commands: []*cli.Command{
			{
				Name:  "key",
				Usage: "Manage the completion service API key",
				Commands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "Store the API key",
						ArgsUsage: "<key>",
						Action:    setKey,
					},
					{
						Name:   "clear",
						Usage:  "Remove the stored API key",
						Action: clearKey,
					},
				},
			},
			{
				Name:  "debug",
				Usage: "Toggle the offline debug response",
				Commands: []*cli.Command{
					{
						Name:   "on",
						Usage:  "Answer every request with a fixed response after a delay",
						Action: setDebug(true),
					},
					{
						Name:   "off",
						Usage:  "Use the completion service",
						Action: setDebug(false),
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration and any warnings",
				Action: showConfig,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "inkling:", err)
		os.Exit(1)
	}
}

func runEditor(ctx context.Context, cmd *cli.Command) error {
	logger, closeLog, err := newLogger(cmd.String("log-file"), cmd.Bool("verbose"))
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	doc := surface.NewDocument()
	var field surface.Surface
	multiline := false
	switch cmd.String("surface") {
	case "plain":
		field = surface.NewPlainField("")
	case "textbox":
		field = surface.NewTextbox("")
		multiline = true
	default:
		return fmt.Errorf("unknown surface %q (want plain or textbox)", cmd.String("surface"))
	}
	doc.Focus(field)

	st := store.Open(inkling.StorePath())
	defer st.Close()

	completer, check := buildCompleter(cmd, st)
	overlay := surface.NewOverlay()

	ctrl, err := suggest.Activate(ctx, doc, suggest.Options{
		Completer:       complete.WithIndicator(completer, overlay),
		CheckCredential: check,
		Logger:          logger,
	})
	if err != nil {
		// Editing still works; it just never suggests anything.
		fmt.Fprintf(os.Stderr, "inkling: suggestions disabled: %v\n", err)
	} else {
		defer ctrl.Close()
	}

	editor, err := NewEditor()
	if err != nil {
		return err
	}
	defer editor.Close()

	tty := editor.Tty()
	fmt.Fprintf(tty, "inkling %s\r\n", Version)
	fmt.Fprintf(tty, "  ESC .        suggest a continuation\r\n")
	fmt.Fprintf(tty, "  Tab Enter →  keep it, any other key discards it\r\n")
	fmt.Fprintf(tty, "  Ctrl-C       exit\r\n\r\n")

	h := &host{
		doc:       doc,
		field:     field,
		ctrl:      ctrl,
		overlay:   overlay,
		view:      newView(tty, prompt),
		multiline: multiline,
		tty:       tty,
		out:       termWriter(os.Stdout),
		log:       logger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return h.run(ctx, editor.Keys(ctx))
}

// buildCompleter returns the completer for the editor and the credential
// check that gates activation.
func buildCompleter(cmd *cli.Command, st *store.Store) (complete.Completer, func(context.Context) error) {
	if cmd.Bool("daemon") {
		sock := cmd.String("socket")
		if sock == "" {
			sock = inkling.SocketPath()
		}
		remote := complete.NewRemote(sock)
		return remote, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			ok, err := remote.Status(ctx)
			if err != nil {
				return fmt.Errorf("daemon status: %w", err)
			}
			if !ok {
				return inkling.ErrAuthenticationMissing
			}
			return nil
		}
	}

	cfg, err := inkling.LoadConfig()
	if err != nil {
		slog.Warn("config load failed, using defaults", "error", err)
		cfg = inkling.DefaultConfig()
	}
	for _, w := range inkling.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}
	return complete.NewClientFromConfig(cfg, st), suggest.RequireKey(inkling.ResolveAPIKey(st))
}

// newLogger logs to path when set, otherwise to stderr with line endings
// fixed up for raw mode.
func newLogger(path string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = termWriter(os.Stderr)
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func setKey(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	if key == "" {
		return errors.New("usage: inkling key set <key>")
	}
	return updateStore(ctx, cmd, inkling.KeyAPIKey, key)
}

func clearKey(ctx context.Context, cmd *cli.Command) error {
	return updateStore(ctx, cmd, inkling.KeyAPIKey, "")
}

func setDebug(on bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		value := "false"
		if on {
			value = "true"
		}
		return updateStore(ctx, cmd, inkling.KeyDebug, value)
	}
}

// updateStore writes key (deleting it when value is empty) and asks a
// running daemon to pick up the change.
func updateStore(ctx context.Context, cmd *cli.Command, key, value string) error {
	st := store.Open(inkling.StorePath())
	defer st.Close()

	var err error
	if value == "" {
		err = st.Delete(key)
	} else {
		err = st.Set(key, value)
	}
	if err != nil {
		return err
	}
	fmt.Printf("updated %s in %s\n", key, st.Path())

	sock := cmd.String("socket")
	if sock == "" {
		sock = inkling.SocketPath()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if configured, err := complete.NewRemote(sock).Reload(ctx); err == nil {
		fmt.Printf("daemon reloaded (configured: %v)\n", configured)
	}
	return nil
}

func showConfig(_ context.Context, _ *cli.Command) error {
	cfg, err := inkling.LoadConfig()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	for _, w := range inkling.ValidateConfig(cfg) {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	return nil
}
