package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/josh-kwaku/grey-bank-client/internal/config"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bankcli:", err)
		os.Exit(1)
	}
	logger := logging.Init("bankcli", cfg.LogLevel, cfg.AppEnv, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code: 0 on success,
// 1 when the command failed and 2 on a usage error.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "bankcli: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	a, closeApp, err := newApp(ctx, cfg, logger, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "bankcli:", err)
		return 1
	}
	defer closeApp()

	if err := a.session.Bootstrap(ctx); err != nil {
		fmt.Fprintln(stderr, "bankcli:", err)
	}

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintln(stderr, "bankcli:", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: bankcli <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
}
