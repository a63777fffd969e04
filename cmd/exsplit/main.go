package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
	"github.com/NordCoder/exsplit/internal/domain/auth"
)

const loginHint = "session expired or missing: run `exsplit login` to sign in again"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("exsplit", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	cfgPath := global.String("config", defaultConfigPath(), "path to the YAML config file")
	global.String("profile", "default", "credential profile")
	global.String("log-level", "", "log level (debug, info, warn, error)")
	global.String("api-url", "", "base url of the exsplit API")
	global.String("store", "", "credential store driver (memory, file, redis, postgres)")
	global.Usage = func() { usage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		usage(stderr, global)
		return 2
	}

	cfg, err := config.Load(*cfgPath, global)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}

	a, err := newApp(ctx, cfg, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "init:", err)
		return 1
	}
	defer a.Close(context.WithoutCancel(ctx))

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		switch {
		case errors.Is(err, pflag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			fmt.Fprintln(stderr, err)
			return 2
		case errors.Is(err, auth.ErrAuthentication), errors.Is(err, errNotLoggedIn):
			a.log.Debug("command failed", zap.String("command", rest[0]), zap.Error(err))
			fmt.Fprintln(stderr, err)
			return 1
		default:
			a.log.Error("command failed", zap.String("command", rest[0]), zap.Error(err))
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
	}
	return 0
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: exsplit [global flags] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].help)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "exsplit", "config.yaml")
}
