package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexjbarnes/apiconfig/config"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

var Version = "dev"

const usage = `usage: apiconfig <command> [flags]

commands:
  show             print the resolved client config
  watch            print the resolved client config on every change
  tripletex-token  obtain a Tripletex session token and store it
  version          print the version
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintln(stdout, Version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	logger := logging.NewLogger(settings.Environment, settings.LogLevel)
	logger.Debug("apiconfig starting",
		slog.String("version", Version),
		slog.String("command", cmd),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "show":
		return runShow(ctx, settings, logger, args, stdout)
	case "watch":
		return runWatch(ctx, settings, logger, args, stdout)
	case "tripletex-token":
		return runTripletexToken(ctx, settings, logger, args, stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newManager layers the config file, when configured, over the environment.
// The process settings share the environment prefix and are left out.
func newManager(settings *config.Settings, logger *slog.Logger) (*config.Manager, error) {
	ep := config.NewEnvProvider(
		config.WithDotenv(".env"),
		config.WithExclude(config.SettingsEnvKeys()...),
	)
	providers := []config.Provider{ep}

	if settings.ConfigFile != "" {
		fp, err := config.NewFileProvider(settings.ConfigFile)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}

	return config.NewManager(providers, config.WithLogger(logger))
}
