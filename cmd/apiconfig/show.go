package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/alexjbarnes/apiconfig/auth"
	"github.com/alexjbarnes/apiconfig/config"
)

type showFlags struct {
	format string
	auth   string
}

func parseShowFlags(name string, args []string) (*showFlags, error) {
	f := &showFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.format, "format", "json", "output format: json or yaml")
	fs.StringVar(&f.auth, "auth", "", "attach a preset auth strategy: fiken, oneflow or tripletex")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.format != "json" && f.format != "yaml" {
		return nil, fmt.Errorf("unknown format %q", f.format)
	}
	return f, nil
}

func runShow(ctx context.Context, settings *config.Settings, logger *slog.Logger, args []string, w io.Writer) error {
	flags, err := parseShowFlags("show", args)
	if err != nil {
		return err
	}

	m, err := newManager(settings, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	cfg, err := m.LoadClientConfig(ctx)
	if err != nil {
		return err
	}

	if flags.auth != "" {
		s, err := presetStrategy(flags.auth, logger)
		if err != nil {
			return err
		}
		cfg.AuthStrategy = s
	}

	return render(w, flags.format, cfg.Redacted())
}

func presetStrategy(name string, logger *slog.Logger) (auth.Strategy, error) {
	var (
		s   auth.Strategy
		err error
	)
	switch name {
	case "fiken":
		s, err = auth.FikenFromEnv(auth.WithLogger(logger))
	case "oneflow":
		s, err = auth.OneFlowFromEnv()
	case "tripletex":
		s, err = auth.TripletexFromEnv(auth.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown auth preset %q", name)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}
