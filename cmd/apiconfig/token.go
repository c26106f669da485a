package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alexjbarnes/apiconfig/auth"
	"github.com/alexjbarnes/apiconfig/config"
	"github.com/alexjbarnes/apiconfig/internal/httputil"
	"github.com/alexjbarnes/apiconfig/storage"
)

const defaultTripletexKey = "tripletex"

func runTripletexToken(ctx context.Context, settings *config.Settings, logger *slog.Logger, args []string, w io.Writer) error {
	var (
		key   string
		force bool
	)
	fs := flag.NewFlagSet("tripletex-token", flag.ContinueOnError)
	fs.StringVar(&key, "key", defaultTripletexKey, "storage key for the session token")
	fs.BoolVar(&force, "force", false, "fetch a new token even if a stored one is still valid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc := settings.StorageConfig()
	sc.Logger = logger
	store, err := storage.New(sc)
	if err != nil {
		return fmt.Errorf("opening token storage: %w", err)
	}
	defer store.Close()

	return tripletexToken(ctx, store, key, force, logger, w, httputil.NewClient())
}

// tripletexToken prints a valid session token, reusing the stored one when
// it has not expired and fetching and storing a new one otherwise.
func tripletexToken(ctx context.Context, store storage.Storage, key string, force bool, logger *slog.Logger, w io.Writer, client auth.Doer) error {
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithHTTPClient(client),
	}

	if !force {
		stored, err := store.Load(ctx, key)
		if err != nil {
			return err
		}
		if stored != nil && stored.AccessToken != "" {
			if exp := stored.ExpiresAt(); !exp.IsZero() {
				opts = append(opts, auth.WithSessionToken(stored.AccessToken, exp))
			}
		}
	}

	s, err := auth.TripletexFromEnv(opts...)
	if err != nil {
		return err
	}

	if !s.IsExpired() {
		token, exp := s.Session()
		logger.Info("reusing stored session token",
			slog.String("key", key),
			slog.Time("expires_at", exp),
		)
		fmt.Fprintln(w, token)
		return nil
	}

	res, err := auth.RefreshWithRetry(ctx, s, auth.DefaultBackOff())
	if err != nil {
		return fmt.Errorf("creating session token: %w", err)
	}

	if err := storage.SaveResult(ctx, store, key, res); err != nil {
		return err
	}

	logger.Info("session token stored",
		slog.String("key", key),
		slog.Time("expires_at", res.TokenData.ExpiresAt()),
		slog.Duration("valid_for", time.Until(res.TokenData.ExpiresAt()).Round(time.Minute)),
	)
	fmt.Fprintln(w, res.TokenData.AccessToken)
	return nil
}
