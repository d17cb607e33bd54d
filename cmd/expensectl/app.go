package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"spendly/internal/apiclient"
	"spendly/internal/auth"
	"spendly/internal/currency"
	"spendly/internal/models"
	"spendly/internal/prefs"
	"spendly/internal/provider"
)

var errNotSignedIn = errors.New("not signed in, run 'expensectl login' first")

// app holds everything a command needs. Build it with newApp and Close it when
// the command is done.
type app struct {
	prefs    *prefs.Repository
	client   *apiclient.Client
	provider *provider.Provider
	auth     *auth.Manager
	rates    *currency.Service
}

func openStore(ctx context.Context) (prefs.Store, error) {
	backend := strings.ToLower(viper.GetString("prefs.backend"))
	switch backend {
	case "", "sqlite":
		return prefs.NewSQLiteStore(viper.GetString("prefs.path"))
	case "redis":
		return prefs.NewRedisStoreFromURL(ctx, viper.GetString("prefs.redis_url"), viper.GetString("prefs.redis_prefix"))
	case "memory":
		return prefs.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown preference backend %q", backend)
}

func newApp(ctx context.Context) (*app, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	repo := prefs.NewRepository(store)

	client, err := apiclient.New(viper.GetString("api_url"))
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	p := provider.New(client, repo)
	return &app{
		prefs:    repo,
		client:   client,
		provider: p,
		auth:     auth.NewManager(client, repo, p),
		rates:    currency.NewService(repo, currency.WithURL(viper.GetString("rates_url"))),
	}, nil
}

func (a *app) Close() error {
	return a.prefs.Close()
}

// signedIn restores the saved session and loads the user's expenses. An expired
// session is reported as errNotSignedIn; any other load failure only warns.
func (a *app) signedIn(ctx context.Context) (*models.Identity, error) {
	id, err := a.auth.Restore(ctx)
	switch {
	case apiclient.IsUnauthorized(err):
		log.Debug().Err(err).Msg("Saved session rejected by the API")
		return nil, errNotSignedIn
	case err != nil && id == nil:
		return nil, err
	case err != nil:
		log.Warn().Err(err).Msg("Could not load expenses, showing saved categories only")
	}
	if id == nil {
		return nil, errNotSignedIn
	}
	return id, nil
}

// withApp opens the app, runs fn and closes the app again.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close preferences")
		}
	}()
	return fn(a)
}

// withSession is withApp for commands that need a signed-in user.
func withSession(ctx context.Context, fn func(*app, *models.Identity) error) error {
	return withApp(ctx, func(a *app) error {
		id, err := a.signedIn(ctx)
		if err != nil {
			return err
		}
		return fn(a, id)
	})
}
