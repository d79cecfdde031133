package main

import (
	"context"
	"fmt"

	"github.com/blunt-app/blunt/internal/authority"
	"github.com/blunt-app/blunt/internal/boot"
	"github.com/blunt-app/blunt/internal/handlers"
	"github.com/blunt-app/blunt/internal/model"
	"github.com/blunt-app/blunt/internal/service/blunt"
	"github.com/blunt-app/blunt/internal/service/moderation"
	"github.com/blunt-app/blunt/internal/service/ratelimit"
	"github.com/blunt-app/blunt/internal/service/user"
	"github.com/blunt-app/blunt/internal/store"
	"github.com/blunt-app/blunt/pkg/session"
)

type RateLimiter interface {
	blunt.RateLimiter
	Prune(ctx context.Context) (int, error)
}

type BluntService interface {
	handlers.BluntService
}

type app struct {
	*boot.Config
	kv           *store.KV
	authorities  *authority.Directory
	limiter      RateLimiter
	bluntService BluntService
	userService  handlers.UserService
	signer       *session.Signer
}

func newApp(ctx context.Context, config *boot.Config) (*app, error) {
	kv, err := store.Open(config)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a, err := wire(ctx, config, kv)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, config *boot.Config, kv *store.KV) (*app, error) {
	location, err := config.Location()
	if err != nil {
		return nil, err
	}

	authorities, err := authority.New(config.AuthoritiesFile)
	if err != nil {
		return nil, fmt.Errorf("loading authorities: %w", err)
	}

	keyID, privateKey, err := store.SessionKey(ctx, kv, config.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("loading session key: %w", err)
	}
	signer := session.NewSigner(keyID, privateKey, config.SessionTTL, model.SystemClock)

	limiter := ratelimit.New(store.NewUsageStore(kv), ratelimit.Limits{
		Guest: config.RateLimit.GuestDaily,
		User:  config.RateLimit.UserDaily,
	}, model.SystemClock, location)

	moderator := moderation.New(moderation.Config{
		APIKey:  config.Moderation.APIKey,
		Model:   config.Moderation.Model,
		BaseURL: config.Moderation.BaseURL,
		Timeout: config.Moderation.Timeout,
		RPS:     config.Moderation.RPS,
	})

	return &app{
		Config:       config,
		kv:           kv,
		authorities:  authorities,
		limiter:      limiter,
		bluntService: blunt.New(store.NewBluntStore(kv, model.SystemClock), limiter, moderator, authorities, model.SystemClock),
		userService:  user.New(store.NewUserStore(kv), signer, model.SystemClock),
		signer:       signer,
	}, nil
}

func (a *app) services() handlers.Services {
	return handlers.Services{
		Blunts:      a.bluntService,
		Users:       a.userService,
		Authorities: a.authorities,
		Keys:        a.signer,
	}
}

func (a *app) Close() error {
	a.authorities.Close()
	return a.kv.Close()
}

func loadApp(ctx context.Context) (*app, error) {
	config, err := boot.Load()
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	return newApp(ctx, config)
}
