package main

import (
	"context"
	"errors"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/aretw0/configurator/internal/config"
	"github.com/aretw0/configurator/internal/metrics"
	"github.com/aretw0/configurator/pkg/adapters/gateway"
	"github.com/aretw0/configurator/pkg/adapters/memory"
	natsadapter "github.com/aretw0/configurator/pkg/adapters/nats"
	redisadapter "github.com/aretw0/configurator/pkg/adapters/redis"
	"github.com/aretw0/configurator/pkg/ports"
	"github.com/aretw0/configurator/pkg/resolution"
	"github.com/aretw0/configurator/pkg/session"
	"github.com/aretw0/configurator/pkg/wizard"
	"go.uber.org/zap"
)

// app wires the configured adapters together.
type app struct {
	Configurator ports.Configurator
	Pinger       ports.Pinger
	Store        ports.SessionStore
	Sessions     *session.Manager
	Wizard       *wizard.Service

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	if cfg.Gateway.URL != "" {
		client := gateway.New(cfg.Gateway.URL,
			gateway.WithTimeouts(cfg.Gateway.ConnectTimeout, cfg.Gateway.Timeout),
			gateway.WithLogger(logger.Named("gateway")),
		)
		a.Configurator, a.Pinger = client, client
		if cfg.NATS.URL != "" {
			logger.Warn("nats.url ignored: events are published by the gateway", zap.String("gateway", cfg.Gateway.URL))
		}
	} else {
		opts := []resolution.Option{resolution.WithLogger(logger.Named("resolution"))}
		if cfg.NATS.URL != "" {
			pub, err := natsadapter.Connect(cfg.NATS.URL,
				natsadapter.WithSubjectPrefix(cfg.NATS.Subject),
				natsadapter.WithLogger(logger.Named("nats")),
			)
			if err != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeFailedPrecondition).
					WithMsg("nats unavailable").
					WithCause(err)
			}
			a.closers = append(a.closers, func() error { pub.Close(); return nil })
			opts = append(opts, resolution.WithPublisher(pub))
		}
		logger.Info("using built-in demo catalog")
		engine := resolution.NewEngine(memory.NewDemoCatalog(), opts...)
		a.Configurator, a.Pinger = engine, engine
	}

	sessionOpts := []session.Option{
		session.WithLockTTL(cfg.LockTTL),
		session.WithLogger(logger.Named("session")),
	}
	if cfg.Redis.Addr != "" {
		store := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithTTL(cfg.Redis.TTL),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = a.Close()
			_ = store.Close()
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("redis unavailable").
				WithCause(err)
		}
		a.closers = append(a.closers, store.Close)
		a.Store = store
		sessionOpts = append(sessionOpts, session.WithLocker(redisadapter.NewLocker(store.Client(), cfg.Redis.Prefix)))
	} else {
		a.Store = memory.NewStore()
	}

	a.Sessions = session.NewManager(a.Store, sessionOpts...)
	metrics.ActiveSessions.CountWith(a.Sessions.Count)
	machine := wizard.NewMachine(a.Configurator,
		wizard.WithCreatedBy(cfg.CreatedBy),
		wizard.WithMachineLogger(logger.Named("wizard")),
	)
	a.Wizard = wizard.NewService(machine, a.Sessions, wizard.WithLogger(logger.Named("wizard")))
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
