package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mmehali/actors/core/actor"
	"github.com/mmehali/actors/core/gateway"
	"github.com/mmehali/actors/core/shuttle"
)

const DefaultPrefix = "actors"

type Config struct {
	Context context.Context
	Log     *slog.Logger
	// ID names this instance in logs, defaults to "app-<random>".
	ID           string
	Prefix       string
	DirectPrefix string
	Checkpointer actor.Checkpointer
	Metrics      actor.ActorMetrics
	BusMetrics   shuttle.BusMetrics
	Factory      actor.Factory
	MaxActive    int
}

type App struct {
	id     string
	log    *slog.Logger
	runner *actor.Runner
	direct *gateway.Direct
}

func New(config Config) (app *App, err error) {
	app = &App{}

	if config.ID == "" {
		config.ID = fmt.Sprintf("app-%s", gonanoid.Must(6))
	}
	app.id = config.ID

	// === logger ===
	if config.Log == nil {
		config.Log = slog.Default()
	}
	app.log = config.Log.With(slog.String("app", config.ID))

	// === context ===
	if config.Context == nil {
		config.Context = context.Background()
	}

	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.DirectPrefix == "" {
		config.DirectPrefix = gateway.DefaultPrefix
	}
	if config.Prefix == config.DirectPrefix {
		return nil, fmt.Errorf("runner and direct gateway share prefix %q", config.Prefix)
	}

	app.log.Debug(
		"creating app",
		slog.String("prefix", config.Prefix),
		slog.String("direct_prefix", config.DirectPrefix),
	)

	app.runner, err = actor.NewRunner(actor.RunnerOptions{
		Prefix:       config.Prefix,
		Context:      config.Context,
		Log:          app.log,
		Checkpointer: config.Checkpointer,
		Metrics:      config.Metrics,
		BusMetrics:   config.BusMetrics,
		Factory:      config.Factory,
		MaxActive:    config.MaxActive,
	})
	if err != nil {
		return nil, err
	}

	app.direct, err = gateway.NewDirect(gateway.DirectOptions{
		Prefix:     config.DirectPrefix,
		Context:    config.Context,
		Log:        app.log,
		BusMetrics: config.BusMetrics,
	})
	if err != nil {
		_ = app.runner.Close()
		return nil, err
	}

	app.runner.AddOutgoingShuttle(app.direct.IncomingShuttle())
	app.direct.AddOutgoingShuttle(app.runner.IncomingShuttle())

	app.log.Info("app started")
	return app, nil
}

func (a *App) ID() string              { return a.id }
func (a *App) Runner() *actor.Runner   { return a.runner }
func (a *App) Direct() *gateway.Direct { return a.direct }
func (a *App) Done() <-chan struct{}   { return a.runner.Done() }

// Address returns the address of the top-level actor id.
func (a *App) Address(id string) (shuttle.Address, error) {
	return shuttle.Of(a.runner.Prefix(), id)
}

// Spawn adds a top-level actor and returns its address.
func (a *App) Spawn(id string, body actor.Body, priming ...any) (shuttle.Address, error) {
	addr, err := a.Address(id)
	if err != nil {
		return shuttle.Address{}, err
	}
	if err := a.runner.AddActor(id, body, priming...); err != nil {
		return shuttle.Address{}, err
	}
	return addr, nil
}

// Send writes payload from the direct gateway to the top-level actor id.
func (a *App) Send(id string, payload any) error {
	addr, err := a.Address(id)
	if err != nil {
		return err
	}
	return a.direct.WriteTo(addr, payload)
}

// Shutdown stops the runner and the direct gateway. Queued messages are discarded.
func (a *App) Shutdown() error {
	err := errors.Join(a.runner.Close(), a.direct.Close())
	a.log.Info("app stopped")
	return err
}
