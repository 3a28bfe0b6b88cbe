package main

import (
	"fmt"
	"log/slog"

	"github.com/mmehali/actors/adapters/nats"
	"github.com/mmehali/actors/core/actor"
	"github.com/mmehali/actors/internal/config"
	"github.com/mmehali/actors/ports/kv"
)

// newCheckpointer builds the checkpoint backend named in cfg. The returned
// close function releases the underlying store.
func newCheckpointer(cfg config.CheckpointConfig, log *slog.Logger) (actor.Checkpointer, func() error, error) {
	var (
		store   kv.Store
		closeFn = func() error { return nil }
	)

	switch cfg.Backend {
	case config.BackendNone:
		return actor.NopCheckpointer(), closeFn, nil
	case config.BackendMem:
		store = kv.NewMemStore()
	case config.BackendFile:
		fs, err := kv.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case config.BackendNATS:
		connect := nats.ConnectDefault()
		if cfg.NATS.URL != "" {
			connect = nats.ConnectURL(cfg.NATS.URL)
		}
		ns, err := nats.NewKvStore(nats.KvConfig{
			Connect:  connect,
			Log:      log,
			Bucket:   cfg.NATS.Bucket,
			MaxBytes: cfg.NATS.MaxBytes,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open nats checkpoint store: %w", err)
		}
		store, closeFn = ns, ns.Close
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}

	cp, err := actor.NewKVCheckpointer(actor.KVCheckpointerOptions{
		Store:     store,
		Registry:  newBodyRegistry(),
		KeyPrefix: cfg.KeyPrefix,
		Timeout:   cfg.Timeout,
		Log:       log,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	log.Info("checkpoint backend ready", slog.String("backend", cfg.Backend))
	return cp, func() error {
		_ = cp.Close()
		return closeFn()
	}, nil
}
