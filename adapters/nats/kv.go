package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mmehali/actors/ports/kv"
)

const defaultBucket = "actr_checkpoints"

type KvConfig struct {
	Connect  Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log      *slog.Logger // Log for diagnostics (optional)
	Bucket   string       // Bucket name, defaults to "actr_checkpoints"
	MaxBytes int64        // MaxBytes limits the bucket size, 0 means unlimited
	Timeout  time.Duration
}

// KvStore is a kv.Store backed by a JetStream key-value bucket. Entries
// carry their own expiry so TTLs work per key.
type KvStore struct {
	kv      jetstream.KeyValue
	close   closeFunc
	log     *slog.Logger
	timeout time.Duration
}

type kvEntry struct {
	Data    []byte         `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
	Expires time.Time      `json:"expires,omitzero"`
}

func NewKvStore(cfg KvConfig) (*KvStore, error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}

	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = -1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	bkt, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   bucket,
		Storage:  jetstream.FileStorage,
		MaxBytes: maxBytes,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", bucket, err)
	}

	log = log.With(slog.String("store", "nats_kv"), slog.String("bucket", bucket))
	log.Debug("ensured bucket")

	return &KvStore{kv: bkt, close: closeConn, log: log, timeout: timeout}, nil
}

func (k *KvStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, k.timeout)
}

func (k *KvStore) Put(ctx context.Context, key string, entry kv.Entry, opts kv.PutOptions) error {
	if key == "" {
		return kv.ErrInvalidKey
	}
	e := kvEntry{Data: entry.Data, Meta: entry.Meta}
	if opts.TTL > 0 {
		e.Expires = time.Now().Add(opts.TTL)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := k.opContext(ctx)
	defer cancel()

	if _, err := k.kv.Put(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrInvalidKey) {
			return fmt.Errorf("%w: %q", kv.ErrInvalidKey, key)
		}
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (k *KvStore) Get(ctx context.Context, key string) (entry kv.Entry, err error) {
	if key == "" {
		return entry, kv.ErrInvalidKey
	}
	ctx, cancel := k.opContext(ctx)
	defer cancel()

	v, err := k.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return entry, kv.ErrNotFound
		}
		return entry, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var e kvEntry
	if err := json.Unmarshal(v.Value(), &e); err != nil {
		return entry, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if !e.Expires.IsZero() && !time.Now().Before(e.Expires) {
		return entry, kv.ErrNotFound
	}
	return kv.Entry{Data: e.Data, Meta: e.Meta}, nil
}

func (k *KvStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kv.ErrInvalidKey
	}
	ctx, cancel := k.opContext(ctx)
	defer cancel()

	if err := k.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (k *KvStore) Keys(ctx context.Context) ([]string, error) {
	listCtx, cancel := k.opContext(ctx)
	defer cancel()

	lister, err := k.kv.ListKeys(listCtx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var all []string
	for key := range lister.Keys() {
		all = append(all, key)
	}

	keys := all[:0]
	for _, key := range all {
		if _, err := k.Get(ctx, key); errors.Is(err, kv.ErrNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Close releases the NATS connection.
func (k *KvStore) Close() error {
	k.close()
	k.log.Debug("closed kv store")
	return nil
}

var _ kv.Store = (*KvStore)(nil)
