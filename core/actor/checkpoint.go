package actor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/mmehali/actors/core/shuttle"
	"github.com/mmehali/actors/internal/codec"
	"github.com/mmehali/actors/ports/kv"
)

// Checkpointer persists actor trees. Save writes the given actor and all of
// its descendants; Restore rebuilds the subtree rooted at an address; Delete
// removes an address and everything below it.
type Checkpointer interface {
	Save(ctx *Context) (persisted bool, err error)
	Restore(addr shuttle.Address) (*Context, error)
	Delete(addr shuttle.Address) error
	Addresses() ([]shuttle.Address, error)
	Close() error
}

type nopCheckpointer struct{}

func (nopCheckpointer) Save(*Context) (bool, error)               { return false, nil }
func (nopCheckpointer) Restore(shuttle.Address) (*Context, error) { return nil, ErrNoCheckpoint }
func (nopCheckpointer) Delete(shuttle.Address) error              { return nil }
func (nopCheckpointer) Addresses() ([]shuttle.Address, error)     { return nil, nil }
func (nopCheckpointer) Close() error                              { return nil }

// NopCheckpointer returns a Checkpointer that keeps nothing.
func NopCheckpointer() Checkpointer { return nopCheckpointer{} }

// Record is the persisted form of one actor. Transient per-message fields
// are never part of it.
type Record struct {
	ID        string          `json:"id"`
	Address   shuttle.Address `json:"address"`
	Rules     *RuleSet        `json:"rules"`
	Intercept bool            `json:"intercept,omitempty"`
	BodyType  string          `json:"body_type"`
	Body      []byte          `json:"body"`
	Children  []string        `json:"children,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type KVCheckpointerOptions struct {
	Store    kv.Store
	Registry *BodyRegistry
	// Codec encodes bodies that do not implement Snapshottable.
	Codec     codec.Codec
	KeyPrefix string
	Timeout   time.Duration
	Log       *slog.Logger
}

type indexEntry struct {
	addr   shuttle.Address
	key    string
	digest [blake2b.Size256]byte
}

// KVCheckpointer stores one Record per actor in a kv.Store under
// "<prefix>.<hex(blake2b-256(address))>". Records whose content did not
// change since the last write are skipped.
type KVCheckpointer struct {
	store     kv.Store
	registry  *BodyRegistry
	codec     codec.Codec
	keyPrefix string
	timeout   time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	loaded bool
	index  map[string]indexEntry // by address string
}

func NewKVCheckpointer(opts KVCheckpointerOptions) (*KVCheckpointer, error) {
	if opts.Store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("body registry is required")
	}
	if opts.Codec == nil {
		opts.Codec = codec.JSONCodec{}
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "cp"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &KVCheckpointer{
		store:     opts.Store,
		registry:  opts.Registry,
		codec:     opts.Codec,
		keyPrefix: opts.KeyPrefix,
		timeout:   opts.Timeout,
		log:       opts.Log.With(slog.String("checkpointer", opts.KeyPrefix)),
		index:     map[string]indexEntry{},
	}, nil
}

func (k *KVCheckpointer) key(addr shuttle.Address) string {
	sum := blake2b.Sum256([]byte(addr.String()))
	return k.keyPrefix + "." + hex.EncodeToString(sum[:])
}

func (k *KVCheckpointer) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), k.timeout)
}

// load fills the index from the store once. Callers hold k.mu.
func (k *KVCheckpointer) load() error {
	if k.loaded {
		return nil
	}
	ctx, cancel := k.opContext()
	defer cancel()

	keys, err := k.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, k.keyPrefix+".") {
			continue
		}
		rec, err := kv.Get[Record](ctx, k.store, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		} else if err != nil {
			return fmt.Errorf("load checkpoint %s: %w", key, err)
		}
		digest, err := recordDigest(rec)
		if err != nil {
			return err
		}
		k.index[rec.Address.String()] = indexEntry{addr: rec.Address, key: key, digest: digest}
	}
	k.loaded = true
	return nil
}

func recordDigest(rec Record) ([blake2b.Size256]byte, error) {
	rec.ID = ""
	rec.CreatedAt = time.Time{}
	data, err := codec.JSONCodec{}.Marshal(rec)
	if err != nil {
		return [blake2b.Size256]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

func (k *KVCheckpointer) record(c *Context) (Record, error) {
	bodyType := bodyTypeOf(c.body)
	if !k.registry.known(bodyType) {
		return Record{}, fmt.Errorf("%w: %s at %s", ErrUnknownBody, bodyType, c.self)
	}

	var (
		data []byte
		err  error
	)
	if s, ok := c.body.(Snapshottable); ok {
		data, err = s.Snapshot()
	} else {
		data, err = k.codec.Marshal(c.body)
	}
	if err != nil {
		return Record{}, fmt.Errorf("encode body %s at %s: %w", bodyType, c.self, err)
	}

	return Record{
		Address:   c.self,
		Rules:     c.rules,
		Intercept: c.intercept,
		BodyType:  bodyType,
		Body:      data,
		Children:  slices.Clone(c.childIDs),
	}, nil
}

func (k *KVCheckpointer) Save(c *Context) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.load(); err != nil {
		return false, err
	}

	var recs []Record
	var walkErr error
	c.walk(func(n *Context) {
		if walkErr != nil {
			return
		}
		rec, err := k.record(n)
		if err != nil {
			walkErr = err
			return
		}
		recs = append(recs, rec)
	})
	if walkErr != nil {
		return false, walkErr
	}

	ctx, cancel := k.opContext()
	defer cancel()

	persisted := false
	for _, rec := range recs {
		digest, err := recordDigest(rec)
		if err != nil {
			return persisted, err
		}
		addr := rec.Address.String()
		if e, ok := k.index[addr]; ok && e.digest == digest {
			continue
		}

		rec.ID = gonanoid.Must()
		rec.CreatedAt = time.Now()
		key := k.key(rec.Address)
		data, err := json.Marshal(rec)
		if err != nil {
			return persisted, fmt.Errorf("encode checkpoint for %s: %w", addr, err)
		}
		entry := kv.Entry{Data: data, Meta: map[string]any{"actor": addr, "body_type": rec.BodyType}}
		if err := k.store.Put(ctx, key, entry, kv.PutOptions{}); err != nil {
			return persisted, fmt.Errorf("write checkpoint for %s: %w", addr, err)
		}
		k.index[addr] = indexEntry{addr: rec.Address, key: key, digest: digest}
		persisted = true
		k.log.Debug("checkpoint written", slog.String("actor", addr), slog.String("id", rec.ID))
	}
	return persisted, nil
}

func (k *KVCheckpointer) Restore(addr shuttle.Address) (*Context, error) {
	k.mu.Lock()
	err := k.load()
	_, known := k.index[addr.String()]
	stored := make([]shuttle.Address, 0, len(k.index))
	for _, e := range k.index {
		if addr.IsPrefixOf(e.addr) && e.addr.Size() > addr.Size() {
			stored = append(stored, e.addr)
		}
	}
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoint, addr)
	}

	ctx, cancel := k.opContext()
	defer cancel()

	t := newTree(ContextOptions{Log: k.log, Checkpointer: k})
	c, err := k.restore(ctx, t, nil, addr, stored)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// childIDs returns the ids recorded in rec followed by the ids of stored
// direct children missing from it. A child that checkpointed on its own
// after its parent's last write is only known through the latter.
func childIDs(rec Record, stored []shuttle.Address) []string {
	ids := slices.Clone(rec.Children)
	var extra []string
	for _, a := range stored {
		if a.Size() != rec.Address.Size()+1 || !rec.Address.IsPrefixOf(a) {
			continue
		}
		if id := a.Last(); !slices.Contains(ids, id) && !slices.Contains(extra, id) {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(ids, extra...)
}

func (k *KVCheckpointer) restore(ctx context.Context, t *tree, parent *Context, addr shuttle.Address, stored []shuttle.Address) (*Context, error) {
	rec, err := kv.Get[Record](ctx, k.store, k.key(addr))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoint, addr)
	} else if err != nil {
		return nil, fmt.Errorf("read checkpoint for %s: %w", addr, err)
	}
	rec.Address = addr

	body, err := k.registry.create(rec.BodyType)
	if err != nil {
		return nil, err
	}
	if s, ok := body.(Snapshottable); ok {
		err = s.RestoreSnapshot(rec.Body)
	} else {
		err = k.codec.Unmarshal(rec.Body, body)
	}
	if err != nil {
		return nil, fmt.Errorf("decode body %s at %s: %w", rec.BodyType, addr, err)
	}

	c := newContext(t, parent, addr, body)
	if rec.Rules != nil {
		c.rules = rec.Rules
	}
	c.intercept = rec.Intercept
	c.state = StateSuspended

	for _, id := range childIDs(rec, stored) {
		childAddr, err := addr.Append(id)
		if err != nil {
			return nil, err
		}
		child, err := k.restore(ctx, t, c, childAddr, stored)
		if errors.Is(err, ErrNoCheckpoint) {
			k.log.Warn("child checkpoint missing, skipping", slog.String("actor", childAddr.String()))
			continue
		} else if err != nil {
			return nil, err
		}
		c.children[id] = child
		c.childIDs = append(c.childIDs, id)
	}
	return c, nil
}

func (k *KVCheckpointer) Delete(addr shuttle.Address) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.load(); err != nil {
		return err
	}

	ctx, cancel := k.opContext()
	defer cancel()

	keys := map[string]string{addr.String(): k.key(addr)}
	for a, e := range k.index {
		if addr.IsPrefixOf(e.addr) {
			keys[a] = e.key
		}
	}
	for a, key := range keys {
		if err := k.store.Delete(ctx, key); err != nil && !errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("delete checkpoint for %s: %w", a, err)
		}
		delete(k.index, a)
	}
	return nil
}

// Addresses lists every checkpointed actor, sorted by address.
func (k *KVCheckpointer) Addresses() ([]shuttle.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.load(); err != nil {
		return nil, err
	}
	out := make([]shuttle.Address, 0, len(k.index))
	for _, e := range k.index {
		out = append(out, e.addr)
	}
	slices.SortFunc(out, func(a, b shuttle.Address) int {
		return strings.Compare(a.String(), b.String())
	})
	return out, nil
}

func (k *KVCheckpointer) Close() error { return nil }

var _ Checkpointer = (*KVCheckpointer)(nil)
