package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const fileSuffix = ".kv"

type fileEntry struct {
	Data    []byte         `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
	Expires time.Time      `json:"expires,omitzero"`
}

// FileStore keeps one file per key below a directory. Writes go through a
// temporary file and a rename, so readers never see a partial entry.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.dir, key+fileSuffix), nil
}

func (f *FileStore) Put(_ context.Context, key string, entry Entry, opts PutOptions) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	fe := fileEntry{Data: entry.Data, Meta: entry.Meta}
	if opts.TTL > 0 {
		fe.Expires = time.Now().Add(opts.TTL)
	}
	data, err := json.Marshal(fe)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (f *FileStore) Get(_ context.Context, key string) (entry Entry, err error) {
	p, err := f.path(key)
	if err != nil {
		return entry, err
	}

	f.mu.RLock()
	data, err := os.ReadFile(p)
	f.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return entry, ErrNotFound
	} else if err != nil {
		return entry, err
	}

	var fe fileEntry
	if err := json.Unmarshal(data, &fe); err != nil {
		return entry, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	if !fe.Expires.IsZero() && !time.Now().Before(fe.Expires) {
		return entry, ErrNotFound
	}
	return Entry{Data: fe.Data, Meta: fe.Meta}, nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) Keys(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	des, err := os.ReadDir(f.dir)
	f.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".tmp-") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key := strings.TrimSuffix(name, fileSuffix)
		if _, err := f.Get(ctx, key); errors.Is(err, ErrNotFound) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

var _ Store = (*FileStore)(nil)
