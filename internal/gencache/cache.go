package gencache

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/internal/exportlog"
)

// Bump when Entry changes shape; older entries then read as misses.
const schemaVersion uint16 = 1

// Output is one generated file.
type Output struct {
	Name    string
	Content []byte
}

// Entry is the cached result of generating one package.
type Entry struct {
	Schema  uint16
	Package string
	Dir     string
	Digest  Digest
	Outputs []Output
	Records []exportlog.Record
}

// Cache stores entries as msgpack files keyed by package digest. A nil
// *Cache is valid and never hits. Safe for concurrent use; writes go
// through a temp file and rename so readers in other processes never see a
// partial entry.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns a cache rooted at dir, creating it.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.IO(errors.PhaseCache, "mkdir", dir, err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "pkgs", key.String()+".mp")
}

// Put writes e under key.
func (c *Cache) Put(key Digest, e *Entry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.IO(errors.PhaseCache, "mkdir", filepath.Dir(p), err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return errors.IO(errors.PhaseCache, "create", filepath.Dir(p), err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	stored := *e
	stored.Schema = schemaVersion
	stored.Digest = key
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		f.Close()
		return errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "encode entry")
	}
	if err := f.Close(); err != nil {
		return errors.IO(errors.PhaseCache, "close", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return errors.IO(errors.PhaseCache, "rename", p, err)
	}
	return nil
}

// Get reads the entry under key. A missing entry, or one written by an older
// schema, is a miss. An unreadable entry is removed and reported as
// KindCorrupt so the caller can regenerate.
func (c *Cache) Get(key Digest) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errors.IO(errors.PhaseCache, "open", p, err)
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		_ = os.Remove(p)
		return nil, false, errors.New(errors.PhaseCache, errors.KindCorrupt).
			Detail("entry %s", p).
			Cause(err).
			Build()
	}
	if e.Schema != schemaVersion || e.Digest != key {
		return nil, false, nil
	}
	for i := range e.Records {
		for j := range e.Records[i].Variants {
			// unit variants keep "fields": [] in the export document
			if e.Records[i].Variants[j].Fields == nil {
				e.Records[i].Variants[j].Fields = []exportlog.FieldRecord{}
			}
		}
	}
	return &e, true, nil
}

// Drop removes every entry.
func (c *Cache) Drop() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Join(c.dir, "pkgs")
	if err := os.RemoveAll(dir); err != nil {
		return errors.IO(errors.PhaseCache, "remove", dir, err)
	}
	return nil
}
