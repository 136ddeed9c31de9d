package exportlog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-nucleus/errors"
)

// Channel appends records to a shared export document: a JSON array on
// disk. Every read-modify-write holds an exclusive file lock, so channels
// in different goroutines or processes may append to the same path.
type Channel struct {
	path        string
	mu          sync.Mutex
	initialized bool
}

func NewChannel(path string) *Channel {
	return &Channel{path: path}
}

func (c *Channel) Path() string {
	return c.path
}

// Append adds records to the end of the document, creating it and its
// parent directories if needed. It blocks until the file lock is free.
func (c *Channel) Append(ctx context.Context, records ...Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.locked(os.O_RDWR|os.O_CREATE, func(f *os.File) error {
		if !c.initialized {
			if err := c.initialize(f); err != nil {
				return err
			}
		}
		doc, err := readDocument(f, c.path)
		if err != nil {
			return err
		}
		doc = append(doc, records...)
		if err := writeDocument(f, c.path, doc); err != nil {
			return err
		}
		Logger().Debug("appended export records",
			zap.String("path", c.path),
			zap.Int("count", len(records)),
			zap.Int("total", len(doc)))
		return nil
	})
}

// Reset truncates the document to an empty array.
func (c *Channel) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.locked(os.O_RDWR|os.O_CREATE, func(f *os.File) error {
		if err := writeDocument(f, c.path, nil); err != nil {
			return err
		}
		c.initialized = true
		Logger().Debug("reset export document", zap.String("path", c.path))
		return nil
	})
}

// initialize writes an empty array into a document that has no content yet.
// Caller holds the file lock.
func (c *Channel) initialize(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return errors.IO(errors.PhaseExport, "stat", c.path, err)
	}
	if info.Size() == 0 {
		if err := writeDocument(f, c.path, nil); err != nil {
			return err
		}
	}
	c.initialized = true
	return nil
}

func (c *Channel) locked(flag int, fn func(f *os.File) error) error {
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
			return errors.IO(errors.PhaseExport, "mkdir", filepath.Dir(c.path), err)
		}
	}
	f, err := os.OpenFile(c.path, flag, 0o644)
	if err != nil {
		return errors.IO(errors.PhaseExport, "open", c.path, err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return errors.New(errors.PhaseExport, errors.KindLock).
			Detail("lock %s", c.path).
			Cause(err).
			Build()
	}
	defer func() {
		if err := unlockFile(f); err != nil {
			Logger().Warn("unlock export document", zap.String("path", c.path), zap.Error(err))
		}
	}()

	return fn(f)
}

// Read returns the records in the document at path.
func Read(path string) ([]Record, error) {
	var out []Record
	err := NewChannel(path).locked(os.O_RDONLY, func(f *os.File) error {
		doc, err := readDocument(f, path)
		out = doc
		return err
	})
	return out, err
}

func readDocument(f *os.File, path string) ([]Record, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.IO(errors.PhaseExport, "seek", path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.IO(errors.PhaseExport, "read", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}
	var doc []Record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.PhaseExport, errors.KindCorrupt).
			Detail("%s is not a JSON array of export records", path).
			Cause(err).
			Build()
	}
	if doc == nil {
		// literal null
		return nil, errors.New(errors.PhaseExport, errors.KindCorrupt).
			Detail("%s is not a JSON array of export records", path).
			Build()
	}
	return doc, nil
}

func writeDocument(f *os.File, path string, doc []Record) error {
	if doc == nil {
		doc = []Record{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.PhaseExport, errors.KindInvalidData, err, "encode export document")
	}
	data = append(data, '\n')

	if err := f.Truncate(0); err != nil {
		return errors.IO(errors.PhaseExport, "truncate", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.IO(errors.PhaseExport, "seek", path, err)
	}
	if _, err := f.Write(data); err != nil {
		return errors.IO(errors.PhaseExport, "write", path, err)
	}
	if err := f.Sync(); err != nil {
		return errors.IO(errors.PhaseExport, "sync", path, err)
	}
	return nil
}
