package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/scigolib/zart/internal/zerr"
)

// Directory is a Store backed by a local directory tree: each store key maps
// to a file at filepath.Join(root, filepath.FromSlash(key)). Grounded on the
// teacher's os.File-based FileWriter (internal/writer/writer.go): truncate
// vs. exclusive creation, WriteAt-style durability via os.File, and an
// explicit Flush-equivalent (os.File.Sync through atomic rename here).
type Directory struct {
	root string
}

// NewDirectory opens (creating if necessary) a directory-backed store rooted
// at root.
func NewDirectory(root string) (*Directory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, zerr.Wrap(zerr.KindStoreError, "create store root", err)
	}
	return &Directory{root: root}, nil
}

func (d *Directory) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

func (d *Directory) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, zerr.Wrap(zerr.KindStoreError, "read "+key, err)
	}
	return data, true, nil
}

func (d *Directory) GetPartial(_ context.Context, key string, offset, length int64) ([]byte, bool, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, zerr.Wrap(zerr.KindStoreError, "open "+key, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, false, zerr.Wrap(zerr.KindStoreError, "seek "+key, err)
	}

	if length < 0 {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, false, zerr.Wrap(zerr.KindStoreError, "read "+key, err)
		}
		return data, true, nil
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, false, zerr.Wrap(zerr.KindStoreError, "read "+key, err)
	}
	return buf[:n], true, nil
}

func (d *Directory) Set(_ context.Context, key string, data []byte) error {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return zerr.Wrap(zerr.KindStoreError, "mkdir for "+key, err)
	}

	// Write to a temp file then rename, so partial writes never become
	// visible to concurrent readers (teacher's FileWriter instead tracks a
	// single append-only offset; a directory store's unit is the whole file,
	// so atomic rename is the equivalent durability boundary).
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return zerr.Wrap(zerr.KindStoreError, "create temp for "+key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.Wrap(zerr.KindStoreError, "write "+key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.Wrap(zerr.KindStoreError, "sync "+key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.Wrap(zerr.KindStoreError, "close "+key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return zerr.Wrap(zerr.KindStoreError, "rename "+key, err)
	}
	return nil
}

func (d *Directory) SetIfAbsent(_ context.Context, key string, data []byte) (bool, error) {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, zerr.Wrap(zerr.KindStoreError, "mkdir for "+key, err)
	}
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, zerr.Wrap(zerr.KindStoreError, "create exclusive "+key, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(data); err != nil {
		return false, zerr.Wrap(zerr.KindStoreError, "write "+key, err)
	}
	return true, nil
}

func (d *Directory) Delete(_ context.Context, key string) error {
	err := os.Remove(d.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return zerr.Wrap(zerr.KindStoreError, "delete "+key, err)
	}
	return nil
}

func (d *Directory) Contains(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(d.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, zerr.Wrap(zerr.KindStoreError, "stat "+key, err)
	}
	return true, nil
}

func (d *Directory) ListDir(_ context.Context, prefix string) (ListResult, error) {
	dir := d.path(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ListResult{}, nil
		}
		return ListResult{}, zerr.Wrap(zerr.KindStoreError, "list "+prefix, err)
	}

	result := ListResult{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			result.Prefixes = append(result.Prefixes, name)
		} else {
			result.Keys = append(result.Keys, name)
		}
	}
	sort.Strings(result.Keys)
	sort.Strings(result.Prefixes)
	return result, nil
}

var _ Store = (*Directory)(nil)
