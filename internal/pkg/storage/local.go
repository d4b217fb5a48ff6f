package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const localMetaSuffix = ".meta.json"

// LocalAdapter implements Storage on a directory. Metadata is kept in a
// sidecar JSON file next to each object.
type LocalAdapter struct {
	root string
}

// LocalOptions configures the local driver.
type LocalOptions struct {
	// Dir is the root directory. It is created when missing.
	Dir string
}

// NewLocal constructs a local adapter rooted at opts.Dir.
func NewLocal(opts LocalOptions) (*LocalAdapter, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "auth"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, err
	}
	return &LocalAdapter{root: abs}, nil
}

func (l *LocalAdapter) path(key string) (string, string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(l.root, filepath.FromSlash(key)), nil
}

type localMeta struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PutObject writes data through a temp file and rename, so readers never
// see a partial object.
func (l *LocalAdapter) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	key, p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return ObjectInfo{}, err
	}
	if err := writeAtomic(p, data); err != nil {
		return ObjectInfo{}, err
	}

	meta, err := json.Marshal(localMeta{ContentType: opts.ContentType, Metadata: opts.Metadata})
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := writeAtomic(p+localMetaSuffix, meta); err != nil {
		return ObjectInfo{}, err
	}

	return l.StatObject(ctx, key)
}

// GetObject reads the object and its metadata.
func (l *LocalAdapter) GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	info, err := l.StatObject(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	_, p, _ := l.path(key)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, ObjectInfo{}, mapLocalError(err)
	}
	return data, info, nil
}

// StatObject returns metadata for the object.
func (l *LocalAdapter) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	key, p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return ObjectInfo{}, mapLocalError(err)
	}

	info := ObjectInfo{
		Location:  p,
		Key:       key,
		Size:      st.Size(),
		UpdatedAt: st.ModTime(),
	}
	if raw, err := os.ReadFile(p + localMetaSuffix); err == nil {
		var meta localMeta
		if json.Unmarshal(raw, &meta) == nil {
			info.ContentType = meta.ContentType
			info.Metadata = meta.Metadata
		}
	}
	return info, nil
}

// DeleteObject removes the object and its metadata.
func (l *LocalAdapter) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(p + localMetaSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op.
func (l *LocalAdapter) Close() error {
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func mapLocalError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}
