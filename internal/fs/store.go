package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and replaces whole documents. Writes always replace the full
// text; there is no partial patching.
type Store interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, text string) error
}

// FileStore keeps documents on the local filesystem. A document is written
// back in the encoding it was last read with, through a temp file in the
// same directory and a rename so readers never see a partial file.
type FileStore struct {
	Root     string
	PermFile os.FileMode

	mu        sync.Mutex
	encodings map[string]Encoding
}

// NewFileStore returns a store rooted at root; relative document paths are
// resolved against it and an empty root means the working directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root, PermFile: 0o644, encodings: make(map[string]Encoding)}
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) resolve(path string) (string, error) {
	if path == "" {
		return "", os.ErrInvalid
	}
	if filepath.IsAbs(path) || s.Root == "" {
		return filepath.Clean(path), nil
	}
	return filepath.Join(s.Root, path), nil
}

func (s *FileStore) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	text, enc, err := DecodeDocument(full, content)
	if err != nil {
		return "", &os.PathError{Op: "decode", Path: full, Err: err}
	}
	s.mu.Lock()
	if s.encodings == nil {
		s.encodings = make(map[string]Encoding)
	}
	s.encodings[full] = enc
	s.mu.Unlock()
	return text, nil
}

func (s *FileStore) Write(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	enc := s.encodings[full]
	s.mu.Unlock()

	data, err := EncodeDocument(text, enc)
	if err != nil {
		return err
	}
	return s.writeAtomic(full, data)
}

func (s *FileStore) writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	perm := s.PermFile
	if info, err := os.Stat(dest); err == nil {
		perm = info.Mode().Perm()
	} else if perm == 0 {
		perm = 0o644
	}

	tmp, err := os.CreateTemp(dir, ".spanmark-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

// MemStore is an in-memory Store, used by tests and by callers that hand
// over document text directly.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewMemStore(docs map[string]string) *MemStore {
	m := &MemStore{docs: make(map[string]string, len(docs))}
	for k, v := range docs {
		m.docs[k] = v
	}
	return m
}

var _ Store = (*MemStore)(nil)

func (m *MemStore) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.docs[path]
	if !ok {
		return "", &os.PathError{Op: "read", Path: path, Err: os.ErrNotExist}
	}
	return text, nil
}

func (m *MemStore) Write(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("empty document path")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = make(map[string]string)
	}
	m.docs[path] = text
	return nil
}
