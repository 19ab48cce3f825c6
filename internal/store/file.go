package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/curasense/triage-cli/internal/model"
)

// FileStore keeps one <hash>.json file per entry in a directory. Entries are
// written to a temp file and renamed into place, so a concurrent reader sees
// either the previous entry or the new one, never a partial write.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, eris.New("store: file cache dir is required")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Migrate(_ context.Context) error {
	return eris.Wrapf(os.MkdirAll(s.dir, 0o755), "store: create cache dir %s", s.dir)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(keyHash string) string {
	return filepath.Join(s.dir, keyHash+".json")
}

func (s *FileStore) GetLookup(_ context.Context, keyHash string) (*model.CacheEntry, error) {
	data, err := os.ReadFile(s.path(keyHash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: read entry %s", keyHash)
	}
	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, eris.Wrapf(err, "store: corrupt entry %s", keyHash)
	}
	return &entry, nil
}

func (s *FileStore) PutLookup(_ context.Context, keyHash string, entry model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "store: marshal entry")
	}

	tmp, err := os.CreateTemp(s.dir, keyHash+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "store: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "store: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "store: close temp file")
	}
	if err := os.Rename(tmpName, s.path(keyHash)); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "store: rename entry %s", keyHash)
	}
	return nil
}

func (s *FileStore) DeleteLookupsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, eris.Wrap(err, "store: list cache dir")
	}
	deleted := 0
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		entry, err := s.GetLookup(ctx, strings.TrimSuffix(name, ".json"))
		// Corrupt entries can never be served, so they go too.
		if err == nil && entry != nil && !entry.FetchedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return deleted, eris.Wrapf(err, "store: remove %s", name)
		}
		deleted++
	}
	return deleted, nil
}

func (s *FileStore) CountLookups(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, eris.Wrap(err, "store: list cache dir")
	}
	n := 0
	for _, de := range entries {
		if !de.IsDir() && strings.HasSuffix(de.Name(), ".json") {
			n++
		}
	}
	return n, nil
}
