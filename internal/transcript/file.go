package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// FileStore keeps every call's transcript in one pretty-printed JSON file so
// recruiters can read it directly. Writes are read-merge-write under a store
// mutex; a corrupt or missing file is treated as empty and rebuilt on the
// next save.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (s *FileStore) Save(_ context.Context, callSID string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadLocked()
	all[callSID] = entries

	data, err := sonic.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("encode transcripts: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create transcript dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write transcripts: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace transcripts: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, callSID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.loadLocked()[callSID]
	if !ok {
		return nil, ErrNotFound
	}
	return entries, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) loadLocked() map[string][]Entry {
	all := make(map[string][]Entry)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("transcript file unreadable, starting empty")
		}
		return all
	}
	if err := sonic.Unmarshal(data, &all); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("transcript file corrupt, resetting")
		return make(map[string][]Entry)
	}
	return all
}
