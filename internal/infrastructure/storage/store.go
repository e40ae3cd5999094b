package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/paths"
)

// Type partitions the store. Each type is a separate file.
type Type string

const (
	TypeAspectRatio   Type = "aspect-ratio"
	TypeStartupConfig Type = "startup-config"
)

var knownTypes = map[Type]bool{
	TypeAspectRatio:   true,
	TypeStartupConfig: true,
}

var (
	ErrNotFound    = errors.New("key not found")
	ErrUnknownType = errors.New("unknown storage type")
)

// Store is a file-backed key/value store
type Store struct {
	dir    string
	logger *zap.Logger

	mu     sync.Mutex
	tables map[Type]map[string]any
}

// NewStore creates a store rooted at dir. Nothing is read until first use.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:    dir,
		logger: logger.Named("storage"),
		tables: make(map[Type]map[string]any),
	}
}

// HasKey reports whether key exists under t
func (s *Store) HasKey(t Type, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.tableLocked(t)
	if err != nil {
		return false
	}
	_, ok := table[key]
	return ok
}

// Get decodes the value stored under key into out
func (s *Store) Get(t Type, key string, out any) error {
	s.mu.Lock()
	table, err := s.tableLocked(t)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrUnknownType) {
			return fmt.Errorf("%s/%s: %w", t, key, ErrNotFound)
		}
		return err
	}
	value, ok := table[key]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s/%s: %w", t, key, ErrNotFound)
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t, key, err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", t, key, err)
	}
	return nil
}

// Keys returns the keys stored under t in sorted order
func (s *Store) Keys(t Type) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.tableLocked(t)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Insert stores value under key and persists the table
func (s *Store) Insert(t Type, key string, value any) error {
	if key == "" {
		return fmt.Errorf("insert %s: empty key", t)
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t, key, err)
	}
	var normalized any
	if err := sonic.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("normalize %s/%s: %w", t, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.tableLocked(t)
	if err != nil {
		return err
	}
	prev, had := table[key]
	table[key] = normalized
	if err := s.flushLocked(t, table); err != nil {
		if had {
			table[key] = prev
		} else {
			delete(table, key)
		}
		return err
	}
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (s *Store) Delete(t Type, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.tableLocked(t)
	if err != nil {
		return err
	}
	prev, ok := table[key]
	if !ok {
		return nil
	}
	delete(table, key)
	if err := s.flushLocked(t, table); err != nil {
		table[key] = prev
		return err
	}
	return nil
}

func (s *Store) tableLocked(t Type) (map[string]any, error) {
	if !knownTypes[t] {
		return nil, fmt.Errorf("%q: %w", t, ErrUnknownType)
	}
	if table, ok := s.tables[t]; ok {
		return table, nil
	}

	file, err := paths.StorageFile(s.dir, string(t))
	if err != nil {
		return nil, err
	}
	table := make(map[string]any)
	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", file, err)
	case len(data) > 0:
		if err := sonic.Unmarshal(data, &table); err != nil {
			s.logger.Error("corrupt storage file, starting empty", zap.String("file", file), zap.Error(err))
			table = make(map[string]any)
		}
	}
	s.tables[t] = table
	return table, nil
}

func (s *Store) flushLocked(t Type, table map[string]any) error {
	file, err := paths.StorageFile(s.dir, string(t))
	if err != nil {
		return err
	}
	data, err := sonic.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", file, err)
	}
	return nil
}
