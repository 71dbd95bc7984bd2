package blob

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used in tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	modded  map[string]time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}, modded: map[string]time.Time{}}
}

func (s *Memory) Driver() Driver { return DriverMemory }

func (s *Memory) Put(ctx context.Context, key string, r io.Reader) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	s.objects[k] = data
	s.modded[k] = now
	s.mu.Unlock()
	return Info{Key: k, Size: int64(len(data)), LastModified: now}, nil
}

func (s *Memory) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.objects[k]
	s.mu.RUnlock()
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Memory) Delete(ctx context.Context, key string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, k)
	delete(s.modded, k)
	s.mu.Unlock()
	return nil
}

func (s *Memory) List(ctx context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var infos []Info
	for k, data := range s.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		infos = append(infos, Info{Key: k, Size: int64(len(data)), LastModified: s.modded[k]})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
