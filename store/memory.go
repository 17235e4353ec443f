package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store backed by a plain map. It is the reference
// implementation used by the engine's own tests and is safe for concurrent
// use from multiple goroutines (the store layer, not the engine, owns this
// synchronization — see spec section 5's shared-resource policy).
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) GetPartial(ctx context.Context, key string, offset, length int64) ([]byte, bool, error) {
	full, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if offset < 0 || offset > int64(len(full)) {
		return nil, true, nil
	}
	end := offset + length
	if length < 0 || end > int64(len(full)) {
		end = int64(len(full))
	}
	return full[offset:end], true, nil
}

func (m *Memory) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

func (m *Memory) SetIfAbsent(_ context.Context, key string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *Memory) ListDir(_ context.Context, prefix string) (ListResult, error) {
	prefix = Normalize(prefix)
	search := prefix
	if search != "" {
		search += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keySet := make(map[string]bool)
	prefixSet := make(map[string]bool)
	for k := range m.data {
		if prefix != "" && !strings.HasPrefix(k, search) {
			continue
		}
		rest := k
		if prefix != "" {
			rest = strings.TrimPrefix(k, search)
		}
		if rest == "" {
			continue
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			prefixSet[rest[:idx]] = true
		} else {
			keySet[rest] = true
		}
	}

	result := ListResult{}
	for k := range keySet {
		result.Keys = append(result.Keys, k)
	}
	for p := range prefixSet {
		result.Prefixes = append(result.Prefixes, p)
	}
	sort.Strings(result.Keys)
	sort.Strings(result.Prefixes)
	return result, nil
}

var _ Store = (*Memory)(nil)
