// Copyright 2026 fanjia1024
// In-memory secret store (for development and tests)

package secrets

import (
	"context"
	"sync"

	"agent-chat/pkg/errors"
)

// MemoryStore 内存 secret store，键按环境变量规则归一化
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store，initial 可为 nil
func NewMemoryStore(initial map[string]string) *MemoryStore {
	m := &MemoryStore{secrets: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.secrets[normalizeKey(k)] = v
	}
	return m
}

// Set 写入或覆盖
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.secrets[normalizeKey(key)] = value
	m.mu.Unlock()
}

// Get 实现 Store
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.secrets[normalizeKey(key)]; ok {
		return v, nil
	}
	return "", errors.Wrapf(errors.ErrNotFound, "secret %s", key)
}
