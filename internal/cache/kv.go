package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound ключ отсутствует в хранилище
var ErrNotFound = errors.New("key not found")

// KV хранилище целых значений по ключу, в которое публикуются снимки истории
type KV interface {
	// Get возвращает значение или ErrNotFound
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetMany записывает все значения одной операцией
	SetMany(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
	Backend() string
}

// MemoryKV хранилище в памяти процесса
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV создает пустое хранилище в памяти
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get возвращает значение по ключу
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set записывает значение
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// SetMany записывает значения под одной блокировкой
func (m *MemoryKV) SetMany(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	for k, v := range values {
		m.values[k] = v
	}
	m.mu.Unlock()
	return nil
}

// Remove удаляет ключи
func (m *MemoryKV) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.values, k)
	}
	m.mu.Unlock()
	return nil
}

// Ping всегда успешен
func (m *MemoryKV) Ping(context.Context) error { return nil }

// Close ничего не делает
func (m *MemoryKV) Close() error { return nil }

// Backend имя бэкенда для метрик
func (m *MemoryKV) Backend() string { return "memory" }
