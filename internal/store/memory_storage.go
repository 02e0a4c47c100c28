package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/storage/memory/v2"
	"github.com/spf13/cast"
)

type memoryRecord struct {
	Fields    map[string]any `json:"fields"`
	ExpiresAt int64          `json:"expiresAt,omitempty"` // unix milliseconds, 0 means no expiry
}

func (r *memoryRecord) ttl(now time.Time) time.Duration {
	if r.ExpiresAt == 0 {
		return 0
	}
	// the underlying storage expires on whole seconds
	return time.UnixMilli(r.ExpiresAt).Sub(now) + time.Second
}

func (r *memoryRecord) expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.UnixMilli() >= r.ExpiresAt
}

// MemoryStorage implements Storage on top of gofiber's in-process memory
// storage. Records are kept as JSON encoded field maps.
type MemoryStorage struct {
	mu      sync.Mutex
	storage *memory.Storage
	now     func() time.Time
}

func decodeFields(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "redis",
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func toFields(val any) (map[string]any, error) {
	if fields, ok := val.(map[string]any); ok {
		return fields, nil
	}
	fields := make(map[string]any)
	if err := decodeFields(val, &fields); err != nil {
		return nil, fmt.Errorf("unsupported value %T: %w", val, err)
	}
	return fields, nil
}

func (s *MemoryStorage) load(key string) (*memoryRecord, error) {
	data, err := s.storage.Get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	var record memoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if record.expired(s.now()) {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStorage) store(key string, record *memoryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.storage.Set(key, data, record.ttl(s.now()))
}

func (s *MemoryStorage) Get(ctx context.Context, key string, val any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load(key)
	if err != nil {
		return err
	}
	return decodeFields(record.Fields, val)
}

func (s *MemoryStorage) Set(ctx context.Context, key string, val any, expiresIn time.Duration) error {
	fields, err := toFields(val)
	if err != nil {
		return err
	}
	record := &memoryRecord{Fields: fields}
	if expiresIn > 0 {
		record.ExpiresAt = s.now().Add(expiresIn).UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(key, record)
}

func (s *MemoryStorage) Save(ctx context.Context, key string, val any) error {
	fields, err := toFields(val)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load(key)
	if err == ErrNotFound {
		record, err = &memoryRecord{Fields: make(map[string]any)}, nil
	}
	if err != nil {
		return err
	}
	for name, value := range fields {
		record.Fields[name] = value
	}
	return s.store(key, record)
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(key); err != nil {
		return err
	}
	return s.storage.Delete(key)
}

func (s *MemoryStorage) Expire(ctx context.Context, key string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load(key)
	if err != nil {
		return err
	}
	record.ExpiresAt = expiresAt.UnixMilli()
	return s.store(key, record)
}

func (s *MemoryStorage) SetAttr(ctx context.Context, key string, field string, val any) error {
	return s.Save(ctx, key, map[string]any{field: val})
}

func (s *MemoryStorage) GetAttr(ctx context.Context, key, field string, val any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load(key)
	if err != nil {
		return err
	}
	value, ok := record.Fields[field]
	if !ok {
		return ErrNotFound
	}
	return decodeFields(value, val)
}

func (s *MemoryStorage) IncrAttr(ctx context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load(key)
	if err == ErrNotFound {
		record, err = &memoryRecord{Fields: make(map[string]any)}, nil
	}
	if err != nil {
		return 0, err
	}
	current, err := cast.ToInt64E(record.Fields[field])
	if err != nil {
		return 0, fmt.Errorf("field %s is not an integer: %w", field, err)
	}
	current += delta
	record.Fields[field] = current
	return current, s.store(key, record)
}

func (s *MemoryStorage) Close() error {
	return s.storage.Close()
}

func NewMemoryStorage(gcInterval time.Duration) *MemoryStorage {
	return &MemoryStorage{
		storage: memory.New(memory.Config{GCInterval: gcInterval}),
		now:     time.Now,
	}
}
