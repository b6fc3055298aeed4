package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/sightline/internal/kv"
	"github.com/eleven-am/sightline/internal/shared"
	"github.com/google/uuid"
)

// keyLocks serializes read-modify-write cycles per storage key. Stores are
// built per session and per request, so the locks live outside Store.
var keyLocks = &keyedMutex{locks: make(map[string]*refMutex)}

type refMutex struct {
	sync.Mutex
	refs int
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Store is the bounded tag collection for one device.
type Store struct {
	kv     kv.Store
	key    string
	max    int
	now    func() time.Time
	logger *slog.Logger
}

type Config struct {
	DeviceID string
	MaxTags  int
	Logger   *slog.Logger
}

func NewStore(store kv.Store, cfg Config) *Store {
	if cfg.MaxTags <= 0 {
		cfg.MaxTags = MaxTags
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		kv:     store,
		key:    shared.ScopedKey(StorageKey, cfg.DeviceID),
		max:    cfg.MaxTags,
		now:    time.Now,
		logger: cfg.Logger.With("component", "tag_store", "device_id", cfg.DeviceID),
	}
}

// List returns the stored tags. Corrupt data reads as empty.
func (s *Store) List(ctx context.Context) ([]Tag, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []Tag{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	var list []Tag
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("discarding unreadable tags", "error", err)
		return []Tag{}, nil
	}
	if list == nil {
		list = []Tag{}
	}
	return list, nil
}

func (s *Store) Add(ctx context.Context, description string) (*Tag, error) {
	unlock := keyLocks.Lock(s.key)
	defer unlock()

	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) >= s.max {
		return nil, ErrLimitReached
	}

	name := NormalizeName(description)
	if len([]rune(name)) < minNameLen {
		return nil, ErrNameTooShort
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate tag id: %w", err)
	}

	tag := Tag{
		ID:        id.String(),
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.write(ctx, append(list, tag)); err != nil {
		return nil, err
	}

	s.logger.Info("tag added", "tag_id", tag.ID, "name", tag.Name)
	return &tag, nil
}

// Remove deletes a tag by id. Unknown ids leave storage untouched.
func (s *Store) Remove(ctx context.Context, id string) error {
	unlock := keyLocks.Lock(s.key)
	defer unlock()

	list, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := make([]Tag, 0, len(list))
	for _, t := range list {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		return nil
	}

	if err := s.write(ctx, kept); err != nil {
		return err
	}
	s.logger.Info("tag removed", "tag_id", id)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	unlock := keyLocks.Lock(s.key)
	defer unlock()

	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, list []Tag) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}
