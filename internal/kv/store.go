package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is a flat blob store. Get returns ErrNotFound for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Backend string

const (
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendRedis, BackendPostgres, BackendMemory:
		return Backend(s), nil
	case "":
		return BackendRedis, nil
	default:
		return "", errors.New("kv: unknown backend " + s)
	}
}
