package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenVerifier resolves a credential token to a user id. Issuing tokens
// is the auth service's business; this core only checks them.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// RedisTokenVerifier looks tokens up as session keys written by the auth
// service. A missing or unparsable entry is an authorization failure,
// not an infrastructure one.
type RedisTokenVerifier struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTokenVerifier(rdb *redis.Client, prefix string) *RedisTokenVerifier {
	return &RedisTokenVerifier{rdb: rdb, prefix: prefix}
}

func (v *RedisTokenVerifier) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidToken
	}

	val, err := v.rdb.Get(ctx, v.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrInvalidToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("verify token: %w", err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// StaticTokenVerifier maps fixed tokens to user ids. Used with the
// in-memory store and in tests.
type StaticTokenVerifier map[string]uuid.UUID

func (v StaticTokenVerifier) Verify(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := v[token]
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
