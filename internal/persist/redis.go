// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisBackend is the optional shared persistence backend for deployments
// running more than one follower process against the same trunked system
// (base spec §4.2 candidate cache, §4.7 lockout table), grounded on
// DMRHub's internal/dmr/servers/kvclient.go key-prefix-over-redis pattern.
type redisBackend struct {
	client *redis.Client
}

const lockoutsKey = "p25sm:lockouts"

func candidatesKey(wacn, sysid uint32) string {
	return fmt.Sprintf("p25sm:candidates:%x:%x", wacn, sysid)
}

func newRedisBackend(addr string) (*redisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %q: %w", addr, err)
	}
	return &redisBackend{client: client}, nil
}

func (r *redisBackend) loadCandidates(ctx context.Context, wacn, sysid uint32) ([]uint64, error) {
	data, err := r.client.Get(ctx, candidatesKey(wacn, sysid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return unmarshalCandidateFreqs(data)
}

func (r *redisBackend) saveCandidates(ctx context.Context, wacn, sysid uint32, freqs []uint64) error {
	data, err := marshalCandidateFreqs(freqs)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, candidatesKey(wacn, sysid), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisBackend) loadLockouts(ctx context.Context) (map[uint32]LockoutRecord, error) {
	data, err := r.client.Get(ctx, lockoutsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return unmarshalLockouts(data)
}

func (r *redisBackend) saveLockouts(ctx context.Context, entries map[uint32]LockoutRecord) error {
	data, err := marshalLockouts(entries)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, lockoutsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisBackend) close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
